package cli

import (
	"time"

	"ham-exam-bot/internal/domain"
)

// samplePools backs the server when no database is configured.
func samplePools() []domain.ExamPool {
	return []domain.ExamPool{{
		ID:          "technician",
		Name:        "Technician (Element 2)",
		Description: "Entry level license exam",
		ValidFrom:   time.Date(2022, 7, 1, 0, 0, 0, 0, time.UTC),
		ValidTo:     time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
		MaxRounds:   35,
	}}
}

func sampleQuestions() []domain.Question {
	q := func(id, section, text string, correct int, options ...string) domain.Question {
		question := domain.Question{
			ID:        id,
			PoolID:    "technician",
			Text:      text,
			Section:   section,
			TopicCode: id[:3],
		}
		for i, opt := range options {
			question.Options = append(question.Options, domain.AnswerOption{
				ID:      string(rune('a' + i)),
				Text:    opt,
				Correct: i == correct,
			})
		}
		return question
	}
	return []domain.Question{
		q("T1A01", "T1", "Which of the following is part of the Basis and Purpose of the Amateur Radio Service?", 2,
			"Providing personal radio communications for as many citizens as possible",
			"Providing communications for international non-profit organizations",
			"Advancing skills in the technical and communication phases of the radio art",
			"All these choices are correct"),
		q("T1A04", "T1", "How many operator/primary station license grants may be held by any one person?", 0,
			"One", "No more than two", "One for each band on which the person plans to operate",
			"One for each permanent station location from which the person plans to operate"),
		q("T5A01", "T5", "Electrical current is measured in which of the following units?", 3,
			"Volts", "Watts", "Ohms", "Amperes"),
		q("T5A03", "T5", "What is the name for the flow of electrons in an electric circuit?", 1,
			"Voltage", "Current", "Capacitance", "Inductance"),
		q("T5B01", "T5", "How many milliamperes is 1.5 amperes?", 2,
			"15 milliamperes", "150 milliamperes", "1,500 milliamperes", "15,000 milliamperes"),
		q("T7A01", "T7", "Which term describes the ability of a receiver to detect the presence of a signal?", 1,
			"Linearity", "Sensitivity", "Selectivity", "Total Harmonic Distortion"),
	}
}
