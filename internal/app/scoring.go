package app

import (
	"math"
	"sort"

	"ham-exam-bot/internal/domain"
)

// PassPercent is the minimum final percentage that passes an exam.
const PassPercent = 74

// Leaderboard groups answers by user and counts correct ones, highest first.
// Users with no correct answer are left out. Ties keep the order in which the
// users first appear in answers.
func Leaderboard(answers []domain.UserAnswer) []domain.LeaderboardEntry {
	index := make(map[string]int)
	var entries []domain.LeaderboardEntry
	for _, a := range answers {
		if !a.Correct {
			continue
		}
		i, ok := index[a.UserID]
		if !ok {
			i = len(entries)
			index[a.UserID] = i
			entries = append(entries, domain.LeaderboardEntry{UserID: a.UserID})
		}
		entries[i].Correct++
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Correct > entries[j].Correct
	})
	return entries
}

// FinalPercent is correct / totalRounds * 100. Zero rounds score zero.
func FinalPercent(correct, totalRounds int) float64 {
	if totalRounds <= 0 {
		return 0
	}
	return float64(correct) / float64(totalRounds) * 100
}

// DisplayPercent rounds a percentage for display.
func DisplayPercent(percent float64) int {
	return int(math.Round(percent))
}

// Pass reports whether percent reaches PassPercent.
func Pass(percent float64) bool {
	return percent >= PassPercent
}

// PartitionRound splits the respondents of one question into correct and
// incorrect user ids, in submission order. Non-respondents appear in neither.
func PartitionRound(answers []domain.UserAnswer, questionID string) (correct, incorrect []string) {
	correct = []string{}
	incorrect = []string{}
	for _, a := range answers {
		if a.QuestionID != questionID {
			continue
		}
		if a.Correct {
			correct = append(correct, a.UserID)
		} else {
			incorrect = append(incorrect, a.UserID)
		}
	}
	return correct, incorrect
}

// Standings grades the leaderboard of a session. Respondents without a correct
// answer follow the leaderboard with zero; ensure lists users that must appear
// even if they never answered (the single-participant taker).
func Standings(answers []domain.UserAnswer, totalRounds int, ensure ...string) []domain.Standing {
	board := Leaderboard(answers)
	seen := make(map[string]bool, len(board))
	out := make([]domain.Standing, 0, len(board))
	add := func(userID string, correct int) {
		percent := FinalPercent(correct, totalRounds)
		out = append(out, domain.Standing{
			UserID:  userID,
			Correct: correct,
			Percent: percent,
			Passed:  Pass(percent),
		})
		seen[userID] = true
	}
	for _, e := range board {
		add(e.UserID, e.Correct)
	}
	for _, a := range answers {
		if !seen[a.UserID] {
			add(a.UserID, 0)
		}
	}
	for _, userID := range ensure {
		if userID != "" && !seen[userID] {
			add(userID, 0)
		}
	}
	return out
}
