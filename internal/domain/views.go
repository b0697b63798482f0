package domain

import "time"

// Choice is a lettered answer shown to respondents.
type Choice struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// QuestionView is what the transport presents at the start of a round.
type QuestionView struct {
	SessionID   string        `json:"sessionId"`
	ScopeKey    string        `json:"scopeKey"`
	Mode        Mode          `json:"mode"`
	Round       int           `json:"round"`
	TotalRounds int           `json:"totalRounds"`
	QuestionID  string        `json:"questionId"`
	Text        string        `json:"text"`
	Section     string        `json:"section"`
	Topic       string        `json:"topic"`
	FigureRef   string        `json:"figureRef,omitempty"`
	Choices     []Choice      `json:"choices"`
	Delay       time.Duration `json:"delay"`
	Deadline    time.Time     `json:"deadline"`
}

// AnswerReveal updates the live presentation after an accepted submission.
type AnswerReveal struct {
	ScopeKey        string   `json:"scopeKey"`
	QuestionID      string   `json:"questionId"`
	UserID          string   `json:"userId"`
	Letter          string   `json:"letter"`
	Correct         bool     `json:"correct"`
	CorrectLetter   string   `json:"correctLetter,omitempty"`
	DisabledLetters []string `json:"disabledLetters"`
}

// QuestionExpired marks a presentation that timed out without an early close.
type QuestionExpired struct {
	ScopeKey      string `json:"scopeKey"`
	QuestionID    string `json:"questionId"`
	CorrectLetter string `json:"correctLetter,omitempty"`
	CorrectText   string `json:"correctText,omitempty"`
}

// RoundResult lists who answered the closed round correctly or not.
type RoundResult struct {
	ScopeKey      string   `json:"scopeKey"`
	Round         int      `json:"round"`
	QuestionID    string   `json:"questionId"`
	CorrectLetter string   `json:"correctLetter,omitempty"`
	Correct       []string `json:"correct"`
	Incorrect     []string `json:"incorrect"`
}

// FinalStandings is emitted once when a session ends.
type FinalStandings struct {
	ScopeKey    string     `json:"scopeKey"`
	SessionID   string     `json:"sessionId"`
	Mode        Mode       `json:"mode"`
	TotalRounds int        `json:"totalRounds"`
	Asked       int        `json:"asked"`
	Stopped     bool       `json:"stopped"`
	Entries     []Standing `json:"entries"`
}
