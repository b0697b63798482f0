package domain

import "time"

// Mode selects who may answer during a quiz session.
type Mode string

const (
	// ModeSingle restricts submissions to the session's designated participant.
	ModeSingle Mode = "single"
	// ModeMulti accepts submissions from any respondent in the scope.
	ModeMulti Mode = "multi"
)

// ParseMode maps user input to a Mode, defaulting to ModeSingle.
func ParseMode(raw string) Mode {
	switch raw {
	case string(ModeMulti), "multi-participant", "group":
		return ModeMulti
	default:
		return ModeSingle
	}
}

// ExamPool is the versioned question set for one exam element.
type ExamPool struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ValidFrom   time.Time `json:"validFrom"`
	ValidTo     time.Time `json:"validTo"`
	MaxRounds   int       `json:"maxRounds"` // question count of the real exam; 0 means unbounded
}

// AnswerOption is one choice of a question.
type AnswerOption struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question that should carry exactly one correct option.
type Question struct {
	ID               string         `json:"id"`
	PoolID           string         `json:"poolId"`
	Text             string         `json:"text"`
	Section          string         `json:"section"`
	TopicCode        string         `json:"topicCode"`
	TopicDescription string         `json:"topicDescription"`
	FigureRef        string         `json:"figureRef,omitempty"`
	Archived         bool           `json:"archived"`
	Options          []AnswerOption `json:"options"`
}

// CorrectOption returns the single correct option. A question with zero or
// several options flagged correct has no valid correct option.
func (q Question) CorrectOption() (AnswerOption, bool) {
	var found AnswerOption
	count := 0
	for _, opt := range q.Options {
		if opt.Correct {
			found = opt
			count++
		}
	}
	if count != 1 {
		return AnswerOption{}, false
	}
	return found, true
}

// QuizSessionRecord is the persisted mirror of a quiz session.
type QuizSessionRecord struct {
	ID            string     `json:"id"`
	ScopeKey      string     `json:"scopeKey"`
	ExamID        string     `json:"examId"`
	Mode          Mode       `json:"mode"`
	Active        bool       `json:"active"`
	StartedAt     time.Time  `json:"startedAt"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
	InitiatorID   string     `json:"initiatorId"`
	InitiatorName string     `json:"initiatorName"`
}

// UserAnswer is one submission; (SessionID, QuestionID, UserID) is unique.
type UserAnswer struct {
	SessionID  string    `json:"sessionId"`
	QuestionID string    `json:"questionId"`
	UserID     string    `json:"userId"`
	Answer     string    `json:"answer"`
	Correct    bool      `json:"correct"`
	AnsweredAt time.Time `json:"answeredAt"`
}

// LeaderboardEntry counts the correct answers of one user.
type LeaderboardEntry struct {
	UserID  string `json:"userId"`
	Correct int    `json:"correct"`
}

// Standing is a leaderboard entry with its final grade.
type Standing struct {
	UserID  string  `json:"userId"`
	Correct int     `json:"correct"`
	Percent float64 `json:"percent"`
	Passed  bool    `json:"passed"`
}
