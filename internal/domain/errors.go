package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no quiz session runs for a scope key.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrRoundNotActive is returned when no question is currently open.
	ErrRoundNotActive = errors.New("no question is open")
	// ErrNotAuthorized is returned when a user acts on a session they do not own.
	ErrNotAuthorized = errors.New("not allowed to act on this quiz")
	// ErrDuplicateSubmission indicates the user already answered this question.
	ErrDuplicateSubmission = errors.New("question already answered")
	// ErrUnknownChoice indicates a letter outside the round's answer mapping.
	ErrUnknownChoice = errors.New("unknown answer choice")
	// ErrAdmissionConflict is returned when a scope already has an active session.
	ErrAdmissionConflict = errors.New("a quiz is already running here")
	// ErrEmptyPool indicates no eligible questions were found for an exam.
	ErrEmptyPool = errors.New("no questions available")
	// ErrPoolNotFound indicates the exam pool could not be loaded.
	ErrPoolNotFound = errors.New("exam pool not found")
	// ErrNoListeners indicates a broadcast reached nobody.
	ErrNoListeners = errors.New("no listeners for scope")
	// ErrMalformedInteraction indicates an action id that no handler accepts.
	ErrMalformedInteraction = errors.New("malformed interaction id")
)

// Code is a machine-readable rejection code.
type Code string

const (
	CodeUnknown              Code = "UNKNOWN"
	CodeSessionNotFound      Code = "SESSION_NOT_FOUND"
	CodeRoundNotActive       Code = "ROUND_NOT_ACTIVE"
	CodeNotAuthorized        Code = "NOT_AUTHORIZED"
	CodeDuplicateSubmission  Code = "DUPLICATE_SUBMISSION"
	CodeUnknownChoice        Code = "UNKNOWN_CHOICE"
	CodeAdmissionConflict    Code = "ADMISSION_CONFLICT"
	CodeEmptyPool            Code = "EMPTY_POOL"
	CodePoolNotFound         Code = "POOL_NOT_FOUND"
	CodeMalformedInteraction Code = "MALFORMED_INTERACTION"
)

var codes = []struct {
	err  error
	code Code
}{
	{ErrSessionNotFound, CodeSessionNotFound},
	{ErrRoundNotActive, CodeRoundNotActive},
	{ErrNotAuthorized, CodeNotAuthorized},
	{ErrDuplicateSubmission, CodeDuplicateSubmission},
	{ErrUnknownChoice, CodeUnknownChoice},
	{ErrAdmissionConflict, CodeAdmissionConflict},
	{ErrEmptyPool, CodeEmptyPool},
	{ErrPoolNotFound, CodePoolNotFound},
	{ErrMalformedInteraction, CodeMalformedInteraction},
}

// RejectCode maps an error to the code reported back to the requester.
func RejectCode(err error) Code {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeUnknown
}

// IsRejection reports whether err is a per-request rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	return RejectCode(err) != CodeUnknown
}
