// Package services holds the application logic behind the HTTP handlers:
// chat turns (engine stream aggregation and idempotent replay) and thread
// listing and history.
//
// Handlers translate these errors into HTTP status codes; services never
// speak HTTP.
package services

import "errors"

var (
	// ErrEmptyMessage is returned when a chat turn carries no message.
	ErrEmptyMessage = errors.New("message is required")

	// ErrEngine matches every failure reported by the conversational engine,
	// whether it happened before streaming started or mid-stream.
	ErrEngine = errors.New("chatbot error")

	// ErrThreadNotFound indicates that no thread with the given id exists.
	ErrThreadNotFound = errors.New("thread not found")
)

// EngineError wraps an engine failure. Its message is the one returned to
// chat clients.
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string { return "Chatbot error: " + e.Err.Error() }

func (e *EngineError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrEngine) true for every EngineError.
func (e *EngineError) Is(target error) bool { return target == ErrEngine }
