package jobs

import "fmt"

// Kind is a stable error category surfaced to callers on fatal job failure.
type Kind string

const (
	// KindInvalidMedia marks uploads that could not be probed or decoded,
	// including zero-duration videos.
	KindInvalidMedia Kind = "invalid_media"

	// KindPublishFailed marks exhausted artifact-publish retries. The job
	// cannot return frame references it cannot guarantee are fetchable.
	KindPublishFailed Kind = "publish_failed"

	// KindInternal marks invariant violations and other upstream bugs.
	KindInternal Kind = "internal"
)

// Error is a fatal, job-aborting failure with a stable kind and a
// human-readable message. Degrading stage failures never use this type;
// they surface only as absent optional fields on the result.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// InvalidMedia wraps err as a fatal invalid-media failure.
func InvalidMedia(message string, err error) *Error {
	return &Error{Kind: KindInvalidMedia, Message: message, Err: err}
}

// PublishFailed wraps err as a fatal artifact-publish failure.
func PublishFailed(message string, err error) *Error {
	return &Error{Kind: KindPublishFailed, Message: message, Err: err}
}

// Internal wraps err as a fatal internal failure. Observing one indicates an
// upstream bug, not bad user input.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}
