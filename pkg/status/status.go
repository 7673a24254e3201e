// Package status carries the Status value used across the task-execution
// core: AsyncTask completion and the retry classifier speak this type
// instead of a bare error. Worker and WorkerSet submissions report their
// outcome as a bool, not as a Status.
package status

import "fmt"

// Kind classifies a Status the way the retry driver needs to distinguish
// "still in progress, maybe retry" from a definitive outcome.
type Kind int

const (
	KindOK Kind = iota
	KindIncomplete
	KindAborted
	KindNotInitialized
	KindAdmissionRejected
	KindQueueClosed
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "OK"
	case KindIncomplete:
		return "Incomplete"
	case KindAborted:
		return "Aborted"
	case KindNotInitialized:
		return "NotInitialized"
	case KindAdmissionRejected:
		return "AdmissionRejected"
	case KindQueueClosed:
		return "QueueClosed"
	default:
		return "Unknown"
	}
}

// ErrorCode enumerates the well-known region-moved error class. Only the
// three retryable codes are named; anything else is carried as ErrOther.
type ErrorCode int

const (
	ErrOther ErrorCode = iota
	ErrRegionVersionMismatch
	ErrRegionNotFound
	ErrKeyOutOfRange
)

func (c ErrorCode) String() string {
	switch c {
	case ErrRegionVersionMismatch:
		return "REGION_VERSION_MISMATCH"
	case ErrRegionNotFound:
		return "REGION_NOT_FOUND"
	case ErrKeyOutOfRange:
		return "KEY_OUT_OF_RANGE"
	default:
		return "OTHER"
	}
}

// Status is the terminal or in-flight outcome of an AsyncTask step.
type Status struct {
	Kind    Kind
	Code    ErrorCode
	Message string
}

// OK reports a successful, final status.
func OK() Status { return Status{Kind: KindOK} }

// Incomplete reports a retryable-or-not in-progress failure.
func Incomplete(code ErrorCode, msg string) Status {
	return Status{Kind: KindIncomplete, Code: code, Message: msg}
}

// Aborted reports a final failure after retries are exhausted.
func Aborted(code ErrorCode, msg string) Status {
	return Status{Kind: KindAborted, Code: code, Message: msg}
}

// Fatal reports a final, non-retryable failure.
func Fatal(msg string) Status {
	return Status{Kind: KindAborted, Code: ErrOther, Message: msg}
}

func (s Status) Ok() bool { return s.Kind == KindOK }

func (s Status) String() string {
	if s.Ok() {
		return "OK"
	}
	if s.Message == "" {
		return fmt.Sprintf("%s(%s)", s.Kind, s.Code)
	}
	return fmt.Sprintf("%s(%s): %s", s.Kind, s.Code, s.Message)
}

// Retryable implements the classifier from spec §4.5: true iff the status
// is Incomplete and the error code is one of the known region-moved codes.
func Retryable(s Status) bool {
	if s.Kind != KindIncomplete {
		return false
	}
	switch s.Code {
	case ErrRegionVersionMismatch, ErrRegionNotFound, ErrKeyOutOfRange:
		return true
	default:
		return false
	}
}
