package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// Outcome classifies the result of a remote call.
type Outcome int

const (
	// OutcomeOK is an acknowledged call.
	OutcomeOK Outcome = iota
	// OutcomeNotFound means the server could not find the target resource,
	// either as a 404 or as a server error whose message says so.
	OutcomeNotFound
	// OutcomeRejected is any other 4xx answer, e.g. bad credentials.
	OutcomeRejected
	// OutcomeTransport covers unreachable servers, an open breaker,
	// unexpected server errors and malformed responses.
	OutcomeTransport
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeRejected:
		return "rejected"
	case OutcomeTransport:
		return "transport"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

var (
	ErrNotFound  = errors.New("resource not found")
	ErrRejected  = errors.New("request rejected")
	ErrTransport = errors.New("transport failure")
)

func (o Outcome) sentinel() error {
	switch o {
	case OutcomeNotFound:
		return ErrNotFound
	case OutcomeRejected:
		return ErrRejected
	case OutcomeTransport:
		return ErrTransport
	default:
		return nil
	}
}

// Result is the soft-failure result of a remote call. Callers branch on
// Outcome instead of treating every failure as fatal.
type Result struct {
	Op      string
	Outcome Outcome
	// Status is the HTTP status, zero when no response was received.
	Status int
	// Message is the server's diagnostic message, if any.
	Message string
	// Cause is the underlying error for transport failures.
	Cause error
}

// OK reports whether the call was acknowledged.
func (r Result) OK() bool {
	return r.Outcome == OutcomeOK
}

// Err returns nil for an acknowledged call and an *Error otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{Result: r}
}

// Error is the error form of a failed Result. It matches ErrNotFound,
// ErrRejected or ErrTransport with errors.Is.
type Error struct {
	Result
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Op, e.Outcome)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	} else if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	return target == e.Outcome.sentinel()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

var notFoundHints = []string{
	"not found",
	"does not exist",
	"no such file",
	"enoent",
}

// isNotFoundMessage reports whether a server error message says the target
// resource is missing.
func isNotFoundMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, hint := range notFoundHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

func classify(status int, msg string) Outcome {
	switch {
	case status >= 200 && status < 300:
		return OutcomeOK
	case status == 404, status == 410:
		return OutcomeNotFound
	case status >= 500 && isNotFoundMessage(msg):
		return OutcomeNotFound
	case status >= 400 && status < 500:
		return OutcomeRejected
	default:
		return OutcomeTransport
	}
}
