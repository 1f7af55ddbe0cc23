package errs

import "fmt"

// Kind categorizes application errors.
type Kind int

const (
	// Unknown represents an unclassified error.
	Unknown Kind = iota
	// InvalidInput indicates an argument had the wrong shape (bad constructor input, bad pattern).
	InvalidInput
	// Unreachable indicates the target URL could not be reached.
	Unreachable
	// Timeout indicates the target took too long to respond.
	Timeout
	// ParsingFailed indicates a response body could not be decoded.
	ParsingFailed
	// HookFault indicates a caller-supplied hook or arrestor panicked.
	HookFault
	// EmptyBag indicates a message lookup on a validation bag that holds no messages.
	EmptyBag
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case Unreachable:
		return "unreachable"
	case Timeout:
		return "timeout"
	case ParsingFailed:
		return "parsing_failed"
	case HookFault:
		return "hook_fault"
	case EmptyBag:
		return "empty_bag"
	default:
		return "unknown"
	}
}

// AppError carries a category, user message, and original cause.
type AppError struct {
	Kind           Kind
	UpstreamStatus int // HTTP status code returned by the remote end, if any
	Message        string
	Cause          error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Recovered converts a value obtained from recover() into a HookFault error.
// Error values are kept as the cause so errors.Is and errors.As still see them.
func Recovered(stage string, v any) *AppError {
	cause, ok := v.(error)
	if !ok {
		cause = fmt.Errorf("panic: %v", v)
	}
	return &AppError{
		Kind:    HookFault,
		Message: stage + " hook panicked",
		Cause:   cause,
	}
}
