package httpcall

import (
	"fmt"

	"github.com/Bahjat/arrestorgear/internal/failure"
)

// Error is returned for responses with status 400 and above when the client
// uses the Standard convention. The decoded body is in Response.Data.
type Error struct {
	Method   string
	Response *failure.Response
}

func (e *Error) Error() string {
	if e == nil || e.Response == nil {
		return "http error"
	}
	return fmt.Sprintf("%s %s: http %d", e.Method, e.Response.URL, e.Response.Status)
}

// HTTPResponse implements failure.ResponseCarrier. It is safe on a nil *Error.
func (e *Error) HTTPResponse() *failure.Response {
	if e == nil {
		return nil
	}
	return e.Response
}

// FetchError is the Fetch convention counterpart of Error. The decoded body
// is in Response.FetchData.
type FetchError struct {
	Method     string
	StatusText string
	Redirected bool
	Response   *failure.Response
}

func (e *FetchError) Error() string {
	if e == nil || e.Response == nil {
		return "fetch error"
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Response.URL, e.StatusText)
}

// FetchResponse implements failure.FetchCarrier. It is safe on a nil *FetchError.
func (e *FetchError) FetchResponse() *failure.Response {
	if e == nil {
		return nil
	}
	return e.Response
}
