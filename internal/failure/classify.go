package failure

import (
	"math"
	"reflect"
	"strconv"
	"strings"
)

// StatusUnprocessable is the status code that marks a validation failure.
const StatusUnprocessable = 422

// Kind tags a classified failure.
type Kind int

const (
	// KindOther is any failure that carries no HTTP response.
	KindOther Kind = iota
	// KindHTTP is a failure with an HTTP response attached.
	KindHTTP
	// KindValidation is an HTTP failure with status 422.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindValidation:
		return "validation"
	default:
		return "other"
	}
}

// Failure is a rejection reason sorted into one of the Kind variants.
// Response is nil for KindOther.
type Failure struct {
	Kind     Kind
	Err      error
	Response *Response
}

// Classify converts a raw rejection reason into its tagged form.
func Classify(err error) Failure {
	resp, ok := ResponseOf(err)
	if !ok {
		return Failure{Kind: KindOther, Err: err}
	}
	if Codes(StatusUnprocessable).Match(resp.Status) {
		return Failure{Kind: KindValidation, Err: err, Response: resp}
	}
	return Failure{Kind: KindHTTP, Err: err, Response: resp}
}

// IsHTTPErrorLike reports whether v carries a response descriptor with a
// numeric status.
func IsHTTPErrorLike(v any) bool {
	_, ok := ResponseOf(v)
	return ok
}

// IsValidationError reports whether v is an HTTP failure with status 422.
func IsValidationError(v any) bool {
	resp, ok := ResponseOf(v)
	return ok && Codes(StatusUnprocessable).Match(resp.Status)
}

// ResolveStatusCode returns the status code held by v. Numbers are returned
// as-is (truncated to an integer), numeric strings are parsed, and structured
// values yield their response status, falling back to a top-level status.
// A zero status counts as absent.
func ResolveStatusCode(v any) (int, bool) {
	if n, ok := asNumber(v); ok {
		return n, true
	}

	switch x := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(f), true
	case map[string]any:
		if resp, ok := responseFromMap(x); ok && resp.Status != 0 {
			return resp.Status, true
		}
		if n, ok := asNumber(x["status"]); ok && n != 0 {
			return n, true
		}
		return 0, false
	}

	if resp, ok := ResponseOf(v); ok && resp.Status != 0 {
		return resp.Status, true
	}
	return 0, false
}

func asNumber(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(f), true
	}
	return 0, false
}
