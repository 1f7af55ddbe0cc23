// Package failure classifies rejection reasons produced by HTTP clients.
//
// Two response conventions are understood without the caller normalizing
// them first: the standard one, where the decoded body lives in Data, and the
// fetch-style one, where it lives in FetchData. ResponseOf is the only place
// that inspects the shape of an arbitrary value; everything else in this
// package works on the *Response it returns.
package failure

import (
	"errors"
	"net/http"
	"reflect"
)

// Response describes the HTTP response attached to a failure.
type Response struct {
	Status    int
	Data      any // standard body field ("data")
	FetchData any // fetch-style body field ("_data")
	Header    http.Header
	URL       string
}

// Body returns Data when it carries a value, falling back to FetchData, then nil.
func (r *Response) Body() any {
	if r == nil {
		return nil
	}
	if present(r.Data) {
		return r.Data
	}
	if present(r.FetchData) {
		return r.FetchData
	}
	return nil
}

// ResponseCarrier is implemented by errors that follow the standard convention.
type ResponseCarrier interface {
	HTTPResponse() *Response
}

// FetchCarrier is implemented by errors that follow the fetch-style convention.
type FetchCarrier interface {
	FetchResponse() *Response
}

// ResponseOf extracts the response descriptor from v. It accepts a *Response,
// anything implementing ResponseCarrier or FetchCarrier (directly or anywhere
// in an error chain) and decoded maps shaped like
// {"response": {"status": 422, "data": ...}} or {"response": {"status": 422, "_data": ...}}.
func ResponseOf(v any) (*Response, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case *Response:
		return x, x != nil
	case ResponseCarrier:
		return fromCarrier(x)
	case FetchCarrier:
		return fromCarrier(x)
	case error:
		var rc ResponseCarrier
		if errors.As(x, &rc) {
			return fromCarrier(rc)
		}
		var fc FetchCarrier
		if errors.As(x, &fc) {
			return fromCarrier(fc)
		}
		return nil, false
	case map[string]any:
		return responseFromMap(x)
	}
	return nil, false
}

// fromCarrier reads the response from c. A typed nil carrier, such as a nil
// *httpcall.Error stored in an error, yields no response.
func fromCarrier(c any) (*Response, bool) {
	if isNil(c) {
		return nil, false
	}

	var r *Response
	switch x := c.(type) {
	case ResponseCarrier:
		r = x.HTTPResponse()
	case FetchCarrier:
		r = x.FetchResponse()
	}
	return r, r != nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func responseFromMap(m map[string]any) (*Response, bool) {
	raw, ok := m["response"].(map[string]any)
	if !ok {
		return nil, false
	}
	status, ok := asNumber(raw["status"])
	if !ok {
		return nil, false
	}

	resp := &Response{
		Status:    status,
		Data:      raw["data"],
		FetchData: raw["_data"],
	}
	if u, ok := raw["url"].(string); ok {
		resp.URL = u
	}
	return resp, true
}

// present mirrors a truthiness check: nil, empty strings, false and zero
// numbers carry no body.
func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	}
	return true
}
