package failure

// HTTPContext is the normalized bundle handed to HTTP failure handlers.
type HTTPContext struct {
	Error    error
	Response *Response
	Status   int
	Data     any
}

// NewHTTPContext bundles a failure with its response.
func NewHTTPContext(err error, resp *Response) HTTPContext {
	return HTTPContext{
		Error:    err,
		Response: resp,
		Status:   resp.Status,
		Data:     resp.Body(),
	}
}

// ArrestHTTPError calls fn and reports true when err carries an HTTP response.
func ArrestHTTPError(err error, fn func(HTTPContext)) bool {
	resp, ok := ResponseOf(err)
	if !ok {
		return false
	}
	fn(NewHTTPContext(err, resp))
	return true
}

// ArrestStatusCode calls fn and reports true when err carries an HTTP
// response whose status matches patterns.
func ArrestStatusCode(err error, patterns StatusPatterns, fn func(HTTPContext)) bool {
	resp, ok := ResponseOf(err)
	if !ok || !patterns.Match(resp.Status) {
		return false
	}
	fn(NewHTTPContext(err, resp))
	return true
}

// ArrestValidationError calls fn with the field messages and reports true
// when err is a validation failure.
func ArrestValidationError(err error, fn func(*MessageBag, HTTPContext)) bool {
	resp, ok := ResponseOf(err)
	if !ok || !Codes(StatusUnprocessable).Match(resp.Status) {
		return false
	}
	fn(NewMessageBag(resp), NewHTTPContext(err, resp))
	return true
}
