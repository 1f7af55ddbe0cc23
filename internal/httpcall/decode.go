package httpcall

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"strings"

	"golang.org/x/net/html"
)

// decodeBody turns a raw body into the value stored on a Result or a failure
// Response. JSON bodies are decoded generically, HTML error pages are reduced
// to {"message": <title or first h1>}, and anything else is kept as text.
func decodeBody(contentType string, body []byte) (any, error) {
	if len(body) == 0 {
		return nil, nil
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return string(body), err
		}
		return v, nil

	case mediaType == "text/html":
		msg, err := htmlMessage(bytes.NewReader(body))
		if err != nil || msg == "" {
			return string(body), err
		}
		return map[string]any{"message": msg}, nil
	}

	return string(body), nil
}

// htmlMessage returns the page title, falling back to the first h1 heading.
func htmlMessage(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var inTitle, inHeading bool
	var heading string

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return heading, nil
			}
			return "", z.Err()

		case html.StartTagToken:
			tn, _ := z.TagName()
			switch string(tn) {
			case "title":
				inTitle = true
			case "h1":
				inHeading = heading == ""
			}

		case html.EndTagToken:
			inTitle, inHeading = false, false

		case html.TextToken:
			text := strings.TrimSpace(string(z.Text()))
			if text == "" {
				continue
			}
			if inTitle {
				return text, nil
			}
			if inHeading {
				heading = text
				inHeading = false
			}
		}
	}
}
