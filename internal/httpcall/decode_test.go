package httpcall

import (
	"reflect"
	"testing"
)

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        any
		wantErr     bool
	}{
		{
			name: "empty body",
			want: nil,
		},
		{
			name:        "json object",
			contentType: "application/json; charset=utf-8",
			body:        `{"message":"nope","errors":{"email":["taken"]}}`,
			want: map[string]any{
				"message": "nope",
				"errors":  map[string]any{"email": []any{"taken"}},
			},
		},
		{
			name:        "problem json",
			contentType: "application/problem+json",
			body:        `{"status":422}`,
			want:        map[string]any{"status": float64(422)},
		},
		{
			name:        "invalid json kept as text",
			contentType: "application/json",
			body:        `{oops`,
			want:        `{oops`,
			wantErr:     true,
		},
		{
			name:        "html title",
			contentType: "text/html",
			body:        "<html><head><title> Service Unavailable </title></head></html>",
			want:        map[string]any{"message": "Service Unavailable"},
		},
		{
			name:        "html h1 fallback",
			contentType: "text/html",
			body:        "<body><h1>Not Found</h1><h1>second</h1></body>",
			want:        map[string]any{"message": "Not Found"},
		},
		{
			name:        "html without message",
			contentType: "text/html",
			body:        "<p>plain</p>",
			want:        "<p>plain</p>",
		},
		{
			name:        "plain text",
			contentType: "text/plain",
			body:        "teapot",
			want:        "teapot",
		},
		{
			name: "missing content type",
			body: `{"a":1}`,
			want: `{"a":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeBody(tt.contentType, []byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeBody() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("decodeBody() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestEncodeBody(t *testing.T) {
	tests := []struct {
		name            string
		body            any
		wantContentType string
		wantNil         bool
	}{
		{name: "nil", body: nil, wantNil: true},
		{name: "string", body: "raw", wantContentType: ""},
		{name: "bytes", body: []byte("raw"), wantContentType: ""},
		{name: "struct", body: struct{ Name string }{"x"}, wantContentType: "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ct, err := encodeBody(tt.body)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (r == nil) != tt.wantNil {
				t.Errorf("reader nil = %v, want %v", r == nil, tt.wantNil)
			}
			if ct != tt.wantContentType {
				t.Errorf("content type = %q, want %q", ct, tt.wantContentType)
			}
		})
	}

	if _, _, err := encodeBody(make(chan int)); err == nil {
		t.Error("expected error for unencodable body")
	}
}
