package failure

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/Bahjat/arrestorgear/internal/platform/errs"
)

// DefaultValidationMessage is used when a validation body carries no message.
const DefaultValidationMessage = "The given data was invalid"

// ErrNoMessages is the cause reported by FirstAny when no field holds a message.
var ErrNoMessages = errors.New("validation bag holds no messages")

// ValidationPayload is the typed form of a validation body.
type ValidationPayload struct {
	Message string         `json:"message"`
	Errors  map[string]any `json:"errors"`
}

// Formatter condenses the messages of one field.
type Formatter func(messages []string) any

// MessageBag gives read-only access to the field messages of a validation
// failure. It is a snapshot taken at construction.
type MessageBag struct {
	response *Response
	message  string
	keys     []string
	errors   map[string][]string
}

// NewMessageBag builds a bag from a validation response. The body is taken
// from Data, falling back to FetchData. Field names are kept in sorted order.
func NewMessageBag(resp *Response) *MessageBag {
	message, rawErrors := splitPayload(resp.Body())

	if message == "" {
		message = DefaultValidationMessage
	}

	bag := &MessageBag{
		response: resp,
		message:  message,
		errors:   make(map[string][]string),
	}

	rv := reflect.ValueOf(rawErrors)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			bag.errors[key] = formatMessages(iter.Value().Interface())
			bag.keys = append(bag.keys, key)
		}
	}
	slices.Sort(bag.keys)

	return bag
}

func splitPayload(body any) (string, any) {
	switch b := body.(type) {
	case map[string]any:
		msg, _ := b["message"].(string)
		return msg, b["errors"]
	case ValidationPayload:
		return b.Message, b.Errors
	case *ValidationPayload:
		if b != nil {
			return b.Message, b.Errors
		}
	}
	return "", nil
}

func formatMessages(v any) []string {
	items := WrapArray(v)
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = stringify(item)
	}
	return out
}

func stringify(v any) string {
	if v == nil {
		return "null"
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// WrapArray returns v's elements when v is a slice or array, and a
// one-element slice holding v otherwise.
func WrapArray(v any) []any {
	if items, ok := v.([]any); ok {
		return items
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}

	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items
}

// Response returns the response the bag was built from.
func (b *MessageBag) Response() *Response {
	return b.response
}

// Message returns the top-level validation message.
func (b *MessageBag) Message() string {
	return b.message
}

// Keys returns the field names in sorted order.
func (b *MessageBag) Keys() []string {
	return slices.Clone(b.keys)
}

// Has reports whether key has an entry.
func (b *MessageBag) Has(key string) bool {
	_, ok := b.errors[key]
	return ok
}

// Get returns the messages for key.
func (b *MessageBag) Get(key string) ([]string, bool) {
	msgs, ok := b.errors[key]
	if !ok {
		return nil, false
	}
	return slices.Clone(msgs), true
}

// GetFormatted applies format to the messages for key.
func (b *MessageBag) GetFormatted(key string, format Formatter) (any, bool) {
	msgs, ok := b.Get(key)
	if !ok {
		return nil, false
	}
	return format(msgs), true
}

// First returns the first message for key. It reports false when the key is
// absent or its first message is empty.
func (b *MessageBag) First(key string) (string, bool) {
	msgs := b.errors[key]
	if len(msgs) == 0 || msgs[0] == "" {
		return "", false
	}
	return msgs[0], true
}

// FirstAny returns the first message of the first field, in key order, that
// has one.
func (b *MessageBag) FirstAny() (string, error) {
	for _, key := range b.keys {
		if msg, ok := b.First(key); ok {
			return msg, nil
		}
	}
	return "", &errs.AppError{
		Kind:    errs.EmptyBag,
		Message: "no validation message available",
		Cause:   ErrNoMessages,
	}
}

// All returns a copy of every field's messages.
func (b *MessageBag) All() map[string][]string {
	out := make(map[string][]string, len(b.errors))
	for k, v := range b.errors {
		out[k] = slices.Clone(v)
	}
	return out
}

// AllFormatted applies format to every field's messages.
func (b *MessageBag) AllFormatted(format Formatter) map[string]any {
	out := make(map[string]any, len(b.errors))
	for k, v := range b.errors {
		out[k] = format(slices.Clone(v))
	}
	return out
}
