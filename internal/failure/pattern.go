package failure

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Bahjat/arrestorgear/internal/platform/errs"
)

// StatusPattern matches a status code either exactly (Code) or by mask (Mask),
// where every x or X in the mask stands for a single digit.
type StatusPattern struct {
	text    string
	numeric bool
}

// Code returns a pattern that matches exactly one status code.
func Code(code int) StatusPattern {
	return StatusPattern{text: strconv.Itoa(code), numeric: true}
}

// Mask returns a wildcard pattern such as "4XX" or "4x4". The mask is
// anchored at both ends, so "5XX" never matches 50 or 5000.
func Mask(mask string) StatusPattern {
	return StatusPattern{text: mask}
}

func (p StatusPattern) String() string {
	return p.text
}

// match tests the decimal form of a status code.
func (p StatusPattern) match(actual string) bool {
	if p.numeric {
		return p.text == actual
	}

	mask := []rune(strings.ToLower(p.text))
	got := []rune(actual)
	if len(mask) != len(got) {
		return false
	}
	for i, m := range mask {
		if m == 'x' {
			if got[i] < '0' || got[i] > '9' {
				return false
			}
			continue
		}
		if m != got[i] {
			return false
		}
	}
	return true
}

// StatusPatterns is an ordered set of patterns; it matches when any member does.
type StatusPatterns []StatusPattern

// Codes builds exact-match patterns.
func Codes(codes ...int) StatusPatterns {
	ps := make(StatusPatterns, 0, len(codes))
	for _, c := range codes {
		ps = append(ps, Code(c))
	}
	return ps
}

// Masks builds wildcard patterns.
func Masks(masks ...string) StatusPatterns {
	ps := make(StatusPatterns, 0, len(masks))
	for _, m := range masks {
		ps = append(ps, Mask(m))
	}
	return ps
}

// Match reports whether the status held by actual (see ResolveStatusCode)
// matches any pattern in ps.
func (ps StatusPatterns) Match(actual any) bool {
	return MatchStatusPattern(ps, actual)
}

func (ps StatusPatterns) String() string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}

// MatchStatusPattern reports whether the status held by actual matches any of
// the patterns. An actual value without a status is compared as "null".
func MatchStatusPattern(patterns StatusPatterns, actual any) bool {
	value := "null"
	if code, ok := ResolveStatusCode(actual); ok {
		value = strconv.Itoa(code)
	}

	for _, p := range patterns {
		if p.match(value) {
			return true
		}
	}
	return false
}

// ParseStatusPatterns normalizes loosely typed input into patterns: integers
// become codes, strings become masks, and slices of either are flattened one
// level deep.
func ParseStatusPatterns(v any) (StatusPatterns, error) {
	switch x := v.(type) {
	case StatusPatterns:
		return x, nil
	case StatusPattern:
		return StatusPatterns{x}, nil
	case string:
		return Masks(x), nil
	case []string:
		return Masks(x...), nil
	case []int:
		return Codes(x...), nil
	case []any:
		ps := make(StatusPatterns, 0, len(x))
		for _, item := range x {
			p, err := parseOne(item)
			if err != nil {
				return nil, err
			}
			ps = append(ps, p)
		}
		return ps, nil
	}

	p, err := parseOne(v)
	if err != nil {
		return nil, err
	}
	return StatusPatterns{p}, nil
}

func parseOne(v any) (StatusPattern, error) {
	if s, ok := v.(string); ok {
		return Mask(s), nil
	}
	if p, ok := v.(StatusPattern); ok {
		return p, nil
	}
	if n, ok := asNumber(v); ok {
		return Code(n), nil
	}
	return StatusPattern{}, &errs.AppError{
		Kind:    errs.InvalidInput,
		Message: fmt.Sprintf("unsupported status pattern %v (%T)", v, v),
	}
}
