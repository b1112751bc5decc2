// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package repair recovers structured data from semi-structured model output.
// Each recovery technique is a Strategy: a pure function from text to a
// parsed value or an error. Callers compose strategies into an ordered
// chain and take the first success.
package repair

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"
)

var (
	// ErrEmpty is returned when there is no text to parse.
	ErrEmpty = errors.New("empty input")

	// ErrNoBlock is returned when no bracketed block can be located.
	ErrNoBlock = errors.New("no structured block found")

	// ErrNotArray is returned when decoded data is not a list.
	ErrNotArray = errors.New("decoded value is not an array")

	// ErrNotObject is returned when decoded data is not a flat mapping.
	ErrNotObject = errors.New("decoded value is not an object")
)

// Strategy is one named parsing attempt.
type Strategy[T any] struct {
	Name  string
	Parse func(text string) (T, error)
}

// First runs the strategies in order and returns the value and name of the
// first one that succeeds. When all fail, the joined errors are returned.
func First[T any](text string, strategies ...Strategy[T]) (T, string, error) {
	var zero T
	var errs []error
	for _, s := range strategies {
		v, err := s.Parse(text)
		if err == nil {
			return v, s.Name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}
	if len(errs) == 0 {
		return zero, "", ErrEmpty
	}
	return zero, "", errors.Join(errs...)
}

var fenceRe = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\r?\n?(.*?)```")

// StripFences removes markdown code-fence decoration. When the text holds a
// complete fenced block, the block body is returned. An unterminated opening
// fence or a dangling closing fence is dropped.
func StripFences(text string) string {
	t := strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(t); m != nil {
		return strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```")
		if i := strings.IndexByte(t, '\n'); i >= 0 && !strings.ContainsAny(t[:i], "[{") {
			t = t[i+1:]
		}
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

// FencedBlock returns the body of the first complete fenced block, if any.
func FencedBlock(text string) (string, bool) {
	m := fenceRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// ExtractArray returns the first balanced [...] sub-string of text.
func ExtractArray(text string) (string, error) {
	return extractBalanced(text, '[', ']')
}

// ExtractObject returns the first balanced {...} sub-string of text.
func ExtractObject(text string) (string, error) {
	return extractBalanced(text, '{', '}')
}

// ExtractArrays returns every top-level balanced [...] sub-string of text in
// order. Prose such as "[see below]" ahead of the data comes back as its own
// candidate; an unbalanced open bracket is skipped.
func ExtractArrays(text string) []string {
	var out []string
	for i := 0; i < len(text); {
		j := strings.IndexByte(text[i:], '[')
		if j < 0 {
			break
		}
		start := i + j
		end, ok := matchClose(text, start, '[', ']')
		if !ok {
			i = start + 1
			continue
		}
		out = append(out, text[start:end+1])
		i = end + 1
	}
	return out
}

// extractBalanced returns the span from the first open byte up to its
// matching close byte.
func extractBalanced(s string, open, close byte) (string, error) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", ErrNoBlock
	}
	end, ok := matchClose(s, start, open, close)
	if !ok {
		return "", ErrNoBlock
	}
	return s[start : end+1], nil
}

// matchClose returns the index of the close byte matching the open byte at
// start, skipping bracket bytes inside string literals.
func matchClose(s string, start int, open, close byte) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// Repair applies the syntactic repair pass: strip fences, close quoted
// segments left open at end of line, drop trailing commas before a closing
// bracket, balance brackets and braces, and wrap bare content in an array.
func Repair(text string) string {
	t := StripFences(text)
	if t == "" {
		return "[]"
	}
	t = closeOpenQuotes(t)
	t = removeTrailingCommas(t)
	t = balance(t)
	switch {
	case strings.HasPrefix(t, "{"):
		// A comma-separated run of objects becomes an array.
		if obj, err := ExtractObject(t); err == nil && strings.TrimSpace(t[len(obj):]) != "" {
			t = "[" + t + "]"
		}
	case !strings.HasPrefix(t, "["):
		t = "[" + t + "]"
	}
	return t
}

// closeOpenQuotes terminates any line holding an odd number of unescaped
// double quotes. The quote goes before a trailing comma when one exists.
func closeOpenQuotes(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if countQuotes(line)%2 == 0 {
			continue
		}
		trimmed := strings.TrimRight(line, " \t\r")
		if strings.HasSuffix(trimmed, ",") {
			lines[i] = trimmed[:len(trimmed)-1] + `",`
		} else {
			lines[i] = trimmed + `"`
		}
	}
	return strings.Join(lines, "\n")
}

func countQuotes(line string) int {
	n := 0
	escaped := false
	for i := 0; i < len(line); i++ {
		switch {
		case escaped:
			escaped = false
		case line[i] == '\\':
			escaped = true
		case line[i] == '"':
			n++
		}
	}
	return n
}

// removeTrailingCommas drops commas that are followed only by whitespace and
// a closing bracket or brace. Commas inside string literals are kept.
func removeTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			b.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
		}
		if ch == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == ']' || s[j] == '}') {
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// balance appends the closers missing at the end of s in nesting order.
// Unmatched closers are dropped.
func balance(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			b.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			stack = append(stack, ']')
		case '{':
			stack = append(stack, '}')
		case ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != ch {
				continue
			}
			stack = stack[:len(stack)-1]
		}
		b.WriteByte(ch)
	}
	if inString {
		b.WriteByte('"')
	}
	out := strings.TrimRight(b.String(), " \t\r\n")
	out = strings.TrimSuffix(out, ",")
	for i := len(stack) - 1; i >= 0; i-- {
		out += string(stack[i])
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// DecodeStrict decodes text as JSON. Numbers are kept as json.Number so
// integer values keep their textual form. Trailing data is an error.
func DecodeStrict(text string) (any, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil, ErrEmpty
	}
	dec := json.NewDecoder(strings.NewReader(t))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after value at offset %d", dec.InputOffset())
	}
	return v, nil
}

// DecodeLenient decodes text as YAML, which accepts JSON along with single
// quotes, unquoted strings and comments. Nested mappings are normalized to
// map[string]any.
func DecodeLenient(text string) (any, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil, ErrEmpty
	}
	var v any
	if err := yaml.NewDecoder(bytes.NewReader([]byte(t))).Decode(&v); err != nil {
		return nil, err
	}
	return normalizeYAML(v), nil
}

func normalizeYAML(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = normalizeYAML(e)
		}
		return x
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = normalizeYAML(e)
		}
		return out
	case []any:
		for i, e := range x {
			x[i] = normalizeYAML(e)
		}
		return x
	}
	return v
}

// AsArray asserts that a decoded value is a list.
func AsArray(v any, err error) ([]any, error) {
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotArray, v)
	}
	return arr, nil
}

// AsObject asserts that a decoded value is a mapping.
func AsObject(v any, err error) (map[string]any, error) {
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotObject, v)
	}
	return obj, nil
}
