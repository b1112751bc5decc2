// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package repair

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n[1, 2]\n```", `[1, 2]`},
		{"prose around fence", "Here you go:\n```json\n[1]\n```\nThanks!", `[1]`},
		{"unterminated fence", "```json\n[1, 2", `[1, 2`},
		{"dangling close", "[1]\n```", `[1]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripFences(tc.in))
		})
	}
}

func TestExtractArray(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"wrapped in prose", `Sure! [{"a": "b"}] hope it helps`, `[{"a": "b"}]`, nil},
		{"nested", `x [[1], [2]] y`, `[[1], [2]]`, nil},
		{"bracket in string", `["a]b", "c"] tail`, `["a]b", "c"]`, nil},
		{"no array", `just words`, "", ErrNoBlock},
		{"unbalanced", `[1, 2`, "", ErrNoBlock},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractArray(tc.in)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractArrays(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"prose bracket before data", "Aqui [conforme pedido]:\n[{\"a\": \"b\"}]", []string{"[conforme pedido]", `[{"a": "b"}]`}},
		{"nested kept whole", `x [[1], [2]] y [3]`, []string{`[[1], [2]]`, `[3]`}},
		{"unbalanced open skipped", `[ oops [1, "]"] end`, []string{`[1, "]"]`}},
		{"none", `just words`, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractArrays(tc.in))
		})
	}
}

func TestExtractObject(t *testing.T) {
	got, err := ExtractObject(`Result: {"k": {"n": "}"}} done`)
	require.NoError(t, err)
	assert.Equal(t, `{"k": {"n": "}"}}`, got)
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing closing bracket", `[{"question": "Q?", "answer": "A."}`},
		{"missing closing brace and bracket", `[{"question": "Q?", "answer": "A."`},
		{"trailing comma", `[{"question": "Q?", "answer": "A.",},]`},
		{"fenced and unbalanced", "```json\n[{\"question\": \"Q?\", \"answer\": \"A.\"}\n```"},
		{"unterminated string", "[{\"question\": \"Q?\", \"answer\": \"A.\n}]"},
		{"bare object list", `{"question": "Q?", "answer": "A."}, {"question": "R?", "answer": "B."}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fixed := Repair(tc.in)
			v, err := DecodeStrict(fixed)
			require.NoError(t, err, "repaired text: %s", fixed)
			arr, ok := v.([]any)
			require.True(t, ok, "expected array, got %T", v)
			assert.NotEmpty(t, arr)
		})
	}
}

func TestRepair_EmptyInput(t *testing.T) {
	assert.Equal(t, "[]", Repair("   "))
}

func TestRepair_NestingOrder(t *testing.T) {
	// Closers must be appended innermost first.
	assert.Equal(t, `[{"a": [1, 2]}]`, Repair(`[{"a": [1, 2`))
}

func TestDecodeStrict(t *testing.T) {
	v, err := DecodeStrict(`{"n": 220, "f": 1.5}`)
	require.NoError(t, err)
	obj := v.(map[string]any)
	assert.Equal(t, json.Number("220"), obj["n"])
	assert.Equal(t, json.Number("1.5"), obj["f"])

	_, err = DecodeStrict(`{"a": 1} trailing`)
	assert.Error(t, err)

	_, err = DecodeStrict("")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestDecodeLenient(t *testing.T) {
	v, err := DecodeLenient(`[{'question': 'Funciona em 220V?', answer: Sim}]`)
	require.NoError(t, err)
	arr, err := AsArray(v, nil)
	require.NoError(t, err)
	require.Len(t, arr, 1)
	obj, err := AsObject(arr[0], nil)
	require.NoError(t, err)
	assert.Equal(t, "Funciona em 220V?", obj["question"])
	assert.Equal(t, "Sim", obj["answer"])
}

func TestAsArrayAsObject(t *testing.T) {
	_, err := AsArray(map[string]any{}, nil)
	assert.ErrorIs(t, err, ErrNotArray)

	_, err = AsObject([]any{}, nil)
	assert.ErrorIs(t, err, ErrNotObject)

	boom := errors.New("boom")
	_, err = AsObject(nil, boom)
	assert.ErrorIs(t, err, boom)
}

func TestFirst(t *testing.T) {
	fail := Strategy[int]{Name: "fail", Parse: func(string) (int, error) { return 0, errors.New("nope") }}
	ok := Strategy[int]{Name: "ok", Parse: func(string) (int, error) { return 7, nil }}
	never := Strategy[int]{Name: "never", Parse: func(string) (int, error) {
		t.Fatal("strategy after success must not run")
		return 0, nil
	}}

	v, name, err := First("x", fail, ok, never)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, "ok", name)

	_, _, err = First("x", fail, fail)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fail: nope")

	_, _, err = First[int]("x")
	assert.ErrorIs(t, err, ErrEmpty)
}
