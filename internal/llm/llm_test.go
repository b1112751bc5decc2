// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/listing-engine/pkg/types"
)

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	backoffBase = time.Millisecond
	os.Exit(m.Run())
}

// failNTimes fails the first n calls, then answers with response.
type failNTimes struct {
	failures int
	calls    int
	response string
}

func (f *failNTimes) Invoke(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", fmt.Errorf("transient error (call %d)", f.calls)
	}
	return f.response, nil
}

func TestWithRetry(t *testing.T) {
	tests := []struct {
		name       string
		failures   int
		maxRetries int
		wantErr    bool
		wantCalls  int
	}{
		{"succeeds first try", 0, 3, false, 1},
		{"succeeds after two failures", 2, 3, false, 3},
		{"exhausts retries", 5, 2, true, 3},
		{"zero retries passes through", 1, 0, true, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inner := &failNTimes{failures: tc.failures, response: "ok"}
			out, err := WithRetry(inner, tc.maxRetries).Invoke(context.Background(), "p")
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "ok", out)
			}
			assert.Equal(t, tc.wantCalls, inner.calls)
		})
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	m := WithRetry(ModelFunc(func(context.Context, string) (string, error) {
		calls++
		cancel()
		return "", errors.New("boom")
	}), 5)

	_, err := m.Invoke(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestAnthropicModel_Invoke(t *testing.T) {
	var got anthropicRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k-123", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"content":[{"type":"text","text":"Ventilador "},{"type":"text","text":"de Teto"}]}`)
	}))
	defer ts.Close()

	m := &AnthropicModel{APIKey: "k-123", Model: "claude-3-5-haiku-latest", URL: ts.URL, MaxTokens: 100, Temperature: 0.5}
	out, err := m.Invoke(context.Background(), "write a title")
	require.NoError(t, err)
	assert.Equal(t, "Ventilador de Teto", out)
	assert.Equal(t, "claude-3-5-haiku-latest", got.Model)
	assert.InDelta(t, 0.5, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "write a title", got.Messages[0].Content)
}

func TestAnthropicModel_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"non-200", http.StatusInternalServerError, `{"error":"x"}`, nil},
		{"empty content", http.StatusOK, `{"content":[]}`, ErrEmptyResponse},
		{"bad json", http.StatusOK, `{`, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer ts.Close()

			m := &AnthropicModel{APIKey: "k", Model: "m", URL: ts.URL}
			_, err := m.Invoke(context.Background(), "p")
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestOpenAIModel_Invoke(t *testing.T) {
	var got chatRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"[1, 2]"}}]}`)
	}))
	defer ts.Close()

	m := &OpenAIModel{APIKey: "sk-1", Model: "gpt-4.1", URL: ts.URL, Temperature: 0.2}
	out, err := m.Invoke(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "[1, 2]", out)
	assert.Equal(t, "gpt-4.1", got.Model)
	assert.InDelta(t, 0.2, got.Temperature, 1e-9)
}

func TestOpenAIModel_NoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer ts.Close()

	_, err := (&OpenAIModel{APIKey: "k", URL: ts.URL}).Invoke(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewFactory(t *testing.T) {
	tests := []struct {
		name      string
		cfg       types.ModelConfig
		wantErr   error
		wantModel string
	}{
		{"unknown provider", types.ModelConfig{Provider: "bogus", APIKey: "k"}, ErrUnknownProvider, ""},
		{"missing key", types.ModelConfig{Provider: types.ProviderOpenAI}, ErrMissingAPIKey, ""},
		{"anthropic default", types.ModelConfig{Provider: types.ProviderAnthropic, APIKey: "k"}, nil, "claude-3-5-haiku-latest"},
		{"groq default", types.ModelConfig{Provider: types.ProviderGroq, APIKey: "k"}, nil, "llama-3.3-70b-versatile"},
		{"explicit model", types.ModelConfig{Provider: types.ProviderOpenAI, APIKey: "k", Model: "gpt-4o"}, nil, "gpt-4o"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewFactory(tc.cfg, nil)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantModel, f.Config().Model)
			assert.Equal(t, defaultMaxTokens, f.Config().MaxTokens)
		})
	}
}

func TestFactory_NewHandlesAreIndependent(t *testing.T) {
	var temps []float64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		temps = append(temps, req.Temperature)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer ts.Close()

	f, err := NewFactory(types.ModelConfig{Provider: types.ProviderGroq, APIKey: "k", BaseURL: ts.URL}, ts.Client())
	require.NoError(t, err)

	creative, err := f.New(context.Background(), 0.5)
	require.NoError(t, err)
	analytical, err := f.New(context.Background(), 0.2)
	require.NoError(t, err)

	_, err = creative.Invoke(context.Background(), "a")
	require.NoError(t, err)
	_, err = analytical.Invoke(context.Background(), "b")
	require.NoError(t, err)

	assert.Equal(t, []float64{0.5, 0.2}, temps)
}

func TestGeminiModel_Invoke(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Sim, funciona."}]}}]}`)
	}))
	defer ts.Close()

	cfg := types.ModelConfig{Provider: types.ProviderGemini, APIKey: "g-key", BaseURL: ts.URL}
	m, err := NewGeminiModel(context.Background(), cfg, 0.2, ts.Client())
	require.NoError(t, err)

	out, err := m.Invoke(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "Sim, funciona.", out)
}
