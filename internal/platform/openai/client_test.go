package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/phrazzld/skillforge-api/internal/config"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func courseJSON(t *testing.T) string {
	t.Helper()
	section := generation.SectionDraft{
		Title:              "Pacing",
		Content:            "Plan the sprint around capacity.",
		CaseStudy:          "A team committed to twice its velocity.",
		ActionableTakeaway: "Track velocity for three sprints.",
		Quiz: domain.Quiz{
			Question:      "What drives sprint scope?",
			Options:       []string{"Capacity", "Hope", "Deadlines"},
			CorrectAnswer: 0,
			Explanation:   "Capacity bounds work.",
		},
	}
	draft := generation.CourseDraft{Title: "Sprint Planning", LearningObjectives: []string{"Plan a sprint"}}
	for i := 0; i < 4; i++ {
		draft.Modules = append(draft.Modules, generation.ModuleDraft{
			Title:    fmt.Sprintf("Module %d", i+1),
			Sections: []generation.SectionDraft{section, section, section},
		})
	}
	b, err := json.Marshal(draft)
	require.NoError(t, err)
	return string(b)
}

type fakeProvider struct {
	models         []string
	modelsStatus   int
	completion     string
	finishReason   string
	completionCode int

	modelListCalls atomic.Int32
	lastRequest    chatRequest
}

func (f *fakeProvider) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /models", func(w http.ResponseWriter, r *http.Request) {
		f.modelListCalls.Add(1)
		if f.modelsStatus != 0 {
			w.WriteHeader(f.modelsStatus)
			return
		}
		var list modelList
		for _, id := range f.models {
			list.Data = append(list.Data, struct {
				ID string `json:"id"`
			}{ID: id})
		}
		_ = json.NewEncoder(w).Encode(list)
	})
	mux.HandleFunc("POST /chat/completions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastRequest))
		if f.completionCode != 0 {
			http.Error(w, `{"error":"nope"}`, f.completionCode)
			return
		}
		reason := f.finishReason
		if reason == "" {
			reason = "stop"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]string{"role": "assistant", "content": f.completion},
				"finish_reason": reason,
			}},
		})
	})
	return mux
}

func newTestGenerator(t *testing.T, f *fakeProvider, fallbacks ...string) *Generator {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	g, err := NewGenerator(slog.New(slog.NewTextHandler(io.Discard, nil)), config.LLMConfig{
		OpenAIAPIKey:   "gsk_test",
		OpenAIBaseURL:  srv.URL + "/",
		ModelName:      "llama3-70b-8192",
		FallbackModels: fallbacks,
		Temperature:    0.7,
		MaxTokens:      4096,
	}, srv.Client())
	require.NoError(t, err)
	return g
}

func TestNewGenerator_InvalidConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewGenerator(nil, config.LLMConfig{}, nil)
	assert.Error(t, err)

	_, err = NewGenerator(logger, config.LLMConfig{OpenAIBaseURL: "http://x", ModelName: "m"}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewGenerator(logger, config.LLMConfig{OpenAIAPIKey: "k", ModelName: "m"}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewGenerator(logger, config.LLMConfig{OpenAIAPIKey: "k", OpenAIBaseURL: "http://x"}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestGenerateCourse_Success(t *testing.T) {
	f := &fakeProvider{
		models:     []string{"llama3-8b-8192", "llama3-70b-8192"},
		completion: "Here you go:\n" + courseJSON(t),
	}
	g := newTestGenerator(t, f)

	draft, err := g.GenerateCourse(context.Background(), "make a course")
	require.NoError(t, err)
	assert.Equal(t, "Sprint Planning", draft.Title)
	assert.Len(t, draft.Modules, 4)

	assert.Equal(t, "llama3-70b-8192", f.lastRequest.Model)
	assert.Equal(t, 4096, f.lastRequest.MaxTokens)
	require.Len(t, f.lastRequest.Messages, 2)
	assert.Equal(t, "make a course", f.lastRequest.Messages[1].Content)
	require.NotNil(t, f.lastRequest.ResponseFormat)
	assert.Equal(t, "json_object", f.lastRequest.ResponseFormat.Type)

	// The resolved model is cached.
	_, err = g.GenerateCourse(context.Background(), "again")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.modelListCalls.Load())
}

func TestModelResolution(t *testing.T) {
	t.Run("fallback", func(t *testing.T) {
		f := &fakeProvider{models: []string{"mixtral-8x7b-32768", "llama3-8b-8192"}, completion: courseJSON(t)}
		g := newTestGenerator(t, f, "gemma-7b-it", "llama3-8b-8192")

		_, err := g.GenerateCourse(context.Background(), "p")
		require.NoError(t, err)
		assert.Equal(t, "llama3-8b-8192", f.lastRequest.Model)
	})

	t.Run("first available", func(t *testing.T) {
		f := &fakeProvider{models: []string{"mixtral-8x7b-32768"}, completion: courseJSON(t)}
		g := newTestGenerator(t, f)

		_, err := g.GenerateCourse(context.Background(), "p")
		require.NoError(t, err)
		assert.Equal(t, "mixtral-8x7b-32768", f.lastRequest.Model)
	})

	t.Run("list unavailable", func(t *testing.T) {
		f := &fakeProvider{modelsStatus: http.StatusInternalServerError, completion: courseJSON(t)}
		g := newTestGenerator(t, f)

		_, err := g.GenerateCourse(context.Background(), "p")
		require.NoError(t, err)
		assert.Equal(t, "llama3-70b-8192", f.lastRequest.Model)

		_, err = g.GenerateCourse(context.Background(), "p")
		require.NoError(t, err)
		assert.Equal(t, int32(2), f.modelListCalls.Load())
	})
}

func TestGenerateCourse_Failures(t *testing.T) {
	tests := []struct {
		name    string
		f       *fakeProvider
		wantErr error
	}{
		{"rate limited", &fakeProvider{completionCode: http.StatusTooManyRequests}, generation.ErrTransientFailure},
		{"server error", &fakeProvider{completionCode: http.StatusBadGateway}, generation.ErrTransientFailure},
		{"bad request", &fakeProvider{completionCode: http.StatusBadRequest}, generation.ErrGenerationFailed},
		{"content filter", &fakeProvider{completion: "{}", finishReason: "content_filter"}, generation.ErrContentBlocked},
		{"not json", &fakeProvider{completion: "I am unable to comply."}, generation.ErrInvalidResponse},
		{"schema violation", &fakeProvider{completion: `{"title":"x","modules":[]}`}, generation.ErrInvalidResponse},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.f.models = []string{"llama3-70b-8192"}
			g := newTestGenerator(t, tc.f)

			draft, err := g.GenerateCourse(context.Background(), "p")
			assert.Nil(t, draft)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	g := newTestGenerator(t, &fakeProvider{})
	_, err := g.GenerateCourse(context.Background(), "")
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
}
