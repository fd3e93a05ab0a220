package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/phrazzld/skillforge-api/internal/config"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	resp   *genai.GenerateContentResponse
	err    error
	model  string
	config *genai.GenerateContentConfig
	prompt string
}

func (f *fakeModels) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = cfg
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func textResponse(text string, reason genai.FinishReason) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []*genai.Part{{Text: text}}},
			FinishReason: reason,
		}},
	}
}

func courseJSON(t *testing.T) string {
	t.Helper()
	section := generation.SectionDraft{
		Title:              "Spans",
		Content:            "A span is a timed operation.",
		CaseStudy:          "Checkout latency doubled overnight.",
		ActionableTakeaway: "Name spans after operations.",
		Quiz: domain.Quiz{
			Question:      "What is a span?",
			Options:       []string{"A timed operation", "A log level"},
			CorrectAnswer: 0,
			Explanation:   "Spans measure work.",
		},
	}
	draft := generation.CourseDraft{
		Title:              "Tracing",
		LearningObjectives: []string{"Read a trace"},
	}
	for i := 0; i < 3; i++ {
		draft.Modules = append(draft.Modules, generation.ModuleDraft{
			Title:    fmt.Sprintf("Module %d", i+1),
			Sections: []generation.SectionDraft{section, section},
		})
	}
	b, err := json.Marshal(draft)
	require.NoError(t, err)
	return string(b)
}

func testGenerator(client modelClient) *Generator {
	cfg := config.LLMConfig{ModelName: "gemini-2.0-flash", Temperature: 0.4, RequestTimeout: time.Second}
	return newGenerator(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg, client)
}

func TestNewGenerator_InvalidConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewGenerator(context.Background(), nil, config.LLMConfig{})
	assert.Error(t, err)

	_, err = NewGenerator(context.Background(), logger, config.LLMConfig{ModelName: "m"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewGenerator(context.Background(), logger, config.LLMConfig{GeminiAPIKey: "k"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestGenerateCourse_Success(t *testing.T) {
	client := &fakeModels{resp: textResponse("```json\n"+courseJSON(t)+"\n```", genai.FinishReasonStop)}
	g := testGenerator(client)

	draft, err := g.GenerateCourse(context.Background(), "build a course")
	require.NoError(t, err)
	assert.Equal(t, "Tracing", draft.Title)
	assert.Len(t, draft.Modules, 3)

	assert.Equal(t, "gemini-2.0-flash", client.model)
	assert.Equal(t, "build a course", client.prompt)
	require.NotNil(t, client.config.Temperature)
	assert.Equal(t, float32(0.4), *client.config.Temperature)
	assert.Equal(t, "application/json", client.config.ResponseMIMEType)
}

func TestGenerateCourse_Failures(t *testing.T) {
	tests := []struct {
		name    string
		client  *fakeModels
		prompt  string
		wantErr error
	}{
		{"empty prompt", &fakeModels{}, " ", generation.ErrGenerationFailed},
		{"api error", &fakeModels{err: errors.New("503 unavailable")}, "p", generation.ErrTransientFailure},
		{"nil response", &fakeModels{}, "p", generation.ErrInvalidResponse},
		{"no candidates", &fakeModels{resp: &genai.GenerateContentResponse{}}, "p", generation.ErrInvalidResponse},
		{"safety block", &fakeModels{resp: textResponse("", genai.FinishReasonSafety)}, "p", generation.ErrContentBlocked},
		{"empty text", &fakeModels{resp: textResponse("", genai.FinishReasonStop)}, "p", generation.ErrInvalidResponse},
		{"schema violation", &fakeModels{resp: textResponse(`{"title":"x"}`, genai.FinishReasonStop)}, "p", generation.ErrInvalidResponse},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			draft, err := testGenerator(tc.client).GenerateCourse(context.Background(), tc.prompt)
			assert.Nil(t, draft)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}
