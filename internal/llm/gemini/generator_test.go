package gemini

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"google.golang.org/genai"

	"resume-analyzer/internal/llm"
)

type fakeModels struct {
	resp   *genai.GenerateContentResponse
	err    error
	model  string
	config *genai.GenerateContentConfig
	prompt string
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: genai.RoleModel}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestGenerateJoinsTextParts(t *testing.T) {
	models := &fakeModels{resp: textResponse(`{"overallScore":`, ` 80}`)}
	gen := newGenerator(models, "")

	out, err := gen.Generate(context.Background(), "analyze", llm.GenerationConfig{
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 2048,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != `{"overallScore": 80}` {
		t.Fatalf("unexpected output %q", out)
	}
	if models.model != defaultModel {
		t.Fatalf("expected default model, got %q", models.model)
	}
	if models.prompt != "analyze" {
		t.Fatalf("unexpected prompt %q", models.prompt)
	}
	if models.config.Temperature == nil || *models.config.Temperature != 0.7 {
		t.Fatalf("temperature not forwarded: %+v", models.config)
	}
	if models.config.TopK == nil || *models.config.TopK != 40 {
		t.Fatalf("topK not forwarded: %+v", models.config)
	}
	if models.config.MaxOutputTokens != 2048 {
		t.Fatalf("max tokens not forwarded: %+v", models.config)
	}
}

func TestGenerateKeepsStatusInError(t *testing.T) {
	models := &fakeModels{err: genai.APIError{Code: http.StatusServiceUnavailable, Message: "The model is overloaded.", Status: "UNAVAILABLE"}}
	gen := newGenerator(models, "gemini-pro")

	_, err := gen.Generate(context.Background(), "analyze", llm.GenerationConfig{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("expected status and message in error, got %v", err)
	}
}

func TestGenerateRejectsEmptyResponse(t *testing.T) {
	gen := newGenerator(&fakeModels{resp: textResponse("  ")}, "")
	if _, err := gen.Generate(context.Background(), "analyze", llm.GenerationConfig{}); err == nil {
		t.Fatalf("expected empty response error")
	}
}
