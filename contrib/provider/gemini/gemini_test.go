package gemini

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestBatchFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Index:        0,
				FinishReason: genai.FinishReasonStop,
				Content:      &genai.Content{Parts: []genai.Part{genai.Text("Hello "), genai.Text("there###cut")}},
			},
			{Index: 1, Content: nil},
		},
	}

	batch, err := batchFromResponse(resp, []string{"###"})
	if err != nil {
		t.Fatalf("batchFromResponse failed: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("expected 2 generations, got %d", len(batch))
	}
	if batch[0].Text != "Hello there" {
		t.Fatalf("text = %q", batch[0].Text)
	}
	if batch[1].Text != "" {
		t.Fatalf("empty candidate text = %q", batch[1].Text)
	}
	info, err := batch[0].InfoMap()
	if err != nil || info["finish_reason"] == "" {
		t.Fatalf("unexpected info %v, %v", info, err)
	}
}

func TestBatchFromEmptyResponse(t *testing.T) {
	if _, err := batchFromResponse(&genai.GenerateContentResponse{}, nil); err == nil {
		t.Fatal("expected error for response without candidates")
	}
	if _, err := batchFromResponse(nil, nil); err == nil {
		t.Fatal("expected error for nil response")
	}
}

func TestSaveAndType(t *testing.T) {
	p := &Provider{config: DefaultConfig("secret").Normalize(DefaultModel)}
	if p.Type() != LLMType {
		t.Fatalf("Type = %q", p.Type())
	}
	path := filepath.Join(t.TempDir(), "gemini.yaml")
	if err := p.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if strings.Contains(string(raw), "secret") || !strings.Contains(string(raw), DefaultModel) {
		t.Fatalf("unexpected saved params %s", raw)
	}
}
