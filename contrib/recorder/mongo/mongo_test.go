package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	errorskg "github.com/sweetpotato0/remote-llm/errors"
	"github.com/sweetpotato0/remote-llm/llm"
	"github.com/sweetpotato0/remote-llm/remote"
	"go.mongodb.org/mongo-driver/bson"
)

func sampleExchange(id string) *remote.Exchange {
	return &remote.Exchange{
		ID:      id,
		LLMType: "fake-list",
		Prompts: []string{"Hello"},
		Stop:    []string{"\n"},
		Result: &llm.Result{Generations: []llm.Batch{
			{{Text: "Hi", Info: `{"finish_reason":"stop"}`}},
		}},
		Path:      "async",
		Duration:  250 * time.Millisecond,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestDocumentMapping(t *testing.T) {
	doc, err := toDocument(sampleExchange("ex-1"))
	if err != nil {
		t.Fatalf("toDocument failed: %v", err)
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("bson.Marshal failed: %v", err)
	}
	var decoded document
	if err := bson.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("bson.Unmarshal failed: %v", err)
	}

	ex := decoded.exchange()
	if ex.ID != "ex-1" || ex.Duration != 250*time.Millisecond || ex.Path != "async" {
		t.Fatalf("unexpected exchange %+v", ex)
	}
	if ex.Result.Generations[0][0].Info != `{"finish_reason":"stop"}` {
		t.Fatalf("generation info lost: %+v", ex.Result)
	}

	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("bson.Unmarshal failed: %v", err)
	}
	for _, key := range []string{"_id", "llm_type", "prompts", "generations", "duration_ms", "created_at"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("stored document missing %q", key)
		}
	}

	if _, err := toDocument(nil); !errors.Is(err, errorskg.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

// TestRecorder requires a running MongoDB server.
// Set the MONGODB_URI environment variable to run it.
func TestRecorder(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set, skipping MongoDB recorder tests")
	}
	ctx := context.Background()
	rec, err := New(ctx, Config{URI: uri, Database: "remote_llm_test", Collection: "exchanges_test"})
	if err != nil {
		t.Skipf("Failed to connect to MongoDB: %v", err)
	}
	defer rec.Close(ctx)
	rec.Clear(ctx)

	if err := rec.Record(ctx, sampleExchange("ex-1")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	got, err := rec.Get(ctx, "ex-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Result.Generations[0][0].Text != "Hi" {
		t.Fatalf("unexpected stored exchange %+v", got)
	}
	if _, err := rec.Get(ctx, "missing"); !errors.Is(err, errorskg.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	recent, err := rec.Recent(ctx, "fake-list", 5)
	if err != nil || len(recent) != 1 {
		t.Fatalf("Recent = %d, %v", len(recent), err)
	}
	if n, err := rec.Count(ctx); err != nil || n != 1 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}
