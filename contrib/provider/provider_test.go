package provider

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sweetpotato0/remote-llm/llm"
)

func upper(_ context.Context, prompt string, _ []string) (llm.Batch, error) {
	return llm.Batch{{Text: strings.ToUpper(prompt)}}, nil
}

func TestSequential(t *testing.T) {
	res, err := Sequential(context.Background(), []string{"a", "b"}, nil, upper)
	if err != nil {
		t.Fatalf("Sequential failed: %v", err)
	}
	if res.Generations[0][0].Text != "A" || res.Generations[1][0].Text != "B" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestConcurrentKeepsOrderAndLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	complete := func(ctx context.Context, prompt string, stop []string) (llm.Batch, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return upper(ctx, prompt, stop)
	}

	prompts := []string{"a", "b", "c", "d", "e", "f"}
	res, err := Concurrent(context.Background(), prompts, nil, 2, complete).Await(context.Background())
	if err != nil {
		t.Fatalf("Concurrent failed: %v", err)
	}
	for i, p := range prompts {
		if res.Generations[i][0].Text != strings.ToUpper(p) {
			t.Fatalf("batch %d = %q", i, res.Generations[i][0].Text)
		}
	}
	if peak.Load() > 2 {
		t.Fatalf("peak concurrency %d exceeds limit", peak.Load())
	}
}

func TestConcurrentFailure(t *testing.T) {
	boom := errors.New("boom")
	complete := func(ctx context.Context, prompt string, stop []string) (llm.Batch, error) {
		if prompt == "bad" {
			return nil, boom
		}
		return upper(ctx, prompt, stop)
	}
	_, err := Concurrent(context.Background(), []string{"ok", "bad"}, nil, 4, complete).Await(context.Background())
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "prompt 1") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNormalizeAndParams(t *testing.T) {
	cfg := Config{APIKey: "k"}.Normalize("m")
	if cfg.Model != "m" || cfg.Candidates != 1 || cfg.Concurrency != DefaultConcurrency {
		t.Fatalf("unexpected normalized config %+v", cfg)
	}
	params := cfg.Params("x")
	if params["_type"] != "x" || params["model"] != "m" {
		t.Fatalf("unexpected params %v", params)
	}
	if _, ok := params["api_key"]; ok {
		t.Fatal("params must not contain the api key")
	}
}

func TestTextEnforcesStop(t *testing.T) {
	g, err := Text("answer\nnext", []string{"\n"}, map[string]any{"k": 1})
	if err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	if g.Text != "answer" || g.Info != `{"k":1}` {
		t.Fatalf("unexpected generation %+v", g)
	}
}
