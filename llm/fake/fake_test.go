package fake

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	errorskg "github.com/sweetpotato0/remote-llm/errors"
	"github.com/sweetpotato0/remote-llm/llm"
)

func TestGenerateCyclesResponses(t *testing.T) {
	f := New([]string{"one", "two"})

	res, err := f.Generate(context.Background(), []string{"a", "b", "c"}, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if err := res.Validate(3); err != nil {
		t.Fatalf("unexpected shape: %v", err)
	}
	want := []string{"one", "two", "one"}
	for i, w := range want {
		if got := res.Generations[i][0].Text; got != w {
			t.Errorf("generation %d = %q, want %q", i, got, w)
		}
	}
}

func TestGenerateAppliesStop(t *testing.T) {
	f := New([]string{"Hello. World."}, WithInfo(`{"k":1}`))

	res, err := f.Generate(context.Background(), []string{"p"}, []string{"."})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	g := res.Generations[0][0]
	if g.Text != "Hello" {
		t.Fatalf("expected text cut at stop, got %q", g.Text)
	}
	if g.Info != `{"k":1}` {
		t.Fatalf("unexpected info %q", g.Info)
	}

	calls := f.Calls()
	if len(calls) != 1 || calls[0].Stop[0] != "." || calls[0].Async {
		t.Fatalf("unexpected calls %#v", calls)
	}
}

func TestWithEcho(t *testing.T) {
	f := New([]string{"ignored"}, WithEcho())
	res, err := f.Generate(context.Background(), []string{"one", "two|rest"}, []string{"|"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got := res.Generations[0][0].Text; got != "echo:one" {
		t.Fatalf("first text = %q", got)
	}
	if got := res.Generations[1][0].Text; got != "echo:two" {
		t.Fatalf("stop not applied to echo: %q", got)
	}
}

func TestModes(t *testing.T) {
	ctx := context.Background()

	syncLLM := New([]string{"x"})
	if llm.Describe(syncLLM).Async {
		t.Fatal("sync fake should not report async support")
	}
	if _, err := syncLLM.GenerateAsync(ctx, []string{"p"}, nil).Await(ctx); !errors.Is(err, errorskg.ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}

	asyncLLM := New([]string{"x"}, WithMode(ModeAsync))
	if !llm.Describe(asyncLLM).Async {
		t.Fatal("async fake should report async support")
	}
	res, err := asyncLLM.GenerateAsync(ctx, []string{"p"}, nil).Await(ctx)
	if err != nil {
		t.Fatalf("async generate failed: %v", err)
	}
	if res.Generations[0][0].Text != "x" || !asyncLLM.Calls()[0].Async {
		t.Fatalf("unexpected async outcome %#v", res)
	}

	lying := New([]string{"x"}, WithMode(ModeAsyncNotImplemented))
	if !llm.Describe(lying).Async {
		t.Fatal("advertised async support should be reported")
	}
	if _, err := lying.GenerateAsync(ctx, nil, nil).Await(ctx); !errors.Is(err, errorskg.ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
}

func TestWithError(t *testing.T) {
	boom := errors.New("model overloaded")
	f := New(nil, WithError(boom))

	if _, err := f.Generate(context.Background(), []string{"p"}, nil); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if len(f.Calls()) != 1 {
		t.Fatal("failed calls should still be recorded")
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New([]string{"x"}).Generate(ctx, []string{"p"}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.yaml")
	if err := New([]string{"a"}, WithType("scripted")).Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), "scripted") {
		t.Fatalf("saved params missing type: %s", raw)
	}
}
