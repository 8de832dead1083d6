package tiktoken

import (
	"os"
	"testing"
)

// Encodings are downloaded on first use unless TIKTOKEN_CACHE_DIR holds them.
func newTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	if os.Getenv("TIKTOKEN_TEST") == "" {
		t.Skip("TIKTOKEN_TEST not set, skipping tokenizer test")
	}
	tok, err := New("cl100k_base")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return tok
}

func TestCountTokens(t *testing.T) {
	tok := newTokenizer(t)

	if got := tok.CountTokens(""); got != 0 {
		t.Fatalf("empty text = %d tokens", got)
	}
	text := "Hello, world!"
	ids := tok.Encode(text)
	if got := tok.CountTokens(text); got != len(ids) || got == 0 {
		t.Fatalf("CountTokens = %d, want %d", got, len(ids))
	}
	if tok.Decode(ids) != text {
		t.Fatalf("round trip lost text: %q", tok.Decode(ids))
	}
}

func TestNewByModel(t *testing.T) {
	newTokenizer(t)
	if _, err := New("gpt-4o"); err != nil {
		t.Fatalf("New by model failed: %v", err)
	}
	if _, err := New("no-such-encoding"); err == nil {
		t.Fatal("expected error for unknown encoding")
	}
}
