package remote

import (
	"errors"
	"testing"

	errorskg "github.com/sweetpotato0/remote-llm/errors"
	"github.com/sweetpotato0/remote-llm/llm"
	"github.com/sweetpotato0/remote-llm/llmrpc"
)

func TestPackUnpackBatch(t *testing.T) {
	batch := llm.Batch{
		{Text: "first", Info: `{"finish_reason":"stop"}`},
		{Text: "", Info: ""},
	}
	list := PackBatch(batch)
	if len(list.Generations) != 2 {
		t.Fatalf("expected 2 generations, got %d", len(list.Generations))
	}
	if list.Generations[0].Text != "first" || list.Generations[0].GenerationInfo != `{"finish_reason":"stop"}` {
		t.Fatalf("unexpected packed generation %+v", list.Generations[0])
	}

	got := UnpackBatch(list)
	if len(got) != len(batch) {
		t.Fatalf("expected %d generations, got %d", len(batch), len(got))
	}
	for i := range batch {
		if got[i] != batch[i] {
			t.Fatalf("generation %d = %+v, want %+v", i, got[i], batch[i])
		}
	}
}

func TestPackResultKeepsOrder(t *testing.T) {
	result := &llm.Result{Generations: []llm.Batch{
		{{Text: "a"}},
		{},
		{{Text: "c1"}, {Text: "c2"}},
	}}
	reply := PackResult(result)
	if len(reply.Generations) != 3 {
		t.Fatalf("expected 3 lists, got %d", len(reply.Generations))
	}
	if len(reply.Generations[1].Generations) != 0 {
		t.Fatalf("expected empty middle list")
	}
	if reply.Generations[2].Generations[1].Text != "c2" {
		t.Fatalf("unexpected order %+v", reply.Generations[2])
	}

	if empty := PackResult(nil); len(empty.Generations) != 0 {
		t.Fatalf("expected empty reply for nil result")
	}
}

func TestUnpackReplySurvivesWire(t *testing.T) {
	reply := PackResult(&llm.Result{Generations: []llm.Batch{
		{{Text: "Hello back", Info: `{"n":1}`}},
		{{Text: "World back"}},
	}})
	b, err := reply.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	decoded := &llmrpc.GenerateReply{}
	if err := decoded.Unmarshal(b); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	result, err := UnpackReply(decoded, 2)
	if err != nil {
		t.Fatalf("UnpackReply failed: %v", err)
	}
	if result.Generations[0][0].Info != `{"n":1}` || result.Generations[1][0].Text != "World back" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestUnpackReplyCountMismatch(t *testing.T) {
	reply := PackResult(&llm.Result{Generations: []llm.Batch{{{Text: "only"}}}})

	_, err := UnpackReply(reply, 2)
	if !errors.Is(err, errorskg.ErrProtocolViolation) {
		t.Fatalf("expected protocol violation, got %v", err)
	}
	var perr *errorskg.ProtocolError
	if !errors.As(err, &perr) || perr.Want != 2 || perr.Got != 1 {
		t.Fatalf("unexpected protocol error %#v", err)
	}

	result, err := UnpackReply(nil, 0)
	if err != nil || result.Len() != 0 {
		t.Fatalf("expected empty result for nil reply, got %v %v", result, err)
	}
}
