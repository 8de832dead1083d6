package remote

import (
	"github.com/sweetpotato0/remote-llm/llm"
	"github.com/sweetpotato0/remote-llm/llmrpc"
)

// PackBatch converts the generations for one prompt to their wire form.
// Text and metadata are copied verbatim.
func PackBatch(batch llm.Batch) *llmrpc.GenerateReplyGenerationList {
	list := &llmrpc.GenerateReplyGenerationList{
		Generations: make([]*llmrpc.GenerateReplyGeneration, 0, len(batch)),
	}
	for _, g := range batch {
		list.Generations = append(list.Generations, &llmrpc.GenerateReplyGeneration{
			Text:           g.Text,
			GenerationInfo: g.Info,
		})
	}
	return list
}

// UnpackBatch is the inverse of PackBatch.
func UnpackBatch(list *llmrpc.GenerateReplyGenerationList) llm.Batch {
	gens := list.GetGenerations()
	batch := make(llm.Batch, 0, len(gens))
	for _, g := range gens {
		batch = append(batch, llm.Generation{
			Text: g.GetText(),
			Info: g.GetGenerationInfo(),
		})
	}
	return batch
}

// PackResult builds a Generate reply with one list per batch, in order.
func PackResult(result *llm.Result) *llmrpc.GenerateReply {
	reply := &llmrpc.GenerateReply{
		Generations: make([]*llmrpc.GenerateReplyGenerationList, 0, result.Len()),
	}
	if result == nil {
		return reply
	}
	for _, batch := range result.Generations {
		reply.Generations = append(reply.Generations, PackBatch(batch))
	}
	return reply
}

// UnpackReply decodes a Generate reply sent for prompts prompts and fails
// with a protocol violation when the list count differs.
func UnpackReply(reply *llmrpc.GenerateReply, prompts int) (*llm.Result, error) {
	lists := reply.GetGenerations()
	result := &llm.Result{Generations: make([]llm.Batch, 0, len(lists))}
	for _, list := range lists {
		result.Generations = append(result.Generations, UnpackBatch(list))
	}
	if err := result.Validate(prompts); err != nil {
		return nil, err
	}
	return result, nil
}
