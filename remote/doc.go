// Package remote bridges an llm.LLM across the RemoteLLM gRPC service.
//
// Server wraps one local backend and answers Generate and GetLlmType calls.
// Client implements llm.LLM and llm.AsyncLLM on top of a client connection so
// it can stand in for a local backend anywhere one is expected.
//
//	srv, err := remote.NewServer(backend)
//	go srv.Serve(ctx, lis)
//
//	conn, err := remote.Dial("localhost:50051")
//	model := remote.NewClient(conn)
//	res, err := model.Generate(ctx, []string{"Hello"}, nil)
package remote
