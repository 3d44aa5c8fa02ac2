package workflow

import "context"

// LLM is implemented by language-model clients. Collaborator calls build a
// system/user prompt pair and parse the returned text.
type LLM interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Retriever queries the knowledge-graph retrieval service. Mode is one of
// "local", "global" or "hybrid".
type Retriever interface {
	Query(ctx context.Context, query, mode string) (string, error)
}

// Searcher answers a query from the web. A nil Searcher on Deps means web
// search is not configured; the router degrades instead of failing.
type Searcher interface {
	Answer(ctx context.Context, query string) (string, error)
}

// ToolInvoker classifies a query and dispatches it to the matching stub API.
// Invoke never fails: failures are carried inside the payload under "error".
type ToolInvoker interface {
	Classify(query string) string
	Invoke(ctx context.Context, query, kind string) map[string]any
}

// Deps is the capability set consumed by one workflow run. The same Deps
// value may serve many concurrent runs; every implementation must be safe
// for concurrent use.
type Deps struct {
	LLM       LLM
	Retriever Retriever
	Searcher  Searcher
	Tools     ToolInvoker
}
