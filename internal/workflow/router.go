package workflow

import (
	"context"
	"strings"
	"time"
)

var (
	localModeCues  = []string{"what is", "define", "definition", "meaning"}
	globalModeCues = []string{"compare", "relationship", "overview", "summar", "analyze"}
)

// RetrievalMode picks the knowledge-graph query mode from lexical cues in
// the query text alone: definition-style queries run in "local" mode,
// broad conceptual queries in "global", everything else in "hybrid".
// The "summar" stem covers both "summary" and "summarize".
func RetrievalMode(query string) string {
	q := strings.ToLower(query)
	for _, cue := range localModeCues {
		if strings.Contains(q, cue) {
			return "local"
		}
	}
	for _, cue := range globalModeCues {
		if strings.Contains(q, cue) {
			return "global"
		}
	}
	return "hybrid"
}

// route dispatches retrieval by the selected primary source and normalizes
// the result into a RetrievalRecord. Unrecognized sources fall through to
// the knowledge base. Every branch fills Source and NumResults, failures
// included, so steps 7+ proceed without null checks.
func (e *Engine) route(ctx context.Context, sel SourceSelection, query string) RetrievalRecord {
	switch sel.PrimarySource {
	case SourceInternet:
		return e.routeWeb(ctx, query)
	case SourceToolsAPIs:
		return e.routeTools(ctx, query)
	default:
		return e.routeDocuments(ctx, query)
	}
}

func (e *Engine) routeDocuments(ctx context.Context, query string) RetrievalRecord {
	mode := RetrievalMode(query)
	content, err := e.deps.Retriever.Query(ctx, query, mode)
	if err != nil {
		e.log.Warn("knowledge base query failed", "mode", mode, "err", err)
		return RetrievalRecord{
			Documents:  []string{"Knowledge base query failed: " + err.Error()},
			Metadata:   []map[string]string{{"error": err.Error(), "mode": mode, "query": query}},
			Source:     "lightrag_error",
			NumResults: 0,
			Timestamp:  time.Now(),
		}
	}
	if strings.TrimSpace(content) == "" {
		return RetrievalRecord{
			Documents:  []string{"No relevant documents found in the knowledge base"},
			Metadata:   []map[string]string{{"source": "lightrag_empty", "mode": mode}},
			Source:     "lightrag",
			NumResults: 0,
			Timestamp:  time.Now(),
		}
	}
	return RetrievalRecord{
		Documents:  []string{content},
		Metadata:   []map[string]string{{"source": "lightrag_response", "mode": mode, "query": query}},
		Source:     "lightrag",
		NumResults: 1,
		Timestamp:  time.Now(),
	}
}

func (e *Engine) routeWeb(ctx context.Context, query string) RetrievalRecord {
	if e.deps.Searcher == nil {
		return RetrievalRecord{
			WebAnswer:  "Web search not available - search client not configured",
			Source:     "web_search_error",
			NumResults: 0,
			Timestamp:  time.Now(),
		}
	}
	answer, err := e.deps.Searcher.Answer(ctx, query)
	if err != nil {
		e.log.Warn("web search failed", "err", err)
		return RetrievalRecord{
			WebAnswer:  "Error in web search: " + err.Error(),
			Source:     "web_search_error",
			NumResults: 0,
			Timestamp:  time.Now(),
		}
	}
	if strings.TrimSpace(answer) == "" {
		return RetrievalRecord{
			WebAnswer:  "No relevant information found on the web",
			Source:     "internet",
			NumResults: 0,
			Timestamp:  time.Now(),
		}
	}
	return RetrievalRecord{
		WebAnswer:  answer,
		Source:     "internet",
		NumResults: 1,
		Timestamp:  time.Now(),
	}
}

func (e *Engine) routeTools(ctx context.Context, query string) RetrievalRecord {
	kind := e.deps.Tools.Classify(query)
	data := e.deps.Tools.Invoke(ctx, query, kind)
	source := "api_" + kind
	num := 1
	if _, failed := data["error"]; failed {
		source += "_error"
		num = 0
	}
	return RetrievalRecord{
		APIData:    data,
		Source:     source,
		NumResults: num,
		Timestamp:  time.Now(),
	}
}
