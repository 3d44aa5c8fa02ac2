package workflow

import (
	"encoding/json"
	"fmt"
	"strings"
)

const rewriteSystemPrompt = `You are a query rewriting assistant. Analyze and improve user queries: identify the core intent, clarify ambiguous terms, expand abbreviations, and make the query more specific and searchable.

Return a JSON object with:
- original_query: the input query
- rewritten_query: your improved version
- reasoning: explanation of changes made`

const sourceSystemPrompt = `You are a source selection assistant. Analyze the query and decide which data sources are needed:
- vector_database: stored knowledge, historical facts, domain-specific info
- tools_apis: real-time data, calculations, specific operations
- internet: recent events, current news, trending topics

Return a JSON object with:
- primary_source: "vector_database" | "tools_apis" | "internet"
- secondary_sources: array of additional sources
- reasoning: explanation of decision
- confidence: 0.0-1.0 confidence score`

const compileSystemPrompt = `You are a context compilation assistant. Merge overlapping information from multiple sources, flag conflicts, organize by relevance and remove redundancy.

Return a JSON object with:
- compiled_context: combined and organized context
- sources_used: array of sources
- conflicts: array of any conflicting information
- confidence: 0.0-1.0 confidence in compilation quality`

const generateSystemPrompt = `You are an expert assistant providing accurate, concise answers based on provided context. Answer directly, use ONLY information from the provided context, acknowledge insufficient context, cite sources when possible, and avoid speculation.`

const gradeSystemPrompt = `You are a quality assurance agent. Grade the generated response on these criteria, each 0.0 to 1.0:
1. RELEVANCY: does it directly answer the question?
2. FAITHFULNESS: does it stay true to the context without hallucination?
3. CONTEXT QUALITY: was the retrieved context sufficient?
4. COHERENCE: is the response well-structured and clear?

Return a JSON object with:
- relevancy_score, faithfulness_score, context_quality_score, coherence_score: 0.0-1.0
- overall_score: 0.0-1.0 (average of the above)
- needs_improvement: true/false
- improvement_reason: specific issues identified
- recommendation: "retry_retrieval" | "web_search" | "accept" | "clarify_query"`

// decodeStructured parses a JSON object out of raw model text. Models wrap
// output in code fences or prose often enough that decoding the whole string
// directly would reject valid answers, so the first balanced-looking object
// is extracted before unmarshalling.
func decodeStructured(raw string, out any) error {
	trimmed := strings.TrimSpace(raw)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in model output: %q", truncate(trimmed, 120))
	}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), out); err != nil {
		return fmt.Errorf("malformed structured output: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
