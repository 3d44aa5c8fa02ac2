package workflow

import (
	"context"
	"fmt"
	"strings"
)

// Typed wrappers over the LLM collaborator. Each builds the call-site prompt,
// invokes the model and parses the structured reply into the matching result
// type. Malformed output surfaces as an error; the engine converts it into a
// degraded FinalResponse at its single failure point.

func (e *Engine) rewriteQuery(ctx context.Context, query string) (RewriteResult, error) {
	user := fmt.Sprintf("Original Query: %s\n\nRewrite and improve this query for better retrieval.", query)
	raw, err := e.deps.LLM.Generate(ctx, rewriteSystemPrompt, user)
	if err != nil {
		return RewriteResult{}, fmt.Errorf("rewrite call: %w", err)
	}
	var res RewriteResult
	if err := decodeStructured(raw, &res); err != nil {
		return RewriteResult{}, fmt.Errorf("rewrite: %w", err)
	}
	if strings.TrimSpace(res.RewrittenQuery) == "" {
		// The rewritten query must be non-empty; fall back to the input.
		res.RewrittenQuery = query
	}
	if res.OriginalQuery == "" {
		res.OriginalQuery = query
	}
	return res, nil
}

// queryIsClear asks the rewrite collaborator whether the query is specific
// enough to answer and scans its free-form reply for "yes". Absence of the
// word means "no"; there is no third outcome. Known weak heuristic, kept
// as is.
func (e *Engine) queryIsClear(ctx context.Context, query string) (bool, error) {
	user := fmt.Sprintf("Query: %s\n\nIs this query clear and specific enough to be answered properly? Respond with YES or NO and explain briefly.", query)
	raw, err := e.deps.LLM.Generate(ctx, rewriteSystemPrompt, user)
	if err != nil {
		return false, fmt.Errorf("clarification call: %w", err)
	}
	return strings.Contains(strings.ToLower(raw), "yes"), nil
}

func (e *Engine) selectSource(ctx context.Context, query string) (SourceSelection, error) {
	user := fmt.Sprintf("Query: %s\n\nDetermine which data sources are needed for this query.", query)
	raw, err := e.deps.LLM.Generate(ctx, sourceSystemPrompt, user)
	if err != nil {
		return SourceSelection{}, fmt.Errorf("source selection call: %w", err)
	}
	var res SourceSelection
	if err := decodeStructured(raw, &res); err != nil {
		return SourceSelection{}, fmt.Errorf("source selection: %w", err)
	}
	return res, nil
}

func (e *Engine) compileContext(ctx context.Context, query string, rec *RetrievalRecord) (ContextCompilation, error) {
	var external strings.Builder
	if rec.WebAnswer != "" {
		fmt.Fprintf(&external, "Web Search: %s\n", rec.WebAnswer)
	}
	if rec.APIData != nil {
		fmt.Fprintf(&external, "API Data: %v\n", rec.APIData)
	}
	user := fmt.Sprintf(`Retrieved Context from Knowledge Base:
%s

Additional Context from Web/APIs:
%s

Updated Query: %s

Compile and organize this context.`, strings.Join(rec.Documents, "\n"), external.String(), query)

	raw, err := e.deps.LLM.Generate(ctx, compileSystemPrompt, user)
	if err != nil {
		return ContextCompilation{}, fmt.Errorf("context compilation call: %w", err)
	}
	var res ContextCompilation
	if err := decodeStructured(raw, &res); err != nil {
		return ContextCompilation{}, fmt.Errorf("context compilation: %w", err)
	}
	return res, nil
}

func (e *Engine) generateResponse(ctx context.Context, query, compiledContext string) (string, error) {
	user := fmt.Sprintf("CONTEXT:\n%s\n\nUSER QUESTION:\n%s\n\nGenerate your response now.", compiledContext, query)
	raw, err := e.deps.LLM.Generate(ctx, generateSystemPrompt, user)
	if err != nil {
		return "", fmt.Errorf("response generation call: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

func (e *Engine) gradeResponse(ctx context.Context, query, compiledContext, response string) (GradingScores, error) {
	user := fmt.Sprintf("ORIGINAL QUERY: %s\nCONTEXT PROVIDED: %s\nGENERATED RESPONSE: %s\n\nGrade this response on the specified criteria.", query, compiledContext, response)
	raw, err := e.deps.LLM.Generate(ctx, gradeSystemPrompt, user)
	if err != nil {
		return GradingScores{}, fmt.Errorf("grading call: %w", err)
	}
	var res GradingScores
	if err := decodeStructured(raw, &res); err != nil {
		return GradingScores{}, fmt.Errorf("grading: %w", err)
	}
	return res, nil
}
