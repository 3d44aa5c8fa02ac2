package workflow

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM routes each Generate call by the system prompt (and, for the
// two calls sharing the rewrite prompt, by the user text) and records every
// call for later assertions.
type scriptedLLM struct {
	mu    sync.Mutex
	calls []llmCall

	clarifyReply string
	gradeReply   string
	rewriteErr   error
	rewriteReply string
	panicOnGrade bool
}

type llmCall struct {
	system string
	user   string
}

func (s *scriptedLLM) Generate(_ context.Context, system, user string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, llmCall{system: system, user: user})
	s.mu.Unlock()

	switch system {
	case rewriteSystemPrompt:
		if strings.Contains(user, "clear and specific") {
			if s.clarifyReply != "" {
				return s.clarifyReply, nil
			}
			return "YES, the query is specific enough.", nil
		}
		if s.rewriteErr != nil {
			return "", s.rewriteErr
		}
		if s.rewriteReply != "" {
			return s.rewriteReply, nil
		}
		return `{"original_query": "q", "rewritten_query": "refined question", "reasoning": "expanded"}`, nil
	case sourceSystemPrompt:
		return `{"primary_source": "vector_database", "secondary_sources": [], "reasoning": "stored knowledge", "confidence": 0.9}`, nil
	case compileSystemPrompt:
		return `{"compiled_context": "compiled facts", "sources_used": ["lightrag"], "conflicts": [], "confidence": 0.85}`, nil
	case generateSystemPrompt:
		return "Here is the answer.", nil
	case gradeSystemPrompt:
		if s.panicOnGrade {
			panic("grader exploded")
		}
		if s.gradeReply != "" {
			return s.gradeReply, nil
		}
		return `{"relevancy_score": 0.9, "faithfulness_score": 0.9, "context_quality_score": 0.8, "coherence_score": 0.8,
			"overall_score": 0.1, "needs_improvement": false, "improvement_reason": "", "recommendation": "accept"}`, nil
	}
	return "", fmt.Errorf("unexpected system prompt: %s", system)
}

func (s *scriptedLLM) callsWith(system string) []llmCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []llmCall
	for _, c := range s.calls {
		if c.system == system {
			out = append(out, c)
		}
	}
	return out
}

type staticRetriever struct {
	content string
	err     error
	modes   []string
}

func (r *staticRetriever) Query(_ context.Context, _, mode string) (string, error) {
	r.modes = append(r.modes, mode)
	return r.content, r.err
}

func newTestEngine(llm *scriptedLLM, retriever Retriever) *Engine {
	return New(Config{
		MaxRetries:          DefaultMaxRetries,
		AcceptanceThreshold: DefaultAcceptanceThreshold,
		Logger:              log.New(io.Discard),
	}, Deps{LLM: llm, Retriever: retriever})
}

func TestRunAcceptPath(t *testing.T) {
	llm := &scriptedLLM{}
	engine := newTestEngine(llm, &staticRetriever{content: "stored knowledge about the topic"})

	resp := engine.Run(context.Background(), "What is a knowledge graph?")

	assert.Equal(t, "Here is the answer.", resp.Answer)
	assert.Equal(t, 0, resp.Retries)
	assert.Equal(t, []string{"lightrag"}, resp.Sources)
	assert.Equal(t, true, resp.Metadata["workflow_completed"])
	assert.Equal(t, 1, resp.Metadata["query_rewrites"])
	assert.Equal(t, "lightrag", resp.Metadata["retrieval_method"])

	// Overall is the recomputed mean, not the grader's own 0.1.
	require.NotNil(t, resp.Grading)
	assert.InDelta(t, 0.85, resp.Confidence, 1e-9)
	assert.InDelta(t, 0.85, resp.Grading.Overall, 1e-9)

	assert.Len(t, llm.callsWith(gradeSystemPrompt), 1)
}

func TestRunRetriesUntilExhausted(t *testing.T) {
	llm := &scriptedLLM{
		gradeReply: `{"relevancy_score": 0.5, "faithfulness_score": 0.5, "context_quality_score": 0.5, "coherence_score": 0.5,
			"needs_improvement": true, "improvement_reason": "needs more specific detail", "recommendation": "retry_retrieval"}`,
	}
	engine := newTestEngine(llm, &staticRetriever{content: "thin context"})

	resp := engine.Run(context.Background(), "Tell me about graphs")

	// maxRetries+1 full passes, then the degraded terminal response.
	assert.Len(t, llm.callsWith(gradeSystemPrompt), DefaultMaxRetries+1)
	assert.Equal(t, DefaultMaxRetries, resp.Retries)
	assert.Equal(t, false, resp.Metadata["workflow_completed"])
	assert.Equal(t, "max_retries_reached", resp.Metadata["note"])
	assert.Contains(t, resp.Answer, "Here is the answer.")
	assert.Contains(t, resp.Answer, "[Note: Answer quality may be limited due to max retries reached]")
	assert.InDelta(t, 0.5, resp.Confidence, 1e-9)

	// Grading feedback reshapes the query before each new pass.
	rewrites := llm.callsWith(rewriteSystemPrompt)
	var enhanced int
	for _, c := range rewrites {
		if strings.Contains(c.user, "Detailed information about:") {
			enhanced++
		}
	}
	assert.GreaterOrEqual(t, enhanced, 1)
}

func TestRunZeroMaxRetriesMakesOnePass(t *testing.T) {
	llm := &scriptedLLM{
		gradeReply: `{"relevancy_score": 0.5, "faithfulness_score": 0.5, "context_quality_score": 0.5, "coherence_score": 0.5,
			"needs_improvement": true, "improvement_reason": "too vague", "recommendation": "retry_retrieval"}`,
	}
	engine := New(Config{
		MaxRetries:          0,
		AcceptanceThreshold: 0.7,
		Logger:              log.New(io.Discard),
	}, Deps{LLM: llm, Retriever: &staticRetriever{content: "thin context"}})

	resp := engine.Run(context.Background(), "Tell me about graphs")

	assert.Len(t, llm.callsWith(gradeSystemPrompt), 1)
	assert.Equal(t, 0, resp.Retries)
	assert.Equal(t, false, resp.Metadata["workflow_completed"])
	assert.Equal(t, "max_retries_reached", resp.Metadata["note"])
}

func TestRunZeroThresholdAcceptsAnyGrade(t *testing.T) {
	llm := &scriptedLLM{
		gradeReply: `{"relevancy_score": 0.1, "faithfulness_score": 0.1, "context_quality_score": 0.1, "coherence_score": 0.1,
			"needs_improvement": true, "improvement_reason": "weak everywhere", "recommendation": "retry_retrieval"}`,
	}
	engine := New(Config{
		MaxRetries:          DefaultMaxRetries,
		AcceptanceThreshold: 0,
		Logger:              log.New(io.Discard),
	}, Deps{LLM: llm, Retriever: &staticRetriever{content: "anything"}})

	resp := engine.Run(context.Background(), "Tell me about graphs")

	assert.Len(t, llm.callsWith(gradeSystemPrompt), 1)
	assert.Equal(t, true, resp.Metadata["workflow_completed"])
	assert.InDelta(t, 0.1, resp.Confidence, 1e-9)
}

func TestRunQueryNeverClearEnough(t *testing.T) {
	llm := &scriptedLLM{clarifyReply: "NO, this is far too vague to answer."}
	engine := newTestEngine(llm, &staticRetriever{content: "unused"})

	resp := engine.Run(context.Background(), "stuff?")

	// An unclear query loops through the retry gate without ever
	// reaching source selection or retrieval.
	assert.Empty(t, llm.callsWith(sourceSystemPrompt))
	assert.Empty(t, llm.callsWith(gradeSystemPrompt))
	assert.Equal(t, false, resp.Metadata["workflow_completed"])
	assert.Equal(t, "max_retries_reached", resp.Metadata["note"])
	assert.Equal(t, 0.5, resp.Confidence)
	assert.Equal(t, "unknown", resp.Metadata["retrieval_method"])
}

func TestRunCollaboratorFailureDegrades(t *testing.T) {
	llm := &scriptedLLM{rewriteErr: fmt.Errorf("connection refused")}
	engine := newTestEngine(llm, &staticRetriever{})

	resp := engine.Run(context.Background(), "What is RAG?")

	assert.Contains(t, resp.Answer, "Error in RAG workflow:")
	assert.Contains(t, resp.Answer, "connection refused")
	assert.Equal(t, 0.0, resp.Confidence)
	assert.Equal(t, false, resp.Metadata["workflow_completed"])
	assert.NotEmpty(t, resp.Metadata["error"])
}

func TestRunMalformedStructuredOutputDegrades(t *testing.T) {
	llm := &scriptedLLM{rewriteReply: "I think the query is fine as written."}
	engine := newTestEngine(llm, &staticRetriever{})

	resp := engine.Run(context.Background(), "What is RAG?")

	assert.Contains(t, resp.Answer, "Error in RAG workflow:")
	assert.Equal(t, 0.0, resp.Confidence)
	assert.Contains(t, resp.Metadata["error"], "no JSON object")
}

func TestRunRecoversFromPanic(t *testing.T) {
	llm := &scriptedLLM{panicOnGrade: true}
	engine := newTestEngine(llm, &staticRetriever{content: "context"})

	resp := engine.Run(context.Background(), "What is RAG?")

	assert.Contains(t, resp.Answer, "Error in RAG workflow: panic:")
	assert.Contains(t, resp.Answer, "grader exploded")
	assert.Equal(t, 0.0, resp.Confidence)
}

func TestRunEmptyRewriteFallsBackToInput(t *testing.T) {
	llm := &scriptedLLM{rewriteReply: `{"original_query": "", "rewritten_query": "   ", "reasoning": "none"}`}
	retriever := &staticRetriever{content: "facts"}
	engine := newTestEngine(llm, retriever)

	resp := engine.Run(context.Background(), "What is a vector index?")

	assert.Equal(t, true, resp.Metadata["workflow_completed"])
	// The unchanged query still drives mode selection downstream.
	require.NotEmpty(t, retriever.modes)
	assert.Equal(t, "local", retriever.modes[0])
}
