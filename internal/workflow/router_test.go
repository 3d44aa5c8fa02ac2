package workflow

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrievalMode(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"What is machine learning?", "local"},
		{"Define entropy", "local"},
		{"the meaning of polymorphism", "local"},
		{"Compare supervised vs unsupervised learning", "global"},
		{"Give me a summary of the architecture", "global"},
		{"Summarize the design decisions", "global"},
		{"analyze the trade-offs", "global"},
		{"Explain the history of neural networks", "hybrid"},
		{"", "hybrid"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, RetrievalMode(tt.query))
		})
	}
}

type fakeSearcher struct {
	answer string
	err    error
}

func (s *fakeSearcher) Answer(context.Context, string) (string, error) {
	return s.answer, s.err
}

type fakeTools struct {
	kind    string
	payload map[string]any
}

func (f *fakeTools) Classify(string) string { return f.kind }
func (f *fakeTools) Invoke(context.Context, string, string) map[string]any {
	return f.payload
}

func routerEngine(deps Deps) *Engine {
	return New(Config{Logger: log.New(io.Discard)}, deps)
}

func TestRouteDocuments(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		e := routerEngine(Deps{Retriever: &staticRetriever{content: "graph facts"}})
		rec := e.route(context.Background(), SourceSelection{PrimarySource: SourceVectorDatabase}, "What is a graph?")

		assert.Equal(t, "lightrag", rec.Source)
		assert.Equal(t, 1, rec.NumResults)
		require.Len(t, rec.Documents, 1)
		assert.Equal(t, "graph facts", rec.Documents[0])
		assert.Equal(t, "local", rec.Metadata[0]["mode"])
	})

	t.Run("empty content", func(t *testing.T) {
		e := routerEngine(Deps{Retriever: &staticRetriever{content: "   "}})
		rec := e.route(context.Background(), SourceSelection{PrimarySource: SourceVectorDatabase}, "anything")

		assert.Equal(t, "lightrag", rec.Source)
		assert.Equal(t, 0, rec.NumResults)
		require.Len(t, rec.Documents, 1)
		assert.Equal(t, "No relevant documents found in the knowledge base", rec.Documents[0])
	})

	t.Run("error", func(t *testing.T) {
		e := routerEngine(Deps{Retriever: &staticRetriever{err: fmt.Errorf("dial tcp: refused")}})
		rec := e.route(context.Background(), SourceSelection{PrimarySource: SourceVectorDatabase}, "anything")

		assert.Equal(t, "lightrag_error", rec.Source)
		assert.Equal(t, 0, rec.NumResults)
		assert.Contains(t, rec.Documents[0], "Knowledge base query failed:")
	})

	t.Run("unknown source falls back to documents", func(t *testing.T) {
		e := routerEngine(Deps{Retriever: &staticRetriever{content: "facts"}})
		rec := e.route(context.Background(), SourceSelection{PrimarySource: "something_else"}, "anything")

		assert.Equal(t, "lightrag", rec.Source)
	})
}

func TestRouteWeb(t *testing.T) {
	t.Run("unconfigured", func(t *testing.T) {
		e := routerEngine(Deps{})
		rec := e.route(context.Background(), SourceSelection{PrimarySource: SourceInternet}, "latest news")

		assert.Equal(t, "web_search_error", rec.Source)
		assert.Equal(t, 0, rec.NumResults)
		assert.Contains(t, rec.WebAnswer, "search client not configured")
	})

	t.Run("error", func(t *testing.T) {
		e := routerEngine(Deps{Searcher: &fakeSearcher{err: fmt.Errorf("quota exceeded")}})
		rec := e.route(context.Background(), SourceSelection{PrimarySource: SourceInternet}, "latest news")

		assert.Equal(t, "web_search_error", rec.Source)
		assert.Contains(t, rec.WebAnswer, "quota exceeded")
	})

	t.Run("empty answer", func(t *testing.T) {
		e := routerEngine(Deps{Searcher: &fakeSearcher{answer: ""}})
		rec := e.route(context.Background(), SourceSelection{PrimarySource: SourceInternet}, "latest news")

		assert.Equal(t, "internet", rec.Source)
		assert.Equal(t, 0, rec.NumResults)
		assert.Equal(t, "No relevant information found on the web", rec.WebAnswer)
	})

	t.Run("answer", func(t *testing.T) {
		e := routerEngine(Deps{Searcher: &fakeSearcher{answer: "It happened yesterday."}})
		rec := e.route(context.Background(), SourceSelection{PrimarySource: SourceInternet}, "latest news")

		assert.Equal(t, "internet", rec.Source)
		assert.Equal(t, 1, rec.NumResults)
		assert.Equal(t, "It happened yesterday.", rec.WebAnswer)
	})
}

func TestRouteTools(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		e := routerEngine(Deps{Tools: &fakeTools{
			kind:    "weather",
			payload: map[string]any{"city": "London", "weather": "sunny"},
		}})
		rec := e.route(context.Background(), SourceSelection{PrimarySource: SourceToolsAPIs}, "weather in London")

		assert.Equal(t, "api_weather", rec.Source)
		assert.Equal(t, 1, rec.NumResults)
		assert.Equal(t, "London", rec.APIData["city"])
	})

	t.Run("error payload", func(t *testing.T) {
		e := routerEngine(Deps{Tools: &fakeTools{
			kind:    "calculation",
			payload: map[string]any{"error": "invalid calculation - only basic math operations allowed"},
		}})
		rec := e.route(context.Background(), SourceSelection{PrimarySource: SourceToolsAPIs}, "calculate foo")

		assert.Equal(t, "api_calculation_error", rec.Source)
		assert.Equal(t, 0, rec.NumResults)
	})
}
