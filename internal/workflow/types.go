package workflow

import (
	"time"
)

// Source identifies which backend supplies context for a query.
type Source string

const (
	SourceVectorDatabase Source = "vector_database"
	SourceToolsAPIs      Source = "tools_apis"
	SourceInternet       Source = "internet"
)

// Step enumerates the positions of the 12-step pipeline. Steps advance
// strictly through the transition table in engine.go; StepFinalize and an
// exhausted StepRetryGate are the only terminals.
type Step int

const (
	StepStart Step = iota + 1
	StepRewrite
	StepUpdateQuery
	StepClarifyCheck
	StepSelectSource
	StepRetrieve
	StepCompileContext
	StepEnhancePrompt
	StepGenerate
	StepGrade
	StepFinalize
	StepRetryGate
)

var stepNames = map[Step]string{
	StepStart:          "start",
	StepRewrite:        "rewrite_query",
	StepUpdateQuery:    "update_query",
	StepClarifyCheck:   "clarify_check",
	StepSelectSource:   "select_source",
	StepRetrieve:       "retrieve",
	StepCompileContext: "compile_context",
	StepEnhancePrompt:  "enhance_prompt",
	StepGenerate:       "generate_response",
	StepGrade:          "grade_response",
	StepFinalize:       "finalize",
	StepRetryGate:      "retry_gate",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// RewriteResult is the structured output of the query-rewriting collaborator.
type RewriteResult struct {
	OriginalQuery  string `json:"original_query"`
	RewrittenQuery string `json:"rewritten_query"`
	Reasoning      string `json:"reasoning"`
}

// SourceSelection is the structured output of the source-selection collaborator.
type SourceSelection struct {
	PrimarySource    Source   `json:"primary_source"`
	SecondarySources []string `json:"secondary_sources"`
	Reasoning        string   `json:"reasoning"`
	Confidence       float64  `json:"confidence"`
}

// RetrievalRecord is the normalized result of one retrieval pass, regardless
// of which backend served it. Source and NumResults are populated on every
// path, including failures, so downstream steps never null-check beyond
// "is it empty".
type RetrievalRecord struct {
	Documents  []string            `json:"documents"`
	Metadata   []map[string]string `json:"metadata"`
	WebAnswer  string              `json:"web_answer,omitempty"`
	APIData    map[string]any      `json:"api_data,omitempty"`
	Source     string              `json:"source"`
	NumResults int                 `json:"num_results"`
	Timestamp  time.Time           `json:"timestamp"`
}

// ContextCompilation is the structured output of the context-compilation
// collaborator.
type ContextCompilation struct {
	CompiledContext string   `json:"compiled_context"`
	SourcesUsed     []string `json:"sources_used"`
	Conflicts       []string `json:"conflicts"`
	Confidence      float64  `json:"confidence"`
}

// Recommendation is the grading collaborator's suggested next action.
type Recommendation string

const (
	RecommendRetryRetrieval Recommendation = "retry_retrieval"
	RecommendWebSearch      Recommendation = "web_search"
	RecommendAccept         Recommendation = "accept"
	RecommendClarifyQuery   Recommendation = "clarify_query"
)

// GradingScores is the structured output of the grading collaborator.
// Overall is always recomputed by the gate as the mean of the four
// sub-scores; the collaborator's own value is not trusted.
type GradingScores struct {
	Relevancy         float64        `json:"relevancy_score"`
	Faithfulness      float64        `json:"faithfulness_score"`
	ContextQuality    float64        `json:"context_quality_score"`
	Coherence         float64        `json:"coherence_score"`
	Overall           float64        `json:"overall_score"`
	NeedsImprovement  bool           `json:"needs_improvement"`
	ImprovementReason string         `json:"improvement_reason"`
	Recommendation    Recommendation `json:"recommendation"`
}

// FinalResponse is the terminal artifact of a workflow run. It is immutable
// once assembled; degraded and failed runs are distinguished through the
// Metadata markers, never through an error return.
type FinalResponse struct {
	Answer     string         `json:"answer"`
	Confidence float64        `json:"confidence"`
	Sources    []string       `json:"sources"`
	Metadata   map[string]any `json:"metadata"`
	Retries    int            `json:"retries"`
	Grading    *GradingScores `json:"grading_scores,omitempty"`
}

// State is the mutable workflow state for a single run. It is owned by
// exactly one Engine.Run call and is never shared across runs; only the
// engine mutates it.
type State struct {
	RunID               string
	OriginalQuery       string
	Current             Step
	RetryCount          int
	MaxRetries          int
	AcceptanceThreshold float64

	Rewrite        *RewriteResult
	Selection      *SourceSelection
	Retrieval      *RetrievalRecord
	Context        *ContextCompilation
	EnhancedPrompt string
	Response       string
	Grading        *GradingScores
	Final          *FinalResponse
}

func newState(runID, query string, maxRetries int, threshold float64) *State {
	return &State{
		RunID:               runID,
		OriginalQuery:       query,
		Current:             StepStart,
		MaxRetries:          maxRetries,
		AcceptanceThreshold: threshold,
	}
}
