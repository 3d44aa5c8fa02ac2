package workflow

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	DefaultMaxRetries          = 2
	DefaultAcceptanceThreshold = 0.7
)

// Config carries the per-engine tuning knobs. Engines are constructed
// explicitly per process (or per test); there is no package-level instance.
type Config struct {
	MaxRetries          int
	AcceptanceThreshold float64
	Logger              *log.Logger
}

// Engine drives a single in-memory State through the 12-step pipeline.
// One Engine value may serve many concurrent runs: all run state lives in
// the State created per Run call, and Deps implementations are required to
// be safe for concurrent use.
type Engine struct {
	cfg  Config
	deps Deps
	log  *log.Logger
}

// New constructs an Engine. Negative config fields fall back to the
// documented defaults (2 retries, 0.7 acceptance threshold); zero is a
// valid setting in both cases. MaxRetries 0 means a single pass through
// the pipeline, threshold 0.0 accepts any graded response.
func New(cfg Config, deps Deps) *Engine {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.AcceptanceThreshold < 0 {
		cfg.AcceptanceThreshold = DefaultAcceptanceThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{cfg: cfg, deps: deps, log: logger}
}

// Run executes the full pipeline for one query and always returns a
// FinalResponse: step failures and panics are converted into a degraded
// response with confidence 0.0 and the failure text under metadata["error"].
func (e *Engine) Run(ctx context.Context, query string) (resp FinalResponse) {
	state := newState(uuid.NewString(), query, e.cfg.MaxRetries, e.cfg.AcceptanceThreshold)

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("workflow panicked", "run_id", state.RunID, "panic", r)
			resp = e.failedResponse(fmt.Sprintf("panic: %v", r))
		}
	}()

	e.log.Info("workflow started", "run_id", state.RunID, "query", query)

	if err := e.runSteps(ctx, state); err != nil {
		e.log.Error("workflow failed", "run_id", state.RunID, "step", state.Current.String(), "err", err)
		return e.failedResponse(err.Error())
	}
	if state.Final == nil {
		// Unreachable given the transition table, kept as a guard.
		return FinalResponse{
			Answer:     "Unable to generate satisfactory response",
			Confidence: 0.0,
			Sources:    []string{},
			Metadata:   map[string]any{"error": "workflow_incomplete"},
		}
	}
	e.log.Info("workflow finished", "run_id", state.RunID,
		"confidence", state.Final.Confidence, "retries", state.Final.Retries)
	return *state.Final
}

// runSteps is the step state machine. Each iteration executes the current
// step and either advances, loops back through the retry gate, or assembles
// the terminal FinalResponse. The loop is bounded structurally: the retry
// gate increments RetryCount at most MaxRetries times, so the engine never
// makes more than MaxRetries+1 passes through steps 2-10.
func (e *Engine) runSteps(ctx context.Context, state *State) error {
	for state.Final == nil {
		e.log.Debug("step", "run_id", state.RunID, "step", state.Current.String(), "retries", state.RetryCount)

		switch state.Current {
		case StepStart:
			state.Current = StepRewrite

		case StepRewrite:
			res, err := e.rewriteQuery(ctx, state.OriginalQuery)
			if err != nil {
				return err
			}
			state.Rewrite = &res
			state.Current = StepUpdateQuery

		case StepUpdateQuery:
			// Checkpoint: the rewritten query is authoritative from here on.
			e.log.Info("query updated", "run_id", state.RunID, "query", state.Rewrite.RewrittenQuery)
			state.Current = StepClarifyCheck

		case StepClarifyCheck:
			clear, err := e.queryIsClear(ctx, state.Rewrite.RewrittenQuery)
			if err != nil {
				return err
			}
			if clear {
				state.Current = StepSelectSource
			} else {
				state.Current = StepRetryGate
			}

		case StepSelectSource:
			sel, err := e.selectSource(ctx, state.Rewrite.RewrittenQuery)
			if err != nil {
				return err
			}
			state.Selection = &sel
			e.log.Info("source selected", "run_id", state.RunID,
				"source", sel.PrimarySource, "confidence", sel.Confidence)
			state.Current = StepRetrieve

		case StepRetrieve:
			rec := e.route(ctx, *state.Selection, state.Rewrite.RewrittenQuery)
			state.Retrieval = &rec
			e.log.Info("retrieved", "run_id", state.RunID, "source", rec.Source, "results", rec.NumResults)
			state.Current = StepCompileContext

		case StepCompileContext:
			comp, err := e.compileContext(ctx, state.Rewrite.RewrittenQuery, state.Retrieval)
			if err != nil {
				return err
			}
			state.Context = &comp
			state.Current = StepEnhancePrompt

		case StepEnhancePrompt:
			// Pure data transform, no collaborator call.
			state.EnhancedPrompt = fmt.Sprintf("Query: %s\n\nAvailable Context: %s",
				state.Rewrite.RewrittenQuery, state.Context.CompiledContext)
			state.Current = StepGenerate

		case StepGenerate:
			text, err := e.generateResponse(ctx, state.Rewrite.RewrittenQuery, state.Context.CompiledContext)
			if err != nil {
				return err
			}
			state.Response = text
			state.Current = StepGrade

		case StepGrade:
			grading, err := e.gradeResponse(ctx, state.Rewrite.RewrittenQuery,
				state.Context.CompiledContext, state.Response)
			if err != nil {
				return err
			}
			verdict := Decide(&grading, state.AcceptanceThreshold)
			state.Grading = &grading
			e.log.Info("graded", "run_id", state.RunID, "overall", grading.Overall, "verdict", verdict.String())
			if verdict == VerdictAccept {
				state.Current = StepFinalize
			} else {
				state.Current = StepRetryGate
			}

		case StepFinalize:
			state.Final = e.assembleFinal(state)

		case StepRetryGate:
			e.retryGate(state)

		default:
			return fmt.Errorf("illegal step %d", state.Current)
		}
	}
	return nil
}

// retryGate either loops the workflow back to the rewrite step with an
// enhanced query, or, with retries exhausted, assembles the best-effort
// degraded FinalResponse.
func (e *Engine) retryGate(state *State) {
	if state.RetryCount < state.MaxRetries {
		state.RetryCount++
		if state.Grading != nil && state.Grading.ImprovementReason != "" {
			state.OriginalQuery = EnhanceQuery(state.OriginalQuery, state.Grading.ImprovementReason)
			e.log.Info("query enhanced from feedback", "run_id", state.RunID, "query", state.OriginalQuery)
		}
		e.log.Info("retrying", "run_id", state.RunID, "attempt", state.RetryCount, "max", state.MaxRetries)
		state.Current = StepRewrite
		return
	}

	confidence := 0.5
	if state.Grading != nil {
		confidence = state.Grading.Overall
	}
	state.Final = &FinalResponse{
		Answer:     state.Response + "\n\n[Note: Answer quality may be limited due to max retries reached]",
		Confidence: confidence,
		Sources:    sourcesUsed(state),
		Metadata: map[string]any{
			"retrieval_method":   retrievalMethod(state),
			"query_rewrites":     state.RetryCount,
			"grading_scores":     state.Grading,
			"note":               "max_retries_reached",
			"workflow_completed": false,
		},
		Retries: state.RetryCount,
		Grading: state.Grading,
	}
}

func (e *Engine) assembleFinal(state *State) *FinalResponse {
	return &FinalResponse{
		Answer:     state.Response,
		Confidence: state.Grading.Overall,
		Sources:    sourcesUsed(state),
		Metadata: map[string]any{
			"retrieval_method":   retrievalMethod(state),
			"query_rewrites":     state.RetryCount + 1,
			"grading_scores":     state.Grading,
			"workflow_completed": true,
		},
		Retries: state.RetryCount,
		Grading: state.Grading,
	}
}

func (e *Engine) failedResponse(reason string) FinalResponse {
	return FinalResponse{
		Answer:     "Error in RAG workflow: " + reason,
		Confidence: 0.0,
		Sources:    []string{},
		Metadata:   map[string]any{"error": reason, "workflow_completed": false},
	}
}

func sourcesUsed(state *State) []string {
	if state.Context == nil {
		return []string{}
	}
	return state.Context.SourcesUsed
}

func retrievalMethod(state *State) string {
	if state.Retrieval == nil {
		return "unknown"
	}
	return state.Retrieval.Source
}
