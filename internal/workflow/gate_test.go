package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideRecomputesOverall(t *testing.T) {
	g := &GradingScores{
		Relevancy:      0.8,
		Faithfulness:   0.6,
		ContextQuality: 0.7,
		Coherence:      0.9,
		Overall:        0.05, // collaborator value, must be ignored
	}

	verdict := Decide(g, 0.7)

	assert.InDelta(t, 0.75, g.Overall, 1e-9)
	assert.Equal(t, VerdictAccept, verdict)
}

func TestDecideBoundaryEqualityAccepts(t *testing.T) {
	g := &GradingScores{
		Relevancy:      0.7,
		Faithfulness:   0.7,
		ContextQuality: 0.7,
		Coherence:      0.7,
	}

	assert.Equal(t, VerdictAccept, Decide(g, 0.7))
	assert.InDelta(t, 0.7, g.Overall, 1e-9)
}

func TestDecideBelowThresholdRetries(t *testing.T) {
	g := &GradingScores{
		Relevancy:      0.6,
		Faithfulness:   0.6,
		ContextQuality: 0.6,
		Coherence:      0.6,
	}

	assert.Equal(t, VerdictRetry, Decide(g, 0.7))
}

func TestDecideZeroScores(t *testing.T) {
	g := &GradingScores{}

	assert.Equal(t, VerdictRetry, Decide(g, 0.7))
	assert.Equal(t, 0.0, g.Overall)
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "accept", VerdictAccept.String())
	assert.Equal(t, "retry", VerdictRetry.String())
}
