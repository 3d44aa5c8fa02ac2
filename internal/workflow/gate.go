package workflow

// Verdict is the grading gate's decision.
type Verdict int

const (
	VerdictAccept Verdict = iota
	VerdictRetry
)

func (v Verdict) String() string {
	if v == VerdictAccept {
		return "accept"
	}
	return "retry"
}

// Decide recomputes the overall score as the arithmetic mean of the four
// sub-scores, overwriting whatever the grading collaborator reported, and
// accepts iff overall >= threshold. Equality accepts.
func Decide(g *GradingScores, threshold float64) Verdict {
	g.Overall = meanScore(*g)
	if g.Overall >= threshold {
		return VerdictAccept
	}
	return VerdictRetry
}

func meanScore(g GradingScores) float64 {
	return (g.Relevancy + g.Faithfulness + g.ContextQuality + g.Coherence) / 4
}
