package workflow

import "strings"

// EnhanceQuery derives an improved query from grading feedback before a
// retry. Case-insensitive substring match over the improvement reason,
// first match wins. A placeholder heuristic rather than a semantic rewrite:
// pure, deterministic and idempotent for a given input pair.
func EnhanceQuery(original, improvementReason string) string {
	reason := strings.ToLower(improvementReason)
	switch {
	case strings.Contains(reason, "specific"):
		return "Detailed information about: " + original
	case strings.Contains(reason, "context"), strings.Contains(reason, "relevant"):
		return "Comprehensive explanation of: " + original
	case strings.Contains(reason, "recent"), strings.Contains(reason, "current"):
		return "Current and up-to-date information about: " + original
	case strings.Contains(reason, "faithfulness"), strings.Contains(reason, "hallucination"):
		return "Factual and verified information about: " + original
	default:
		return "Complete guide to: " + original
	}
}
