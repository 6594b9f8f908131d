package quality

// Verdict is the fitness-for-purpose decision for one rendered code.
type Verdict string

const (
	VerdictPass     Verdict = "PASS"
	VerdictMarginal Verdict = "MARGINAL"
	VerdictFail     Verdict = "FAIL"
)

// Report carries the sub-scores, the weighted overall score, and the
// verdict for one image. It is produced fresh per call and never persisted
// by the engine.
type Report struct {
	SizeScore        float64  `json:"size_score"`
	ContrastScore    float64  `json:"contrast_score"`
	SharpnessScore   float64  `json:"sharpness_score"`
	AlignmentScore   float64  `json:"alignment_score"`
	ReadabilityScore float64  `json:"readability_score"`
	OverallScore     float64  `json:"overall_score"`
	Verdict          Verdict  `json:"verdict"`
	Suggestions      []string `json:"suggestions,omitempty"`
}

// suggestionThreshold is the sub-score below which an improvement hint is
// attached to the report.
const suggestionThreshold = 70

// suggestions derives deterministic improvement hints from the weak
// sub-scores. Order is fixed so reports are reproducible.
func (r Report) suggestions() []string {
	var out []string
	if r.SizeScore < suggestionThreshold {
		out = append(out, "increase physical marking size or render resolution")
	}
	if r.ContrastScore < suggestionThreshold {
		out = append(out, "increase contrast between dark and light modules (pure black on white)")
	}
	if r.SharpnessScore < suggestionThreshold {
		out = append(out, "render at higher resolution; the code appears blurred")
	}
	if r.AlignmentScore < suggestionThreshold {
		out = append(out, "finder patterns are distorted; check marking surface and skew")
	}
	if r.ReadabilityScore < suggestionThreshold {
		out = append(out, "code does not decode; regenerate with a higher error-correction level or contrast")
	}
	return out
}

// verdict applies the decision rule. A code that does not decode is never a
// pass regardless of its aesthetic sub-scores; an overall score exactly at
// the pass threshold passes.
func verdict(overall, readability float64, cfg Config) Verdict {
	switch {
	case overall >= cfg.PassThreshold && readability == 100:
		return VerdictPass
	case overall >= cfg.MarginalThreshold && overall < cfg.PassThreshold:
		return VerdictMarginal
	default:
		return VerdictFail
	}
}
