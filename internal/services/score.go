package services

// ScaleKind selects the questionnaire a score belongs to.
type ScaleKind string

const (
	ScalePHQ ScaleKind = "phq"
	ScaleGAD ScaleKind = "gad"
)

// Score sums a completed answer sequence and returns its severity band.
// Answers are item values in [0,3]; bands follow the standard PHQ-9/GAD-7
// cutoffs, evaluated in ascending order with inclusive upper bounds.
func Score(answers []int, scale ScaleKind) (int, string) {
	total := 0
	for _, a := range answers {
		total += a
	}
	if scale == ScaleGAD {
		return total, GADBand(total)
	}
	return total, PHQBand(total)
}

// PHQBand maps a PHQ-9 total (0..27) to its severity label.
func PHQBand(total int) string {
	switch {
	case total <= 4:
		return "Minimal depression"
	case total <= 9:
		return "Mild depression"
	case total <= 14:
		return "Moderate depression"
	case total <= 19:
		return "Moderately severe depression"
	default:
		return "Severe depression"
	}
}

// GADBand maps a GAD-7 total (0..21) to its severity label.
func GADBand(total int) string {
	switch {
	case total <= 4:
		return "Minimal anxiety"
	case total <= 9:
		return "Mild anxiety"
	case total <= 14:
		return "Moderate anxiety"
	default:
		return "Severe anxiety"
	}
}

// ScoreResult carries both scale results. It is derived state, recomputed
// from the answer sequences whenever needed.
type ScoreResult struct {
	PHQTotal int    `json:"phq_total"`
	PHQBand  string `json:"phq_band"`
	GADTotal int    `json:"gad_total"`
	GADBand  string `json:"gad_band"`
}

// ScoreBoth scores the two completed questionnaires together.
func ScoreBoth(phq, gad []int) ScoreResult {
	var r ScoreResult
	r.PHQTotal, r.PHQBand = Score(phq, ScalePHQ)
	r.GADTotal, r.GADBand = Score(gad, ScaleGAD)
	return r
}
