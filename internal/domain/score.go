package domain

// ScoreScale records which scale a synergy score was produced on. Sources mix
// 0-10 and 0-100 scores and never say which, so the scale travels with the score.
type ScoreScale string

const (
	ScaleUnknown ScoreScale = ""
	ScaleTen     ScoreScale = "0-10"
	ScaleHundred ScoreScale = "0-100"
)

func (s ScoreScale) Known() bool { return s == ScaleTen || s == ScaleHundred }

type Impact string

const (
	ImpactHigh   Impact = "High"
	ImpactMedium Impact = "Medium"
	ImpactLow    Impact = "Low"
)

func (i Impact) Valid() bool {
	switch i {
	case ImpactHigh, ImpactMedium, ImpactLow:
		return true
	}
	return false
}

// ImpactFromScore maps a score to an impact level. Scores on an unknown scale
// have no impact level.
func ImpactFromScore(score float64, scale ScoreScale) (Impact, bool) {
	var high, medium float64
	switch scale {
	case ScaleHundred:
		high, medium = 80, 60
	case ScaleTen:
		high, medium = 8, 6
	default:
		return "", false
	}
	switch {
	case score >= high:
		return ImpactHigh, true
	case score >= medium:
		return ImpactMedium, true
	default:
		return ImpactLow, true
	}
}
