package model

// ArticleState tracks one article's progress through the pipeline.
type ArticleState string

const (
	StateNotChecked ArticleState = "not_checked"
	StateSkipped    ArticleState = "skipped"
	StateAcquiring  ArticleState = "acquiring"
	StateAnalyzing  ArticleState = "analyzing"
	StateRouted     ArticleState = "routed"
	StateFailed     ArticleState = "failed"
)

var transitions = map[ArticleState][]ArticleState{
	StateNotChecked: {StateSkipped, StateAcquiring},
	StateAcquiring:  {StateAnalyzing, StateFailed},
	StateAnalyzing:  {StateRouted, StateFailed},
}

// CanTransition reports whether from -> to is a legal step.
func CanTransition(from, to ArticleState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s ArticleState) Terminal() bool {
	return s == StateSkipped || s == StateRouted || s == StateFailed
}
