package domain

// Rule identifies which matcher produced a Suggestion.
type Rule string

const (
	RuleAlmaItems    Rule = "alma_items"
	RulePatternMatch Rule = "pattern_match"
	RuleRSLibrary    Rule = "rs_library"
)

// Suggestion is the atomic output of one classification rule. Queue may
// be empty: a rule can fire purely for its explanatory comment without
// proposing a move.
type Suggestion struct {
	Rule    Rule
	Queue   string
	Comment string
}

// HasQueue reports whether the suggestion proposes a destination.
func (s Suggestion) HasQueue() bool {
	return s.Queue != ""
}

// Decision is the selected Suggestion paired with the justification
// lines from every fired rule, winning or not, in traversal order.
type Decision struct {
	Suggestion Suggestion
	Comments   []string
}
