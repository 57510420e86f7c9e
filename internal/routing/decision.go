package routing

import "github.com/scriptotek/rt-triage/internal/domain"

// PrivilegedGroupThreshold is the user-group code at or above which a
// sender's identity never routes a ticket. Staff and institutional
// accounts live in these groups.
const PrivilegedGroupThreshold = 8

// rulePreferenceOrder fixes the precedence between signal sources.
// Barcode evidence beats text patterns, which beat sender identity.
var rulePreferenceOrder = []domain.Rule{
	domain.RuleAlmaItems,
	domain.RulePatternMatch,
	domain.RuleRSLibrary,
}

// Decide merges the suggestions for one ticket into at most one routing
// decision. The first suggestion with a destination, visited in rule
// preference order then emission order, wins. Comments from every fired
// suggestion are collected in the same traversal order so the posted
// justification explains all signals considered, not just the winner.
func Decide(suggestions []domain.Suggestion) (*domain.Decision, []string) {
	var decision *domain.Decision
	var comments []string

	for _, rule := range rulePreferenceOrder {
		for _, suggestion := range suggestions {
			if suggestion.Rule != rule {
				continue
			}
			if suggestion.HasQueue() && decision == nil {
				decision = &domain.Decision{Suggestion: suggestion}
			}
			if suggestion.Comment != "" {
				comments = append(comments, suggestion.Comment)
			}
		}
	}

	if decision != nil {
		decision.Comments = comments
	}
	return decision, comments
}
