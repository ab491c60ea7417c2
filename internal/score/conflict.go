package score

import "github.com/ppiankov/claimcheck/internal/model"

// DetectConflicts returns the description of every rule whose two tags are
// both present. Each rule fires at most once.
func DetectConflicts(tags []string, rules []model.ConflictRule) []string {
	if len(tags) < 2 || len(rules) == 0 {
		return nil
	}

	present := make(map[string]bool, len(tags))
	for _, t := range tags {
		present[t] = true
	}

	var conflicts []string
	for _, rule := range rules {
		if present[rule.A] && present[rule.B] {
			conflicts = append(conflicts, rule.Description)
		}
	}
	return conflicts
}
