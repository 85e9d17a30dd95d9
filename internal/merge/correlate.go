package merge

import (
	"strings"

	"github.com/ignite/campaign-reporter/internal/domain"
)

// campaign-name prefix delimiters, tried in order of first occurrence
var prefixDelimiters = "-_:"

// Correlate matches a campaign name against the known tenants and returns
// the matched tenant ID. The match is a case-insensitive, trimmed substring
// match between each tenant name and the portion of the campaign name
// before the first delimiter ("-", "_" or ":").
//
// The heuristic is deliberately isolated here as a pure function so it can
// be tested independently of the merge loop. It is re-evaluated on every
// sync run; tenants can be renamed and nothing is cached.
//
// When several tenant names match, the longest wins so that "Acme Corp"
// beats "Acme" on a campaign named "Acme Corp - Spring".
func Correlate(campaignName string, tenants []domain.Tenant) (int64, bool) {
	prefix := strings.ToLower(strings.TrimSpace(campaignPrefix(campaignName)))
	if prefix == "" {
		return 0, false
	}

	var (
		bestID  int64
		bestLen int
		found   bool
	)
	for _, t := range tenants {
		name := strings.ToLower(strings.TrimSpace(t.Name))
		if name == "" {
			continue
		}
		if strings.Contains(prefix, name) && len(name) > bestLen {
			bestID, bestLen, found = t.ID, len(name), true
		}
	}
	return bestID, found
}

// campaignPrefix returns the portion of the name before the first delimiter,
// or the whole name when no delimiter occurs.
func campaignPrefix(name string) string {
	if idx := strings.IndexAny(name, prefixDelimiters); idx >= 0 {
		return name[:idx]
	}
	return name
}
