package reputation

import (
	"fmt"
	"sort"

	"domain-reputation/blacklist"
	"domain-reputation/intel"
	"domain-reputation/probe"
)

// AuthRecords carries already-parsed SPF, DMARC and DKIM results. They are
// only used to shape recommendations.
type AuthRecords struct {
	SPF   map[string]any `json:"spf,omitempty"`
	DMARC map[string]any `json:"dmarc,omitempty"`
	DKIM  map[string]any `json:"dkim,omitempty"`
}

// Request is the input of Check.
type Request struct {
	Target string       `json:"target"`
	Auth   *AuthRecords `json:"auth,omitempty"`
	// SkipCache forces fresh probing even when evidence is cached.
	SkipCache bool `json:"skip_cache,omitempty"`
}

// Report is the outcome of a reputation check. It contains no wall-clock
// data so that identical evidence always produces an identical report.
type Report struct {
	Subject     string   `json:"subject"`
	Kind        Kind     `json:"kind"`
	ResolvedIPs []string `json:"resolved_ips"`

	Probes   []probe.Result `json:"probes"`
	Signals  []intel.Signal `json:"external_signals"`
	Listings []string       `json:"blacklist_details"`

	ListedCount   int  `json:"listed_count"`
	TotalServices int  `json:"total_services"`
	Blacklisted   bool `json:"blacklisted"`

	Score           int              `json:"score"`
	RiskLevel       RiskLevel        `json:"risk_level"`
	RiskDescription string           `json:"risk_description"`
	Breakdown       Breakdown        `json:"breakdown"`
	Recommendations []Recommendation `json:"recommendations"`

	Partial       bool `json:"partial"`
	IPLookupError bool `json:"ip_lookup_error"`
	DomainAgeDays *int `json:"domain_age_days,omitempty"`
	Cached        bool `json:"cached"`
}

// Listed returns the deduplicated listed probes of the report.
func (r *Report) Listed() []probe.Result {
	return dedupeListed(r.Probes)
}

// dedupeListed keeps the first listed result for each (list host, target)
// pair, preserving probe order.
func dedupeListed(results []probe.Result) []probe.Result {
	seen := make(map[string]struct{})
	var out []probe.Result
	for _, r := range results {
		if !r.Outcome.IsListed() {
			continue
		}
		if _, ok := seen[r.Key()]; ok {
			continue
		}
		seen[r.Key()] = struct{}{}
		out = append(out, r)
	}
	return out
}

// listingDetails renders human-readable listing lines, sorted and unique.
func listingDetails(listed []probe.Result) []string {
	set := make(map[string]struct{}, len(listed))
	for _, r := range listed {
		var line string
		if r.List.Scope == blacklist.ScopeDomain {
			line = r.List.Name
		} else {
			line = fmt.Sprintf("%s for IP %s (code: %d)", r.List.Name, r.Target, r.Outcome.Code)
		}
		set[line] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for line := range set {
		out = append(out, line)
	}
	sort.Strings(out)
	return out
}
