package reputation

import (
	"fmt"
	"strings"

	"domain-reputation/blacklist"
	"domain-reputation/intel"
)

// Priority orders recommendations for display.
type Priority string

const (
	PriorityHigh    Priority = "high"
	PriorityMedium  Priority = "medium"
	PriorityLow     Priority = "low"
	PriorityWarning Priority = "warning"
)

type Recommendation struct {
	Priority    Priority `json:"priority"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
}

// Context is caller-supplied information that is not part of the evidence.
type Context struct {
	Auth *AuthRecords
}

// youngDomainDays is the age below which a domain is reported as new.
const youngDomainDays = 30

type rule func(r *Report, c Context) []Recommendation

// rules run in this order. Domain findings come before IP findings, and
// high priority advice before the low priority clean notice. Warnings close
// the list.
var rules = []rule{
	domainListedRule,
	ipListedRule,
	rootCauseRule,
	abuseIPDBRule,
	virusTotalRule,
	authRule,
	youngDomainRule,
	cleanRule,
	partialRule,
	ipLookupRule,
}

// Recommend maps a report to ordered advice. The same report and context
// always produce the same list.
func Recommend(r *Report, c Context) []Recommendation {
	out := []Recommendation{}
	for _, rule := range rules {
		out = append(out, rule(r, c)...)
	}
	return out
}

func listedByScope(r *Report, scope blacklist.Scope) []string {
	var names []string
	for _, p := range r.Listed() {
		if p.List.Scope == scope {
			names = append(names, p.List.Name)
		}
	}
	return names
}

func domainListedRule(r *Report, _ Context) []Recommendation {
	if r.Kind != KindDomain {
		return nil
	}
	names := listedByScope(r, blacklist.ScopeDomain)
	if len(names) == 0 {
		return nil
	}
	return []Recommendation{{
		Priority: PriorityHigh,
		Title:    "Address Blacklisting Issues",
		Description: fmt.Sprintf("Your domain is listed on %d domain blacklists (%s). This can severely impact email deliverability. Review the blacklist details.",
			len(names), strings.Join(names, ", ")),
	}}
}

func ipListedRule(r *Report, _ Context) []Recommendation {
	counts := make(map[string]int)
	var order []string
	for _, p := range r.Listed() {
		if p.List.Scope != blacklist.ScopeIP {
			continue
		}
		if counts[p.Target] == 0 {
			order = append(order, p.Target)
		}
		counts[p.Target]++
	}

	var out []Recommendation
	for _, ip := range order {
		out = append(out, Recommendation{
			Priority: PriorityHigh,
			Title:    "IP Address Blacklisted",
			Description: fmt.Sprintf("The IP address %s is listed on %d blacklists. This can impact email deliverability for all domains sending from this IP.",
				ip, counts[ip]),
		})
	}
	return out
}

func rootCauseRule(r *Report, _ Context) []Recommendation {
	if !r.Blacklisted {
		return nil
	}
	if r.Kind == KindIP {
		return []Recommendation{
			{
				Priority:    PriorityMedium,
				Title:       "Investigate IP Activity",
				Description: "Check sending logs from this IP for spam or suspicious activity. If it's a shared IP, contact your hosting provider.",
			},
			{
				Priority:    PriorityMedium,
				Title:       "Request IP Delisting",
				Description: "Identify the blacklists involved (see details) and follow their delisting procedures after addressing the root cause.",
			},
		}
	}
	return []Recommendation{
		{
			Priority:    PriorityMedium,
			Title:       "Identify Root Cause",
			Description: "Investigate why your domain/IPs were listed. Common causes include sending spam (check for compromised accounts/servers), poor email list hygiene, or misconfigured email authentication.",
		},
		{
			Priority:    PriorityMedium,
			Title:       "Request Delisting",
			Description: "Once the root cause is fixed, follow the delisting procedures for each specific blacklist. This often involves visiting the blacklist's website.",
		},
	}
}

func abuseIPDBRule(r *Report, _ Context) []Recommendation {
	for _, s := range r.Signals {
		if s.Status != intel.StatusOK || s.AbuseIPDB == nil {
			continue
		}
		conf := s.AbuseIPDB.AbuseConfidence
		switch {
		case conf > 50:
			return []Recommendation{{
				Priority:    PriorityHigh,
				Title:       fmt.Sprintf("AbuseIPDB High Confidence (%d%%)", conf),
				Description: fmt.Sprintf("AbuseIPDB reports this IP with %d%% confidence of abuse. Review the reports and take appropriate action.", conf),
			}}
		case conf > 25:
			return []Recommendation{{
				Priority:    PriorityMedium,
				Title:       fmt.Sprintf("AbuseIPDB Medium Confidence (%d%%)", conf),
				Description: fmt.Sprintf("AbuseIPDB reports this IP with %d%% confidence of abuse. Monitor activity closely.", conf),
			}}
		}
	}
	return nil
}

func virusTotalRule(r *Report, _ Context) []Recommendation {
	for _, s := range r.Signals {
		if s.Status != intel.StatusOK || s.VirusTotal == nil || s.VirusTotal.Malicious == 0 {
			continue
		}
		n := s.VirusTotal.Malicious
		return []Recommendation{{
			Priority:    PriorityHigh,
			Title:       fmt.Sprintf("VirusTotal Detections (%d)", n),
			Description: fmt.Sprintf("VirusTotal reports %d security vendors flagged this IP as malicious. Investigate immediately.", n),
		}}
	}
	return nil
}

func cleanRule(r *Report, _ Context) []Recommendation {
	if r.Blacklisted {
		return nil
	}
	if r.Kind == KindIP {
		return []Recommendation{{
			Priority:    PriorityLow,
			Title:       "IP Reputation Clean",
			Description: fmt.Sprintf("The IP address %s is not currently found on major blacklists checked.", r.Subject),
		}}
	}
	return []Recommendation{{
		Priority:    PriorityLow,
		Title:       "Maintain Good Sending Practices",
		Description: "Your domain/IPs are not currently on major blacklists. Continue using good email practices: use double opt-in for lists, monitor bounce rates, authenticate emails (SPF, DKIM, DMARC), and handle unsubscribes promptly.",
	}}
}

func authRule(r *Report, c Context) []Recommendation {
	if c.Auth == nil || r.Kind != KindDomain {
		return nil
	}
	var out []Recommendation
	if !recordPresent(c.Auth.SPF) {
		out = append(out, Recommendation{
			Priority:    PriorityHigh,
			Title:       "Configure SPF",
			Description: "No SPF record was found. Publish one listing every host allowed to send for this domain, ending in '-all' or '~all'.",
		})
	}
	if !recordPresent(c.Auth.DMARC) {
		out = append(out, Recommendation{
			Priority:    PriorityHigh,
			Title:       "Configure DMARC",
			Description: "No DMARC record was found. Start with 'p=none' and aggregate reporting, then tighten the policy once reports look clean.",
		})
	}
	if !recordPresent(c.Auth.DKIM) {
		out = append(out, Recommendation{
			Priority:    PriorityHigh,
			Title:       "Configure DKIM",
			Description: "No DKIM selector was found. Sign outgoing mail with DKIM so receivers can verify it was not altered.",
		})
	}
	return out
}

// recordPresent reads the conventions used by the record parsers: an empty
// result, a false "found"/"exists"/"valid" flag or a failure status all mean
// the record is missing.
func recordPresent(rec map[string]any) bool {
	if len(rec) == 0 {
		return false
	}
	for _, key := range []string{"found", "exists", "valid"} {
		if v, ok := rec[key].(bool); ok && !v {
			return false
		}
	}
	if status, ok := rec["status"].(string); ok {
		switch strings.ToLower(status) {
		case "missing", "not_found", "none", "error", "fail", "invalid":
			return false
		}
	}
	return true
}

func youngDomainRule(r *Report, _ Context) []Recommendation {
	if r.Kind != KindDomain || r.DomainAgeDays == nil || *r.DomainAgeDays >= youngDomainDays {
		return nil
	}
	return []Recommendation{{
		Priority:    PriorityMedium,
		Title:       "Recently Registered Domain",
		Description: fmt.Sprintf("The domain was registered %d days ago. New domains are treated with suspicion by many filters; warm up sending volume gradually.", *r.DomainAgeDays),
	}}
}

func partialRule(r *Report, _ Context) []Recommendation {
	if !r.Partial {
		return nil
	}
	return []Recommendation{{
		Priority:    PriorityWarning,
		Title:       "Incomplete Check",
		Description: "Some blacklist checks timed out. Monitor your reputation regularly as the results may be incomplete.",
	}}
}

func ipLookupRule(r *Report, _ Context) []Recommendation {
	if !r.IPLookupError {
		return nil
	}
	return []Recommendation{{
		Priority:    PriorityWarning,
		Title:       "IP Resolution Failed",
		Description: "Could not resolve IPs for the domain. IP-based blacklist checks were skipped. Ensure the domain has valid A/AAAA records.",
	}}
}
