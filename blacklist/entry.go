package blacklist

import (
	"fmt"
	"strings"
)

// Scope says what kind of target a list is keyed by.
type Scope string

const (
	// ScopeDomain lists are RHSBLs queried with the domain name itself.
	ScopeDomain Scope = "domain"
	// ScopeIP lists are DNSBLs queried with the reversed address.
	ScopeIP Scope = "ip"
)

// Weight is the impact class of a listing on the final score.
type Weight string

const (
	WeightHigh   Weight = "high"
	WeightMedium Weight = "medium"
	WeightLow    Weight = "low"
)

// Entry describes one blacklist service.
type Entry struct {
	Name            string `yaml:"name" json:"name"`
	Host            string `yaml:"host" json:"host"`
	Scope           Scope  `yaml:"scope" json:"scope"`
	Weight          Weight `yaml:"weight" json:"weight"`
	IPv6Unsupported bool   `yaml:"ipv6_unsupported,omitempty" json:"ipv6_unsupported,omitempty"`
}

func (e Entry) validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("blacklist entry without name (host %q)", e.Host)
	}
	if strings.TrimSpace(e.Host) == "" {
		return fmt.Errorf("blacklist %q: empty host", e.Name)
	}
	switch e.Scope {
	case ScopeDomain, ScopeIP:
	default:
		return fmt.Errorf("blacklist %q: unknown scope %q", e.Name, e.Scope)
	}
	switch e.Weight {
	case WeightHigh, WeightMedium, WeightLow:
	default:
		return fmt.Errorf("blacklist %q: unknown weight %q", e.Name, e.Weight)
	}
	return nil
}
