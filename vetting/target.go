package vetting

import (
	"net/url"
	"strings"

	"domain-reputation/reputation"
)

// NormalizeTarget decodes a target taken from a URL path and returns its
// canonical form: a lowercase ASCII domain without "www." or an IP literal.
func NormalizeTarget(raw string) (string, error) {
	target, err := url.PathUnescape(raw)
	if err != nil {
		return "", &reputation.InputError{Input: raw, Reason: "bad escaping in path"}
	}
	subject, _, err := reputation.Normalize(strings.TrimSpace(target))
	if err != nil {
		return "", err
	}
	return subject, nil
}
