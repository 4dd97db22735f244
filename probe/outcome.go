package probe

import (
	"context"
	"errors"
	"net"
	"time"

	"domain-reputation/blacklist"
	"domain-reputation/resolver"
)

// Status is the kind of a probe outcome.
type Status string

const (
	StatusClean       Status = "clean"
	StatusListed      Status = "listed"
	StatusTimeout     Status = "timeout"
	StatusUnsupported Status = "unsupported"
	StatusError       Status = "error"
)

// Outcome is the result of one DNSBL query. Code is set only for listed
// outcomes and Message only for errors.
type Outcome struct {
	Status  Status `json:"status"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func Clean() Outcome       { return Outcome{Status: StatusClean} }
func Timeout() Outcome     { return Outcome{Status: StatusTimeout} }
func Unsupported() Outcome { return Outcome{Status: StatusUnsupported} }

// Listed carries the DNSBL reason code, the last octet of the first answer.
func Listed(code int) Outcome { return Outcome{Status: StatusListed, Code: code} }

func Errored(msg string) Outcome { return Outcome{Status: StatusError, Message: msg} }

func (o Outcome) IsListed() bool { return o.Status == StatusListed }

// Result is the outcome of probing Target against one list.
type Result struct {
	List    blacklist.Entry `json:"list"`
	Target  string          `json:"target"`
	Outcome Outcome         `json:"outcome"`
	Latency time.Duration   `json:"latency_ns"`
}

// Key identifies a result by list host and target. Results that share a key
// describe the same listing.
func (r Result) Key() string {
	return r.List.Host + "|" + r.Target
}

// classify maps a resolver answer to an outcome. It is the only place where
// resolver failures are interpreted.
func classify(ips []net.IP, err error) Outcome {
	switch {
	case err == nil && len(ips) == 0:
		return Clean()
	case err == nil:
		ip := ips[0]
		if v4 := ip.To4(); v4 != nil {
			ip = v4
		}
		return Listed(int(ip[len(ip)-1]))
	case errors.Is(err, resolver.ErrNotFound):
		return Clean()
	case errors.Is(err, resolver.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return Timeout()
	case errors.Is(err, resolver.ErrServerFailure):
		return Errored("server failure")
	case errors.Is(err, resolver.ErrRefused):
		return Errored("query refused")
	default:
		return Errored(err.Error())
	}
}
