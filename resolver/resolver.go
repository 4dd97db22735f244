// Package resolver issues the A and AAAA queries used for DNSBL probing and
// for resolving the addresses of a checked domain.
//
// Every implementation maps transport failures onto the sentinel errors
// below so callers can classify them with errors.Is.
package resolver

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrNotFound means the name does not exist (NXDOMAIN).
	ErrNotFound = errors.New("resolver: name not found")
	// ErrTimeout means no answer arrived before the deadline.
	ErrTimeout = errors.New("resolver: query timed out")
	// ErrServerFailure means the upstream answered SERVFAIL or an equivalent.
	ErrServerFailure = errors.New("resolver: server failure")
	// ErrRefused means the upstream refused the query.
	ErrRefused = errors.New("resolver: query refused")
)

// Resolver looks up address records. An existing name with no records of the
// requested type returns a nil slice and a nil error.
type Resolver interface {
	LookupA(ctx context.Context, name string) ([]net.IP, error)
	LookupAAAA(ctx context.Context, name string) ([]net.IP, error)
}

// timeoutErr folds context expiry into ErrTimeout so probes see one kind of
// timeout regardless of where the deadline fired.
func timeoutErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrTimeout
	}
	return nil
}
