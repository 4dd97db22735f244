package reputation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		subject string
		kind    Kind
	}{
		{"example.com", "example.com", KindDomain},
		{"  Example.COM. ", "example.com", KindDomain},
		{"https://www.example.com/path?q=1", "example.com", KindDomain},
		{"http://user@mail.example.co.uk:8080/", "mail.example.co.uk", KindDomain},
		{"bücher.de", "xn--bcher-kva.de", KindDomain},
		{"192.0.2.1", "192.0.2.1", KindIP},
		{"192.0.2.1:25", "192.0.2.1", KindIP},
		{"2001:DB8::1", "2001:db8::1", KindIP},
		{"[2001:db8::1]:25", "2001:db8::1", KindIP},
		{"::ffff:192.0.2.1", "192.0.2.1", KindIP},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			subject, kind, err := Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.subject, subject)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"localhost",
		"not a domain",
		"exa!mple.com",
		"-bad.example.com",
		"co.uk",
		"fe80::1%eth0",
		"[2001:db8::1",
		"1.2.3.4.5:6:7",
		"999.1.1.1",
		"256.256.256.256",
		"1.2.3",
		"1.2.3.4.5",
		"example.123",
	} {
		t.Run(in, func(t *testing.T) {
			_, _, err := Normalize(in)
			var inputErr *InputError
			require.True(t, errors.As(err, &inputErr), "got %v", err)
			assert.NotEmpty(t, inputErr.Reason)
		})
	}
}
