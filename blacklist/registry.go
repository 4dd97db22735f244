package blacklist

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Registry is the immutable set of blacklist services the prober works with.
// It is built once at start-up and handed to whoever needs it.
type Registry struct {
	entries []Entry
}

type catalogFile struct {
	Blacklists []Entry `yaml:"blacklists"`
}

// NewRegistry validates entries and returns a registry holding a private copy.
// An entry without a weight is treated as low impact.
func NewRegistry(entries []Entry) (*Registry, error) {
	seen := make(map[string]struct{}, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		e.Name = strings.TrimSpace(e.Name)
		e.Host = strings.Trim(strings.ToLower(strings.TrimSpace(e.Host)), ".")
		e.Scope = Scope(strings.ToLower(string(e.Scope)))
		e.Weight = Weight(strings.ToLower(string(e.Weight)))
		if e.Weight == "" {
			e.Weight = WeightLow
		}
		if err := e.validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("blacklist %q listed twice", e.Name)
		}
		seen[e.Name] = struct{}{}
		out = append(out, e)
	}
	return &Registry{entries: out}, nil
}

// Load reads a YAML catalog of the form `blacklists: [{name, host, scope, weight}]`.
func Load(r io.Reader) (*Registry, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode blacklist catalog: %w", err)
	}
	if len(f.Blacklists) == 0 {
		return nil, fmt.Errorf("blacklist catalog is empty")
	}
	return NewRegistry(f.Blacklists)
}

// LoadFile reads a catalog from disk. An empty path yields the built-in catalog.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blacklist catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the built-in catalog.
func Default() (*Registry, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// Entries returns a copy of all entries in catalog order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// ForScope returns a copy of the entries applicable to the given scope.
func (r *Registry) ForScope(s Scope) []Entry {
	var out []Entry
	for _, e := range r.entries {
		if e.Scope == s {
			out = append(out, e)
		}
	}
	return out
}

// ByHost returns the first entry querying the given host.
func (r *Registry) ByHost(host string) (Entry, bool) {
	host = strings.Trim(strings.ToLower(host), ".")
	for _, e := range r.entries {
		if e.Host == host {
			return e, true
		}
	}
	return Entry{}, false
}

func (r *Registry) Len() int {
	return len(r.entries)
}
