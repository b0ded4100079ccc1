// Package obfs applies an obfuscation profile to WireGuard traffic: the
// I1-I5 packet chain and Jc junk datagrams sent before a handshake, S1-S4
// random prefixes, and H1-H4 magic headers in place of the message type.
package obfs

import (
	"fmt"

	"awgobfs/internal/config"
	"awgobfs/internal/junk"
	"awgobfs/internal/magic"
)

// Profile is the compiled, immutable form of a config.Config. It is safe
// to share; each peer gets its own Obfuscator from NewObfuscator.
type Profile struct {
	jc, jmin, jmax int
	padding        [4]int
	headers        magic.Set
	chain          []*junk.Spec
	maxSize        int
}

// NewProfile compiles the descriptors of cfg. cfg is expected to have come
// through config.Load, but compilation errors are still reported.
func NewProfile(cfg *config.Config) (*Profile, error) {
	headers := cfg.Headers()
	if err := headers.Validate(); err != nil {
		return nil, err
	}
	p := &Profile{
		jc:      cfg.Jc,
		jmin:    cfg.Jmin,
		jmax:    cfg.Jmax,
		padding: [4]int{cfg.S1, cfg.S2, cfg.S3, cfg.S4},
		headers: headers,
		maxSize: cfg.MaxMessageSize,
	}
	for i, desc := range cfg.Descriptors() {
		spec, err := junk.Build(desc, junk.WithMaxSize(cfg.MaxMessageSize))
		if err != nil {
			return nil, fmt.Errorf("i%d: %w", i+1, err)
		}
		if spec.Inert() {
			continue
		}
		p.chain = append(p.chain, spec)
	}
	return p, nil
}

// Headers returns the H1-H4 set.
func (p *Profile) Headers() magic.Set { return p.headers }

// Padding returns the random prefix length for t.
func (p *Profile) Padding(t magic.MessageType) int {
	if t < magic.MessageInitiation || t > magic.MessageTransport {
		return 0
	}
	return p.padding[t-1]
}

// Chain returns the compiled, non-empty I1-I5 templates. Callers must not
// Apply them; clone first.
func (p *Profile) Chain() []*junk.Spec { return p.chain }

// PreambleLen is the number of datagrams Preamble produces.
func (p *Profile) PreambleLen() int { return len(p.chain) + p.jc }

// NewObfuscator returns an Obfuscator with private copies of the chain.
func (p *Profile) NewObfuscator() *Obfuscator {
	o := &Obfuscator{profile: p, chain: make([]*junk.Spec, len(p.chain))}
	for i, spec := range p.chain {
		// Templates were built in NewProfile, so Clone cannot fail.
		o.chain[i], _ = spec.Clone()
	}
	return o
}
