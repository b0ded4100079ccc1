// Package config loads AmneziaWG-style obfuscation profiles from YAML.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"awgobfs/internal/junk"
	"awgobfs/internal/magic"
)

// Protocol sizes of the WireGuard messages the S1-S4 paddings prefix.
const (
	InitiationSize  = 148
	ResponseSize    = 92
	CookieReplySize = 64
	TransportMin    = 32
)

// MaxJunkCount bounds jc.
const MaxJunkCount = 128

// Config is one obfuscation profile plus process settings.
type Config struct {
	Jc   int `yaml:"jc"`
	Jmin int `yaml:"jmin"`
	Jmax int `yaml:"jmax"`

	// Padding prepended to initiation, response, cookie reply and transport
	// messages.
	S1 int `yaml:"s1"`
	S2 int `yaml:"s2"`
	S3 int `yaml:"s3"`
	S4 int `yaml:"s4"`

	// Magic header ranges. Unset headers keep the WireGuard message type.
	H1 *magic.Range `yaml:"h1,omitempty"`
	H2 *magic.Range `yaml:"h2,omitempty"`
	H3 *magic.Range `yaml:"h3,omitempty"`
	H4 *magic.Range `yaml:"h4,omitempty"`

	// Junk descriptors sent before the handshake, in order.
	I1 string `yaml:"i1,omitempty"`
	I2 string `yaml:"i2,omitempty"`
	I3 string `yaml:"i3,omitempty"`
	I4 string `yaml:"i4,omitempty"`
	I5 string `yaml:"i5,omitempty"`

	MaxMessageSize int `yaml:"max_message_size"`

	LogLevel      string `yaml:"log_level"`
	MetricsListen string `yaml:"metrics_listen,omitempty"`
}

// Load reads, defaults and validates the profile at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = junk.MessageMaxSize
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if c.MaxMessageSize <= 0 || c.MaxMessageSize > junk.MessageMaxSize {
		return fmt.Errorf("max_message_size must be in [1, %d], got %d", junk.MessageMaxSize, c.MaxMessageSize)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}

	if c.Jc < 0 || c.Jc > MaxJunkCount {
		return fmt.Errorf("jc must be in [0, %d], got %d", MaxJunkCount, c.Jc)
	}
	if c.Jmin < 0 || c.Jmax < 0 {
		return fmt.Errorf("jmin and jmax must not be negative")
	}
	if c.Jmin > c.Jmax {
		return fmt.Errorf("jmin (%d) must not exceed jmax (%d)", c.Jmin, c.Jmax)
	}
	if c.Jc > 0 && c.Jmax == 0 {
		return fmt.Errorf("jmax must be positive when jc > 0")
	}
	if c.Jmax > c.MaxMessageSize {
		return fmt.Errorf("jmax (%d) exceeds max_message_size (%d)", c.Jmax, c.MaxMessageSize)
	}

	for i, p := range [4]struct{ pad, base int }{
		{c.S1, InitiationSize},
		{c.S2, ResponseSize},
		{c.S3, CookieReplySize},
		{c.S4, TransportMin},
	} {
		if p.pad < 0 {
			return fmt.Errorf("s%d must not be negative", i+1)
		}
		if p.pad+p.base > c.MaxMessageSize {
			return fmt.Errorf("s%d (%d) plus message size %d exceeds max_message_size (%d)", i+1, p.pad, p.base, c.MaxMessageSize)
		}
	}
	// Initiation and response must stay distinguishable by length.
	if c.S1+InitiationSize == c.S2+ResponseSize {
		return fmt.Errorf("s1+%d must differ from s2+%d", InitiationSize, ResponseSize)
	}

	if err := c.Headers().Validate(); err != nil {
		return err
	}

	for i, desc := range c.Descriptors() {
		spec, err := junk.Build(desc, junk.WithMaxSize(c.MaxMessageSize))
		if err != nil {
			return fmt.Errorf("i%d: %w", i+1, err)
		}
		spec.Free()
	}
	return nil
}

// Headers returns H1-H4 with unset entries at their WireGuard defaults.
func (c *Config) Headers() magic.Set {
	set := magic.DefaultSet()
	for i, h := range [4]*magic.Range{c.H1, c.H2, c.H3, c.H4} {
		if h != nil {
			set[i] = *h
		}
	}
	return set
}

// Descriptors returns I1-I5 in send order.
func (c *Config) Descriptors() [5]string {
	return [5]string{c.I1, c.I2, c.I3, c.I4, c.I5}
}

// Padding returns the S1-S4 padding for t.
func (c *Config) Padding(t magic.MessageType) int {
	switch t {
	case magic.MessageInitiation:
		return c.S1
	case magic.MessageResponse:
		return c.S2
	case magic.MessageCookieReply:
		return c.S3
	case magic.MessageTransport:
		return c.S4
	}
	return 0
}
