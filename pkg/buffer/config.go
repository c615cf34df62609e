package buffer

import (
	"fmt"
	"strings"

	"github.com/c360/ringkit/errors"
)

// Config contains configuration for buffer creation.
type Config struct {
	// Capacity is the maximum number of buffered items.
	Capacity int `json:"capacity" toml:"capacity"`

	// OverflowPolicy decides what a write does when the buffer is full.
	OverflowPolicy OverflowPolicy `json:"overflow_policy" toml:"overflow_policy"`
}

// DefaultConfig returns a default buffer configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:       1000,
		OverflowPolicy: DropOldest,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "buffer", "Validate",
			fmt.Sprintf("capacity must be positive, got %d", c.Capacity))
	}

	if !c.OverflowPolicy.valid() {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "buffer", "Validate",
			fmt.Sprintf("unknown overflow policy %d", int(c.OverflowPolicy)))
	}

	return nil
}

// NewFromConfig creates a buffer from config. Additional options (metrics, drop
// callback) are applied after the policy taken from config.
func NewFromConfig[T any](config Config, options ...Option[T]) (Buffer[T], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := append([]Option[T]{WithOverflowPolicy[T](config.OverflowPolicy)}, options...)
	return NewCircularBuffer[T](config.Capacity, opts...)
}

// ParseOverflowPolicy parses a policy name. Both the String form ("DropOldest")
// and snake case ("drop_oldest") are accepted, case-insensitively.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "")) {
	case "dropoldest", "overwrite":
		return DropOldest, nil
	case "dropnewest", "reject":
		return DropNewest, nil
	case "block":
		return Block, nil
	default:
		return 0, errors.WrapInvalid(errors.ErrInvalidConfig, "buffer", "ParseOverflowPolicy",
			fmt.Sprintf("parse overflow policy %q", s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p OverflowPolicy) MarshalText() ([]byte, error) {
	switch p {
	case DropOldest:
		return []byte("drop_oldest"), nil
	case DropNewest:
		return []byte("drop_newest"), nil
	case Block:
		return []byte("block"), nil
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "buffer", "MarshalText",
			fmt.Sprintf("marshal overflow policy %d", int(p)))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *OverflowPolicy) UnmarshalText(text []byte) error {
	policy, err := ParseOverflowPolicy(string(text))
	if err != nil {
		return err
	}
	*p = policy
	return nil
}
