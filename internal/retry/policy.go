package retry

import (
	"fmt"
	"math"
	"time"
)

type Kind string

const (
	Fixed       Kind = "fixed"
	Exponential Kind = "exponential"
)

// Policy computes the delay before the next attempt.
// Exponential delays are InitialDelay * Base^attempt, attempt counting from 0.
type Policy struct {
	Kind         Kind          `yaml:"kind"`
	Base         float64       `yaml:"base"`
	InitialDelay time.Duration `yaml:"initial_delay"`
}

func (p Policy) Delay(attempt int) time.Duration {
	if p.Kind != Exponential || attempt <= 0 {
		return p.InitialDelay
	}
	return time.Duration(float64(p.InitialDelay) * math.Pow(p.Base, float64(attempt)))
}

func (p Policy) Validate() error {
	if p.InitialDelay <= 0 {
		return fmt.Errorf("initial delay must be positive, got %v", p.InitialDelay)
	}
	switch p.Kind {
	case Fixed:
	case Exponential:
		if p.Base < 1 {
			return fmt.Errorf("exponential base must be >= 1, got %v", p.Base)
		}
	default:
		return fmt.Errorf("unknown backoff kind %q", p.Kind)
	}
	return nil
}

// Policies selects a backoff per outcome class.
type Policies struct {
	Empty       Policy `yaml:"empty"`
	RateLimited Policy `yaml:"rate_limited"`
	Transient   Policy `yaml:"transient"`
}

// Config is the full retry configuration for one executor.
type Config struct {
	MaxRetries int      `yaml:"max_retries"`
	Policies   Policies `yaml:"policies"`
}

// DefaultConfig returns the backoff used against the market data providers:
// empty results back off by 1.5x, throttling by 2x, other errors stay flat.
func DefaultConfig() Config {
	return NewConfig(3, time.Second)
}

// NewConfig builds the default policy set around one initial delay.
func NewConfig(maxRetries int, initialDelay time.Duration) Config {
	return Config{
		MaxRetries: maxRetries,
		Policies: Policies{
			Empty:       Policy{Kind: Exponential, Base: 1.5, InitialDelay: initialDelay},
			RateLimited: Policy{Kind: Exponential, Base: 2, InitialDelay: initialDelay},
			Transient:   Policy{Kind: Fixed, InitialDelay: initialDelay},
		},
	}
}

func (c Config) Validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be >= 1, got %d", c.MaxRetries)
	}
	for name, p := range map[string]Policy{
		"empty":        c.Policies.Empty,
		"rate_limited": c.Policies.RateLimited,
		"transient":    c.Policies.Transient,
	} {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%s policy: %w", name, err)
		}
	}
	return nil
}

func (c Config) policyFor(o Outcome) Policy {
	switch o {
	case OutcomeEmpty:
		return c.Policies.Empty
	case OutcomeRateLimited:
		return c.Policies.RateLimited
	default:
		return c.Policies.Transient
	}
}
