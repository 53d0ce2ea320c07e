package config

import (
	"time"

	"git.home.luguber.info/inful/hierbuild/internal/foundation/normalization"
)

// RetryBackoffMode enumerates supported retry backoff strategies.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

var retryBackoffNormalizer = normalization.NewNormalizer("retry backoff", map[string]RetryBackoffMode{
	"fixed":       RetryBackoffFixed,
	"linear":      RetryBackoffLinear,
	"exponential": RetryBackoffExponential,
}, RetryBackoffLinear)

// RetrySpec reruns a failing operation command.
type RetrySpec struct {
	Attempts int              `yaml:"attempts"` // retries after the first failure
	Backoff  RetryBackoffMode `yaml:"backoff,omitempty"`
	Initial  time.Duration    `yaml:"initial,omitempty"`
	Max      time.Duration    `yaml:"max,omitempty"`
}

// ParseRetryBackoff maps a manifest backoff mode; empty means linear.
func ParseRetryBackoff(raw string) (RetryBackoffMode, error) {
	return retryBackoffNormalizer.NormalizeWithError(raw)
}
