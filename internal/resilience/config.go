package resilience

import (
	"time"

	"github.com/sells-group/person-search/internal/config"
)

// RetryFromConfig builds the adapter retry policy.
func RetryFromConfig(cfg config.ResilienceConfig) RetryConfig {
	rc := DefaultRetryConfig()
	if cfg.RetryAttempts > 0 {
		rc.MaxAttempts = cfg.RetryAttempts
	}
	if cfg.RetryBackoffMs > 0 {
		rc.InitialBackoff = time.Duration(cfg.RetryBackoffMs) * time.Millisecond
	}
	return rc
}

// BreakerFromConfig builds the breaker policy for the web readers.
func BreakerFromConfig(cfg config.ResilienceConfig) CircuitBreakerConfig {
	bc := DefaultCircuitBreakerConfig()
	if cfg.BreakerThreshold > 0 {
		bc.FailureThreshold = cfg.BreakerThreshold
	}
	if cfg.BreakerResetSecs > 0 {
		bc.ResetTimeout = time.Duration(cfg.BreakerResetSecs) * time.Second
	}
	return bc
}
