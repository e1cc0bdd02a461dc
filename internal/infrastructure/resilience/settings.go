package resilience

import "time"

type Settings struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64

	BreakerEnabled     bool
	BreakerMinRequests uint32
	BreakerTripRatio   float64
	BreakerOpenFor     time.Duration
	BreakerProbeCalls  uint32
}

func DefaultSettings() Settings {
	return Settings{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		BackoffFactor:  2.0,

		BreakerEnabled:     true,
		BreakerMinRequests: 10,
		BreakerTripRatio:   0.5,
		BreakerOpenFor:     30 * time.Second,
		BreakerProbeCalls:  2,
	}
}

func (s Settings) sanitize() Settings {
	def := DefaultSettings()

	if s.MaxAttempts <= 0 {
		s.MaxAttempts = def.MaxAttempts
	}
	if s.InitialBackoff <= 0 {
		s.InitialBackoff = def.InitialBackoff
	}
	if s.MaxBackoff < s.InitialBackoff {
		s.MaxBackoff = s.InitialBackoff
	}
	if s.BackoffFactor < 1.0 {
		s.BackoffFactor = def.BackoffFactor
	}
	if s.BreakerMinRequests == 0 {
		s.BreakerMinRequests = def.BreakerMinRequests
	}
	if s.BreakerTripRatio <= 0 || s.BreakerTripRatio > 1 {
		s.BreakerTripRatio = def.BreakerTripRatio
	}
	if s.BreakerOpenFor <= 0 {
		s.BreakerOpenFor = def.BreakerOpenFor
	}
	if s.BreakerProbeCalls == 0 {
		s.BreakerProbeCalls = def.BreakerProbeCalls
	}
	return s
}
