package types

// Agent limit defaults, applied when no per-user override is set
const (
	DefaultDailyLimit    = 20
	DefaultMaxIterations = 5
	DefaultMaxMessages   = 10
	DefaultMaxChars      = 24000
)

// QuotaState tracks one user's agent usage for the current day
type QuotaState struct {
	Date  string `json:"date"` // YYYY-MM-DD of the last reset
	Count int    `json:"count"`
}

// UserLimits holds per-user agent limits. Zero values mean "use the default".
type UserLimits struct {
	DailyLimit    int `json:"daily_limit,omitempty"`
	MaxIterations int `json:"max_iterations,omitempty"`
}

// EffectiveDailyLimit returns the daily limit with defaults applied
func (l UserLimits) EffectiveDailyLimit() int {
	if l.DailyLimit > 0 {
		return l.DailyLimit
	}
	return DefaultDailyLimit
}

// EffectiveMaxIterations returns the iteration cap with defaults applied
func (l UserLimits) EffectiveMaxIterations() int {
	if l.MaxIterations > 0 {
		return l.MaxIterations
	}
	return DefaultMaxIterations
}
