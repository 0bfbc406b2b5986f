package logger

import "time"

// LogFallback records a transition from one fetch strategy to the next.
func LogFallback(op, target, from, to string, err error) {
	fields := map[string]interface{}{
		"operation": op,
		"target":    target,
		"from":      from,
		"to":        to,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	GetLogger().WarnWithFields("falling back to next strategy", fields)
}

// LogPacing records a rate-governor delay once it exceeds a reportable size.
func LogPacing(delay time.Duration) {
	if delay < 100*time.Millisecond {
		return
	}
	GetLogger().DebugWithFields("pacing outbound request", map[string]interface{}{
		"delay": delay,
	})
}

// LogIdentityUse records which identity served an attempt.
func LogIdentityUse(name, op string) {
	GetLogger().DebugWithFields("identity acquired", map[string]interface{}{
		"identity":  name,
		"operation": op,
	})
}
