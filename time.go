package auth

import "time"

// IsWithinThresholdPeriod reports whether t falls inside the window that ends
// now. A zero window puts everything outside.
func IsWithinThresholdPeriod(t time.Time, window time.Duration) bool {
	return t.After(time.Now().Add(-window))
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(t time.Time, window time.Duration) bool {
	return !IsWithinThresholdPeriod(t, window)
}
