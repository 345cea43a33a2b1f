package session

import "time"

const (
	// DefaultLongTerm is the nominal lifetime of a "keep me logged in" session.
	DefaultLongTerm = 30 * 24 * time.Hour
	// DefaultShortTerm is the nominal lifetime of a regular session.
	DefaultShortTerm = 24 * time.Hour
	// DefaultSafetyBuffer is the margin below which a session counts as expired.
	DefaultSafetyBuffer = 30 * time.Second
)

// Policy holds the nominal session durations and the sliding renewal rule.
type Policy struct {
	LongTerm  time.Duration
	ShortTerm time.Duration
}

// DefaultPolicy returns 30 days for long-term and 1 day for short-term sessions.
func DefaultPolicy() Policy {
	return Policy{
		LongTerm:  DefaultLongTerm,
		ShortTerm: DefaultShortTerm,
	}
}

// Duration returns the nominal lifetime for the session kind.
func (p Policy) Duration(longTerm bool) time.Duration {
	if longTerm {
		return p.LongTerm
	}
	return p.ShortTerm
}

// Breakpoint is the remaining lifetime below which a session gets renewed:
// half of its nominal duration.
func (p Policy) Breakpoint(longTerm bool) time.Duration {
	return p.Duration(longTerm) / 2
}

// ShouldRenew reports whether sess must be renewed at now. With force it
// always does; otherwise only once less than half the nominal lifetime is left.
func (p Policy) ShouldRenew(sess *Session, now time.Time, force bool) bool {
	if force {
		return true
	}
	if sess == nil {
		return false
	}
	return sess.ExpiresAt.Before(now.Add(p.Breakpoint(sess.IsLongTerm)))
}
