package session

import "time"

// Session is a resolved session record. Callers receive it by value (or a
// fresh pointer per call); the store never shares one instance between calls.
type Session struct {
	Token      string
	UserID     int64
	ExpiresAt  time.Time
	IsLongTerm bool
}

// Remaining returns the nominal lifetime left at now, or zero once past.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	if d := s.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
