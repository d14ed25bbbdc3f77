package domain

import "time"

// DefaultPlausibleCapHours bounds the [previous, next] span treated as one
// contiguous event when a source supplies no provider-specific cap.
const DefaultPlausibleCapHours = 72

// ResolvedPair is the common output shape of providers and the resolver.
// Either side may be nil when no instant could be determined.
type ResolvedPair struct {
	Next     *time.Time
	Previous *time.Time
}

// Ongoing reports whether now falls inside a plausible [previous, next]
// window. Both bounds must be present, now must be within them inclusively,
// and the span must not exceed capHours; a wider span means the pair very
// likely brackets unrelated events.
func Ongoing(now time.Time, pair ResolvedPair, capHours int64) bool {
	if pair.Previous == nil || pair.Next == nil {
		return false
	}
	if now.Before(*pair.Previous) || now.After(*pair.Next) {
		return false
	}
	span := pair.Next.Sub(*pair.Previous)
	return int64(span.Hours()) <= capHours
}
