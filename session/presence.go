package session

import "time"

type Presence string

const (
	Online  Presence = "online"
	Away    Presence = "away"
	Offline Presence = "offline"
)

// Thresholds split elapsed time since lastSeen into presence classes.
type Thresholds struct {
	Away    time.Duration
	Offline time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{Away: 15 * time.Second, Offline: 30 * time.Second}
}

// Classify is advisory only; nothing in the game waits on it.
func (t Thresholds) Classify(lastSeen int64, now time.Time) Presence {
	elapsed := now.Sub(time.UnixMilli(lastSeen))
	switch {
	case elapsed < t.Away:
		return Online
	case elapsed < t.Offline:
		return Away
	default:
		return Offline
	}
}
