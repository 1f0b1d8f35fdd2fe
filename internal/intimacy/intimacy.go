// Package intimacy models the per-friendship closeness score.
package intimacy

// Score bounds and the score new friendships start at.
const (
	Min     = 0
	Max     = 100
	Default = 50
)

// Badge is the tier derived from a score.
type Badge string

const (
	Bestie       Badge = "BESTIE"
	Close        Badge = "CLOSE"
	Acquaintance Badge = "ACQUAINTANCE"
	Distant      Badge = "DISTANT"
)

// Trend records the direction of the last change.
type Trend string

const (
	Up     Trend = "UP"
	Down   Trend = "DOWN"
	Stable Trend = "STABLE"
)

// Clamp bounds score to [Min, Max].
func Clamp(score int) int {
	return max(Min, min(Max, score))
}

// BadgeFor returns the tier for score.
func BadgeFor(score int) Badge {
	switch {
	case score >= 90:
		return Bestie
	case score >= 60:
		return Close
	case score >= 30:
		return Acquaintance
	}
	return Distant
}

// State is the stored view of one direction of a friendship.
type State struct {
	Score int
	Trend Trend
	Badge Badge
}

// Apply adds delta to s. The trend is left alone when the clamped score does
// not move.
func (s State) Apply(delta int) State {
	next := Clamp(s.Score + delta)
	out := State{Score: next, Trend: s.Trend, Badge: BadgeFor(next)}
	switch {
	case next > s.Score:
		out.Trend = Up
	case next < s.Score:
		out.Trend = Down
	}
	if out.Trend == "" {
		out.Trend = Stable
	}
	return out
}
