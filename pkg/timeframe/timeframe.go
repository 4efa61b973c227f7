// Package timeframe converts the amount+unit pairs used by time conditions
// and wait actions into durations.
package timeframe

import (
	"fmt"
	"time"
)

type Unit string

const (
	Minutes Unit = "minutes"
	Hours   Unit = "hours"
	Days    Unit = "days"
	Weeks   Unit = "weeks"
)

// Days and weeks are fixed 24h multiples; calendar arithmetic is not applied.
var unitDurations = map[Unit]time.Duration{
	Minutes: time.Minute,
	Hours:   time.Hour,
	Days:    24 * time.Hour,
	Weeks:   7 * 24 * time.Hour,
}

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	_, ok := unitDurations[u]
	return ok
}

// Duration returns the length of one unit, or zero for unknown units.
func (u Unit) Duration() time.Duration {
	return unitDurations[u]
}

// Timeframe is a window such as "3 days".
type Timeframe struct {
	Amount int  `json:"amount" bson:"amount"`
	Unit   Unit `json:"unit" bson:"unit"`
}

// Of returns amount units as a duration.
func Of(amount int, unit Unit) (time.Duration, error) {
	if !unit.Valid() {
		return 0, fmt.Errorf("unknown time unit %q", unit)
	}
	if amount < 0 {
		return 0, fmt.Errorf("negative amount %d", amount)
	}
	return time.Duration(amount) * unit.Duration(), nil
}

// Duration returns the timeframe length.
func (t Timeframe) Duration() (time.Duration, error) {
	return Of(t.Amount, t.Unit)
}

// Boundary returns now minus the timeframe.
func (t Timeframe) Boundary(now time.Time) (time.Time, error) {
	d, err := t.Duration()
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(-d), nil
}

func (t Timeframe) String() string {
	return fmt.Sprintf("%d %s", t.Amount, t.Unit)
}
