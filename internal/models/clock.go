package models

import (
	"fmt"
	"time"
)

const clockLayout = "15:04:05"

// ClockTime is a wall-clock time of day, stored as seconds after local
// midnight. It carries no date and no zone: availability templates repeat
// weekly in the calendar's own timezone.
type ClockTime int

// ParseClockTime parses a strict HH:mm:ss string.
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil || len(s) != len(clockLayout) {
		return 0, fmt.Errorf("invalid time of day %q, expected HH:mm:ss", s)
	}
	return ClockTime(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
}

func NewClockTime(hour, minute, second int) ClockTime {
	return ClockTime(hour*3600 + minute*60 + second)
}

func (c ClockTime) Hour() int   { return int(c) / 3600 }
func (c ClockTime) Minute() int { return int(c) % 3600 / 60 }
func (c ClockTime) Second() int { return int(c) % 60 }

// Sub returns the duration between two times of day on the same date.
func (c ClockTime) Sub(other ClockTime) time.Duration {
	return time.Duration(int(c)-int(other)) * time.Second
}

// On anchors the time of day to a calendar date in loc.
func (c ClockTime) On(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, c.Hour(), c.Minute(), c.Second(), 0, loc)
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second())
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClockTime(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
