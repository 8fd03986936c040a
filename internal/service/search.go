package service

import (
	"time"

	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/timezone"
)

// expandCalendar turns one calendar's weekly templates into concrete windows
// of length step that lie inside [from, to].
//
// Each template is anchored on every local date between from and to (both
// taken in the calendar's zone) whose weekday matches, then tiled from its
// local start. A trailing piece shorter than step is dropped. A window is
// offered while fewer than the slot's capacity of booked appointments
// overlap it.
func expandCalendar(
	cal models.Calendar,
	slots []models.AvailabilitySlot,
	booked []models.Appointment,
	from, to time.Time,
	step time.Duration,
) ([]models.AvailableWindow, error) {
	localFrom, err := timezone.ToLocal(from, cal.Timezone)
	if err != nil {
		return nil, err
	}
	loc := localFrom.Location()

	// Dates are walked on a UTC grid so a DST change never skips or repeats
	// a day; each date is then re-anchored in loc.
	fy, fm, fd := localFrom.Date()
	ty, tm, td := to.In(loc).Date()
	first := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	last := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)

	var out []models.AvailableWindow
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		weekday := int(day.Weekday())
		y, m, d := day.Date()

		for _, slot := range slots {
			if slot.DayOfWeek != weekday {
				continue
			}
			capacity := slot.Capacity
			if capacity < 1 {
				capacity = 1
			}
			slotStart := slot.StartTime.On(y, m, d, loc)
			slotEnd := slot.EndTime.On(y, m, d, loc)

			for start := slotStart; start.Before(slotEnd); start = start.Add(step) {
				end := start.Add(step)
				if end.After(slotEnd) {
					break
				}
				if start.Before(from) || end.After(to) {
					continue
				}
				taken := countOverlapping(booked, start, end)
				if taken >= capacity {
					continue
				}
				out = append(out, models.AvailableWindow{
					CalendarID:        cal.ID,
					ProviderUserID:    cal.ProviderUserID,
					TenantID:          cal.TenantID,
					SkillIDs:          cal.SkillIDs,
					SlotID:            slot.ID,
					Start:             start.UTC(),
					End:               end.UTC(),
					Timezone:          cal.Timezone,
					Capacity:          capacity,
					AvailableCapacity: capacity - taken,
				})
			}
		}
	}
	return out, nil
}

func countOverlapping(appts []models.Appointment, start, end time.Time) int {
	n := 0
	for _, a := range appts {
		if models.Overlaps(a.StartTime, a.EndTime, start, end) {
			n++
		}
	}
	return n
}
