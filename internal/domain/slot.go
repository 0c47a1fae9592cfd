package domain

import "time"

// FreeSlot is a (date, time) pair from the candidate list that no event occupies.
type FreeSlot struct {
	Date time.Time
	Time string
}

// DefaultSlotTimes are the bookable times of day; the lunch hour is excluded.
var DefaultSlotTimes = []string{"08:00", "09:00", "10:00", "11:00", "13:00", "14:00", "15:00", "16:00"}
