// Package availability finds bookable slots from the busy times reported for
// each day.
package availability

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"lexcrm/backend/internal/domain"
)

const DefaultLookaheadDays = 30

// BusyLister reports the occupied HH:MM start times of one calendar day.
type BusyLister interface {
	ListBusyTimes(ctx context.Context, date time.Time) ([]string, error)
}

type BusyListerFunc func(ctx context.Context, date time.Time) ([]string, error)

func (f BusyListerFunc) ListBusyTimes(ctx context.Context, date time.Time) ([]string, error) {
	return f(ctx, date)
}

type Config struct {
	SlotTimes     []string
	LookaheadDays int
	Location      *time.Location
	Now           func() time.Time
}

type Finder struct {
	busy  BusyLister
	times []string
	days  int
	loc   *time.Location
	now   func() time.Time
}

func NewFinder(busy BusyLister, cfg Config) (*Finder, error) {
	times := cfg.SlotTimes
	if len(times) == 0 {
		times = domain.DefaultSlotTimes
	}
	normalized := make([]string, 0, len(times))
	for _, t := range times {
		n, err := domain.ParseTimeOfDay(t)
		if err != nil {
			return nil, fmt.Errorf("slot time %q: %w", t, err)
		}
		normalized = append(normalized, n)
	}
	slices.Sort(normalized)
	normalized = slices.Compact(normalized)

	f := &Finder{
		busy:  busy,
		times: normalized,
		days:  cfg.LookaheadDays,
		loc:   cfg.Location,
		now:   cfg.Now,
	}
	if f.days <= 0 {
		f.days = DefaultLookaheadDays
	}
	if f.loc == nil {
		f.loc = time.UTC
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f, nil
}

// Slots yields free slots in (date, time) order, scanning weekdays from today
// through the lookahead window. Each iteration starts over and asks the busy
// lister once per weekday it reaches. Times already past today are skipped.
// The first lister error is yielded and ends the sequence.
func (f *Finder) Slots(ctx context.Context) iter.Seq2[domain.FreeSlot, error] {
	return func(yield func(domain.FreeSlot, error) bool) {
		now := f.now().In(f.loc)
		today := domain.DateOf(now)
		nowHM := now.Format(domain.TimeOfDayLayout)

		for i := 0; i < f.days; i++ {
			day := today.AddDate(0, 0, i)
			if domain.IsWeekend(day) {
				continue
			}
			if err := ctx.Err(); err != nil {
				yield(domain.FreeSlot{}, err)
				return
			}

			busy, err := f.busy.ListBusyTimes(ctx, day)
			if err != nil {
				yield(domain.FreeSlot{}, fmt.Errorf("busy times for %s: %w", domain.FormatDate(day), err))
				return
			}
			taken := make(map[string]struct{}, len(busy))
			for _, b := range busy {
				taken[b] = struct{}{}
			}

			for _, t := range f.times {
				if i == 0 && t <= nowHM {
					continue
				}
				if _, ok := taken[t]; ok {
					continue
				}
				if !yield(domain.FreeSlot{Date: day, Time: t}, nil) {
					return
				}
			}
		}
	}
}

// FindNextFreeSlots collects up to count slots, stopping as soon as it has them.
// On the current day, times at or before the present minute are never offered.
func (f *Finder) FindNextFreeSlots(ctx context.Context, count int) ([]domain.FreeSlot, error) {
	out := make([]domain.FreeSlot, 0, max(count, 0))
	if count <= 0 {
		return out, nil
	}
	for slot, err := range f.Slots(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
		if len(out) == count {
			break
		}
	}
	return out, nil
}
