package availability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lexcrm/backend/internal/domain"
)

type Source string

const (
	SourceCalendar Source = "calendar"
	SourceStore    Source = "store"
)

type BusyTimes struct {
	Date   time.Time
	Times  []string
	Source Source
}

type FreeSlots struct {
	Slots  []domain.FreeSlot
	Source Source
}

// Service answers availability queries from the calendar. When the calendar
// fails and a fallback is configured, it answers from the store's active
// appointments instead and says so in Source.
type Service struct {
	calendar *Finder
	fallback *Finder
	cal      BusyLister
	store    BusyLister
	log      *slog.Logger
}

// NewService builds the service. storeBusy may be nil to disable the fallback.
func NewService(calendar, storeBusy BusyLister, cfg Config, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	calFinder, err := NewFinder(calendar, cfg)
	if err != nil {
		return nil, err
	}
	s := &Service{calendar: calFinder, cal: calendar, log: log}
	if storeBusy != nil {
		s.store = storeBusy
		if s.fallback, err = NewFinder(storeBusy, cfg); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Service) BusyTimes(ctx context.Context, date time.Time) (BusyTimes, error) {
	times, err := s.cal.ListBusyTimes(ctx, date)
	if err == nil {
		return BusyTimes{Date: date, Times: nonNil(times), Source: SourceCalendar}, nil
	}
	if s.store == nil {
		return BusyTimes{}, err
	}

	s.log.WarnContext(ctx, "calendar busy times failed; answering from store",
		slog.String("date", domain.FormatDate(date)),
		slog.Any("err", err),
	)
	stored, storeErr := s.store.ListBusyTimes(ctx, date)
	if storeErr != nil {
		return BusyTimes{}, errors.Join(err, storeErr)
	}
	return BusyTimes{Date: date, Times: nonNil(stored), Source: SourceStore}, nil
}

func (s *Service) FreeSlots(ctx context.Context, count int) (FreeSlots, error) {
	slots, err := s.calendar.FindNextFreeSlots(ctx, count)
	if err == nil {
		return FreeSlots{Slots: slots, Source: SourceCalendar}, nil
	}
	if s.fallback == nil {
		return FreeSlots{}, err
	}

	s.log.WarnContext(ctx, "calendar free slots failed; answering from store", slog.Any("err", err))
	slots, storeErr := s.fallback.FindNextFreeSlots(ctx, count)
	if storeErr != nil {
		return FreeSlots{}, errors.Join(err, storeErr)
	}
	return FreeSlots{Slots: slots, Source: SourceStore}, nil
}

func nonNil(times []string) []string {
	if times == nil {
		return []string{}
	}
	return times
}
