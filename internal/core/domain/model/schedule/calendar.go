package schedule

import (
	"errors"
	"fmt"
	"time"

	"preorder/internal/pkg/errs"
	"preorder/internal/pkg/guard"
)

// DateKeyLayout is the layout of the per-pickup date key (e.g. "2025-11-13").
const DateKeyLayout = "2006-01-02"

var ErrCalendarIsNotConstructed = errors.New("Calendar must be created via NewCalendar constructor")

// Config describes the recurring pickup window.
type Config struct {
	Weekday          time.Weekday
	Hour             int
	Minute           int
	Location         *time.Location
	DeadlineLeadDays int
}

// DefaultConfig is Thursday 00:00 local time with a two-day lead.
func DefaultConfig() Config {
	return Config{
		Weekday:          time.Thursday,
		Location:         time.Local,
		DeadlineLeadDays: 2,
	}
}

// Calendar answers pickup-slot and deadline questions for one Config.
type Calendar struct {
	weekday  time.Weekday
	hour     int
	minute   int
	location *time.Location
	leadDays int

	guard guard.ConstructorGuard
}

// NewCalendar validates cfg. A nil location means time.Local. The lead must
// be at least one day so that every deadline precedes its pickup.
func NewCalendar(cfg Config) (Calendar, error) {
	var problems []error
	if cfg.Weekday < time.Sunday || cfg.Weekday > time.Saturday {
		problems = append(problems, errs.NewValueIsOutOfRangeError("weekday", int(cfg.Weekday), 0, 6))
	}
	if cfg.Hour < 0 || cfg.Hour > 23 {
		problems = append(problems, errs.NewValueIsOutOfRangeError("hour", cfg.Hour, 0, 23))
	}
	if cfg.Minute < 0 || cfg.Minute > 59 {
		problems = append(problems, errs.NewValueIsOutOfRangeError("minute", cfg.Minute, 0, 59))
	}
	if cfg.DeadlineLeadDays < 1 {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause(
			"deadline lead days",
			fmt.Errorf("%d is not greater than 0", cfg.DeadlineLeadDays),
		))
	}
	if err := errors.Join(problems...); err != nil {
		return Calendar{}, err
	}

	location := cfg.Location
	if location == nil {
		location = time.Local
	}

	return Calendar{
		weekday:  cfg.Weekday,
		hour:     cfg.Hour,
		minute:   cfg.Minute,
		location: location,
		leadDays: cfg.DeadlineLeadDays,
		guard:    guard.NewConstructorGuard(),
	}, nil
}

// MustNewCalendar is NewCalendar for static configurations known to be valid.
func MustNewCalendar(cfg Config) Calendar {
	c, err := NewCalendar(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Calendar) Validate() error {
	return c.guard.Validate(ErrCalendarIsNotConstructed)
}

func (c Calendar) Weekday() time.Weekday {
	return c.weekday
}

func (c Calendar) Location() *time.Location {
	return c.location
}

// NextPickupInstants returns the next count pickup instants strictly after
// from whose edit deadline has not passed at from. The chronologically next
// slot is skipped when its deadline is already behind us.
func (c Calendar) NextPickupInstants(from time.Time, count int) []time.Time {
	if count <= 0 {
		return nil
	}

	local := from.In(c.location)
	candidate := time.Date(local.Year(), local.Month(), local.Day(), c.hour, c.minute, 0, 0, c.location)
	candidate = candidate.AddDate(0, 0, (int(c.weekday)-int(candidate.Weekday())+7)%7)
	if !candidate.After(from) {
		candidate = candidate.AddDate(0, 0, 7)
	}

	instants := make([]time.Time, 0, count)
	for len(instants) < count {
		if c.IsEditableAt(candidate, from) {
			instants = append(instants, candidate)
		}
		candidate = candidate.AddDate(0, 0, 7)
	}
	return instants
}

// EditDeadline is 23:59:59 on the day DeadlineLeadDays before the pickup day.
func (c Calendar) EditDeadline(pickupAt time.Time) time.Time {
	p := pickupAt.In(c.location)
	return time.Date(p.Year(), p.Month(), p.Day()-c.leadDays, 23, 59, 59, 0, c.location)
}

// IsEditableAt reports now <= EditDeadline(pickupAt).
func (c Calendar) IsEditableAt(pickupAt, now time.Time) bool {
	return !now.After(c.EditDeadline(pickupAt))
}

// IsValidPickupInstant reports whether t falls exactly on the configured
// weekday and time of day.
func (c Calendar) IsValidPickupInstant(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	p := t.In(c.location)
	return p.Weekday() == c.weekday &&
		p.Hour() == c.hour &&
		p.Minute() == c.minute &&
		p.Second() == 0 &&
		p.Nanosecond() == 0
}

// DateKey identifies the pickup day, e.g. "2025-11-13".
func (c Calendar) DateKey(pickupAt time.Time) string {
	return pickupAt.In(c.location).Format(DateKeyLayout)
}

// ApplyOffset shifts a pickup instant by the non-production test offset.
func (c Calendar) ApplyOffset(pickupAt time.Time, offsetDays int) time.Time {
	if offsetDays == 0 {
		return pickupAt
	}
	return pickupAt.In(c.location).AddDate(0, 0, offsetDays)
}

// RealPickupAt undoes ApplyOffset; deadlines are always computed from it.
func (c Calendar) RealPickupAt(storedPickupAt time.Time, offsetDays int) time.Time {
	return c.ApplyOffset(storedPickupAt, -offsetDays)
}
