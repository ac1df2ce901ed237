package services

import (
	"time"

	"preorder/internal/core/domain/model/order"
	"preorder/internal/core/domain/model/schedule"
)

// EditWindow applies the calendar's deadline rules to orders.
//
// Example usage:
//
//	window := services.NewEditWindow(calendar)
//	if !window.IsOpen(o, clock.Now()) {
//	    return ErrEditWindowClosed
//	}
type EditWindow struct {
	calendar schedule.Calendar
}

func NewEditWindow(calendar schedule.Calendar) EditWindow {
	return EditWindow{calendar: calendar}
}

func (w EditWindow) Calendar() schedule.Calendar {
	return w.calendar
}

// RealPickupAt removes the order's pickup offset in the calendar's
// location.
func (w EditWindow) RealPickupAt(o *order.Order) time.Time {
	return w.calendar.RealPickupAt(o.PickupAt(), o.PickupOffsetDays())
}

// Deadline is the edit deadline of the order's real (unshifted) pickup.
func (w EditWindow) Deadline(o *order.Order) time.Time {
	return w.calendar.EditDeadline(w.RealPickupAt(o))
}

// IsOpen reports whether o is Placed and now has not passed its deadline.
func (w EditWindow) IsOpen(o *order.Order, now time.Time) bool {
	return o.Status() == order.Placed && w.calendar.IsEditableAt(w.RealPickupAt(o), now)
}

// IsExpired reports whether the deadline of o lies strictly before now,
// regardless of status.
func (w EditWindow) IsExpired(o *order.Order, now time.Time) bool {
	return w.Deadline(o).Before(now)
}

// DateKey is the pickup-day key of o's real pickup.
func (w EditWindow) DateKey(o *order.Order) string {
	return w.calendar.DateKey(w.RealPickupAt(o))
}
