// Package schedule computes pickup slots and their edit deadlines.
//
// Pickups happen once a week on a configured weekday at a configured time of
// day (Thursday 00:00 local time by default). Every pickup instant has an
// edit deadline: the end of the day (23:59:59) DeadlineLeadDays calendar
// days before the pickup day (two by default, so a Thursday pickup locks at
// the end of the preceding Tuesday). An order stays editable up to and
// including its deadline instant.
//
// All arithmetic is done in the calendar's location with calendar-day steps
// (time.AddDate), so daylight-saving shifts never move a slot off its
// wall-clock time.
//
// Calendar is a pure value: it holds no clock and no state, and is safe for
// concurrent use.
package schedule
