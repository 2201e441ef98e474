package model

import "time"

// Weekday is the string form used in business-hours tables and working-hour
// overrides ("Monday" .. "Sunday").
type Weekday string

const (
	Sunday    Weekday = "Sunday"
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
)

func WeekdayOf(t time.Time) Weekday {
	return Weekday(t.Weekday().String())
}
