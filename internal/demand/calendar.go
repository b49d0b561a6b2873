// Package demand turns raw order events into the hourly per-zone series
// used for model training.
package demand

import "time"

// Calendar derives the time features for an hour bucket. Training and
// forecasting must both go through this function; the two paths drifting
// apart degrades the model without any visible error.
// dayOfWeek is 0=Monday..6=Sunday so the weekend is {5,6}.
func Calendar(ts time.Time) (hourOfDay, dayOfWeek int, isWeekend bool) {
    hourOfDay = ts.Hour()
    dayOfWeek = (int(ts.Weekday()) + 6) % 7 // time.Weekday has Sunday=0
    isWeekend = dayOfWeek >= 5
    return
}

// TruncateHour floors a timestamp to the containing hour bucket.
func TruncateHour(ts time.Time) time.Time { return ts.Truncate(time.Hour) }
