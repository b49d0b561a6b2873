package demand

import (
    "sort"
    "time"

    "staffcast/internal/model"
)

type bucket struct {
    hour time.Time
    zone int
}

// Aggregate groups events into (hour, zone) buckets and counts them.
// Buckets that saw no events are not synthesized: absence means "no data",
// not "zero demand", and callers that need zeros must back-fill explicitly.
// Output is sorted by hour then zone so repeated runs are byte-identical.
func Aggregate(events []model.OrderEvent) []model.HourlyDemand {
    counts := map[bucket]int{}
    for _, e := range events {
        counts[bucket{hour: TruncateHour(e.Timestamp), zone: e.ZoneID}]++
    }
    out := make([]model.HourlyDemand, 0, len(counts))
    for b, n := range counts {
        h, d, wk := Calendar(b.hour)
        out = append(out, model.HourlyDemand{
            Hour:      b.hour,
            ZoneID:    b.zone,
            Orders:    n,
            HourOfDay: h,
            DayOfWeek: d,
            IsWeekend: wk,
        })
    }
    sort.Slice(out, func(i, j int) bool {
        if !out[i].Hour.Equal(out[j].Hour) {
            return out[i].Hour.Before(out[j].Hour)
        }
        return out[i].ZoneID < out[j].ZoneID
    })
    return out
}

// Zones returns the distinct zone IDs present in the events, ascending.
func Zones(events []model.OrderEvent) []int {
    seen := map[int]struct{}{}
    for _, e := range events {
        seen[e.ZoneID] = struct{}{}
    }
    out := make([]int, 0, len(seen))
    for z := range seen {
        out = append(out, z)
    }
    sort.Ints(out)
    return out
}
