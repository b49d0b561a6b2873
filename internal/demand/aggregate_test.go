package demand

import (
    "testing"
    "time"

    "staffcast/internal/model"
)

func ts(s string) time.Time {
    t, err := time.Parse(time.RFC3339, s)
    if err != nil {
        panic(err)
    }
    return t
}

func TestAggregateCountsPerHourZone(t *testing.T) {
    events := []model.OrderEvent{
        {Timestamp: ts("2024-01-01T08:05:00Z"), ZoneID: 1, OrderID: "a"},
        {Timestamp: ts("2024-01-01T08:59:59Z"), ZoneID: 1, OrderID: "b"},
        {Timestamp: ts("2024-01-01T08:30:00Z"), ZoneID: 2, OrderID: "c"},
        {Timestamp: ts("2024-01-01T09:00:00Z"), ZoneID: 1, OrderID: "d"},
    }
    got := Aggregate(events)
    if len(got) != 3 {
        t.Fatalf("buckets: got %d want 3", len(got))
    }
    if got[0].ZoneID != 1 || got[0].Orders != 2 || !got[0].Hour.Equal(ts("2024-01-01T08:00:00Z")) {
        t.Fatalf("bucket 0: %+v", got[0])
    }
    if got[1].ZoneID != 2 || got[1].Orders != 1 {
        t.Fatalf("bucket 1: %+v", got[1])
    }
    if got[2].Orders != 1 || !got[2].Hour.Equal(ts("2024-01-01T09:00:00Z")) {
        t.Fatalf("bucket 2: %+v", got[2])
    }
}

func TestAggregateNoSynthesizedZeros(t *testing.T) {
    // One event at 08:00 and one at 10:00; the empty 09:00 bucket must be absent.
    events := []model.OrderEvent{
        {Timestamp: ts("2024-01-01T08:00:00Z"), ZoneID: 0},
        {Timestamp: ts("2024-01-01T10:00:00Z"), ZoneID: 0},
    }
    got := Aggregate(events)
    if len(got) != 2 {
        t.Fatalf("got %d buckets, want 2 (no zero back-fill)", len(got))
    }
}

func TestCalendarFeatures(t *testing.T) {
    cases := []struct {
        in      string
        hour    int
        dow     int
        weekend bool
    }{
        {"2024-01-01T00:00:00Z", 0, 0, false},  // Monday
        {"2024-01-05T17:30:00Z", 17, 4, false}, // Friday
        {"2024-01-06T09:00:00Z", 9, 5, true},   // Saturday
        {"2024-01-07T23:00:00Z", 23, 6, true},  // Sunday
    }
    for _, c := range cases {
        h, d, wk := Calendar(ts(c.in))
        if h != c.hour || d != c.dow || wk != c.weekend {
            t.Errorf("Calendar(%s) = (%d,%d,%v), want (%d,%d,%v)", c.in, h, d, wk, c.hour, c.dow, c.weekend)
        }
    }
}

func TestZones(t *testing.T) {
    events := []model.OrderEvent{
        {Timestamp: ts("2024-01-01T08:00:00Z"), ZoneID: 3},
        {Timestamp: ts("2024-01-01T08:00:00Z"), ZoneID: 1},
        {Timestamp: ts("2024-01-01T08:00:00Z"), ZoneID: 3},
    }
    got := Zones(events)
    if len(got) != 2 || got[0] != 1 || got[1] != 3 {
        t.Fatalf("Zones = %v", got)
    }
}

func TestOnTimeDerivation(t *testing.T) {
    if !(model.OrderEvent{DeliveryTimeMin: 45}).OnTime() {
        t.Fatal("45 min should be on time")
    }
    if (model.OrderEvent{DeliveryTimeMin: 45.1}).OnTime() {
        t.Fatal("45.1 min should be late")
    }
}
