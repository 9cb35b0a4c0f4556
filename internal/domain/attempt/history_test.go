package attempt_test

import (
	"testing"
	"time"

	"github.com/toeicquiz/backend/internal/domain/attempt"
)

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func recordAt(id string, hours int, pct float64) attempt.Record {
	return attempt.Record{
		ID:              id,
		Timestamp:       base.Add(time.Duration(hours) * time.Hour),
		ScorePercentage: pct,
	}
}

func ids(v attempt.View) []string {
	out := make([]string, len(v.Attempts))
	for i, r := range v.Attempts {
		out[i] = r.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRecent_NewestFirstAndTruncated(t *testing.T) {
	var records []attempt.Record
	for i := 0; i < 12; i++ {
		records = append(records, recordAt(string(rune('a'+i)), i, 50))
	}

	view := attempt.Recent(records)

	if len(view.Attempts) != attempt.RecentLimit {
		t.Fatalf("expected %d attempts, got %d", attempt.RecentLimit, len(view.Attempts))
	}
	if view.Attempts[0].ID != "l" {
		t.Errorf("expected newest attempt first, got %q", view.Attempts[0].ID)
	}
	for i := 1; i < len(view.Attempts); i++ {
		if view.Attempts[i].Timestamp.After(view.Attempts[i-1].Timestamp) {
			t.Errorf("timestamps increase at position %d", i)
		}
	}
}

func TestRecent_TiesKeepFetchOrder(t *testing.T) {
	records := []attempt.Record{recordAt("x", 1, 10), recordAt("y", 1, 20), recordAt("z", 2, 0)}

	got := ids(attempt.Recent(records))

	if want := []string{"z", "x", "y"}; !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestBest_HighestFirstStable(t *testing.T) {
	records := []attempt.Record{
		recordAt("a", 0, 40),
		recordAt("b", 1, 90),
		recordAt("c", 2, 75),
		recordAt("d", 3, 90),
		recordAt("e", 4, 10),
		recordAt("f", 5, 75),
		recordAt("g", 6, 60),
	}

	got := ids(attempt.Best(records))

	if want := []string{"b", "d", "c", "f", "g"}; !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestViews_DoNotMutateInput(t *testing.T) {
	records := []attempt.Record{recordAt("a", 0, 10), recordAt("b", 1, 90)}

	attempt.Recent(records)
	attempt.Best(records)

	if records[0].ID != "a" || records[1].ID != "b" {
		t.Errorf("input was reordered: %v", []string{records[0].ID, records[1].ID})
	}
}

func TestViews_EmptyHistory(t *testing.T) {
	if !attempt.Recent(nil).Empty() {
		t.Error("expected recent view of no records to be empty")
	}
	if !attempt.Best([]attempt.Record{}).Empty() {
		t.Error("expected best view of no records to be empty")
	}
}
