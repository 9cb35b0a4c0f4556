package attempt

import "sort"

const (
	RecentLimit = 10
	BestLimit   = 5
)

// View is a read-only projection over a user's attempts.
type View struct {
	Attempts []Record
}

// Empty reports whether the view holds no records.
func (v View) Empty() bool {
	return len(v.Attempts) == 0
}

// Recent returns the latest attempts, newest first.
func Recent(records []Record) View {
	sorted := make([]Record, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	return View{Attempts: truncate(sorted, RecentLimit)}
}

// Best returns the highest scoring attempts. Equal percentages keep the
// order they were fetched in.
func Best(records []Record) View {
	sorted := make([]Record, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ScorePercentage > sorted[j].ScorePercentage
	})

	return View{Attempts: truncate(sorted, BestLimit)}
}

func truncate(records []Record, limit int) []Record {
	if len(records) > limit {
		return records[:limit]
	}
	return records
}
