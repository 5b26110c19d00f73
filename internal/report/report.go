package report

import (
	"sort"
	"time"

	"github.com/pbaille/mindspace/internal/domain"
)

// Newest returns records ordered by date, most recent first.
// Records with the same date keep reverse submission order. limit <= 0 returns all.
func Newest(records []domain.MoodRecord, limit int) []domain.MoodRecord {
	out := make([]domain.MoodRecord, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})

	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// Page returns the records at [offset, offset+limit) of the newest-first list
func Page(records []domain.MoodRecord, offset, limit int) []domain.MoodRecord {
	all := Newest(records, 0)
	if offset >= len(all) {
		return []domain.MoodRecord{}
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

// Segment is one entry inside a day's bar
type Segment struct {
	ID         string  `json:"id"`
	Mood       string  `json:"mood"`
	Confidence float64 `json:"confidence"`
}

// DayBar groups the entries of one calendar day
type DayBar struct {
	Day      time.Time `json:"day"`
	Segments []Segment `json:"segments"`
	Total    float64   `json:"total"`
}

// Chart buckets records by calendar day in loc, oldest day first.
// Segments keep submission order. A nil loc means UTC.
func Chart(records []domain.MoodRecord, loc *time.Location) []DayBar {
	if loc == nil {
		loc = time.UTC
	}

	index := make(map[time.Time]int)
	var bars []DayBar
	for _, r := range records {
		local := r.Date.In(loc)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

		i, ok := index[day]
		if !ok {
			i = len(bars)
			index[day] = i
			bars = append(bars, DayBar{Day: day})
		}
		bars[i].Segments = append(bars[i].Segments, Segment{ID: r.ID, Mood: r.Mood, Confidence: r.Confidence})
		bars[i].Total += r.Confidence
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Day.Before(bars[j].Day)
	})
	return bars
}

// MoodCount is how often a label appears in the history
type MoodCount struct {
	Mood  string  `json:"mood"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// Distribution counts records per label. The bundled vocabulary comes first,
// in legend order and including zero counts; other labels follow alphabetically.
func Distribution(records []domain.MoodRecord) []MoodCount {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Mood]++
	}

	out := make([]MoodCount, 0, len(domain.Labels)+len(counts))
	for _, l := range domain.Labels {
		out = append(out, MoodCount{Mood: l, Count: counts[l]})
		delete(counts, l)
	}

	var others []string
	for l := range counts {
		others = append(others, l)
	}
	sort.Strings(others)
	for _, l := range others {
		out = append(out, MoodCount{Mood: l, Count: counts[l]})
	}

	if len(records) > 0 {
		for i := range out {
			out[i].Share = float64(out[i].Count) / float64(len(records))
		}
	}
	return out
}
