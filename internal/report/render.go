package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pbaille/mindspace/internal/domain"
)

const dateLayout = "Jan 2, 2006 at 3:04 PM"

// RenderList writes one line per record, in the given order
func RenderList(w io.Writer, records []domain.MoodRecord, now time.Time, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	for _, r := range records {
		_, err := fmt.Fprintf(w, "%s  %-10s  %.2f  %s (%s)\n",
			ShortID(r.ID), r.Mood, r.Confidence,
			r.Date.In(loc).Format(dateLayout),
			humanize.RelTime(r.Date, now, "ago", "from now"))
		if err != nil {
			return err
		}
	}
	return nil
}

// RenderRecord writes the details of a single record
func RenderRecord(w io.Writer, r domain.MoodRecord, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	_, err := fmt.Fprintf(w, "ID:         %s\nMood:       %s\nConfidence: %.2f\nDate:       %s\n",
		r.ID, r.Mood, r.Confidence, r.Date.In(loc).Format(dateLayout))
	return err
}

// RenderChart draws one block bar per entry, grouped by day. width is the
// length of a bar at confidence 1.
func RenderChart(w io.Writer, bars []DayBar, width int) error {
	if width <= 0 {
		width = 30
	}

	for _, b := range bars {
		day := b.Day.Format("Mon Jan 02")
		for i, s := range b.Segments {
			prefix := day
			if i > 0 {
				prefix = strings.Repeat(" ", len(day))
			}
			n := int(math.Round(clamp01(s.Confidence) * float64(width)))
			_, err := fmt.Fprintf(w, "%s  %-10s %s %.2f\n", prefix, s.Mood, strings.Repeat("█", n), s.Confidence)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// RenderDistribution writes label counts with their share of the history
func RenderDistribution(w io.Writer, counts []MoodCount) error {
	for _, c := range counts {
		if _, err := fmt.Fprintf(w, "%-10s %4d  %5.1f%%\n", c.Mood, c.Count, c.Share*100); err != nil {
			return err
		}
	}
	return nil
}

// ShortID returns the first 8 characters of an id
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
