package report_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/pbaille/mindspace/internal/domain"
	"github.com/pbaille/mindspace/internal/report"
)

var base = time.Date(2024, time.December, 7, 9, 0, 0, 0, time.UTC)

func records() []domain.MoodRecord {
	return []domain.MoodRecord{
		{ID: "aaaaaaaa-1", Mood: domain.Normal, Confidence: 0.9, Date: base},
		{ID: "bbbbbbbb-2", Mood: domain.Anxiety, Confidence: 0.4, Date: base.Add(2 * time.Hour)},
		{ID: "cccccccc-3", Mood: domain.Normal, Confidence: 0.7, Date: base.Add(26 * time.Hour)},
		{ID: "dddddddd-4", Mood: domain.Unknown, Confidence: 0, Date: base.Add(26 * time.Hour)},
	}
}

func ids(rs []domain.MoodRecord) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestNewest(t *testing.T) {
	got := report.Newest(records(), 0)
	gt.Equal(t, ids(got), []string{"dddddddd-4", "cccccccc-3", "bbbbbbbb-2", "aaaaaaaa-1"})

	gt.Equal(t, ids(report.Newest(records(), 2)), []string{"dddddddd-4", "cccccccc-3"})
	gt.A(t, report.Newest(nil, 5)).Length(0)
}

func TestNewestDoesNotMutateInput(t *testing.T) {
	in := records()
	report.Newest(in, 0)
	gt.Equal(t, in, records())
}

func TestPage(t *testing.T) {
	gt.Equal(t, ids(report.Page(records(), 1, 2)), []string{"cccccccc-3", "bbbbbbbb-2"})
	gt.Equal(t, ids(report.Page(records(), 3, 10)), []string{"aaaaaaaa-1"})
	gt.A(t, report.Page(records(), 10, 10)).Length(0)
}

func TestChart(t *testing.T) {
	bars := report.Chart(records(), time.UTC)
	gt.A(t, bars).Length(2)

	gt.Equal(t, bars[0].Day, time.Date(2024, time.December, 7, 0, 0, 0, 0, time.UTC))
	gt.A(t, bars[0].Segments).Length(2)
	gt.Equal(t, bars[0].Segments[0].Mood, domain.Normal)
	gt.Equal(t, bars[0].Segments[1].Mood, domain.Anxiety)
	gt.True(t, bars[0].Total > 1.29 && bars[0].Total < 1.31)

	gt.Equal(t, bars[1].Day, time.Date(2024, time.December, 8, 0, 0, 0, 0, time.UTC))
	gt.A(t, bars[1].Segments).Length(2)
}

func TestChartUsesLocation(t *testing.T) {
	// 09:00 and 11:00 UTC fall on different days at UTC-10
	loc := time.FixedZone("HST", -10*3600)
	bars := report.Chart(records()[:2], loc)
	gt.A(t, bars).Length(2)
	gt.Equal(t, bars[0].Day.Day(), 6)
	gt.Equal(t, bars[1].Day.Day(), 7)
}

func TestDistribution(t *testing.T) {
	in := append(records(), domain.MoodRecord{ID: "e", Mood: "Angry", Confidence: 0.5, Date: base})
	got := report.Distribution(in)

	gt.Equal(t, got[0], report.MoodCount{Mood: domain.Normal, Count: 2, Share: 0.4})
	gt.Equal(t, got[1].Mood, domain.Anxiety)
	gt.Equal(t, got[2], report.MoodCount{Mood: domain.Depression})
	gt.Equal(t, got[3].Mood, domain.Suicidal)
	gt.Equal(t, got[4].Mood, "Angry")
	gt.Equal(t, got[5].Mood, domain.Unknown)
	gt.A(t, got).Length(6)
}

func TestDistributionEmpty(t *testing.T) {
	got := report.Distribution(nil)
	gt.A(t, got).Length(len(domain.Labels))
	for _, c := range got {
		gt.Equal(t, c.Count, 0)
		gt.Equal(t, c.Share, 0.0)
	}
}

func TestRenderList(t *testing.T) {
	var buf bytes.Buffer
	now := base.Add(3 * time.Hour)
	gt.NoError(t, report.RenderList(&buf, report.Newest(records()[:2], 0), now, time.UTC))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	gt.A(t, lines).Length(2)
	gt.S(t, lines[0]).Contains("bbbbbbbb")
	gt.S(t, lines[0]).Contains("Anxiety")
	gt.S(t, lines[0]).Contains("0.40")
	gt.S(t, lines[0]).Contains("Dec 7, 2024 at 11:00 AM")
	gt.S(t, lines[0]).Contains("1 hour ago")
	gt.S(t, lines[1]).Contains("3 hours ago")
}

func TestRenderChart(t *testing.T) {
	var buf bytes.Buffer
	gt.NoError(t, report.RenderChart(&buf, report.Chart(records(), time.UTC), 10))

	out := buf.String()
	gt.S(t, out).Contains("Sat Dec 07")
	gt.S(t, out).Contains("Sun Dec 08")
	gt.S(t, out).Contains(strings.Repeat("█", 9) + " 0.90")
	gt.S(t, out).Contains(strings.Repeat("█", 4) + " 0.40")
}

func TestShortID(t *testing.T) {
	gt.Equal(t, report.ShortID("123456789abc"), "12345678")
	gt.Equal(t, report.ShortID("abc"), "abc")
}
