package aggregate

import (
	"sort"
	"time"

	"hfr-topic-parser/internal/scraper"
)

// DayCount is the number of posts written on one calendar day.
type DayCount struct {
	Day   time.Time
	Count int
}

// DailyCounts accumulates posts into per-day buckets. Days are calendar
// days in the timestamp's own location, so posts group the way a reader of
// the forum would expect, not by UTC day.
type DailyCounts struct {
	counts map[time.Time]int
	total  int
}

func NewDailyCounts() *DailyCounts {
	return &DailyCounts{counts: make(map[time.Time]int)}
}

func (d *DailyCounts) Add(post scraper.Post) {
	y, m, day := post.Timestamp.Date()
	key := time.Date(y, m, day, 0, 0, 0, 0, post.Timestamp.Location())
	d.counts[key]++
	d.total++
}

func (d *DailyCounts) Total() int {
	return d.total
}

// Series returns the accumulated counts sorted by day, ascending.
func (d *DailyCounts) Series() []DayCount {
	series := make([]DayCount, 0, len(d.counts))
	for day, count := range d.counts {
		series = append(series, DayCount{Day: day, Count: count})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Day.Before(series[j].Day)
	})
	return series
}
