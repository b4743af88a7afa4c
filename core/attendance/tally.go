package attendance

import (
	"sort"
	"time"
)

// Tally counts the absences of every santri in ids.
// Every id gets an entry, zeroed when it has no matching record; records of other santri are ignored.
// Each record counts, so two rows on the same day both increment their bucket.
func Tally(ids []string, records []Record) map[string]Summary {
	summaries := make(map[string]Summary, len(ids))
	for _, id := range ids {
		summaries[id] = Summary{}
	}
	for _, rec := range records {
		sum, ok := summaries[rec.SantriID]
		if !ok {
			continue
		}
		switch rec.Status {
		case StatusAlpha:
			sum.Alfa++
		case StatusPermission:
			sum.Izin++
		case StatusSick:
			sum.Sakit++
		default:
			continue
		}
		summaries[rec.SantriID] = sum
	}
	return summaries
}

// DayCount is the number of records of each status on one day.
type DayCount struct {
	Date       time.Time `json:"date"`
	Present    int       `json:"present"`
	Sick       int       `json:"sick"`
	Permission int       `json:"permission"`
	Alpha      int       `json:"alpha"`
}

// DailyCounts groups records by calendar date, oldest first.
func DailyCounts(records []Record) []DayCount {
	byDate := make(map[time.Time]*DayCount)
	for _, rec := range records {
		y, m, d := rec.Date.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		dc, ok := byDate[day]
		if !ok {
			dc = &DayCount{Date: day}
			byDate[day] = dc
		}
		switch rec.Status {
		case StatusPresent:
			dc.Present++
		case StatusSick:
			dc.Sick++
		case StatusPermission:
			dc.Permission++
		case StatusAlpha:
			dc.Alpha++
		}
	}

	counts := make([]DayCount, 0, len(byDate))
	for _, dc := range byDate {
		counts = append(counts, *dc)
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Date.Before(counts[j].Date) })
	return counts
}
