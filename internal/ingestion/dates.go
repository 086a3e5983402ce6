package ingestion

import (
	"math"
	"time"

	"github.com/camrobjones/papernet/internal/domain"
)

// millisecondTimestampThreshold separates second from millisecond epochs.
const millisecondTimestampThreshold = 1e10

var dateTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05Z"}

// PublicationDates holds the dates found on a work. Published is the
// earliest of the others.
type PublicationDates struct {
	Print     *time.Time
	Online    *time.Time
	Issued    *time.Time
	Created   *time.Time
	Published *time.Time
}

// IsEmpty reports whether no date was found.
func (d PublicationDates) IsEmpty() bool {
	return d.Published == nil
}

// ExtractDate reads a partial date, trying the full date-time first, then the
// epoch timestamp, then the date parts with missing month and day set to 1.
// It returns nil when nothing usable is present.
func ExtractDate(obj *domain.DateObject) *time.Time {
	if obj == nil {
		return nil
	}

	if obj.DateTime != "" {
		for _, layout := range dateTimeLayouts {
			if t, err := time.Parse(layout, obj.DateTime); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}

	if obj.Timestamp != nil && *obj.Timestamp > 0 {
		ts := *obj.Timestamp
		if ts > millisecondTimestampThreshold {
			ts /= 1000
		}
		sec, frac := math.Modf(ts)
		t := time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
		return &t
	}

	if len(obj.DateParts) > 0 {
		return fromDateParts(obj.DateParts[0])
	}

	return nil
}

func fromDateParts(parts []*int) *time.Time {
	values := [3]int{0, 1, 1}
	for i := 0; i < len(parts) && i < 3; i++ {
		if parts[i] == nil {
			if i == 0 {
				return nil
			}
			break
		}
		values[i] = *parts[i]
	}
	if values[0] <= 0 {
		return nil
	}

	t := time.Date(values[0], time.Month(values[1]), values[2], 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out of range values; reject them instead.
	if t.Year() != values[0] || int(t.Month()) != values[1] || t.Day() != values[2] {
		return nil
	}
	return &t
}

// ExtractDates collects the print, online, issued and created dates of a
// work. When the work carries none, the journal issue dates are used.
func ExtractDates(w *domain.Work) PublicationDates {
	if w == nil {
		return PublicationDates{}
	}

	dates := PublicationDates{
		Print:   ExtractDate(w.PublishedPrint),
		Online:  ExtractDate(w.PublishedOnline),
		Issued:  ExtractDate(w.Issued),
		Created: ExtractDate(w.Created),
	}
	if dates.Print == nil && dates.Online == nil && dates.Issued == nil && dates.Created == nil && w.JournalIssue != nil {
		dates.Print = ExtractDate(w.JournalIssue.PublishedPrint)
		dates.Online = ExtractDate(w.JournalIssue.PublishedOnline)
	}

	for _, d := range []*time.Time{dates.Print, dates.Online, dates.Issued, dates.Created} {
		if d != nil && (dates.Published == nil || d.Before(*dates.Published)) {
			dates.Published = d
		}
	}
	return dates
}
