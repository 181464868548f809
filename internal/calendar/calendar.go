// Package calendar answers holiday questions for the two countries on either
// side of the border. Public holidays come from built-in per-year tables;
// school holidays are supplied through configuration since they change
// annually.
package calendar

import (
	"fmt"
	"time"

	"github.com/causewaylabs/crossingd/internal/border"
	"github.com/causewaylabs/crossingd/internal/config"
)

// Provider answers holiday lookups for a country and date. Implementations
// backed by remote services may fail; callers are expected to fail open
// (treat errors as "not a holiday").
type Provider interface {
	IsPublicHoliday(country string, date time.Time) (bool, error)
	IsSchoolHoliday(country string, date time.Time) (bool, error)
}

// dateRange is an inclusive [start, end] calendar-day range.
type dateRange struct {
	start, end time.Time
}

func (r dateRange) contains(d time.Time) bool {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(r.start) && !day.After(r.end)
}

// TableProvider is a Provider backed by in-memory date tables.
type TableProvider struct {
	public map[string]map[string]bool // country -> "YYYY-MM-DD" -> true
	school map[string][]dateRange     // country -> ranges
}

// NewTableProvider builds a provider from the built-in public-holiday tables
// and the configured school-holiday ranges.
func NewTableProvider(cfg config.CalendarConfig) (*TableProvider, error) {
	p := &TableProvider{
		public: map[string]map[string]bool{
			border.CountrySG: sgPublicHolidays(),
			border.CountryMY: myPublicHolidays(),
		},
		school: make(map[string][]dateRange),
	}
	for _, r := range cfg.SchoolHolidays {
		start, err := time.Parse("2006-01-02", r.Start)
		if err != nil {
			return nil, fmt.Errorf("bad school holiday start %q: %w", r.Start, err)
		}
		end, err := time.Parse("2006-01-02", r.End)
		if err != nil {
			return nil, fmt.Errorf("bad school holiday end %q: %w", r.End, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("school holiday range %s..%s ends before it starts", r.Start, r.End)
		}
		p.school[r.Country] = append(p.school[r.Country], dateRange{start: start, end: end})
	}
	return p, nil
}

// IsPublicHoliday reports whether date is a public holiday in country.
func (p *TableProvider) IsPublicHoliday(country string, date time.Time) (bool, error) {
	table, ok := p.public[country]
	if !ok {
		return false, fmt.Errorf("no public holiday table for country %q", country)
	}
	return table[date.Format("2006-01-02")], nil
}

// IsSchoolHoliday reports whether date falls inside a configured school
// holiday range for country.
func (p *TableProvider) IsSchoolHoliday(country string, date time.Time) (bool, error) {
	for _, r := range p.school[country] {
		if r.contains(date) {
			return true, nil
		}
	}
	return false, nil
}

// sgPublicHolidays lists Singapore gazetted public holidays.
func sgPublicHolidays() map[string]bool {
	return dateSet(
		// 2025
		"2025-01-01", "2025-01-29", "2025-01-30", "2025-03-31", "2025-04-18",
		"2025-05-01", "2025-05-12", "2025-06-07", "2025-08-09", "2025-10-20",
		"2025-12-25",
		// 2026
		"2026-01-01", "2026-02-17", "2026-02-18", "2026-03-21", "2026-04-03",
		"2026-05-01", "2026-05-27", "2026-06-01", "2026-08-09", "2026-08-10",
		"2026-11-08", "2026-11-09", "2026-12-25",
	)
}

// myPublicHolidays lists Malaysia national plus Johor state holidays, since
// Johor-side congestion follows the state calendar.
func myPublicHolidays() map[string]bool {
	return dateSet(
		// 2025
		"2025-01-29", "2025-01-30", "2025-02-11", "2025-03-18", "2025-03-23",
		"2025-03-31", "2025-04-01", "2025-05-01", "2025-05-12", "2025-06-02",
		"2025-06-07", "2025-06-08", "2025-06-27", "2025-08-31", "2025-09-05",
		"2025-09-16", "2025-10-20", "2025-12-25",
		// 2026
		"2026-01-01", "2026-02-17", "2026-02-18", "2026-03-07", "2026-03-21",
		"2026-03-22", "2026-05-01", "2026-05-27", "2026-05-28", "2026-06-01",
		"2026-06-17", "2026-08-31", "2026-09-16", "2026-11-08", "2026-12-25",
	)
}

func dateSet(dates ...string) map[string]bool {
	m := make(map[string]bool, len(dates))
	for _, d := range dates {
		m[d] = true
	}
	return m
}
