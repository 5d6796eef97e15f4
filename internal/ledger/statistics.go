package ledger

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/razherana/s5-web-4-carte/internal/model"
)

// TransitionStats aggregates every observed delay between two
// consecutive statuses across all reports.
type TransitionStats struct {
	From     model.Status `json:"from"`
	To       model.Status `json:"to"`
	Count    int          `json:"count"`
	AvgHours float64      `json:"avg_hours"`
	MinHours float64      `json:"min_hours"`
	MaxHours float64      `json:"max_hours"`
	AvgDays  float64      `json:"avg_days"`
	MinDays  float64      `json:"min_days"`
	MaxDays  float64      `json:"max_days"`
}

// ReportStats is the processing time of one report: last transition
// minus first transition, whatever happened in between.
type ReportStats struct {
	ReportID     uint64       `json:"report_id"`
	Status       model.Status `json:"status"`
	HistoryCount int          `json:"history_count"`
	TotalHours   float64      `json:"total_hours"`
	TotalDays    float64      `json:"total_days"`
}

// Summary holds the global figures.  The averages are nil when no
// resolved report has a measurable processing time.
type Summary struct {
	ReportsWithHistory int      `json:"reports_with_history"`
	ResolvedCount      int      `json:"resolved_count"`
	AvgResolutionHours *float64 `json:"avg_resolution_hours"`
	AvgResolutionDays  *float64 `json:"avg_resolution_days"`
}

// Statistics is the output of ComputeStatistics.
type Statistics struct {
	AverageDelays []TransitionStats `json:"average_delays"`
	PerReport     []ReportStats     `json:"per_report"`
	Summary       Summary           `json:"summary"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ErrBadTimestamp is returned by ParseChangedAt for values that match no
// accepted layout.
var ErrBadTimestamp = errors.New("unparseable timestamp")

// ParseChangedAt accepts RFC 3339 and the MySQL DATETIME layouts.  Values
// without a zone are read as UTC.
func ParseChangedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrBadTimestamp
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrBadTimestamp
}

type transitionKey struct {
	from, to model.Status
}

type timedEntry struct {
	status model.Status
	at     time.Time
	ok     bool
}

// ComputeStatistics derives processing-time analytics from status
// histories.  Histories are ordered by changed_at (stable, so ties keep
// their given order) before consecutive pairs are measured.  Reports with
// fewer than two entries contribute no transition.  Entries whose
// changed_at cannot be parsed are sorted last and every pair touching
// them is skipped.  Rounding to two decimals happens only on output.
func ComputeStatistics(histories []model.ReportHistory) Statistics {
	delays := map[transitionKey][]float64{}
	var keys []transitionKey
	var resolvedTotals []float64

	out := Statistics{
		AverageDelays: []TransitionStats{},
		PerReport:     make([]ReportStats, 0, len(histories)),
	}

	for _, rh := range histories {
		entries := make([]timedEntry, len(rh.History))
		for i, e := range rh.History {
			t, err := ParseChangedAt(e.ChangedAt)
			entries[i] = timedEntry{status: e.Status, at: t, ok: err == nil}
		}
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i], entries[j]
			if a.ok != b.ok {
				return a.ok
			}
			if !a.ok {
				return false
			}
			return a.at.Before(b.at)
		})

		rs := ReportStats{ReportID: rh.ReportID, Status: rh.Status, HistoryCount: len(entries)}
		if len(entries) >= 2 {
			out.Summary.ReportsWithHistory++

			for i := 1; i < len(entries); i++ {
				prev, curr := entries[i-1], entries[i]
				if !prev.ok || !curr.ok {
					continue
				}
				k := transitionKey{from: prev.status, to: curr.status}
				if _, seen := delays[k]; !seen {
					keys = append(keys, k)
				}
				delays[k] = append(delays[k], curr.at.Sub(prev.at).Hours())
			}

			first, last, valid := -1, -1, 0
			for i, e := range entries {
				if !e.ok {
					continue
				}
				if first < 0 {
					first = i
				}
				last = i
				valid++
			}
			if valid >= 2 {
				total := entries[last].at.Sub(entries[first].at).Hours()
				rs.TotalHours = round2(total)
				rs.TotalDays = round2(total / 24)
				if rh.Status == model.StatusResolved {
					resolvedTotals = append(resolvedTotals, total)
				}
			}
		}
		out.PerReport = append(out.PerReport, rs)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		return keys[i].to < keys[j].to
	})
	for _, k := range keys {
		values := delays[k]
		sum, lo, hi := 0.0, values[0], values[0]
		for _, v := range values {
			sum += v
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		avg := sum / float64(len(values))
		out.AverageDelays = append(out.AverageDelays, TransitionStats{
			From:     k.from,
			To:       k.to,
			Count:    len(values),
			AvgHours: round2(avg),
			MinHours: round2(lo),
			MaxHours: round2(hi),
			AvgDays:  round2(avg / 24),
			MinDays:  round2(lo / 24),
			MaxDays:  round2(hi / 24),
		})
	}

	out.Summary.ResolvedCount = len(resolvedTotals)
	if len(resolvedTotals) > 0 {
		sum := 0.0
		for _, v := range resolvedTotals {
			sum += v
		}
		mean := sum / float64(len(resolvedTotals))
		hours, days := round2(mean), round2(mean/24)
		out.Summary.AvgResolutionHours = &hours
		out.Summary.AvgResolutionDays = &days
	}
	return out
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
