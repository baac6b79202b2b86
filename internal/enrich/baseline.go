package enrich

import (
	"math"
	"sort"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

type monthStats struct {
	inflow  float64
	outflow float64
	count   int
}

// ComputeBaseline derives the behavioral baseline from transactions dated
// strictly before the alert's calendar month (year/month comparison, not
// elapsed time). An empty pre-alert set yields a zero-valued baseline marked
// with domain.NoBaselineData; that is a defined degenerate case, not an
// error.
func ComputeBaseline(txns []domain.Transaction, alertAt time.Time) domain.BehavioralBaseline {
	alertYear, alertMonth := alertAt.Year(), int(alertAt.Month())

	var baselineTxns []domain.Transaction
	for _, t := range txns {
		y, m := t.Date.Year(), int(t.Date.Month())
		if y < alertYear || (y == alertYear && m < alertMonth) {
			baselineTxns = append(baselineTxns, t)
		}
	}

	if len(baselineTxns) == 0 {
		return domain.BehavioralBaseline{
			UsualCounterparties: []string{},
			UsualGeographies:    []string{},
			UsualChannels:       []string{},
			BaselinePeriod:      domain.NoBaselineData,
		}
	}

	months := make(map[string]*monthStats)
	counterparties := make(map[string]bool)
	geographies := make(map[string]bool)
	channels := make(map[string]bool)

	var maxTxn float64
	var start, end time.Time

	for _, t := range baselineTxns {
		d := t.Date.Time
		if start.IsZero() || d.Before(start) {
			start = d
		}
		if end.IsZero() || d.After(end) {
			end = d
		}

		key := d.Format("2006-01")
		stats, ok := months[key]
		if !ok {
			stats = &monthStats{}
			months[key] = stats
		}

		if t.Amount > maxTxn {
			maxTxn = t.Amount
		}
		if t.Inbound() {
			stats.inflow += t.Amount
		} else {
			stats.outflow += t.Amount
		}
		stats.count++

		if t.CounterpartyName != "" {
			counterparties[t.CounterpartyName] = true
		}
		if t.CounterpartyCountry != "" {
			geographies[t.CounterpartyCountry] = true
		}
		if t.Channel != "" {
			channels[t.Channel] = true
		}
	}

	// Averages divide by the number of distinct months present, not the
	// calendar months elapsed.
	numMonths := len(months)

	var totalInflow, totalOutflow float64
	var totalCount int
	for _, stats := range months {
		totalInflow += stats.inflow
		totalOutflow += stats.outflow
		totalCount += stats.count
	}

	return domain.BehavioralBaseline{
		AvgMonthlyInflow:    round2(totalInflow / float64(numMonths)),
		AvgMonthlyOutflow:   round2(totalOutflow / float64(numMonths)),
		AvgMonthlyTxnCount:  totalCount / numMonths,
		UsualCounterparties: sortedKeys(counterparties),
		UsualGeographies:    sortedKeys(geographies),
		UsualChannels:       sortedKeys(channels),
		BaselinePeriod:      start.Format("2006-01-02") + " to " + end.Format("2006-01-02"),
		MaxSingleTxn:        maxTxn,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
