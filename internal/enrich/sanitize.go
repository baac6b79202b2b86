// Package enrich builds the enriched dossier for a case: it sanitizes the
// transaction history, derives the behavioral baseline, measures deviation
// of the flagged subset, and aggregates cross-source risk.
package enrich

import (
	"github.com/opensource-finance/harrier/internal/domain"
)

// SanitizeResult is the output of transaction sanitization.
type SanitizeResult struct {
	Transactions []domain.Transaction
	Duplicates   int
	Quarantined  int
}

// Sanitize deduplicates and quarantines malformed transaction records.
//
// A record is quarantined when it has no identifier, its date failed to
// parse (zero time), or its amount is negative (the wire encoding for a
// missing amount; valid amounts are non-negative). A record whose identifier
// was already seen is counted as a duplicate and discarded; the first
// occurrence wins and input order is preserved. Sanitize never fails: an
// empty or fully-invalid input yields an empty list with the counts
// reflecting the totals.
func Sanitize(txns []domain.Transaction) SanitizeResult {
	res := SanitizeResult{
		Transactions: make([]domain.Transaction, 0, len(txns)),
	}
	seen := make(map[string]bool, len(txns))

	for _, t := range txns {
		if t.ID == "" {
			res.Quarantined++
			continue
		}
		if seen[t.ID] {
			res.Duplicates++
			continue
		}
		if t.Date.IsZero() || t.Amount < 0 {
			res.Quarantined++
			continue
		}
		seen[t.ID] = true
		res.Transactions = append(res.Transactions, t)
	}

	return res
}
