// Package validate runs a deterministic quality-control battery over a
// drafted narrative before it enters the case package.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

var (
	dateRe   = regexp.MustCompile(`(?i)(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4}|january|february|march|april|may|june|july|august|september|october|november|december)`)
	amountRe = regexp.MustCompile(`(?i)(\$|usd|eur)\s?\d{1,3}(,\d{3})*(\.\d{2})?`)
	countRe  = regexp.MustCompile(`(?i)\d+\s(transactions|deposits|withdrawals|wires|transfers)`)
)

// Term lists for the soft checks. Matching is case-insensitive substring.
var (
	suspicionTerms = []string{"suspicious", "inconsistent", "deviation", "unusual", "anomal", "red flag", "indicator", "appears"}
	mechanismTerms = []string{"deposit", "withdraw", "wire", "transfer", "cash", "fund", "transaction"}
	locationTerms  = []string{"branch", "state", "country", "jurisdiction", "bank", "location"}
	priorTerms     = []string{"prior", "previous", "filing", "continuing", "dcn"}

	// Phrases that assert guilt. The narrative must describe suspicion,
	// not reach a legal conclusion.
	definitiveTerms = []string{
		"is guilty",
		"committed money laundering",
		"is laundering money",
		"illegal activity confirmed",
	}
)

const (
	minNarrativeWords = 200
	maxNarrativeWords = 5000
)

// Validate runs the check battery against the draft and rolls the results up
// into an overall status: any critical failure fails the narrative outright;
// a major failure or more than two warnings downgrades it to WARN. The
// prior-history check applies only when the dossier shows prior filings.
func Validate(c *domain.CaseInput, d *domain.EnrichedDossier, draft *domain.DraftNarrative) *domain.ValidationResult {
	text := strings.ToLower(draft.FullNarrative)

	checks := []domain.CheckResult{
		checkSubject(c, text),
		checkActivity(c, text),
		checkDates(text),
		checkLocation(text),
		checkSuspicion(text),
		checkMechanism(text),
		checkAmounts(text),
		checkTxnCounts(text),
	}
	if d.HasPriorSARs {
		checks = append(checks, checkPriorHistory(d, text))
	}
	checks = append(checks,
		checkLength(draft),
		checkNoConclusions(text),
	)

	result := &domain.ValidationResult{
		CaseID:      draft.CaseID,
		TotalChecks: len(checks),
		Checks:      checks,
		ValidatedAt: time.Now().UTC(),
	}

	criticalFailed := false
	majorFailed := false
	for _, ch := range checks {
		switch ch.Status {
		case domain.CheckPass:
			result.Passed++
		case domain.CheckWarn:
			result.Warnings++
		case domain.CheckFail:
			result.Failed++
			if ch.Severity == domain.SeverityCritical {
				criticalFailed = true
			}
			if ch.Severity == domain.SeverityMajor {
				majorFailed = true
			}
		}
	}

	switch {
	case criticalFailed:
		result.OverallStatus = domain.CheckFail
	case majorFailed || result.Warnings > 2:
		result.OverallStatus = domain.CheckWarn
	default:
		result.OverallStatus = domain.CheckPass
	}
	return result
}

// checkSubject verifies the narrative names the subject. An identifier
// alone does not satisfy the WHO requirement.
func checkSubject(c *domain.CaseInput, text string) domain.CheckResult {
	name := strings.ToLower(c.CustomerProfile.Name)
	if name != "" && strings.Contains(text, name) {
		return pass("WHO_SUBJECT_IDENTIFIED", domain.SeverityCritical, "Subject named in narrative.")
	}
	return fail("WHO_SUBJECT_IDENTIFIED", domain.SeverityCritical, "Subject name missing from narrative.")
}

// checkActivity verifies the narrative says what happened: the alert type
// or structuring/layering terminology.
func checkActivity(c *domain.CaseInput, text string) domain.CheckResult {
	alertType := strings.ToLower(c.Alert.AlertType)
	if strings.Contains(text, alertType) ||
		strings.Contains(text, "structuring") ||
		strings.Contains(text, "layering") {
		return pass("WHAT_ACTIVITY_DESCRIBED", domain.SeverityCritical, "Activity type described.")
	}
	return fail("WHAT_ACTIVITY_DESCRIBED", domain.SeverityCritical, "Narrative does not describe the suspicious activity.")
}

func checkDates(text string) domain.CheckResult {
	if dateRe.MatchString(text) {
		return pass("WHEN_DATES_PRESENT", domain.SeverityCritical, "Date references present.")
	}
	return fail("WHEN_DATES_PRESENT", domain.SeverityCritical, "No dates found in narrative.")
}

func checkLocation(text string) domain.CheckResult {
	if countTerms(text, locationTerms) >= 1 {
		return pass("WHERE_LOCATION_PRESENT", domain.SeverityCritical, "Location references present.")
	}
	return fail("WHERE_LOCATION_PRESENT", domain.SeverityCritical, "No location or institution references found.")
}

func checkSuspicion(text string) domain.CheckResult {
	n := countTerms(text, suspicionTerms)
	if n >= 2 {
		return pass("WHY_SUSPICION_EXPLAINED", domain.SeverityCritical, fmt.Sprintf("Found %d suspicion keywords.", n))
	}
	return fail("WHY_SUSPICION_EXPLAINED", domain.SeverityCritical, "Narrative does not explain why the activity is suspicious.")
}

func checkMechanism(text string) domain.CheckResult {
	n := countTerms(text, mechanismTerms)
	if n >= 3 {
		return pass("HOW_MECHANISM_DESCRIBED", domain.SeverityMajor, fmt.Sprintf("Found %d mechanism keywords.", n))
	}
	return fail("HOW_MECHANISM_DESCRIBED", domain.SeverityMajor, "Narrative does not describe how the activity was conducted.")
}

// checkAmounts requires at least two specific currency amounts; fewer is a
// warning, not a failure.
func checkAmounts(text string) domain.CheckResult {
	n := len(amountRe.FindAllString(text, -1))
	if n >= 2 {
		return pass("AMOUNTS_SPECIFIC", domain.SeverityMajor, fmt.Sprintf("Found %d specific amounts.", n))
	}
	return warn("AMOUNTS_SPECIFIC", domain.SeverityMajor, fmt.Sprintf("Found %d specific amounts.", n))
}

func checkTxnCounts(text string) domain.CheckResult {
	if countRe.MatchString(text) {
		return pass("TRANSACTION_COUNTS", domain.SeverityMajor, "Transaction counts referenced.")
	}
	return warn("TRANSACTION_COUNTS", domain.SeverityMajor, "No explicit transaction counts.")
}

func checkPriorHistory(d *domain.EnrichedDossier, text string) domain.CheckResult {
	if countTerms(text, priorTerms) >= 1 {
		return pass("PRIOR_HISTORY_REFERENCED", domain.SeverityMinor, "Prior filing history referenced.")
	}
	return warn("PRIOR_HISTORY_REFERENCED", domain.SeverityMinor,
		fmt.Sprintf("Subject has %d prior filing(s) not referenced in narrative.", d.PriorSARCount))
}

func checkLength(draft *domain.DraftNarrative) domain.CheckResult {
	wc := draft.WordCount
	if wc == 0 {
		wc = len(strings.Fields(draft.FullNarrative))
	}
	if wc < minNarrativeWords || wc > maxNarrativeWords {
		return warn("NARRATIVE_LENGTH", domain.SeverityMinor,
			fmt.Sprintf("Word count %d outside guideline range [%d, %d].", wc, minNarrativeWords, maxNarrativeWords))
	}
	return pass("NARRATIVE_LENGTH", domain.SeverityMinor, fmt.Sprintf("Word count: %d.", wc))
}

// checkNoConclusions flags language asserting guilt. Advisory only: it can
// warn but never fails the narrative on its own.
func checkNoConclusions(text string) domain.CheckResult {
	for _, term := range definitiveTerms {
		if strings.Contains(text, term) {
			return warn("NO_DEFINITIVE_CONCLUSIONS", domain.SeverityMinor,
				fmt.Sprintf("Definitive conclusion language found: %q.", term))
		}
	}
	return pass("NO_DEFINITIVE_CONCLUSIONS", domain.SeverityMinor, "No definitive conclusion language.")
}

func countTerms(text string, terms []string) int {
	n := 0
	for _, t := range terms {
		if strings.Contains(text, t) {
			n++
		}
	}
	return n
}

func pass(check, severity, detail string) domain.CheckResult {
	return domain.CheckResult{Check: check, Status: domain.CheckPass, Severity: severity, Detail: detail}
}

func warn(check, severity, detail string) domain.CheckResult {
	return domain.CheckResult{Check: check, Status: domain.CheckWarn, Severity: severity, Detail: detail}
}

func fail(check, severity, detail string) domain.CheckResult {
	return domain.CheckResult{Check: check, Status: domain.CheckFail, Severity: severity, Detail: detail}
}
