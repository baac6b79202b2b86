package domain

import "time"

// NarrativeSection is one titled section of a draft narrative.
type NarrativeSection struct {
	SectionName string `json:"section_name"`
	Content     string `json:"content"`
}

// Required narrative section headers. Generators must emit at least these.
const (
	SectionSubject   = "SUBJECT INFORMATION"
	SectionSummary   = "SUMMARY OF SUSPICIOUS ACTIVITY"
	SectionRationale = "SUSPICION RATIONALE"
	SectionActions   = "ACTIONS TAKEN"
)

// DraftNarrative is the externally generated narrative text with its
// generation metadata. Produced by the narrative collaborator or the
// deterministic template fallback.
type DraftNarrative struct {
	CaseID             string             `json:"case_id"`
	Title              string             `json:"title"`
	FilingType         string             `json:"filing_type"` // initial or continuing
	FullNarrative      string             `json:"full_narrative"`
	Sections           []NarrativeSection `json:"sections"`
	WordCount          int                `json:"word_count"`
	GenerationModel    string             `json:"generation_model"`
	GenerationTime     time.Time          `json:"generation_timestamp"`
	PromptHash         string             `json:"prompt_hash"`
	GuidanceChunksUsed int                `json:"guidance_chunks_used"`
}

// CheckStatus is the outcome of a single validation check.
type CheckStatus string

const (
	CheckPass CheckStatus = "PASS"
	CheckWarn CheckStatus = "WARN"
	CheckFail CheckStatus = "FAIL"
)

// Check severities.
const (
	SeverityCritical = "critical"
	SeverityMajor    = "major"
	SeverityMinor    = "minor"
)

// CheckResult is one named completeness check against the narrative.
type CheckResult struct {
	Check    string      `json:"check"`
	Status   CheckStatus `json:"status"`
	Severity string      `json:"severity"`
	Detail   string      `json:"detail"`
}

// ValidationResult is the outcome of the 5 Ws + How completeness battery.
type ValidationResult struct {
	CaseID        string        `json:"case_id"`
	OverallStatus CheckStatus   `json:"overall_status"`
	TotalChecks   int           `json:"total_checks"`
	Passed        int           `json:"passed"`
	Warnings      int           `json:"warnings"`
	Failed        int           `json:"failed"`
	Checks        []CheckResult `json:"checks"`
	ValidatedAt   time.Time     `json:"validation_timestamp"`
}
