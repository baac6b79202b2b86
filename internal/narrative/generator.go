// Package narrative drafts the filing narrative for confirmed-suspicious
// cases: an LLM-backed generator when configured, with a deterministic
// template fallback that keeps the pipeline fully offline-capable.
package narrative

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Request carries everything a generator needs for one case.
type Request struct {
	Case            *domain.CaseInput
	Dossier         *domain.EnrichedDossier
	Decision        *domain.TriageDecision
	Typology        *domain.TypologyAssessment
	EvidenceSummary string
	Guidance        []string
}

// Generator drafts a narrative from the evidence package.
type Generator interface {
	Generate(ctx context.Context, req *Request) (*domain.DraftNarrative, error)
}

// TemplateGenerator is the deterministic fallback. It never errors.
type TemplateGenerator struct{}

// NewTemplateGenerator creates the fallback generator.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// Generate renders the narrative from fixed section templates.
func (g *TemplateGenerator) Generate(_ context.Context, req *Request) (*domain.DraftNarrative, error) {
	c := req.Case
	d := req.Dossier
	stats := computeFlaggedStats(c)

	typology := "Suspicious Activity"
	if req.Typology != nil {
		typology = req.Typology.PrimaryTypology
	}

	sections := []domain.NarrativeSection{
		{
			SectionName: domain.SectionSubject,
			Content:     subjectSection(c),
		},
		{
			SectionName: domain.SectionSummary,
			Content:     summarySection(c, d, typology, stats),
		},
		{
			SectionName: "DETAILED TRANSACTION ANALYSIS",
			Content:     analysisSection(d, stats),
		},
		{
			SectionName: domain.SectionRationale,
			Content:     rationaleSection(c, d),
		},
	}

	if d.HasPriorSARs {
		sections = append(sections, domain.NarrativeSection{
			SectionName: "PRIOR HISTORY",
			Content:     priorHistorySection(c, d),
		})
	}
	sections = append(sections, domain.NarrativeSection{
		SectionName: domain.SectionActions,
		Content: "The account has been placed on enhanced monitoring pending disposition. " +
			"This report was prepared from the consolidated investigation record and reviewed against the " +
			"institution's quality-control checks. A suspicious activity report is being filed with the " +
			"appropriate regulatory jurisdiction, and supporting documentation has been retained at the bank.",
	})

	var parts []string
	for _, s := range sections {
		parts = append(parts, s.SectionName+"\n"+s.Content)
	}
	fullText := strings.Join(parts, "\n\n")

	return &domain.DraftNarrative{
		CaseID:             c.Alert.AlertID,
		Title:              fmt.Sprintf("SAR - %s - %s", typology, c.CustomerProfile.Name),
		FilingType:         filingType(c),
		FullNarrative:      fullText,
		Sections:           sections,
		WordCount:          len(strings.Fields(fullText)),
		GenerationModel:    "template-fallback",
		GenerationTime:     time.Now().UTC(),
		PromptHash:         "N/A",
		GuidanceChunksUsed: 0,
	}, nil
}

func subjectSection(c *domain.CaseInput) string {
	p := c.CustomerProfile
	occupation := p.Occupation
	if occupation == "" {
		occupation = "customer of unknown occupation"
	}
	s := fmt.Sprintf("Subject %s (customer ID %s) is a %s", p.Name, p.CustomerID, occupation)
	if p.Employer != "" {
		s += fmt.Sprintf(" employed by %s", p.Employer)
	}
	s += fmt.Sprintf(". The subject's declared annual income is %s.", formatUSD(p.AnnualIncome))
	if p.AccountOpenedDate != "" {
		s += fmt.Sprintf(" The account was opened on %s.", p.AccountOpenedDate)
	}
	s += fmt.Sprintf(" The relationship is held under the bank's %s jurisdiction.", c.Jurisdiction())
	return s
}

func summarySection(c *domain.CaseInput, d *domain.EnrichedDossier, typology string, stats flaggedStats) string {
	s := fmt.Sprintf("On %s, automated monitoring generated alert %s (%s) against the subject's accounts.",
		c.Alert.GeneratedAt.Format("2006-01-02"), c.Alert.AlertID, c.Alert.AlertType)
	s += fmt.Sprintf(" The investigation identified activity consistent with %s.", typology)
	if stats.FirstDate != "" {
		s += fmt.Sprintf(" Between %s and %s, the flagged activity moved %s in inbound funds and %s in outbound funds",
			stats.FirstDate, stats.LastDate, formatUSD(stats.Inflow), formatUSD(stats.Outflow))
	} else {
		s += fmt.Sprintf(" The flagged activity moved %s in inbound funds and %s in outbound funds",
			formatUSD(stats.Inflow), formatUSD(stats.Outflow))
	}
	s += fmt.Sprintf(", against a baseline average monthly inflow of %s.",
		formatUSD(d.BehavioralBaseline.AvgMonthlyInflow))
	return s
}

func analysisSection(d *domain.EnrichedDossier, stats flaggedStats) string {
	s := fmt.Sprintf("The flagged activity comprises %d transactions.", stats.Count)
	s += fmt.Sprintf(" Inbound deposits and transfers total %s; outbound withdrawals and wire activity total %s.",
		formatUSD(stats.Inflow), formatUSD(stats.Outflow))
	if d.DeviationAnalysis.NewCounterpartiesCount > 0 {
		s += fmt.Sprintf(" %d previously unseen counterparties appeared during the review period.",
			d.DeviationAnalysis.NewCounterpartiesCount)
	}
	if len(stats.Countries) > 0 {
		s += fmt.Sprintf(" Counterparty countries observed: %s.", strings.Join(stats.Countries, ", "))
	}
	s += fmt.Sprintf(" The flagged volume represents a %.1fx deviation from the established baseline.",
		d.DeviationAnalysis.VolumeDeviationFactor)
	return s
}

func rationaleSection(c *domain.CaseInput, d *domain.EnrichedDossier) string {
	s := "The activity appears suspicious because it is inconsistent with the customer's profile and " +
		"established transaction baseline. " + d.DeviationAnalysis.DeviationSummary + "."
	if c.CustomerProfile.AnnualIncome > 0 {
		s += fmt.Sprintf(" The volume of funds moved is inconsistent with the subject's declared annual income of %s.",
			formatUSD(c.CustomerProfile.AnnualIncome))
	}
	s += " Taken together, these deviations are indicators of unusual activity that cannot be explained by " +
		"the subject's known business or personal circumstances, and they warrant a filing."
	return s
}

func priorHistorySection(c *domain.CaseInput, d *domain.EnrichedDossier) string {
	s := fmt.Sprintf("The subject has %d prior suspicious activity report(s) on file", d.PriorSARCount)
	priors := c.Intel().PriorSARs
	if len(priors) > 0 {
		last := priors[len(priors)-1]
		s += fmt.Sprintf(", most recently DCN %s filed %s for %s", last.DCN, last.FiledDate, last.ActivityType)
	}
	s += ". The current filing is designated as continuing activity."
	return s
}

// filingType is continuing when the subject has prior filings, initial
// otherwise.
func filingType(c *domain.CaseInput) string {
	if len(c.Intel().PriorSARs) > 0 {
		return "continuing"
	}
	return "initial"
}
