package narrative

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/opensource-finance/harrier/internal/domain"
)

const systemPrompt = `You are an expert BSA/AML compliance analyst drafting a SAR narrative. Follow FinCEN guidelines strictly.
Use the 5W+How framework. Write in formal regulatory language.
Every claim must be supported by the evidence provided.
Do NOT conclude that money laundering has occurred - describe why the activity APPEARS suspicious.
Use specific dollar amounts, dates, and transaction counts.
Structure the narrative with these sections:

SUBJECT INFORMATION
SUMMARY OF SUSPICIOUS ACTIVITY
DETAILED TRANSACTION ANALYSIS
FLOW OF FUNDS
SUSPICION RATIONALE
PRIOR HISTORY (if applicable)
ACTIONS TAKEN`

// Section headers recognized when parsing the model's response.
var sectionHeaders = map[string]bool{
	domain.SectionSubject:           true,
	domain.SectionSummary:           true,
	"DETAILED TRANSACTION ANALYSIS": true,
	"FLOW OF FUNDS":                 true,
	domain.SectionRationale:         true,
	"PRIOR HISTORY":                 true,
	domain.SectionActions:           true,
}

// AnthropicGenerator drafts narratives through the Anthropic Messages API.
type AnthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

// NewAnthropicGenerator creates a generator from the narrative config.
func NewAnthropicGenerator(cfg domain.NarrativeConfig) *AnthropicGenerator {
	return &AnthropicGenerator{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
		timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
	}
}

// Generate calls the model with the evidence package and regulatory guidance
// and parses the response into a draft. Errors propagate to the caller,
// which falls back to the template generator.
func (g *AnthropicGenerator) Generate(ctx context.Context, req *Request) (*domain.DraftNarrative, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	userPrompt := "REGULATORY GUIDANCE:\n" + strings.Join(req.Guidance, "\n\n") +
		"\n\nEVIDENCE PACKAGE:\n" + req.EvidenceSummary +
		"\n\nGenerate a complete SAR narrative for this case. Be specific with all amounts, dates, and counts."

	hash := sha256.Sum256([]byte(systemPrompt + userPrompt))

	message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("narrative generation failed: %w", err)
	}

	var fullText string
	for _, block := range message.Content {
		if block.Type == "text" {
			fullText = block.Text
			break
		}
	}
	if fullText == "" {
		return nil, fmt.Errorf("no text content in model response")
	}

	typology := "Suspicious Activity"
	if req.Typology != nil {
		typology = req.Typology.PrimaryTypology
	}

	return &domain.DraftNarrative{
		CaseID:             req.Case.Alert.AlertID,
		Title:              fmt.Sprintf("SAR - %s - %s", typology, req.Case.CustomerProfile.Name),
		FilingType:         filingType(req.Case),
		FullNarrative:      fullText,
		Sections:           parseSections(fullText),
		WordCount:          len(strings.Fields(fullText)),
		GenerationModel:    g.model,
		GenerationTime:     time.Now().UTC(),
		PromptHash:         hex.EncodeToString(hash[:]),
		GuidanceChunksUsed: len(req.Guidance),
	}, nil
}

// parseSections splits the response on recognized uppercase header lines.
// Text before the first header is dropped.
func parseSections(text string) []domain.NarrativeSection {
	var sections []domain.NarrativeSection
	current := ""
	var buffer []string

	flush := func() {
		if current != "" {
			sections = append(sections, domain.NarrativeSection{
				SectionName: current,
				Content:     strings.TrimSpace(strings.Join(buffer, "\n")),
			})
		}
	}

	for _, line := range strings.Split(text, "\n") {
		upper := strings.ToUpper(strings.TrimSpace(line))
		if sectionHeaders[upper] {
			flush()
			current = upper
			buffer = buffer[:0]
			continue
		}
		buffer = append(buffer, line)
	}
	flush()
	return sections
}
