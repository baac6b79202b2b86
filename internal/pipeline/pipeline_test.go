package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/cache"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/guidance"
	"github.com/opensource-finance/harrier/internal/triage"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()

	engine, err := triage.NewEngine()
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if err := engine.LoadRules(triage.BuiltinRules()); err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	retriever := guidance.NewCachedRetriever(
		guidance.NewStaticRetriever(),
		cache.NewLRUCache(100),
		60,
		logger,
	)

	cfg := domain.PipelineConfig{Version: "harrier-1.0", GuidanceTTLSecs: 60}
	return New(cfg, engine, nil, retriever, logger)
}

func pipelineTxn(id, date, txnType, direction string, amount float64) domain.Transaction {
	d, _ := time.Parse("2006-01-02", date)
	return domain.Transaction{
		ID:        id,
		Date:      domain.At(d),
		Type:      txnType,
		Amount:    amount,
		Currency:  "USD",
		Channel:   "branch",
		Direction: direction,
	}
}

// sanctionedStructuringCase is a confirmed-suspicious case: a sanctions hit
// plus a structuring pattern against a modest baseline.
func sanctionedStructuringCase() *domain.CaseInput {
	alertAt, _ := time.Parse("2006-01-02", "2025-06-15")

	c := &domain.CaseInput{
		CustomerProfile: domain.CustomerProfile{
			CustomerID:        "CUST-100",
			Name:              "Dana Whitfield",
			Occupation:        "Consultant",
			Employer:          "Whitfield Advisory",
			AnnualIncome:      60000,
			AccountOpenedDate: "2021-03-15",
		},
		RiskIntelligence: &domain.RiskIntelligence{
			SanctionsHits: []string{"OFAC SDN partial match"},
		},
	}
	c.Alert = domain.RawAlert{
		AlertID:               "ALT-100",
		SourceSystem:          "tms",
		AlertType:             "structuring",
		TriggeredRule:         "CASH-AGG-01",
		CustomerID:            "CUST-100",
		AccountIDs:            []string{"ACC-100"},
		FlaggedTransactionIDs: []string{"F1", "F2", "F3"},
		RiskScore:             75,
		GeneratedAt:           alertAt,
	}

	// Five months of quiet baseline activity.
	for i := 1; i <= 5; i++ {
		c.TransactionHistory = append(c.TransactionHistory,
			pipelineTxn(fmt.Sprintf("B%d", i), fmt.Sprintf("2025-0%d-10", i), "deposit", "inbound", 5000))
	}

	f1 := pipelineTxn("F1", "2025-06-02", "cash_deposit", "inbound", 9500)
	f2 := pipelineTxn("F2", "2025-06-05", "cash_deposit", "inbound", 9400)
	f3 := pipelineTxn("F3", "2025-06-09", "wire_out", "outbound", 18000)
	f3.CounterpartyName = "Meridian Trade Ltd"
	f3.CounterpartyCountry = "KY"
	c.TransactionHistory = append(c.TransactionHistory, f1, f2, f3)

	return c
}

func TestPipelineTruePositive(t *testing.T) {
	p := newTestPipeline(t)
	c := sanctionedStructuringCase()

	out, err := p.Run(context.Background(), "tenant-001", c)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	t.Run("Classification", func(t *testing.T) {
		if out.Classification != domain.TruePositive {
			t.Errorf("expected TRUE_POSITIVE, got %s", out.Classification)
		}
		want := "Matched hard triage rule SANC-001. Primary typology: Structuring with Layering."
		if out.Explanation != want {
			t.Errorf("unexpected explanation: %s", out.Explanation)
		}
		if out.CaseID != "ALT-100" {
			t.Errorf("expected case ALT-100, got %s", out.CaseID)
		}
	})

	t.Run("Typology", func(t *testing.T) {
		if out.Typology != triage.TypologyStructuring {
			t.Errorf("expected %q, got %q", triage.TypologyStructuring, out.Typology)
		}
	})

	t.Run("Narrative", func(t *testing.T) {
		if out.Narrative == nil {
			t.Fatal("expected a narrative")
		}
		if out.Narrative.GenerationModel != "template-fallback" {
			t.Errorf("unexpected model: %s", out.Narrative.GenerationModel)
		}
		if !strings.Contains(out.Narrative.FullNarrative, "Dana Whitfield") {
			t.Error("narrative does not name the subject")
		}
		if out.Narrative.FilingType != "initial" {
			t.Errorf("expected initial filing, got %s", out.Narrative.FilingType)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		if out.Validation == nil {
			t.Fatal("expected a validation result")
		}
		if out.Validation.OverallStatus != domain.CheckPass {
			t.Errorf("expected template narrative to pass validation, got %s: %+v",
				out.Validation.OverallStatus, out.Validation.Checks)
		}
	})

	t.Run("AuditPackage", func(t *testing.T) {
		if out.Audit == nil {
			t.Fatal("expected an audit package")
		}
		if out.Audit.PipelineVersion != "harrier-1.0" {
			t.Errorf("unexpected pipeline version: %s", out.Audit.PipelineVersion)
		}
		if len(out.Audit.Traceability) == 0 {
			t.Error("expected traceability entries")
		}
		for _, entry := range out.Audit.Traceability {
			if entry.TypologyBasis != triage.TypologyStructuring {
				t.Errorf("unexpected typology basis: %s", entry.TypologyBasis)
				break
			}
		}
		if out.Audit.Logs.Ingestion.TransactionsValidated != 8 {
			t.Errorf("expected 8 validated transactions, got %d", out.Audit.Logs.Ingestion.TransactionsValidated)
		}
		if out.Audit.Logs.Triage.RuleMatched != "SANC-001" {
			t.Errorf("expected SANC-001 in triage log, got %s", out.Audit.Logs.Triage.RuleMatched)
		}
		if out.Audit.Logs.Generation.Model != "template-fallback" {
			t.Errorf("unexpected generation log model: %s", out.Audit.Logs.Generation.Model)
		}
	})
}

// TestPipelineStructuringEndToEnd confirms a case with no prior filings and
// no rule match still resolves TRUE_POSITIVE on the composite path: 47 cash
// deposits over eight days plus a large international wire against a quiet
// six-month baseline.
func TestPipelineStructuringEndToEnd(t *testing.T) {
	p := newTestPipeline(t)

	alertAt, _ := time.Parse("2006-01-02", "2025-09-20")

	c := &domain.CaseInput{
		CustomerProfile: domain.CustomerProfile{
			CustomerID:        "CUST-500",
			Name:              "Noor Haddad",
			Occupation:        "Importer",
			AnnualIncome:      150000,
			AccountOpenedDate: "2019-05-20",
		},
	}
	c.Alert = domain.RawAlert{
		AlertID:     "ALT-500",
		AlertType:   "structuring",
		CustomerID:  "CUST-500",
		RiskScore:   80,
		GeneratedAt: alertAt,
	}

	// Six quiet baseline months averaging 500K/month of inbound volume.
	for m := 3; m <= 8; m++ {
		for i := 1; i <= 5; i++ {
			c.TransactionHistory = append(c.TransactionHistory,
				pipelineTxn(fmt.Sprintf("B%d-%d", m, i), fmt.Sprintf("2025-0%d-10", m), "deposit", "inbound", 100000))
		}
	}

	// 47 flagged cash deposits across eight days, each from a previously
	// unseen counterparty, then one large outbound wire to the UAE.
	for i := 1; i <= 47; i++ {
		id := fmt.Sprintf("F%02d", i)
		d := pipelineTxn(id, fmt.Sprintf("2025-09-%02d", 1+(i-1)%8), "cash_deposit", "inbound", float64(80000+(i%6)*10000))
		d.CounterpartyName = fmt.Sprintf("Vendor %02d", i)
		c.TransactionHistory = append(c.TransactionHistory, d)
		c.Alert.FlaggedTransactionIDs = append(c.Alert.FlaggedTransactionIDs, id)
	}
	wire := pipelineTxn("W1", "2025-09-09", "wire_out", "outbound", 4600000)
	wire.CounterpartyName = "Gulf Holdings FZE"
	wire.CounterpartyCountry = "AE"
	c.TransactionHistory = append(c.TransactionHistory, wire)
	c.Alert.FlaggedTransactionIDs = append(c.Alert.FlaggedTransactionIDs, "W1")

	out, err := p.Run(context.Background(), "tenant-001", c)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if out.Classification != domain.TruePositive {
		t.Fatalf("expected TRUE_POSITIVE, got %s: %s", out.Classification, out.Explanation)
	}
	if !strings.HasPrefix(out.Explanation, "High composite risk score (") {
		t.Errorf("expected a composite-path explanation, got %s", out.Explanation)
	}
	if !strings.Contains(out.Explanation, "Primary typology: Structuring with Layering.") {
		t.Errorf("expected the primary typology in the explanation, got %s", out.Explanation)
	}
	if out.CompositeRiskScore < 60 {
		t.Errorf("expected composite score >= 60, got %.2f", out.CompositeRiskScore)
	}
	if out.Typology != triage.TypologyStructuring {
		t.Errorf("expected %q, got %q", triage.TypologyStructuring, out.Typology)
	}

	dev := out.Audit.Logs.Enrichment.DeviationAnalysis
	if dev.VolumeDeviationFactor <= 8 {
		t.Errorf("expected volume deviation factor > 8, got %.1f", dev.VolumeDeviationFactor)
	}
	if dev.NewCounterpartiesCount <= 10 {
		t.Errorf("expected more than 10 new counterparties, got %d", dev.NewCounterpartiesCount)
	}
	if !dev.VelocitySpike {
		t.Error("expected a velocity spike")
	}
	if out.Audit.Logs.Triage.RuleMatched != "" {
		t.Errorf("expected no rule match on the composite path, got %s", out.Audit.Logs.Triage.RuleMatched)
	}
	if out.Narrative == nil || out.Validation == nil {
		t.Fatal("expected a narrative and validation result")
	}
}

func TestPipelineSalaryException(t *testing.T) {
	p := newTestPipeline(t)

	alertAt, _ := time.Parse("2006-01-02", "2025-06-15")
	flagged := pipelineTxn("F1", "2025-06-01", "ach_in", "inbound", 12000)
	flagged.CounterpartyName = "Initech Payroll Services"
	flagged.Memo = "Annual bonus payment"

	prior := pipelineTxn("T1", "2025-05-01", "ach_in", "inbound", 4000)
	prior.CounterpartyName = "Initech Payroll Services"

	c := &domain.CaseInput{
		CustomerProfile: domain.CustomerProfile{
			CustomerID: "CUST-200",
			Name:       "Sam Okafor",
			Employer:   "Initech",
		},
		TransactionHistory: []domain.Transaction{prior, flagged},
	}
	c.Alert = domain.RawAlert{
		AlertID:               "ALT-200",
		AlertType:             "velocity_anomaly",
		CustomerID:            "CUST-200",
		FlaggedTransactionIDs: []string{"F1"},
		RiskScore:             55,
		GeneratedAt:           alertAt,
	}

	out, err := p.Run(context.Background(), "tenant-001", c)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if out.Classification != domain.FalsePositive {
		t.Errorf("expected FALSE_POSITIVE, got %s", out.Classification)
	}
	if out.Explanation != "Matched hard triage rule SAL-001." {
		t.Errorf("unexpected explanation: %s", out.Explanation)
	}
	if out.Narrative != nil || out.Validation != nil || out.Audit != nil {
		t.Error("expected a terse exit with no narrative, validation, or audit package")
	}
	if out.Typology != "" {
		t.Errorf("expected no typology on exit, got %s", out.Typology)
	}
}

func TestPipelineSeasonalException(t *testing.T) {
	p := newTestPipeline(t)

	alertAt, _ := time.Parse("2006-01-02", "2025-11-20")

	c := &domain.CaseInput{
		CustomerProfile: domain.CustomerProfile{
			CustomerID: "CUST-300",
			Name:       "Riley Tanaka",
			Occupation: "Retailer",
		},
	}
	c.Alert = domain.RawAlert{
		AlertID:               "ALT-300",
		AlertType:             "velocity_anomaly",
		CustomerID:            "CUST-300",
		FlaggedTransactionIDs: []string{"F1", "F2", "F3"},
		GeneratedAt:           alertAt,
	}

	// Last year's holiday season: 25 inbound deposits in November.
	for i := 1; i <= 25; i++ {
		c.TransactionHistory = append(c.TransactionHistory,
			pipelineTxn(fmt.Sprintf("P%02d", i), "2024-11-15", "deposit", "inbound", 1000))
	}
	// Quiet months between the two seasons dilute the baseline average.
	for i := 1; i <= 9; i++ {
		c.TransactionHistory = append(c.TransactionHistory,
			pipelineTxn(fmt.Sprintf("Q%02d", i), fmt.Sprintf("2025-0%d-10", i), "deposit", "inbound", 1000))
	}
	// This year's flagged season grows 1.2x, inside the seasonal band.
	for i, id := range []string{"F1", "F2", "F3"} {
		c.TransactionHistory = append(c.TransactionHistory,
			pipelineTxn(id, fmt.Sprintf("2025-11-%02d", 5+i), "deposit", "inbound", 10000))
	}

	out, err := p.Run(context.Background(), "tenant-001", c)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if out.Classification != domain.FalsePositive {
		t.Errorf("expected FALSE_POSITIVE, got %s", out.Classification)
	}
	if out.Explanation != "Matched hard triage rule SEAS-001." {
		t.Errorf("unexpected explanation: %s", out.Explanation)
	}
	if out.Narrative != nil {
		t.Error("expected no narrative for a seasonal exit")
	}
}

func TestPipelineNeedsReview(t *testing.T) {
	p := newTestPipeline(t)

	alertAt, _ := time.Parse("2006-01-02", "2025-06-15")
	c := &domain.CaseInput{
		CustomerProfile: domain.CustomerProfile{
			CustomerID: "CUST-400",
			Name:       "Casey Morgan",
		},
	}
	c.Alert = domain.RawAlert{
		AlertID:     "ALT-400",
		AlertType:   "geographic_risk",
		CustomerID:  "CUST-400",
		RiskScore:   80,
		GeneratedAt: alertAt,
	}

	out, err := p.Run(context.Background(), "tenant-001", c)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if out.Classification != domain.NeedsReview {
		t.Errorf("expected NEEDS_REVIEW, got %s", out.Classification)
	}
	if out.Explanation != "Data inconclusive, manual review required." {
		t.Errorf("unexpected explanation: %s", out.Explanation)
	}
	if out.Narrative != nil || out.Audit != nil {
		t.Error("expected no narrative or audit package for manual review exit")
	}
}
