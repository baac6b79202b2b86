package enrich

import (
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

func txn(id, date, txnType, direction string, amount float64) domain.Transaction {
	d, _ := time.Parse("2006-01-02", date)
	return domain.Transaction{
		ID:        id,
		Date:      domain.At(d),
		Type:      txnType,
		Amount:    amount,
		Currency:  "USD",
		Channel:   "online",
		Direction: direction,
	}
}

func TestSanitize(t *testing.T) {
	t.Run("ValidTransactionsPass", func(t *testing.T) {
		txns := []domain.Transaction{
			txn("T1", "2025-01-10", "deposit", "inbound", 1000),
			txn("T2", "2025-01-11", "withdrawal", "outbound", 500),
		}

		res := Sanitize(txns)

		if len(res.Transactions) != 2 {
			t.Errorf("expected 2 transactions, got %d", len(res.Transactions))
		}
		if res.Duplicates != 0 || res.Quarantined != 0 {
			t.Errorf("expected no duplicates or quarantined, got %d/%d", res.Duplicates, res.Quarantined)
		}
	})

	t.Run("QuarantinesMalformedRecords", func(t *testing.T) {
		noID := txn("", "2025-01-10", "deposit", "inbound", 1000)
		zeroDate := domain.Transaction{ID: "T2", Amount: 100, Direction: "inbound"}
		negative := txn("T3", "2025-01-12", "deposit", "inbound", -50)

		res := Sanitize([]domain.Transaction{noID, zeroDate, negative})

		if len(res.Transactions) != 0 {
			t.Errorf("expected 0 transactions, got %d", len(res.Transactions))
		}
		if res.Quarantined != 3 {
			t.Errorf("expected 3 quarantined, got %d", res.Quarantined)
		}
	})

	t.Run("RemovesDuplicatesFirstWins", func(t *testing.T) {
		txns := []domain.Transaction{
			txn("T1", "2025-01-10", "deposit", "inbound", 1000),
			txn("T1", "2025-01-11", "deposit", "inbound", 2000),
			txn("T2", "2025-01-12", "withdrawal", "outbound", 500),
		}

		res := Sanitize(txns)

		if len(res.Transactions) != 2 {
			t.Fatalf("expected 2 transactions, got %d", len(res.Transactions))
		}
		if res.Duplicates != 1 {
			t.Errorf("expected 1 duplicate, got %d", res.Duplicates)
		}
		if res.Transactions[0].Amount != 1000 {
			t.Errorf("expected first occurrence to win, got amount %.0f", res.Transactions[0].Amount)
		}
	})

	t.Run("PreservesInputOrder", func(t *testing.T) {
		txns := []domain.Transaction{
			txn("T3", "2025-03-01", "deposit", "inbound", 1),
			txn("T1", "2025-01-01", "deposit", "inbound", 1),
			txn("T2", "2025-02-01", "deposit", "inbound", 1),
		}

		res := Sanitize(txns)

		want := []string{"T3", "T1", "T2"}
		for i, id := range want {
			if res.Transactions[i].ID != id {
				t.Errorf("position %d: expected %s, got %s", i, id, res.Transactions[i].ID)
			}
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		res := Sanitize(nil)
		if len(res.Transactions) != 0 {
			t.Errorf("expected empty result, got %d", len(res.Transactions))
		}
	})
}

func TestSanitizeIdempotent(t *testing.T) {
	input := []domain.Transaction{
		txn("T1", "2025-01-10", "deposit", "inbound", 1000),
		txn("T1", "2025-01-11", "deposit", "inbound", 2000),
		txn("", "2025-01-12", "deposit", "inbound", 300),
		txn("T2", "2025-01-13", "withdrawal", "outbound", 500),
		{ID: "T3", Amount: 100, Direction: "inbound"},
	}

	first := Sanitize(input)
	second := Sanitize(first.Transactions)

	if second.Duplicates != 0 || second.Quarantined != 0 {
		t.Errorf("expected a clean second pass, got %d duplicates / %d quarantined",
			second.Duplicates, second.Quarantined)
	}
	if len(second.Transactions) != len(first.Transactions) {
		t.Fatalf("expected %d transactions, got %d", len(first.Transactions), len(second.Transactions))
	}
	for i := range first.Transactions {
		if second.Transactions[i].ID != first.Transactions[i].ID {
			t.Errorf("order changed at %d: %s vs %s", i, second.Transactions[i].ID, first.Transactions[i].ID)
		}
	}
}

func TestComputeBaseline(t *testing.T) {
	alertAt, _ := time.Parse("2006-01-02", "2025-06-15")

	t.Run("AveragesOverDistinctMonths", func(t *testing.T) {
		txns := []domain.Transaction{
			txn("T1", "2025-01-10", "deposit", "inbound", 1000),
			txn("T2", "2025-01-20", "withdrawal", "outbound", 500),
			txn("T3", "2025-02-05", "deposit", "inbound", 2000),
		}

		b := ComputeBaseline(txns, alertAt)

		if b.AvgMonthlyInflow != 1500 {
			t.Errorf("expected avg inflow 1500, got %.2f", b.AvgMonthlyInflow)
		}
		if b.AvgMonthlyOutflow != 250 {
			t.Errorf("expected avg outflow 250, got %.2f", b.AvgMonthlyOutflow)
		}
		if b.AvgMonthlyTxnCount != 1 {
			t.Errorf("expected avg txn count 1, got %d", b.AvgMonthlyTxnCount)
		}
		if b.MaxSingleTxn != 2000 {
			t.Errorf("expected max single txn 2000, got %.2f", b.MaxSingleTxn)
		}
		if b.BaselinePeriod != "2025-01-10 to 2025-02-05" {
			t.Errorf("unexpected baseline period: %s", b.BaselinePeriod)
		}
	})

	t.Run("ExcludesAlertMonth", func(t *testing.T) {
		txns := []domain.Transaction{
			txn("T1", "2025-05-10", "deposit", "inbound", 1000),
			txn("T2", "2025-06-01", "deposit", "inbound", 99999),
		}

		b := ComputeBaseline(txns, alertAt)

		if b.AvgMonthlyInflow != 1000 {
			t.Errorf("expected alert-month txn excluded, got avg inflow %.2f", b.AvgMonthlyInflow)
		}
	})

	t.Run("CollectsUsualEntities", func(t *testing.T) {
		t1 := txn("T1", "2025-01-10", "wire_in", "inbound", 1000)
		t1.CounterpartyName = "Acme Corp"
		t1.CounterpartyCountry = "US"
		t1.Channel = "wire"
		t2 := txn("T2", "2025-02-10", "deposit", "inbound", 500)
		t2.CounterpartyName = "Globex LLC"
		t2.Channel = "branch"

		b := ComputeBaseline([]domain.Transaction{t1, t2}, alertAt)

		if len(b.UsualCounterparties) != 2 || b.UsualCounterparties[0] != "Acme Corp" {
			t.Errorf("unexpected counterparties: %v", b.UsualCounterparties)
		}
		if len(b.UsualGeographies) != 1 || b.UsualGeographies[0] != "US" {
			t.Errorf("unexpected geographies: %v", b.UsualGeographies)
		}
		if len(b.UsualChannels) != 2 {
			t.Errorf("unexpected channels: %v", b.UsualChannels)
		}
	})

	t.Run("NoBaselineData", func(t *testing.T) {
		txns := []domain.Transaction{
			txn("T1", "2025-06-10", "deposit", "inbound", 1000),
		}

		b := ComputeBaseline(txns, alertAt)

		if b.BaselinePeriod != domain.NoBaselineData {
			t.Errorf("expected %q, got %q", domain.NoBaselineData, b.BaselinePeriod)
		}
		if b.AvgMonthlyInflow != 0 || b.AvgMonthlyTxnCount != 0 {
			t.Error("expected zero-valued baseline")
		}
		if b.UsualCounterparties == nil {
			t.Error("expected empty slice, not nil")
		}
	})
}

func TestAnalyzeDeviation(t *testing.T) {
	baseline := domain.BehavioralBaseline{
		AvgMonthlyInflow:    1500,
		AvgMonthlyOutflow:   250,
		AvgMonthlyTxnCount:  30,
		UsualCounterparties: []string{"Acme Corp"},
		UsualGeographies:    []string{"US"},
		UsualChannels:       []string{"online"},
		BaselinePeriod:      "2025-01-01 to 2025-05-31",
	}

	t.Run("VolumeDeviationFactor", func(t *testing.T) {
		f1 := txn("F1", "2025-06-10", "deposit", "inbound", 3000)
		f2 := txn("F2", "2025-06-11", "deposit", "inbound", 3000)
		f3 := txn("F3", "2025-06-12", "withdrawal", "outbound", 1000)

		a := AnalyzeDeviation([]domain.Transaction{f1, f2, f3}, baseline, []string{"F1", "F2", "F3"})

		if a.FlaggedTxnCount != 3 {
			t.Errorf("expected 3 flagged, got %d", a.FlaggedTxnCount)
		}
		if a.FlaggedInflow != 6000 {
			t.Errorf("expected inflow 6000, got %.2f", a.FlaggedInflow)
		}
		if a.FlaggedOutflow != 1000 {
			t.Errorf("expected outflow 1000, got %.2f", a.FlaggedOutflow)
		}
		// 7000 / (1500 + 250) = 4.0
		if a.VolumeDeviationFactor != 4.0 {
			t.Errorf("expected deviation factor 4.0, got %.1f", a.VolumeDeviationFactor)
		}
		if !strings.Contains(a.DeviationSummary, "Volume is 4.0x baseline") {
			t.Errorf("unexpected summary: %s", a.DeviationSummary)
		}
	})

	t.Run("SentinelWhenNoBaseline", func(t *testing.T) {
		empty := domain.BehavioralBaseline{BaselinePeriod: domain.NoBaselineData}
		f1 := txn("F1", "2025-06-10", "deposit", "inbound", 5000)

		a := AnalyzeDeviation([]domain.Transaction{f1}, empty, []string{"F1"})

		if a.VolumeDeviationFactor != domain.VolumeDeviationSentinel {
			t.Errorf("expected sentinel %.1f, got %.1f", domain.VolumeDeviationSentinel, a.VolumeDeviationFactor)
		}
	})

	t.Run("ZeroWhenNothingFlagged", func(t *testing.T) {
		a := AnalyzeDeviation(nil, baseline, []string{"MISSING"})

		if a.VolumeDeviationFactor != 0.0 {
			t.Errorf("expected factor 0.0, got %.1f", a.VolumeDeviationFactor)
		}
		if a.DeviationSummary != "No significant deviation" {
			t.Errorf("unexpected summary: %s", a.DeviationSummary)
		}
	})

	t.Run("NewEntities", func(t *testing.T) {
		f1 := txn("F1", "2025-06-10", "wire_out", "outbound", 9000)
		f1.CounterpartyName = "Offshore Holdings Ltd"
		f1.CounterpartyCountry = "KY"
		f1.Channel = "wire"

		a := AnalyzeDeviation([]domain.Transaction{f1}, baseline, []string{"F1"})

		if a.NewCounterpartiesCount != 1 {
			t.Errorf("expected 1 new counterparty, got %d", a.NewCounterpartiesCount)
		}
		if len(a.NewGeographies) != 1 || a.NewGeographies[0] != "KY" {
			t.Errorf("unexpected new geographies: %v", a.NewGeographies)
		}
		if len(a.NewChannels) != 1 || a.NewChannels[0] != "wire" {
			t.Errorf("unexpected new channels: %v", a.NewChannels)
		}
	})

	t.Run("VelocitySpike", func(t *testing.T) {
		var txns []domain.Transaction
		var ids []string
		for _, id := range []string{"F1", "F2", "F3", "F4", "F5", "F6"} {
			txns = append(txns, txn(id, "2025-06-10", "cash_deposit", "inbound", 9000))
			ids = append(ids, id)
		}

		low := baseline
		low.AvgMonthlyTxnCount = 10

		a := AnalyzeDeviation(txns, low, ids)

		if !a.VelocitySpike {
			t.Error("expected velocity spike for 6 transactions in one day against a 10/month baseline")
		}
		if !strings.Contains(a.DeviationSummary, "velocity spike") {
			t.Errorf("expected spike in summary: %s", a.DeviationSummary)
		}
	})

	t.Run("NoSpikeOnSmallSample", func(t *testing.T) {
		// 3 flagged is above the rate threshold but below the absolute floor.
		var txns []domain.Transaction
		var ids []string
		for _, id := range []string{"F1", "F2", "F3"} {
			txns = append(txns, txn(id, "2025-06-10", "cash_deposit", "inbound", 9000))
			ids = append(ids, id)
		}

		low := baseline
		low.AvgMonthlyTxnCount = 1

		a := AnalyzeDeviation(txns, low, ids)

		if a.VelocitySpike {
			t.Error("expected no spike below the 5-transaction floor")
		}
	})
}

func TestAggregateRisk(t *testing.T) {
	t.Run("EmptyCase", func(t *testing.T) {
		c := &domain.CaseInput{}

		score, factors := AggregateRisk(c)

		if score != 0 {
			t.Errorf("expected score 0, got %.2f", score)
		}
		if len(factors) != 0 {
			t.Errorf("expected no factors, got %d", len(factors))
		}
	})

	t.Run("SignalWeights", func(t *testing.T) {
		tests := []struct {
			name  string
			c     *domain.CaseInput
			score float64
		}{
			{
				name: "Sanctions",
				c: &domain.CaseInput{RiskIntelligence: &domain.RiskIntelligence{
					SanctionsHits: []string{"OFAC SDN"},
				}},
				score: 40,
			},
			{
				name: "PEP",
				c: &domain.CaseInput{RiskIntelligence: &domain.RiskIntelligence{
					PEPStatus: true,
				}},
				score: 15,
			},
			{
				name: "AdverseMedia",
				c: &domain.CaseInput{RiskIntelligence: &domain.RiskIntelligence{
					AdverseMediaHits: []string{"fraud investigation article"},
				}},
				score: 10,
			},
			{
				name: "PriorSARs",
				c: &domain.CaseInput{RiskIntelligence: &domain.RiskIntelligence{
					PriorSARs: []domain.PriorSAR{{DCN: "SAR-2024-001", FiledDate: "2024-03-01"}},
				}},
				score: 20,
			},
			{
				name: "LawEnforcement",
				c: &domain.CaseInput{RiskIntelligence: &domain.RiskIntelligence{
					LawEnforcementRequests: 1,
				}},
				score: 15,
			},
			{
				name: "InternalReferral",
				c: &domain.CaseInput{RiskIntelligence: &domain.RiskIntelligence{
					InternalReferrals: []string{"branch referral"},
				}},
				score: 10,
			},
			{
				name: "CreditDeterioration",
				c: &domain.CaseInput{CreditProfile: &domain.CreditProfile{
					PaymentHistory: "delinquent",
				}},
				score: 5,
			},
			{
				name: "HighUtilization",
				c: &domain.CaseInput{CreditProfile: &domain.CreditProfile{
					PaymentHistory:        "current",
					CreditCardUtilization: 0.92,
				}},
				score: 3,
			},
			{
				name:  "InvestigatorNotes",
				c:     &domain.CaseInput{InvestigatorNotes: "customer evasive about source of funds"},
				score: 5,
			},
			{
				name: "HighRiskCustomer",
				c: &domain.CaseInput{CustomerProfile: domain.CustomerProfile{
					RiskRating: "High",
				}},
				score: 8,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				score, factors := AggregateRisk(tt.c)
				if score != tt.score {
					t.Errorf("expected score %.2f, got %.2f", tt.score, score)
				}
				if len(factors) != 1 {
					t.Errorf("expected 1 factor, got %d", len(factors))
				}
			})
		}
	})

	t.Run("AlertScoreContribution", func(t *testing.T) {
		c := &domain.CaseInput{}
		c.Alert.RiskScore = 60

		score, factors := AggregateRisk(c)

		if score != 9 {
			t.Errorf("expected score 9 (60 * 0.15), got %.2f", score)
		}
		// Alert score contribution carries no itemized factor
		if len(factors) != 0 {
			t.Errorf("expected no factors, got %d", len(factors))
		}
	})

	t.Run("ClampsAt100", func(t *testing.T) {
		c := &domain.CaseInput{
			RiskIntelligence: &domain.RiskIntelligence{
				SanctionsHits:          []string{"hit"},
				PEPStatus:              true,
				AdverseMediaHits:       []string{"hit"},
				PriorSARs:              []domain.PriorSAR{{DCN: "SAR-1"}},
				LawEnforcementRequests: 2,
				InternalReferrals:      []string{"referral"},
			},
			InvestigatorNotes: "notes",
		}
		c.Alert.RiskScore = 90
		c.CustomerProfile.RiskRating = "High"

		score, _ := AggregateRisk(c)

		if score != 100 {
			t.Errorf("expected clamped score 100, got %.2f", score)
		}
	})
}

func TestBuildDossier(t *testing.T) {
	alertAt, _ := time.Parse("2006-01-02", "2025-06-15")

	c := &domain.CaseInput{
		Alert: domain.RawAlert{
			AlertID:               "ALT-001",
			AlertType:             "structuring",
			CustomerID:            "CUST-001",
			AccountIDs:            []string{"ACC-001"},
			FlaggedTransactionIDs: []string{"T4"},
			GeneratedAt:           alertAt,
		},
		CustomerProfile: domain.CustomerProfile{
			CustomerID: "CUST-001",
			Name:       "Jordan Reyes",
		},
		TransactionHistory: []domain.Transaction{
			txn("T1", "2025-01-10", "deposit", "inbound", 1000),
			txn("T1", "2025-01-10", "deposit", "inbound", 1000), // duplicate
			{ID: "T3", Amount: 100, Direction: "inbound"},       // zero date
			txn("T4", "2025-06-10", "cash_deposit", "inbound", 9000),
		},
		RiskIntelligence: &domain.RiskIntelligence{
			PriorSARs: []domain.PriorSAR{{DCN: "SAR-2024-001"}},
		},
	}

	d := BuildDossier(c)

	if d.UnifiedAlertID != "ALT-001" {
		t.Errorf("expected alert ID ALT-001, got %s", d.UnifiedAlertID)
	}
	if d.CustomerName != "Jordan Reyes" {
		t.Errorf("expected customer name, got %s", d.CustomerName)
	}
	if d.Jurisdiction != "US" {
		t.Errorf("expected default jurisdiction US, got %s", d.Jurisdiction)
	}
	if d.TransactionsValidated != 2 {
		t.Errorf("expected 2 validated, got %d", d.TransactionsValidated)
	}
	if d.DuplicatesRemoved != 1 {
		t.Errorf("expected 1 duplicate removed, got %d", d.DuplicatesRemoved)
	}
	if d.TransactionsQuarantined != 1 {
		t.Errorf("expected 1 quarantined, got %d", d.TransactionsQuarantined)
	}
	// 100 * 2 / 4
	if d.DataQualityScore != 50 {
		t.Errorf("expected data quality 50, got %.2f", d.DataQualityScore)
	}
	if !d.HasPriorSARs || d.PriorSARCount != 1 {
		t.Errorf("expected prior SAR flags set, got %v/%d", d.HasPriorSARs, d.PriorSARCount)
	}
	if d.DeviationAnalysis.FlaggedTxnCount != 1 {
		t.Errorf("expected 1 flagged, got %d", d.DeviationAnalysis.FlaggedTxnCount)
	}
	if len(d.SourcesConsulted) != 5 {
		t.Errorf("expected 5 sources consulted, got %d", len(d.SourcesConsulted))
	}
	if d.EnrichmentTimestamp.IsZero() {
		t.Error("expected enrichment timestamp to be set")
	}
}
