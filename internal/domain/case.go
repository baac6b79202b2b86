// Package domain defines the core types and interfaces for Harrier.
package domain

import (
	"time"
)

// Transaction is a single record from the customer's transaction history.
// Immutable once ingested.
type Transaction struct {
	ID        string  `json:"txn_id"`
	Date      TxnTime `json:"date"`
	Type      string  `json:"type"` // deposit, withdrawal, wire_in, wire_out, ach_in, ach_out, cash_deposit, cash_withdrawal, internal_transfer
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Channel   string  `json:"channel"`   // branch, online, atm, mobile, wire
	Direction string  `json:"direction"` // inbound or outbound

	CounterpartyName    string `json:"counterparty_name,omitempty"`
	CounterpartyAccount string `json:"counterparty_account,omitempty"`
	CounterpartyBank    string `json:"counterparty_bank,omitempty"`
	CounterpartyCountry string `json:"counterparty_country,omitempty"`

	BranchID string `json:"branch_id,omitempty"`
	Memo     string `json:"memo,omitempty"`
}

// Inbound reports whether the transaction moves funds into the account.
func (t *Transaction) Inbound() bool {
	return t.Direction == "inbound"
}

// TxnTime is a tolerant timestamp. It accepts RFC 3339 values (with or
// without the Z suffix) and bare YYYY-MM-DD dates; anything unparseable
// decodes to the zero time so the sanitizer can quarantine the record
// instead of failing the whole case.
type TxnTime struct {
	time.Time
}

var txnTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *TxnTime) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	for _, layout := range txnTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	t.Time = time.Time{}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t TxnTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + t.Format(time.RFC3339) + `"`), nil
}

// At wraps a time.Time as a TxnTime. Convenience for constructing test data.
func At(ts time.Time) TxnTime {
	return TxnTime{Time: ts}
}

// RawAlert is the automated flag raised against a customer/account.
type RawAlert struct {
	AlertID               string    `json:"alert_id"`
	SourceSystem          string    `json:"source_system"`
	AlertType             string    `json:"alert_type"` // structuring, velocity_anomaly, geographic_risk, counterparty_concentration, dormant_reactivation, round_trip, funnel_account
	TriggeredRule         string    `json:"triggered_rule"`
	CustomerID            string    `json:"customer_id"`
	AccountIDs            []string  `json:"account_ids"`
	FlaggedTransactionIDs []string  `json:"flagged_transaction_ids"`
	RiskScore             float64   `json:"risk_score"` // 0-100 as reported by the source system
	GeneratedAt           time.Time `json:"generated_at"`
	Jurisdiction          string    `json:"jurisdiction,omitempty"` // defaults to US
}

// CustomerProfile is the KYC view of the subject.
type CustomerProfile struct {
	CustomerID        string   `json:"customer_id"`
	Name              string   `json:"name"`
	Occupation        string   `json:"occupation"`
	Employer          string   `json:"employer,omitempty"`
	AnnualIncome      float64  `json:"annual_income"`
	SourceOfFunds     string   `json:"source_of_funds,omitempty"`
	AccountOpenedDate string   `json:"account_opened_date,omitempty"` // YYYY-MM-DD
	RiskRating        string   `json:"risk_rating,omitempty"`         // Low, Medium, High, PEP
	RelatedAccounts   []string `json:"related_accounts,omitempty"`
	Address           string   `json:"address,omitempty"`
}

// AccountAgeDays returns the account age in days at the given instant.
// The second return is false when the open date is absent or unparseable.
func (c *CustomerProfile) AccountAgeDays(at time.Time) (int, bool) {
	if c.AccountOpenedDate == "" {
		return 0, false
	}
	opened, err := time.Parse("2006-01-02", c.AccountOpenedDate)
	if err != nil {
		return 0, false
	}
	return int(at.Sub(opened).Hours() / 24), true
}

// CreditProfile is the optional credit-bureau view of the subject.
type CreditProfile struct {
	CustomerID            string  `json:"customer_id"`
	CreditScore           int     `json:"credit_score,omitempty"`
	OutstandingLoans      float64 `json:"outstanding_loans,omitempty"`
	CreditCardUtilization float64 `json:"credit_card_utilization,omitempty"`
	RecentInquiries       int     `json:"recent_credit_inquiries,omitempty"`
	PaymentHistory        string  `json:"payment_history,omitempty"` // "current" when in good standing
}

// PriorSAR is a previously filed suspicious-activity report on the subject.
type PriorSAR struct {
	DCN            string  `json:"dcn"`
	FiledDate      string  `json:"filed_date"` // YYYY-MM-DD
	ActivityType   string  `json:"activity_type"`
	AmountInvolved float64 `json:"amount_involved"`
	Status         string  `json:"status,omitempty"`
}

// RiskIntelligence is the optional external risk view of the subject.
type RiskIntelligence struct {
	CustomerID             string     `json:"customer_id"`
	SanctionsHits          []string   `json:"sanctions_hits,omitempty"`
	PEPStatus              bool       `json:"pep_status,omitempty"`
	AdverseMediaHits       []string   `json:"adverse_media_hits,omitempty"`
	PriorSARs              []PriorSAR `json:"prior_sars,omitempty"`
	LawEnforcementRequests int        `json:"law_enforcement_requests,omitempty"`
	InternalReferrals      []string   `json:"internal_referrals,omitempty"`
}

// CaseInput is the root aggregate for a single pipeline run: one alert, one
// customer, the transaction history, and the optional supporting sources.
// Owned exclusively by that run.
type CaseInput struct {
	Alert              RawAlert          `json:"alert"`
	CustomerProfile    CustomerProfile   `json:"customer_profile"`
	TransactionHistory []Transaction     `json:"transaction_history"`
	CreditProfile      *CreditProfile    `json:"credit_profile,omitempty"`
	RiskIntelligence   *RiskIntelligence `json:"risk_intelligence,omitempty"`
	InvestigatorNotes  string            `json:"investigator_notes,omitempty"`
}

// Intel returns the risk intelligence block, or an empty one when absent.
func (c *CaseInput) Intel() RiskIntelligence {
	if c.RiskIntelligence == nil {
		return RiskIntelligence{}
	}
	return *c.RiskIntelligence
}

// FlaggedSet returns the alert's flagged transaction IDs as a set.
func (c *CaseInput) FlaggedSet() map[string]bool {
	set := make(map[string]bool, len(c.Alert.FlaggedTransactionIDs))
	for _, id := range c.Alert.FlaggedTransactionIDs {
		set[id] = true
	}
	return set
}

// Jurisdiction returns the alert jurisdiction, defaulting to US.
func (c *CaseInput) Jurisdiction() string {
	if c.Alert.Jurisdiction == "" {
		return "US"
	}
	return c.Alert.Jurisdiction
}
