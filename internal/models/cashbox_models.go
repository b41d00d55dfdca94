package models

import (
	"slices"
	"time"
)

const WorkDateLayout = "2006-01-02"

type CashBoxStatus string

const (
	CashBoxOpen   CashBoxStatus = "open"
	CashBoxClosed CashBoxStatus = "closed"
)

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodYape     PaymentMethod = "yape"
	MethodPlin     PaymentMethod = "plin"
	MethodTransfer PaymentMethod = "transfer"
	MethodOther    PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodYape, MethodPlin, MethodTransfer, MethodOther:
		return true
	}
	return false
}

type ServiceCategory string

const (
	CategoryGeneral  ServiceCategory = "general"
	CategoryInternet ServiceCategory = "internet"
	CategoryCable    ServiceCategory = "cable"
)

func (c ServiceCategory) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryInternet, CategoryCable:
		return true
	}
	return false
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// DigitalFloat holds the non-cash part of an opening float, one bucket per wallet.
type DigitalFloat struct {
	Yape     Money `json:"yape"`
	Plin     Money `json:"plin"`
	Transfer Money `json:"transfer"`
	Other    Money `json:"other"`
}

func (d DigitalFloat) Total() Money {
	return d.Yape + d.Plin + d.Transfer + d.Other
}

type OpeningFloat struct {
	Cash    Money        `json:"cash"`
	Digital DigitalFloat `json:"digital"`
}

func (f OpeningFloat) Total() Money {
	return f.Cash + f.Digital.Total()
}

// Negative reports whether any bucket holds a negative amount.
func (f OpeningFloat) Negative() bool {
	return f.Cash < 0 || f.Digital.Yape < 0 || f.Digital.Plin < 0 ||
		f.Digital.Transfer < 0 || f.Digital.Other < 0
}

type IncomeEntry struct {
	ID         string        `json:"id"`
	ClientID   string        `json:"client_id"`
	ClientName string        `json:"client_name"`
	Amount     Money         `json:"amount"`
	Method     PaymentMethod `json:"method"`
	Timestamp  time.Time     `json:"timestamp"`
}

type ExpenseEntry struct {
	ID              string          `json:"id"`
	Concept         string          `json:"concept"`
	Amount          Money           `json:"amount"`
	Description     string          `json:"description,omitempty"`
	ServiceCategory ServiceCategory `json:"service_category"`
	Timestamp       time.Time       `json:"timestamp"`
}

// ClosingCounts are the amounts physically counted by the collector at close.
type ClosingCounts struct {
	Cash    Money `json:"cash"`
	Digital Money `json:"digital"`
}

func (c ClosingCounts) Total() Money {
	return c.Cash + c.Digital
}

type VarianceStatus string

const (
	VarianceBalanced VarianceStatus = "balanced"
	VarianceShortage VarianceStatus = "shortage"
	VarianceSurplus  VarianceStatus = "surplus"
)

type VarianceSeverity string

const (
	SeverityNormal   VarianceSeverity = "normal"
	SeverityWarning  VarianceSeverity = "warning"
	SeverityCritical VarianceSeverity = "critical"
)

// Reconciliation is the snapshot of theoretical vs counted totals taken at close.
type Reconciliation struct {
	IncomeByMethod     map[PaymentMethod]Money   `json:"income_by_method"`
	ExpensesByCategory map[ServiceCategory]Money `json:"expenses_by_category"`
	TotalIncome        Money                     `json:"total_income"`
	TotalExpenses      Money                     `json:"total_expenses"`
	TheoreticalCash    Money                     `json:"theoretical_cash"`
	TheoreticalDigital Money                     `json:"theoretical_digital"`
	TheoreticalTotal   Money                     `json:"theoretical_total"`
	CountedTotal       *Money                    `json:"counted_total,omitempty"`
	Variance           *Money                    `json:"variance,omitempty"`
	VarianceStatus     VarianceStatus            `json:"variance_status,omitempty"`
	Severity           VarianceSeverity          `json:"severity,omitempty"`
}

// CashBox is a collector's ledger for one work date.
type CashBox struct {
	ID             string          `json:"id"`
	CollectorID    string          `json:"collector_id"`
	CollectorName  string          `json:"collector_name,omitempty"`
	WorkDate       string          `json:"work_date"`
	Status         CashBoxStatus   `json:"status"`
	OpeningFloat   OpeningFloat    `json:"opening_float"`
	IncomeEntries  []IncomeEntry   `json:"income_entries"`
	ExpenseEntries []ExpenseEntry  `json:"expense_entries"`
	OpenedAt       time.Time       `json:"opened_at"`
	ClosedAt       *time.Time      `json:"closed_at"`
	ClosingCounts  *ClosingCounts  `json:"closing_counts"`
	Reconciliation *Reconciliation `json:"reconciliation,omitempty"`
	RequestID      string          `json:"request_id,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Version        int64           `json:"version"`
}

func (b *CashBox) IsOpen() bool {
	return b.Status == CashBoxOpen
}

// Clone returns a deep copy so callers never share entry slices with a store.
func (b *CashBox) Clone() *CashBox {
	if b == nil {
		return nil
	}
	c := *b
	c.IncomeEntries = slices.Clone(b.IncomeEntries)
	c.ExpenseEntries = slices.Clone(b.ExpenseEntries)
	if b.ClosedAt != nil {
		t := *b.ClosedAt
		c.ClosedAt = &t
	}
	if b.ClosingCounts != nil {
		cc := *b.ClosingCounts
		c.ClosingCounts = &cc
	}
	if b.Reconciliation != nil {
		c.Reconciliation = b.Reconciliation.clone()
	}
	return &c
}

func (r *Reconciliation) clone() *Reconciliation {
	c := *r
	if r.IncomeByMethod != nil {
		c.IncomeByMethod = make(map[PaymentMethod]Money, len(r.IncomeByMethod))
		for k, v := range r.IncomeByMethod {
			c.IncomeByMethod[k] = v
		}
	}
	if r.ExpensesByCategory != nil {
		c.ExpensesByCategory = make(map[ServiceCategory]Money, len(r.ExpensesByCategory))
		for k, v := range r.ExpensesByCategory {
			c.ExpensesByCategory[k] = v
		}
	}
	if r.CountedTotal != nil {
		v := *r.CountedTotal
		c.CountedTotal = &v
	}
	if r.Variance != nil {
		v := *r.Variance
		c.Variance = &v
	}
	return &c
}

// OpeningRequest asks an administrator to authorize an opening float for a work date.
type OpeningRequest struct {
	ID                    string        `json:"id"`
	CollectorID           string        `json:"collector_id"`
	CollectorName         string        `json:"collector_name"`
	WorkDate              string        `json:"work_date"`
	RequestedOpeningFloat OpeningFloat  `json:"requested_opening_float"`
	Notes                 string        `json:"notes,omitempty"`
	Status                RequestStatus `json:"status"`
	RejectionReason       string        `json:"rejection_reason,omitempty"`
	Superseded            bool          `json:"superseded"`
	CreatedAt             time.Time     `json:"created_at"`
	DecidedAt             *time.Time    `json:"decided_at,omitempty"`
	DecidedBy             string        `json:"decided_by,omitempty"`
}

func (r *OpeningRequest) Clone() *OpeningRequest {
	if r == nil {
		return nil
	}
	c := *r
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		c.DecidedAt = &t
	}
	return &c
}

// ValidWorkDate reports whether s is a calendar day in YYYY-MM-DD form.
func ValidWorkDate(s string) bool {
	_, err := time.Parse(WorkDateLayout, s)
	return err == nil
}
