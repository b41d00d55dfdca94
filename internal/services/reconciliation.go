package services

import (
	"cashbox-api/internal/models"
)

// Variance severity bands, in basis points of the theoretical total.
const (
	normalBandBP  = 100 // 1%
	warningBandBP = 500 // 5%
)

// TheoreticalCash is the opening cash plus cash income minus every expense.
// All expenses are drawn from the cash drawer whatever their category.
func TheoreticalCash(box *models.CashBox) models.Money {
	total := box.OpeningFloat.Cash
	for _, in := range box.IncomeEntries {
		if in.Method == models.MethodCash {
			total += in.Amount
		}
	}
	for _, ex := range box.ExpenseEntries {
		total -= ex.Amount
	}
	return total
}

// TheoreticalDigital is the digital opening float plus every non-cash income.
func TheoreticalDigital(box *models.CashBox) models.Money {
	total := box.OpeningFloat.Digital.Total()
	for _, in := range box.IncomeEntries {
		if in.Method != models.MethodCash {
			total += in.Amount
		}
	}
	return total
}

func TheoreticalTotal(box *models.CashBox) models.Money {
	return TheoreticalCash(box) + TheoreticalDigital(box)
}

// VarianceFor compares counted amounts against the box's theoretical total.
// Positive is a surplus, negative a shortage.
func VarianceFor(box *models.CashBox, counts models.ClosingCounts) models.Money {
	return counts.Total() - TheoreticalTotal(box)
}

// Variance returns the variance of a box that has closing counts.
func Variance(box *models.CashBox) (models.Money, bool) {
	if box.ClosingCounts == nil {
		return 0, false
	}
	return VarianceFor(box, *box.ClosingCounts), true
}

func ClassifyVariance(v models.Money) models.VarianceStatus {
	switch {
	case v > 0:
		return models.VarianceSurplus
	case v < 0:
		return models.VarianceShortage
	}
	return models.VarianceBalanced
}

// VarianceSeverity grades |variance| relative to the theoretical total.
func VarianceSeverity(variance, theoretical models.Money) models.VarianceSeverity {
	abs := int64(variance.Abs())
	if abs == 0 {
		return models.SeverityNormal
	}
	base := int64(theoretical.Abs())
	if base == 0 {
		return models.SeverityCritical
	}
	// abs/base <= band/10000, kept in integers.
	switch {
	case abs*10000 <= base*normalBandBP:
		return models.SeverityNormal
	case abs*10000 <= base*warningBandBP:
		return models.SeverityWarning
	}
	return models.SeverityCritical
}

// Reconcile builds the close snapshot. counts may be nil for a live summary
// of an open box, in which case the counted fields stay empty.
func Reconcile(box *models.CashBox, counts *models.ClosingCounts) models.Reconciliation {
	rec := models.Reconciliation{
		IncomeByMethod:     make(map[models.PaymentMethod]models.Money),
		ExpensesByCategory: make(map[models.ServiceCategory]models.Money),
		TheoreticalCash:    TheoreticalCash(box),
		TheoreticalDigital: TheoreticalDigital(box),
	}
	rec.TheoreticalTotal = rec.TheoreticalCash + rec.TheoreticalDigital

	for _, in := range box.IncomeEntries {
		rec.IncomeByMethod[in.Method] += in.Amount
		rec.TotalIncome += in.Amount
	}
	for _, ex := range box.ExpenseEntries {
		rec.ExpensesByCategory[ex.ServiceCategory] += ex.Amount
		rec.TotalExpenses += ex.Amount
	}

	if counts != nil {
		counted := counts.Total()
		variance := counted - rec.TheoreticalTotal
		rec.CountedTotal = &counted
		rec.Variance = &variance
		rec.VarianceStatus = ClassifyVariance(variance)
		rec.Severity = VarianceSeverity(variance, rec.TheoreticalTotal)
	}
	return rec
}
