package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashbox-api/internal/models"
)

// dayBox is the box after a typical day: 50 cash float, 80 cash and 30 yape
// collected, 20 paid out.
func dayBox() *models.CashBox {
	return &models.CashBox{
		Status:       models.CashBoxOpen,
		OpeningFloat: models.OpeningFloat{Cash: 5000},
		IncomeEntries: []models.IncomeEntry{
			{Amount: 8000, Method: models.MethodCash},
			{Amount: 3000, Method: models.MethodYape},
		},
		ExpenseEntries: []models.ExpenseEntry{
			{Amount: 2000, ServiceCategory: models.CategoryGeneral},
		},
	}
}

func TestTheoreticalTotals(t *testing.T) {
	box := dayBox()
	assert.Equal(t, models.Money(11000), TheoreticalCash(box))
	assert.Equal(t, models.Money(3000), TheoreticalDigital(box))
	assert.Equal(t, models.Money(14000), TheoreticalTotal(box))
}

func TestTheoreticalTotalMatchesMovements(t *testing.T) {
	box := &models.CashBox{
		OpeningFloat: models.OpeningFloat{
			Cash:    1001,
			Digital: models.DigitalFloat{Yape: 7, Plin: 13, Transfer: 99, Other: 1},
		},
	}
	var income, expenses models.Money
	for i, m := range []models.PaymentMethod{models.MethodCash, models.MethodPlin, models.MethodTransfer, models.MethodOther} {
		amt := models.Money(333 * (i + 1))
		box.IncomeEntries = append(box.IncomeEntries, models.IncomeEntry{Amount: amt, Method: m})
		income += amt
	}
	for i, c := range []models.ServiceCategory{models.CategoryInternet, models.CategoryCable} {
		amt := models.Money(17 * (i + 1))
		box.ExpenseEntries = append(box.ExpenseEntries, models.ExpenseEntry{Amount: amt, ServiceCategory: c})
		expenses += amt
	}

	assert.Equal(t, box.OpeningFloat.Total()+income-expenses, TheoreticalTotal(box))
}

func TestExpensesAlwaysLeaveTheCashDrawer(t *testing.T) {
	box := &models.CashBox{
		OpeningFloat: models.OpeningFloat{Digital: models.DigitalFloat{Yape: 1000}},
		ExpenseEntries: []models.ExpenseEntry{
			{Amount: 500, ServiceCategory: models.CategoryInternet},
		},
	}
	assert.Equal(t, models.Money(-500), TheoreticalCash(box))
	assert.Equal(t, models.Money(1000), TheoreticalDigital(box))
}

func TestVarianceSign(t *testing.T) {
	box := dayBox()

	short := VarianceFor(box, models.ClosingCounts{Cash: 10800, Digital: 3000})
	assert.Equal(t, models.Money(-200), short)
	assert.Equal(t, models.VarianceShortage, ClassifyVariance(short))

	over := VarianceFor(box, models.ClosingCounts{Cash: 11500, Digital: 3000})
	assert.Equal(t, models.Money(500), over)
	assert.Equal(t, models.VarianceSurplus, ClassifyVariance(over))

	even := VarianceFor(box, models.ClosingCounts{Cash: 11000, Digital: 3000})
	assert.Zero(t, even)
	assert.Equal(t, models.VarianceBalanced, ClassifyVariance(even))
}

func TestVarianceSeverity(t *testing.T) {
	cases := []struct {
		name        string
		variance    models.Money
		theoretical models.Money
		want        models.VarianceSeverity
	}{
		{"zero", 0, 10000, models.SeverityNormal},
		{"one percent", -100, 10000, models.SeverityNormal},
		{"just over one percent", 101, 10000, models.SeverityWarning},
		{"five percent", -500, 10000, models.SeverityWarning},
		{"over five percent", 501, 10000, models.SeverityCritical},
		{"nothing expected", 100, 0, models.SeverityCritical},
		{"nothing expected nothing counted", 0, 0, models.SeverityNormal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, VarianceSeverity(tc.variance, tc.theoretical))
		})
	}
}

func TestReconcile(t *testing.T) {
	box := dayBox()

	live := Reconcile(box, nil)
	assert.Equal(t, models.Money(14000), live.TheoreticalTotal)
	assert.Equal(t, models.Money(11000), live.TotalIncome)
	assert.Equal(t, models.Money(2000), live.TotalExpenses)
	assert.Equal(t, models.Money(8000), live.IncomeByMethod[models.MethodCash])
	assert.Equal(t, models.Money(3000), live.IncomeByMethod[models.MethodYape])
	assert.Equal(t, models.Money(2000), live.ExpensesByCategory[models.CategoryGeneral])
	assert.Nil(t, live.Variance)
	assert.Nil(t, live.CountedTotal)
	assert.Empty(t, live.VarianceStatus)

	closed := Reconcile(box, &models.ClosingCounts{Cash: 10800, Digital: 3000})
	require.NotNil(t, closed.Variance)
	require.NotNil(t, closed.CountedTotal)
	assert.Equal(t, models.Money(13800), *closed.CountedTotal)
	assert.Equal(t, models.Money(-200), *closed.Variance)
	assert.Equal(t, models.VarianceShortage, closed.VarianceStatus)
	assert.Equal(t, models.SeverityWarning, closed.Severity)
}
