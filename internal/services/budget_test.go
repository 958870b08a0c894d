package services

import (
	"testing"

	"mercury-erp/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func confirmedBudget(t *testing.T, db *gorm.DB, accID uint, from, to [3]int, amount float64) *models.Budget {
	t.Helper()
	b := &models.Budget{
		AnalyticAccountID: accID,
		StartDate:         date(from[0], timeMonth(from[1]), from[2]),
		EndDate:           date(to[0], timeMonth(to[1]), to[2]),
		BudgetedAmount:    amount,
		Status:            models.BudgetConfirmed,
	}
	require.NoError(t, db.Create(b).Error)
	return b
}

func TestMatchBudgetDateRangeExact(t *testing.T) {
	db := setupTestDB(t)
	acc := createConfirmedAccount(t, db, "IT")
	budget := confirmedBudget(t, db, acc.ID, [3]int{2025, 3, 1}, [3]int{2025, 3, 31}, 5000)

	// Граничные дни попадают
	for _, d := range []int{1, 15, 31} {
		found, err := MatchBudget(db, acc.ID, date(2025, 3, d))
		require.NoError(t, err)
		require.NotNil(t, found, "день %d", d)
		assert.Equal(t, budget.ID, found.ID)
	}

	// День за пределами интервала - нет
	for _, d := range []struct{ m, day int }{{2, 28}, {4, 1}} {
		found, err := MatchBudget(db, acc.ID, date(2025, timeMonth(d.m), d.day))
		require.NoError(t, err)
		assert.Nil(t, found)
	}

	// Черновики и другие счета не матчатся
	other := createConfirmedAccount(t, db, "HR")
	found, err := MatchBudget(db, other.ID, date(2025, 3, 15))
	require.NoError(t, err)
	assert.Nil(t, found)

	draft := &models.Budget{
		AnalyticAccountID: other.ID,
		StartDate:         date(2025, 1, 1),
		EndDate:           date(2025, 12, 31),
		Status:            models.BudgetDraft,
	}
	require.NoError(t, db.Create(draft).Error)
	found, err = MatchBudget(db, other.ID, date(2025, 3, 15))
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestPostInvoiceCollectsBudgetImpacts(t *testing.T) {
	db := setupTestDB(t)
	vendor := createVendor(t, db, "ТОО Ромашка")
	acc := createConfirmedAccount(t, db, "MKT")
	budget := confirmedBudget(t, db, acc.ID, [3]int{2025, 3, 1}, [3]int{2025, 3, 31}, 500)

	// Строка на 800 превышает бюджет 500
	inv := createDraftBill(t, db, vendor, 800, &acc.ID)
	res, err := PostInvoice(db, inv.ID, 1)
	require.NoError(t, err)

	// Проводка не блокируется, предупреждение возвращается
	assert.Equal(t, models.InvoicePosted, res.Invoice.Status)
	require.Len(t, res.BudgetImpacts, 1)
	impact := res.BudgetImpacts[0]
	assert.Equal(t, budget.ID, impact.BudgetID)
	assert.InDelta(t, 800, impact.Amount, Epsilon)
	assert.True(t, impact.IsOverBudget)
	assert.Len(t, res.BudgetWarnings(), 1)

	// Укладывающаяся в бюджет строка - не предупреждение
	inv2 := createDraftBill(t, db, vendor, 300, &acc.ID)
	res2, err := PostInvoice(db, inv2.ID, 1)
	require.NoError(t, err)
	require.Len(t, res2.BudgetImpacts, 1)
	assert.False(t, res2.BudgetImpacts[0].IsOverBudget)
	assert.Empty(t, res2.BudgetWarnings())
}

func TestAchievedPercentGuardsZero(t *testing.T) {
	assert.Equal(t, 0.0, AchievedPercent(1000, 0))
	assert.InDelta(t, 50, AchievedPercent(500, 1000), 1e-9)
	assert.InDelta(t, 160, AchievedPercent(800, 500), 1e-9)
}

func TestActualForBudget(t *testing.T) {
	db := setupTestDB(t)
	vendor := createVendor(t, db, "ТОО Ромашка")
	acc := createConfirmedAccount(t, db, "IT")
	budget := confirmedBudget(t, db, acc.ID, [3]int{2025, 3, 1}, [3]int{2025, 3, 31}, 2000)

	createPostedBill(t, db, vendor, 600, &acc.ID)
	createPostedBill(t, db, vendor, 250, &acc.ID)
	// Черновик в факт не попадает
	createDraftBill(t, db, vendor, 999, &acc.ID)

	actual, err := ActualForBudget(db, budget)
	require.NoError(t, err)
	assert.InDelta(t, 850, actual, Epsilon)
	assert.InDelta(t, 42.5, AchievedPercent(actual, budget.BudgetedAmount), 0.01)
}
