package service

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/Dan9191/spending-insights/internal/models"
	"github.com/Dan9191/spending-insights/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func txn(date, desc, amount, category string) models.Transaction {
	return models.Transaction{Date: date, Description: desc, Amount: decimal.RequireFromString(amount), Category: category}
}

func newAnalytics(t *testing.T, records ...models.Transaction) *Analytics {
	t.Helper()
	store := repository.NewMemoryStore()
	if len(records) > 0 {
		_, err := store.InsertBatch(context.Background(), records)
		require.NoError(t, err)
	}
	return NewAnalytics(store, testLogger())
}

func TestSummary_Scenario(t *testing.T) {
	a := newAnalytics(t,
		txn("2024-01-05", "Netflix", "-15.99", "Subscriptions"),
		txn("2024-01-06", "Payroll", "2500.00", "Income"),
	)

	s, err := a.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Count)
	require.NotNil(t, s.DateRange.MinDate)
	assert.Equal(t, "2024-01-05", *s.DateRange.MinDate)
	assert.Equal(t, "2024-01-06", *s.DateRange.MaxDate)
	assert.Equal(t, models.Totals{Income: 2500.00, Spending: 15.99, Net: 2484.01}, s.Totals)
	assert.Equal(t, []models.Merchant{
		{Description: "Payroll", Total: 2500.00},
		{Description: "Netflix", Total: -15.99},
	}, s.TopMerchants)
}

func TestSummary_Empty(t *testing.T) {
	s, err := newAnalytics(t).Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, s.Count)
	assert.Nil(t, s.DateRange.MinDate)
	assert.Nil(t, s.DateRange.MaxDate)
	assert.Equal(t, models.Totals{}, s.Totals)
	assert.NotNil(t, s.TopMerchants)
	assert.Empty(t, s.TopMerchants)
}

func TestSummary_NetReconciles(t *testing.T) {
	a := newAnalytics(t,
		txn("2024-01-01", "A", "0.005", "Other"),
		txn("2024-01-02", "B", "-0.015", "Other"),
		txn("2024-01-03", "C", "1234.565", "Income"),
		txn("2024-01-04", "D", "-99.994", "Other"),
		txn("2024-01-05", "E", "-0.001", "Other"),
	)
	s, err := a.Summary(context.Background())
	require.NoError(t, err)

	income := decimal.NewFromFloat(s.Totals.Income)
	spending := decimal.NewFromFloat(s.Totals.Spending)
	assert.Equal(t, "1234.57", income.StringFixed(2))
	assert.Equal(t, "100.01", spending.StringFixed(2))
	assert.Equal(t, 1134.56, s.Totals.Net)
}

func TestSummary_RoundsHalfAwayFromZero(t *testing.T) {
	a := newAnalytics(t,
		txn("2024-01-01", "Refund", "2.345", "Income"),
		txn("2024-01-02", "Coffee", "-2.345", "Food & Drink"),
	)
	s, err := a.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2.35, s.Totals.Income)
	assert.Equal(t, 2.35, s.Totals.Spending)
	assert.Equal(t, []models.Merchant{
		{Description: "Refund", Total: 2.35},
		{Description: "Coffee", Total: -2.35},
	}, s.TopMerchants)
}

func TestSummary_TopMerchants(t *testing.T) {
	a := newAnalytics(t,
		txn("2024-01-01", "Rent", "-1500", "Housing"),
		txn("2024-01-02", "Coffee", "-3", "Food & Drink"),
		txn("2024-01-03", "Coffee", "-3", "Food & Drink"),
		txn("2024-01-04", "Payroll", "2000", "Income"),
		txn("2024-01-05", "Amazon", "-50", "Shopping"),
		txn("2024-01-06", "Amazon", "50", "Shopping"),
		txn("2024-01-07", "Gym", "-40", "Subscriptions"),
		txn("2024-01-08", "Hydro", "-6", "Bills"),
		txn("2024-01-09", "Uber", "-6", "Transport"),
	)
	s, err := a.Summary(context.Background())
	require.NoError(t, err)

	var names []string
	for _, m := range s.TopMerchants {
		names = append(names, m.Description)
	}
	// Coffee, Hydro and Uber tie at 6; store order decides which two make the cut.
	assert.Equal(t, []string{"Payroll", "Rent", "Gym", "Coffee", "Hydro"}, names)
}

func TestCategories_Scenario(t *testing.T) {
	a := newAnalytics(t,
		txn("2024-01-05", "Netflix", "-15.99", "Subscriptions"),
		txn("2024-01-06", "Payroll", "2500.00", "Income"),
		txn("2024-01-07", "Amazon", "-20", "Shopping"),
		txn("2024-01-08", "Amazon refund", "5", "Shopping"),
	)
	cats, err := a.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.CategoryBreakdown{
		{Category: "Shopping", Spending: 20, Income: 5},
		{Category: "Subscriptions", Spending: 15.99, Income: 0},
		{Category: "Income", Spending: 0, Income: 2500},
	}, cats)
}

func spendingSeries(category string, amounts ...string) []models.Transaction {
	out := make([]models.Transaction, len(amounts))
	for i, a := range amounts {
		out[i] = txn(fmt.Sprintf("2024-03-%02d", i+1), fmt.Sprintf("%s %d", category, i), "-"+a, category)
	}
	return out
}

func TestAnomalies_FlagsOutlier(t *testing.T) {
	records := spendingSeries("Groceries", "50", "52", "48", "51", "49", "50", "47", "53", "50", "400")
	a := newAnalytics(t, records...)

	anomalies, err := a.Anomalies(context.Background(), DefaultZThreshold)
	require.NoError(t, err)
	require.Len(t, anomalies, 1)
	assert.Equal(t, "Groceries 9", anomalies[0].Description)
	assert.Equal(t, 400.0, anomalies[0].Spending)
	assert.Equal(t, 3.0, anomalies[0].ZScore)
	assert.Equal(t, "2024-03-10", anomalies[0].Date)
}

func TestAnomalies_TiesKeepFirstAppearance(t *testing.T) {
	records := spendingSeries("Zeta", "10", "10", "10", "10", "100")
	records = append(records, spendingSeries("Alpha", "10", "10", "10", "10", "100")...)
	a := newAnalytics(t, records...)

	anomalies, err := a.Anomalies(context.Background(), 1.5)
	require.NoError(t, err)
	require.Len(t, anomalies, 2)
	assert.Equal(t, anomalies[0].ZScore, anomalies[1].ZScore)
	assert.Equal(t, "Zeta", anomalies[0].Category)
	assert.Equal(t, "Alpha", anomalies[1].Category)
}

func TestAnomalies_PopulationVariance(t *testing.T) {
	// mean 2, population sd sqrt(2/3); z(3) = 1.2247...
	a := newAnalytics(t, spendingSeries("Bills", "1", "2", "3")...)
	anomalies, err := a.Anomalies(context.Background(), 1.2)
	require.NoError(t, err)
	require.Len(t, anomalies, 1)
	assert.Equal(t, 1.22, anomalies[0].ZScore)
}

func TestAnomalies_SingletonNeverFlagged(t *testing.T) {
	a := newAnalytics(t,
		txn("2024-01-01", "Dentist", "-900", "Health"),
		txn("2024-01-02", "Payroll", "3000", "Income"),
	)
	for _, z := range []float64{0.0001, 0.5, 2.5, 100} {
		anomalies, err := a.Anomalies(context.Background(), z)
		require.NoError(t, err)
		assert.Empty(t, anomalies)
	}
}

func TestAnomalies_IdenticalValuesNotFlagged(t *testing.T) {
	a := newAnalytics(t, spendingSeries("Subscriptions", "0.1", "0.1", "0.1", "0.1", "0.1", "0.1", "0.1")...)
	anomalies, err := a.Anomalies(context.Background(), 0.5)
	require.NoError(t, err)
	assert.Empty(t, anomalies)
}

func TestAnomalies_UnreachableThreshold(t *testing.T) {
	records := spendingSeries("Groceries", "50", "52", "48", "51", "49", "50", "47", "53", "50", "400")
	anomalies, err := newAnalytics(t, records...).Anomalies(context.Background(), 100)
	require.NoError(t, err)
	assert.Empty(t, anomalies)
}

func TestAnomalies_NegativeThresholdAndCap(t *testing.T) {
	var records []models.Transaction
	for c := 0; c < 3; c++ {
		amounts := make([]string, 30)
		for i := range amounts {
			amounts[i] = fmt.Sprintf("%d", 10+i)
		}
		records = append(records, spendingSeries(fmt.Sprintf("Cat%d", c), amounts...)...)
	}
	anomalies, err := newAnalytics(t, records...).Anomalies(context.Background(), -10)
	require.NoError(t, err)
	require.Len(t, anomalies, maxAnomalies)
	for i := 1; i < len(anomalies); i++ {
		assert.GreaterOrEqual(t, anomalies[i-1].ZScore, anomalies[i].ZScore)
	}
}

func TestAnomalies_IgnoresIncome(t *testing.T) {
	records := spendingSeries("Shopping", "10", "10", "10", "10", "12")
	records = append(records, txn("2024-04-01", "Refund", "5000", "Shopping"))
	anomalies, err := newAnalytics(t, records...).Anomalies(context.Background(), 1.5)
	require.NoError(t, err)
	require.Len(t, anomalies, 1)
	assert.Equal(t, 12.0, anomalies[0].Spending)
	assert.Equal(t, 2.0, anomalies[0].ZScore)
}

func TestTransactions_ClampsAndFilters(t *testing.T) {
	var records []models.Transaction
	for i := 0; i < 250; i++ {
		records = append(records, txn("2024-05-01", fmt.Sprintf("Coffee %d", i), "-2", "Food & Drink"))
	}
	records = append(records, txn("2024-05-02", "Netflix", "-15.99", "Subscriptions"))
	a := newAnalytics(t, records...)
	ctx := context.Background()

	items, err := a.Transactions(ctx, models.TransactionFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, items, MaxLimit)
	assert.Equal(t, "Netflix", items[0].Description)
	assert.Equal(t, "Coffee 249", items[1].Description)

	items, err = a.Transactions(ctx, models.TransactionFilter{Limit: 0, Offset: -5})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = a.Transactions(ctx, models.TransactionFilter{Search: "subscriptions", Limit: 50})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Netflix", items[0].Description)

	items, err = a.Transactions(ctx, models.TransactionFilter{Search: "nothing", Limit: 50})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestExport_BeyondPageLimit(t *testing.T) {
	var records []models.Transaction
	for i := 0; i < 300; i++ {
		records = append(records, txn("2024-05-01", fmt.Sprintf("Coffee %d", i), "-2", "Food & Drink"))
	}
	records = append(records, txn("2024-04-01", "Rent", "-1500", "Housing"))
	a := newAnalytics(t, records...)

	items, err := a.Export(context.Background(), "coffee", 1000)
	require.NoError(t, err)
	assert.Len(t, items, 300)
	assert.Equal(t, "Coffee 299", items[0].Description)

	items, err = a.Export(context.Background(), "", 250)
	require.NoError(t, err)
	assert.Len(t, items, 250)
}

func TestClampFilter(t *testing.T) {
	assert.Equal(t, models.TransactionFilter{Limit: 1}, ClampFilter(models.TransactionFilter{Limit: -3, Offset: -1}))
	assert.Equal(t, models.TransactionFilter{Limit: MaxLimit, Offset: 7}, ClampFilter(models.TransactionFilter{Limit: 900, Offset: 7}))
	assert.Equal(t, models.TransactionFilter{Search: "x", Limit: 20}, ClampFilter(models.TransactionFilter{Search: "x", Limit: 20}))
}
