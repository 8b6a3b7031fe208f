package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAnalysisCanonicalColumns(t *testing.T) {
	rec, err := NormalizeAnalysis("WESTLANDS", "NILA", map[string]string{
		"item_code":                 "X100",
		"item_name":                 "PARACETAMOL",
		"abc_class":                 "a",
		"adjusted_consumption_rate": "12.5",
		"ideal_stock":               "40",
	})
	require.NoError(t, err)

	assert.Equal(t, "X100", rec.ItemCode)
	assert.Equal(t, "A", rec.ABCClass)
	assert.InDelta(t, 12.5, rec.ConsumptionRate, 1e-9)
	assert.InDelta(t, 40, rec.IdealStock, 1e-9)
}

func TestNormalizeAnalysisLegacyColumns(t *testing.T) {
	rec, err := NormalizeAnalysis("WESTLANDS", "NILA", map[string]string{
		"Product_Code": "X100",
		"Description":  "PARACETAMOL",
		"Class":        "b",
		"AMC":          "1,200",
		"Ideal":        "30",
	})
	require.NoError(t, err)

	assert.Equal(t, "X100", rec.ItemCode)
	assert.Equal(t, "PARACETAMOL", rec.ItemName)
	assert.Equal(t, "B", rec.ABCClass)
	assert.InDelta(t, 1200, rec.ConsumptionRate, 1e-9)
}

func TestNormalizeAnalysisMissingItemCode(t *testing.T) {
	_, err := NormalizeAnalysis("WESTLANDS", "NILA", map[string]string{
		"item_name": "MYSTERY ITEM",
	})
	require.Error(t, err)
}

func TestNormalizeAnalysisUnparseableNumbersDefaultToZero(t *testing.T) {
	rec, err := NormalizeAnalysis("WESTLANDS", "NILA", map[string]string{
		"item_code": "X100",
		"amc":       "n/a",
	})
	require.NoError(t, err)
	assert.Zero(t, rec.ConsumptionRate)
}

func TestParsePriority(t *testing.T) {
	flag, ok := ParsePriority("recent_order")
	require.True(t, ok)
	assert.Equal(t, PriorityRecentOrder, flag)

	_, ok = ParsePriority("urgent")
	assert.False(t, ok)
}

func TestPriorityRank(t *testing.T) {
	assert.Less(t, PriorityLow.Rank(), PriorityRecentOrder.Rank())
	assert.Less(t, PriorityRecentOrder.Rank(), PriorityRecentInvoice.Rank())
	assert.Less(t, PriorityRecentInvoice.Rank(), PriorityNormal.Rank())
}
