package analytics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-bi/meridian/internal/catalog"
)

func TestClassifyABCPartitions(t *testing.T) {
	items := []ConsumptionItem{
		{ProductID: 1, SKU: "P1", Value: 500},
		{ProductID: 2, SKU: "P2", Value: 300},
		{ProductID: 3, SKU: "P3", Value: 120},
		{ProductID: 4, SKU: "P4", Value: 50},
		{ProductID: 5, SKU: "P5", Value: 30},
	}

	got := ClassifyABC(items)
	require.Len(t, got, len(items))

	byID := map[int64]ABCAssignment{}
	for _, a := range got {
		require.Contains(t, []string{"A", "B", "C"}, a.Class)
		byID[a.ProductID] = a
	}

	// Total 1000. P1 0.50 -> A, P2 0.80 -> A, P3 0.92 -> B, P4 0.97 -> C, P5 1.00 -> C.
	require.Equal(t, "A", byID[1].Class)
	require.Equal(t, "A", byID[2].Class)
	require.Equal(t, "B", byID[3].Class)
	require.Equal(t, "C", byID[4].Class)
	require.Equal(t, "C", byID[5].Class)

	last := got[len(got)-1]
	require.InDelta(t, 1.0, last.CumulativeShare, 1e-9)
}

func TestClassifyABCOrderIndependent(t *testing.T) {
	forward := []ConsumptionItem{
		{ProductID: 1, Value: 900},
		{ProductID: 2, Value: 80},
		{ProductID: 3, Value: 20},
	}
	shuffled := []ConsumptionItem{forward[2], forward[0], forward[1]}

	want := map[int64]string{}
	for _, a := range ClassifyABC(forward) {
		want[a.ProductID] = a.Class
	}
	for _, a := range ClassifyABC(shuffled) {
		require.Equal(t, want[a.ProductID], a.Class, "product %d", a.ProductID)
	}
}

func TestClassifyABCZeroConsumption(t *testing.T) {
	got := ClassifyABC([]ConsumptionItem{
		{ProductID: 1, Value: 0},
		{ProductID: 2, Value: 0},
	})
	require.Len(t, got, 2)
	for _, a := range got {
		require.Equal(t, "C", a.Class)
	}
}

func TestGenerateAlertsOutOfStockIsExclusive(t *testing.T) {
	products := []catalog.Product{
		{ID: 1, SKU: "A", Name: "Empty", Stock: 0, MinStock: 10, IsActive: true},
	}
	alerts := GenerateAlerts(products)
	require.Len(t, alerts, 1)
	require.Equal(t, AlertOutOfStock, alerts[0].Type)
	require.Equal(t, SeverityCritical, alerts[0].Severity)
}

func TestGenerateAlertsLowStock(t *testing.T) {
	products := []catalog.Product{
		{ID: 1, SKU: "A", Name: "Low", Stock: 5, MinStock: 10, IsActive: true},
		{ID: 2, SKU: "B", Name: "Fine", Stock: 50, MinStock: 10, IsActive: true},
	}
	alerts := GenerateAlerts(products)
	require.Len(t, alerts, 1)
	require.Equal(t, AlertLowStock, alerts[0].Type)
	require.Equal(t, int64(1), alerts[0].ProductID)
	require.InDelta(t, 10, alerts[0].Threshold, 1e-9)
}

func TestGenerateAlertsSkipsInactive(t *testing.T) {
	products := []catalog.Product{
		{ID: 1, SKU: "A", Name: "Retired", Stock: 0, MinStock: 5, IsActive: false},
	}
	require.Empty(t, GenerateAlerts(products))
}

func TestGenerateAlertsExcessAndReorder(t *testing.T) {
	products := []catalog.Product{
		{ID: 1, SKU: "A", Name: "Bulging", Stock: 900, MaxStock: 500, IsActive: true},
		{ID: 2, SKU: "B", Name: "Reorder", Stock: 18, MinStock: 10, ReorderPoint: 20, IsActive: true},
	}
	alerts := GenerateAlerts(products)
	require.Len(t, alerts, 2)
	require.Equal(t, AlertExcess, alerts[0].Type)
	require.Equal(t, AlertReorder, alerts[1].Type)
}
