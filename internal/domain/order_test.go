package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewOrder(t *testing.T) {
	now := time.Now()
	order, err := NewOrder("id-1", "7", []OrderItem{{Name: "ramen", Quantity: 2, Status: ItemReady}}, "no onions", now)

	require.NoError(t, err)
	require.Equal(t, OrderPending, order.Status)
	require.Equal(t, ItemQueued, order.Items[0].Status)
	require.Equal(t, now, order.CreatedAt)
	require.Equal(t, now, order.UpdatedAt)
}

func TestNewOrderValidation(t *testing.T) {
	tests := []struct {
		name    string
		tableID string
		items   []OrderItem
	}{
		{name: "noItems", tableID: "7"},
		{name: "zeroQuantity", tableID: "7", items: []OrderItem{{Name: "ramen", Quantity: 0}}},
		{name: "unnamedItem", tableID: "7", items: []OrderItem{{Quantity: 1}}},
		{name: "missingTable", items: []OrderItem{{Name: "ramen", Quantity: 1}}},
		{name: "tableWithDot", tableID: "7.1", items: []OrderItem{{Name: "ramen", Quantity: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrder("id-1", tt.tableID, tt.items, "", time.Now())
			require.ErrorIs(t, err, ErrInvalidOrder)
		})
	}
}

func TestCloneDoesNotAliasItems(t *testing.T) {
	order := orderWith(OrderAccepted, ItemQueued)
	clone := order.Clone()
	clone.Items[0].Status = ItemCooking

	require.Equal(t, ItemQueued, order.Items[0].Status)
}
