package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name       string
		order      Order
		violations int
	}{
		{
			name: "valid order",
			order: Order{
				RestaurantID: 1,
				CustomerName: "Ana",
				Items:        []OrderItem{{MenuItemID: 1, Quantity: 2, UnitPrice: 5.00}},
			},
			violations: 0,
		},
		{
			name: "missing name and items",
			order: Order{
				RestaurantID: 1,
				CustomerName: "   ",
			},
			violations: 2,
		},
		{
			name: "bad quantity and negative price reported together",
			order: Order{
				RestaurantID: 1,
				CustomerName: "Ana",
				Items: []OrderItem{
					{MenuItemID: 1, Quantity: 0, UnitPrice: 5.00},
					{MenuItemID: 2, Quantity: 1, UnitPrice: -1},
				},
			},
			violations: 2,
		},
		{
			name: "invalid phone",
			order: Order{
				RestaurantID:  1,
				CustomerName:  "Ana",
				CustomerPhone: "not-a-phone!",
				Items:         []OrderItem{{MenuItemID: 1, Quantity: 1, UnitPrice: 5.00}},
			},
			violations: 1,
		},
		{
			name: "international phone accepted",
			order: Order{
				RestaurantID:  1,
				CustomerName:  "Ana",
				CustomerPhone: "+57 (301) 555-0199",
				Items:         []OrderItem{{MenuItemID: 1, Quantity: 1, UnitPrice: 5.00}},
			},
			violations: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if tt.violations == 0 {
				assert.Nil(t, err)
				return
			}
			assert.NotNil(t, err)
			assert.Len(t, err.Violations, tt.violations)
		})
	}
}

func TestOrderCalculateTotal(t *testing.T) {
	order := Order{
		Items: []OrderItem{
			{Quantity: 3, UnitPrice: 0.10},
			{Quantity: 1, UnitPrice: 0.20},
		},
	}
	// Rounds once at the end, so float noise per line does not accumulate.
	assert.Equal(t, 0.50, order.CalculateTotal())

	empty := Order{}
	assert.Equal(t, 0.00, empty.CalculateTotal())
}

func TestOrderTransitions(t *testing.T) {
	tests := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusConfirmed, OrderStatusPreparing, true},
		{OrderStatusPreparing, OrderStatusReady, true},
		{OrderStatusReady, OrderStatusDelivered, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusReady, OrderStatusCancelled, true},

		// no skipping ahead
		{OrderStatusPending, OrderStatusPreparing, false},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusConfirmed, OrderStatusReady, false},

		// no going back
		{OrderStatusPreparing, OrderStatusConfirmed, false},
		{OrderStatusDelivered, OrderStatusReady, false},

		// terminal states have no exits
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
	}

	for _, tt := range tests {
		order := Order{Status: tt.from}
		assert.Equal(t, tt.allowed, order.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestOrderCancellableAndEditable(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing, OrderStatusReady} {
		order := Order{Status: status}
		assert.True(t, order.IsCancellable(), "%s should be cancellable", status)
		assert.True(t, order.IsEditable(), "%s should be editable", status)
	}
	for _, status := range []OrderStatus{OrderStatusDelivered, OrderStatusCancelled} {
		order := Order{Status: status}
		assert.False(t, order.IsCancellable(), "%s should not be cancellable", status)
		assert.False(t, order.IsEditable(), "%s should not be editable", status)
	}
}

func TestValidOrderStatus(t *testing.T) {
	assert.True(t, ValidOrderStatus(OrderStatusPending))
	assert.True(t, ValidOrderStatus(OrderStatusCancelled))
	assert.False(t, ValidOrderStatus("shipped"))
	assert.False(t, ValidOrderStatus(""))
}
