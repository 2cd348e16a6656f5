package models

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type OrderPaymentStatus string

const (
	OrderPaymentPending  OrderPaymentStatus = "pending"
	OrderPaymentPaid     OrderPaymentStatus = "paid"
	OrderPaymentFailed   OrderPaymentStatus = "failed"
	OrderPaymentRefunded OrderPaymentStatus = "refunded"
)

// orderTransitions is the allow-list for the fulfillment workflow.
// The kitchen only moves forward; the single escape hatch is cancellation.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:     {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

type Order struct {
	ID            uint               `gorm:"primaryKey" json:"id"`
	RestaurantID  uint               `gorm:"not null;index" json:"restaurant_id"`
	Restaurant    Restaurant         `gorm:"foreignKey:RestaurantID" json:"-"`
	CustomerName  string             `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerPhone string             `gorm:"type:varchar(50)" json:"customer_phone"`
	CustomerEmail string             `gorm:"type:varchar(255)" json:"customer_email"`
	Items         []OrderItem        `gorm:"foreignKey:OrderID" json:"items"`
	TotalAmount   float64            `gorm:"type:decimal(10,2);not null;default:0.00" json:"total_amount"`
	Status        OrderStatus        `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaymentStatus OrderPaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	CancelReason  string             `gorm:"type:text" json:"cancel_reason,omitempty"`
	CreatedAt     time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"not null" json:"updated_at"`
}

var phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]+$`)

// Validate checks the customer-supplied fields and returns every violation
// at once so the ordering UI can report them together.
func (o *Order) Validate() *ValidationError {
	var violations []string

	if strings.TrimSpace(o.CustomerName) == "" {
		violations = append(violations, "customer name is required")
	}
	if o.RestaurantID == 0 {
		violations = append(violations, "restaurant id is required")
	}
	if len(o.Items) == 0 {
		violations = append(violations, "order must contain at least one item")
	}
	for i, item := range o.Items {
		if item.Quantity < 1 {
			violations = append(violations, fmt.Sprintf("item %d: quantity must be at least 1", i+1))
		}
		if item.UnitPrice < 0 {
			violations = append(violations, fmt.Sprintf("item %d: unit price cannot be negative", i+1))
		}
	}
	if o.CustomerPhone != "" && !phonePattern.MatchString(o.CustomerPhone) {
		violations = append(violations, "invalid phone number format")
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// CalculateTotal sums unit_price * quantity over the line items and rounds
// to two decimals once at the end, not per line.
func (o *Order) CalculateTotal() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return math.Round(total*100) / 100
}

// CanTransitionTo reports whether next is a legal move from the current status.
func (o *Order) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[o.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsCancellable is true for every non-terminal status.
func (o *Order) IsCancellable() bool {
	return o.Status != OrderStatusDelivered && o.Status != OrderStatusCancelled
}

// IsEditable reports whether staff may still replace the line items.
func (o *Order) IsEditable() bool {
	return o.Status != OrderStatusDelivered && o.Status != OrderStatusCancelled
}

func ValidOrderStatus(s OrderStatus) bool {
	_, ok := orderTransitions[s]
	return ok
}
