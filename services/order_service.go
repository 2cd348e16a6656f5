package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/mesafacil/backoffice/models"
	"github.com/mesafacil/backoffice/utils"
)

// totalEpsilon is the tolerance between the client-declared total and the
// recomputed one, in currency units.
const totalEpsilon = 0.01

type OrderItemInput struct {
	MenuItemID uint    `json:"menu_item_id" binding:"required"`
	Quantity   int     `json:"quantity" binding:"required"`
	UnitPrice  float64 `json:"unit_price"`
	Notes      string  `json:"notes"`
}

type CreateOrderInput struct {
	RestaurantID  uint             `json:"restaurant_id" binding:"required"`
	CustomerName  string           `json:"customer_name" binding:"required"`
	CustomerPhone string           `json:"customer_phone"`
	CustomerEmail string           `json:"customer_email"`
	Items         []OrderItemInput `json:"items" binding:"required"`
	TotalAmount   float64          `json:"total_amount" binding:"required"`
}

// OrderService drives the order lifecycle: creation with catalog validation,
// forward-only status transitions, cancellation and staff edits.
type OrderService struct {
	db       *gorm.DB
	catalog  MenuCatalogGateway
	payments *PaymentService
}

func NewOrderService(db *gorm.DB, catalog MenuCatalogGateway, payments *PaymentService) *OrderService {
	return &OrderService{db: db, catalog: catalog, payments: payments}
}

// CreateOrder validates the customer input, re-prices every line item against
// the live catalog, checks the declared total and persists the order. On any
// failure nothing is written.
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	order := &models.Order{
		RestaurantID:  input.RestaurantID,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		CustomerEmail: input.CustomerEmail,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.OrderPaymentPending,
		Items:         buildItems(input.Items),
	}

	if verr := order.Validate(); verr != nil {
		return nil, verr
	}

	var restaurant models.Restaurant
	if err := s.db.First(&restaurant, input.RestaurantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	if !restaurant.IsOpenAt(time.Now()) {
		return nil, &models.InvalidStateError{
			Current: "closed",
			Reason:  "restaurant is not accepting orders right now",
		}
	}

	if err := s.validateItemsAgainstCatalog(order.RestaurantID, order.Items); err != nil {
		return nil, err
	}

	calculated := order.CalculateTotal()
	if math.Abs(calculated-input.TotalAmount) > totalEpsilon {
		return nil, &models.TotalMismatchError{Declared: input.TotalAmount, Calculated: calculated}
	}
	order.TotalAmount = calculated

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	}); err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Order #%d created for restaurant %d, total %s",
		order.ID, order.RestaurantID, utils.FormatCurrency(order.TotalAmount))

	return order, nil
}

// validateItemsAgainstCatalog checks every line item against the live menu
// and aggregates all mismatches into one failure. Prices must match exactly;
// there is no silent repricing.
func (s *OrderService) validateItemsAgainstCatalog(restaurantID uint, items []models.OrderItem) error {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.MenuItemID)
	}

	catalogItems, err := s.catalog.LookupItems(restaurantID, ids)
	if err != nil {
		return err
	}

	byID := make(map[uint]CatalogItem, len(catalogItems))
	for _, ci := range catalogItems {
		byID[ci.ID] = ci
	}

	var problems []string
	for _, item := range items {
		ci, found := byID[item.MenuItemID]
		switch {
		case !found:
			problems = append(problems, fmt.Sprintf("menu item %d not found", item.MenuItemID))
		case !ci.Available:
			problems = append(problems, fmt.Sprintf("%s is not available", ci.Name))
		case math.Abs(ci.Price-item.UnitPrice) > 1e-9:
			problems = append(problems, fmt.Sprintf("price changed for %s: current price is %.2f", ci.Name, ci.Price))
		}
	}

	if len(problems) > 0 {
		return &models.ItemUnavailableError{Problems: problems}
	}
	return nil
}

// UpdateStatus advances the order to the requested status. The write is a
// compare-and-set against the status read inside the transaction, so two
// staff members racing on the same order cannot both win.
func (s *OrderService) UpdateStatus(restaurantID, orderID uint, next models.OrderStatus) (*models.Order, error) {
	if !models.ValidOrderStatus(next) {
		return nil, &models.ValidationError{Violations: []string{fmt.Sprintf("unknown order status %q", next)}}
	}

	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findOrderScoped(tx, restaurantID, orderID, &order); err != nil {
			return err
		}

		if !order.CanTransitionTo(next) {
			return &models.InvalidTransitionError{Entity: "order", From: string(order.Status), To: string(next)}
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, order.Status).
			Updates(map[string]interface{}{"status": next, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race: someone moved the order first. Report the
			// transition as illegal so the caller refreshes and retries.
			return &models.InvalidTransitionError{Entity: "order", From: string(order.Status), To: string(next)}
		}

		// Reload with items so the response matches the other order reads.
		return tx.Preload("Items").First(&order, order.ID).Error
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Order #%d moved to status %s", order.ID, order.Status)
	return &order, nil
}

// Cancel aborts a non-terminal order. If the order was already paid, the
// linked payment is refund-flagged by the PaymentService inside the same
// transaction and the resulting payment status is mirrored onto the order.
func (s *OrderService) Cancel(restaurantID, orderID uint, reason string) (*models.Order, error) {
	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findOrderScoped(tx, restaurantID, orderID, &order); err != nil {
			return err
		}

		if !order.IsCancellable() {
			return &models.InvalidStateError{
				Current: string(order.Status),
				Reason:  "order can no longer be cancelled",
			}
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, order.Status).
			Updates(map[string]interface{}{
				"status":        models.OrderStatusCancelled,
				"cancel_reason": reason,
				"updated_at":    time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &models.InvalidTransitionError{Entity: "order", From: string(order.Status), To: string(models.OrderStatusCancelled)}
		}
		order.Status = models.OrderStatusCancelled
		order.CancelReason = reason

		if order.PaymentStatus == models.OrderPaymentPaid {
			mirrored, err := s.payments.refundForCancelledOrderTx(tx, &order)
			if err != nil {
				return err
			}
			if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
				Update("payment_status", mirrored).Error; err != nil {
				return err
			}
			order.PaymentStatus = mirrored
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Order #%d cancelled (payment_status=%s): %s", order.ID, order.PaymentStatus, reason)
	return &order, nil
}

// EditOrder replaces the line items, re-running the full validation pipeline
// used at creation. A pending payment is re-synced to the new total; a
// payment already in review or settled blocks the edit.
func (s *OrderService) EditOrder(restaurantID, orderID uint, newItems []OrderItemInput) (*models.Order, error) {
	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findOrderScoped(tx, restaurantID, orderID, &order); err != nil {
			return err
		}

		if !order.IsEditable() {
			return &models.InvalidStateError{
				Current: string(order.Status),
				Reason:  "delivered or cancelled orders cannot be edited",
			}
		}

		items := buildItems(newItems)
		candidate := models.Order{
			RestaurantID: order.RestaurantID,
			CustomerName: order.CustomerName,
			Items:        items,
		}
		if verr := candidate.Validate(); verr != nil {
			return verr
		}
		if err := s.validateItemsAgainstCatalog(order.RestaurantID, items); err != nil {
			return err
		}
		total := candidate.CalculateTotal()

		var payment models.Payment
		err := tx.Where("order_id = ?", order.ID).First(&payment).Error
		switch {
		case err == nil:
			if payment.Status != models.PaymentStatusPending {
				return &models.InvalidStateError{
					Current: string(payment.Status),
					Reason:  "order has a payment in progress and cannot be edited",
				}
			}
			if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).
				Updates(map[string]interface{}{"amount": total, "updated_at": time.Now()}).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// no payment yet, nothing to sync
		default:
			return err
		}

		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Updates(map[string]interface{}{"total_amount": total, "updated_at": time.Now()}).Error; err != nil {
			return err
		}

		order.Items = items
		order.TotalAmount = total
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Order #%d edited, new total %s", order.ID, utils.FormatCurrency(order.TotalAmount))
	return &order, nil
}

// GetOrder loads an order with its items, scoped to the restaurant.
func (s *OrderService) GetOrder(restaurantID, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Items").
		Where("id = ? AND restaurant_id = ?", orderID, restaurantID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func findOrderScoped(tx *gorm.DB, restaurantID, orderID uint, out *models.Order) error {
	err := tx.Where("id = ? AND restaurant_id = ?", orderID, restaurantID).First(out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return err
}

func buildItems(inputs []OrderItemInput) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, models.OrderItem{
			MenuItemID: in.MenuItemID,
			Quantity:   in.Quantity,
			UnitPrice:  in.UnitPrice,
			Notes:      in.Notes,
		})
	}
	return items
}
