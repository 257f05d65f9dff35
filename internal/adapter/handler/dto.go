package handler

import (
	"errors"
	"net/http"
	"time"

	"google.golang.org/grpc/codes"

	"github.com/rl1809/table-order/internal/core/domain"
	"github.com/rl1809/table-order/internal/core/service"
)

type OrderItemDTO struct {
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name"`
	Price      string `json:"price"`
	Quantity   int    `json:"quantity"`
	Subtotal   string `json:"subtotal"`
}

type OrderDTO struct {
	ID          string         `json:"id"`
	TableID     string         `json:"table_id"`
	TableName   string         `json:"table_name"`
	Items       []OrderItemDTO `json:"items"`
	TotalAmount string         `json:"total_amount"`
	Status      string         `json:"status"`
	NextStatus  string         `json:"next_status,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type StatsDTO struct {
	TotalOrders   int    `json:"total_orders"`
	PendingOrders int    `json:"pending_orders"`
	Revenue       string `json:"revenue"`
	ActiveTables  int    `json:"active_tables"`
}

type NotificationDTO struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	TableName string    `json:"table_name"`
	Amount    string    `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
}

type MenuItemDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Price      string `json:"price"`
	CategoryID string `json:"category_id"`
	Available  bool   `json:"available"`
}

type BoardDTO struct {
	Stats        StatsDTO   `json:"stats"`
	Unread       int        `json:"unread"`
	Muted        bool       `json:"muted"`
	RecentOrders []OrderDTO `json:"recent_orders"`
}

// LineRequest is one cart line in a place-order request.
type LineRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}

func toOrderDTO(o domain.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Price:      it.Price.StringFixed(2),
			Quantity:   it.Quantity,
			Subtotal:   it.Subtotal().StringFixed(2),
		})
	}
	dto := OrderDTO{
		ID:          o.ID,
		TableID:     o.TableID,
		TableName:   o.TableName,
		Items:       items,
		TotalAmount: o.TotalAmount.StringFixed(2),
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if next, ok := o.Status.Next(); ok {
		dto.NextStatus = string(next)
	}
	return dto
}

func toOrderDTOs(orders []domain.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderDTO(o))
	}
	return out
}

func toStatsDTO(s service.Stats) StatsDTO {
	return StatsDTO{
		TotalOrders:   s.TotalOrders,
		PendingOrders: s.PendingOrders,
		Revenue:       s.Revenue.StringFixed(2),
		ActiveTables:  s.ActiveTables,
	}
}

func toNotificationDTOs(list []domain.Notification) []NotificationDTO {
	out := make([]NotificationDTO, 0, len(list))
	for _, n := range list {
		out = append(out, NotificationDTO{
			ID:        n.ID,
			Message:   n.Message,
			TableName: n.TableName,
			Amount:    n.Amount.StringFixed(2),
			CreatedAt: n.CreatedAt,
			Read:      n.Read,
		})
	}
	return out
}

func toMenuDTOs(items []domain.MenuItem) []MenuItemDTO {
	out := make([]MenuItemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, MenuItemDTO{
			ID:         it.ID,
			Name:       it.Name,
			Price:      it.Price.StringFixed(2),
			CategoryID: it.CategoryID,
			Available:  it.Available,
		})
	}
	return out
}

type errorMapping struct {
	target  error
	http    int
	grpc    codes.Code
	message string
}

var errorMappings = []errorMapping{
	{domain.ErrEmptyCart, http.StatusBadRequest, codes.InvalidArgument, "cart is empty"},
	{domain.ErrItemUnavailable, http.StatusBadRequest, codes.InvalidArgument, "menu item unavailable"},
	{domain.ErrInvalidQuantity, http.StatusBadRequest, codes.InvalidArgument, "invalid quantity"},
	{domain.ErrMalformedOrder, http.StatusBadRequest, codes.InvalidArgument, "malformed order"},
	{domain.ErrInvalidTransition, http.StatusConflict, codes.FailedPrecondition, "invalid status transition"},
	{domain.ErrDuplicateRequest, http.StatusConflict, codes.AlreadyExists, "duplicate request"},
	{domain.ErrNotFound, http.StatusNotFound, codes.NotFound, "order not found"},
	{domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codes.Unavailable, "store unavailable"},
}

// classify maps a service error to transport codes and a client-safe message.
func classify(err error) (int, codes.Code, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.http, m.grpc, m.message
		}
	}
	return http.StatusInternalServerError, codes.Internal, "internal error"
}
