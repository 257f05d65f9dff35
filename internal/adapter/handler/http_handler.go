package handler

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rl1809/table-order/internal/core/domain"
	"github.com/rl1809/table-order/internal/core/service"
)

// ChimeSource reports the sequence number of the latest audio cue.
type ChimeSource interface {
	Latest() uint64
}

type HTTPHandler struct {
	orderService *service.OrderService
	board        *service.Board
	menu         *service.Menu
	chime        ChimeSource
	recent       int
}

type PlaceOrderHTTPRequest struct {
	RequestID string        `json:"request_id"`
	TableName string        `json:"table_name"`
	Items     []LineRequest `json:"items"`
}

type StatusHTTPRequest struct {
	Status string `json:"status"`
}

type SoundHTTPRequest struct {
	Muted bool `json:"muted"`
}

func NewHTTPHandler(orderService *service.OrderService, board *service.Board, menu *service.Menu, chime ChimeSource, recent int) *HTTPHandler {
	if recent <= 0 {
		recent = 5
	}
	return &HTTPHandler{
		orderService: orderService,
		board:        board,
		menu:         menu,
		chime:        chime,
		recent:       recent,
	}
}

func (h *HTTPHandler) Register(e *echo.Echo) {
	e.GET("/health", h.HealthCheck)

	api := e.Group("/api")
	api.GET("/menu", h.ListMenu)
	api.GET("/board", h.GetBoard)
	api.GET("/orders", h.ListOrders)
	api.GET("/orders/:id", h.GetOrder)
	api.POST("/tables/:table/orders", h.PlaceOrder)
	api.POST("/orders/:id/status", h.SetStatus)
	api.POST("/orders/:id/advance", h.Advance)

	api.GET("/notifications", h.ListNotifications)
	api.POST("/notifications/read-all", h.MarkAllRead)
	api.POST("/notifications/:id/read", h.MarkRead)
	api.DELETE("/notifications/:id", h.Dismiss)
	api.DELETE("/notifications", h.DismissAll)

	api.PUT("/sound", h.SetSound)
	api.GET("/chimes", h.Chimes)
}

func (h *HTTPHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func writeError(c echo.Context, err error) error {
	status, _, message := classify(err)
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		log.Printf("http: %s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, echo.Map{"error": message})
}

func (h *HTTPHandler) ListMenu(c echo.Context) error {
	return c.JSON(http.StatusOK, toMenuDTOs(h.menu.Items()))
}

func (h *HTTPHandler) GetBoard(c echo.Context) error {
	return c.JSON(http.StatusOK, BoardDTO{
		Stats:        toStatsDTO(h.board.Stats()),
		Unread:       h.board.Notifications().UnreadCount(),
		Muted:        h.board.Alert().Muted(),
		RecentOrders: toOrderDTOs(h.board.RecentOrders(h.recent)),
	})
}

func (h *HTTPHandler) ListOrders(c echo.Context) error {
	status := domain.OrderStatus(strings.ToLower(c.QueryParam("status")))
	if status != "" && !status.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	return c.JSON(http.StatusOK, toOrderDTOs(h.board.Orders(status)))
}

func (h *HTTPHandler) GetOrder(c echo.Context) error {
	order, err := h.orderService.GetOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderDTO(order))
}

func (h *HTTPHandler) PlaceOrder(c echo.Context) error {
	var req PlaceOrderHTTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	tableID := strings.TrimSpace(c.Param("table"))
	if tableID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing table"})
	}
	table := domain.TableRef{ID: tableID, Name: strings.TrimSpace(req.TableName)}
	if table.Name == "" {
		table.Name = "Table " + tableID
	}

	cart := service.NewCart()
	for _, line := range req.Items {
		if err := h.menu.FillCart(cart, line.MenuItemID, line.Quantity); err != nil {
			return writeError(c, err)
		}
	}

	order, err := h.orderService.PlaceOrder(c.Request().Context(), req.RequestID, cart, table)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toOrderDTO(order))
}

func (h *HTTPHandler) SetStatus(c echo.Context) error {
	var req StatusHTTPRequest
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	order, err := h.orderService.AdvanceStatus(c.Request().Context(), c.Param("id"), domain.OrderStatus(req.Status))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderDTO(order))
}

func (h *HTTPHandler) Advance(c echo.Context) error {
	order, err := h.orderService.AdvanceNext(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderDTO(order))
}

func (h *HTTPHandler) ListNotifications(c echo.Context) error {
	notifier := h.board.Notifications()
	return c.JSON(http.StatusOK, echo.Map{
		"unread":        notifier.UnreadCount(),
		"notifications": toNotificationDTOs(notifier.List()),
	})
}

func (h *HTTPHandler) MarkRead(c echo.Context) error {
	if !h.board.Notifications().MarkRead(c.Param("id")) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "notification not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *HTTPHandler) MarkAllRead(c echo.Context) error {
	h.board.Notifications().MarkAllRead()
	return c.NoContent(http.StatusNoContent)
}

func (h *HTTPHandler) Dismiss(c echo.Context) error {
	if !h.board.Notifications().Dismiss(c.Param("id")) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "notification not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *HTTPHandler) DismissAll(c echo.Context) error {
	h.board.Notifications().DismissAll()
	return c.NoContent(http.StatusNoContent)
}

func (h *HTTPHandler) SetSound(c echo.Context) error {
	var req SoundHTTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	h.board.Alert().SetMuted(req.Muted)
	return c.JSON(http.StatusOK, echo.Map{"muted": req.Muted})
}

// Chimes lets a browser play cues it has not played yet.
func (h *HTTPHandler) Chimes(c echo.Context) error {
	var latest uint64
	if h.chime != nil {
		latest = h.chime.Latest()
	}

	// a missing or bad cursor reads as zero
	after, _ := strconv.ParseUint(c.QueryParam("after"), 10, 64)
	return c.JSON(http.StatusOK, echo.Map{
		"latest": latest,
		"play":   latest > after && !h.board.Alert().Muted(),
	})
}
