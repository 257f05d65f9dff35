package handler

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/table-order/internal/adapter/sound"
	"github.com/rl1809/table-order/internal/adapter/storage"
	"github.com/rl1809/table-order/internal/core/domain"
	"github.com/rl1809/table-order/internal/core/service"
)

// fixture wires a full in-memory pipeline: store, hub, board and services.
type fixture struct {
	store *storage.MemoryStore
	board *service.Board
	svc   *service.OrderService
	menu  *service.Menu
	chime *sound.Chime
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := storage.NewMemoryStore()
	chime := sound.NewChime()
	board := service.NewBoard(service.NewNotificationEngine(0, 0), service.NewAlertDispatcher(chime), nil)
	hub := service.NewFeedHub(store, domain.OrderQuery{})

	ctx, cancel := context.WithCancel(context.Background())
	board.Attach(ctx, hub)
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()

	readyCtx, readyCancel := context.WithTimeout(ctx, 2*time.Second)
	defer readyCancel()
	if err := hub.WaitReady(readyCtx); err != nil {
		cancel()
		t.Fatalf("hub not ready: %v", err)
	}

	t.Cleanup(func() {
		cancel()
		<-done
		board.Alert().Wait()
	})

	menu := service.NewMenu(
		domain.MenuItem{ID: "pho", Name: "Pho", Price: decimal.RequireFromString("9.50"), CategoryID: "mains", Available: true},
		domain.MenuItem{ID: "tea", Name: "Tea", Price: decimal.RequireFromString("1.25"), CategoryID: "drinks", Available: true},
	)

	return &fixture{
		store: store,
		board: board,
		svc:   service.NewOrderService(store, service.WithCache(storage.NewMemoryCache())),
		menu:  menu,
		chime: chime,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
