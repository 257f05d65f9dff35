package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/table-order/internal/adapter/sound"
	"github.com/rl1809/table-order/internal/adapter/storage"
	"github.com/rl1809/table-order/internal/core/domain"
	"github.com/rl1809/table-order/internal/core/service"
)

const (
	tableCount      = 20
	retriesPerTable = 3
	staffCount      = 4
	queueSize       = 1000
	settleTimeout   = 5 * time.Second
)

// kitchen is a second consumer on the shared feed; it only tracks how many
// orders sit in each status.
type kitchen struct {
	mu       sync.Mutex
	byStatus map[domain.OrderStatus]int
}

func (k *kitchen) ApplySnapshot(_ context.Context, event domain.SnapshotEvent) {
	counts := make(map[domain.OrderStatus]int)
	for _, o := range event.Snapshot {
		counts[o.Status]++
	}
	k.mu.Lock()
	k.byStatus = counts
	k.mu.Unlock()
}

func (k *kitchen) count(status domain.OrderStatus) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.byStatus[status]
}

// countingSink stands in for the broker.
type countingSink struct {
	placed  atomic.Int32
	changed atomic.Int32
}

func (s *countingSink) PublishOrderEvent(_ context.Context, event domain.OrderEvent) error {
	switch event.Type {
	case domain.OrderEventPlaced:
		s.placed.Add(1)
	case domain.OrderEventStatusChanged:
		s.changed.Add(1)
	}
	return nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := storage.NewMemoryStore()
	sink := &countingSink{}
	events := service.NewEventQueue(sink, queueSize)
	events.Start(2)

	orderService := service.NewOrderService(store,
		service.WithCache(storage.NewMemoryCache()),
		service.WithPublisher(events),
	)

	chime := sound.NewChime()
	board := service.NewBoard(service.NewNotificationEngine(0, 0), service.NewAlertDispatcher(chime), nil)
	kitchenView := &kitchen{}

	hub := service.NewFeedHub(store, domain.OrderQuery{})
	board.Attach(ctx, hub)
	hub.Register(ctx, kitchenView)

	go func() {
		if err := hub.Run(ctx); err != nil {
			log.Printf("simulate: feed stopped: %v", err)
		}
	}()
	if err := hub.WaitReady(ctx); err != nil {
		log.Fatalf("feed not ready: %v", err)
	}

	menu := service.NewMenu(
		domain.MenuItem{ID: "pho-bo", Name: "Pho Bo", Price: decimal.RequireFromString("12.00"), Available: true},
		domain.MenuItem{ID: "iced-coffee", Name: "Iced Coffee", Price: decimal.RequireFromString("3.75"), Available: true},
	)
	perOrder := decimal.RequireFromString("27.75")

	// Customers: every table taps "order" several times with one request id
	var (
		placedCount    atomic.Int32
		duplicateCount atomic.Int32
		failCount      atomic.Int32
		idsMu          sync.Mutex
		orderIDs       []string
		wg             sync.WaitGroup
	)
	start := time.Now()

	for table := 1; table <= tableCount; table++ {
		for attempt := 0; attempt < retriesPerTable; attempt++ {
			wg.Add(1)
			go func(table int) {
				defer wg.Done()

				cart := service.NewCart()
				if err := menu.FillCart(cart, "pho-bo", 2); err != nil {
					failCount.Add(1)
					return
				}
				if err := menu.FillCart(cart, "iced-coffee", 1); err != nil {
					failCount.Add(1)
					return
				}

				ref := domain.TableRef{ID: fmt.Sprint(table), Name: fmt.Sprintf("Table %d", table)}
				order, err := orderService.PlaceOrder(ctx, fmt.Sprintf("table-%d", table), cart, ref)
				switch {
				case err == nil:
					placedCount.Add(1)
					idsMu.Lock()
					orderIDs = append(orderIDs, order.ID)
					idsMu.Unlock()
				case errors.Is(err, domain.ErrDuplicateRequest):
					duplicateCount.Add(1)
				default:
					log.Printf("simulate: table %d: %v", table, err)
					failCount.Add(1)
				}
			}(table)
		}
	}
	wg.Wait()

	// Wait for the board to see every order before staff start
	waitUntil(func() bool { return board.Stats().PendingOrders == tableCount })
	pendingPeak := board.Stats().PendingOrders
	notified := len(board.Notifications().List())

	// Staff: several people race to advance the same tickets
	var advanced, conflicts atomic.Int32
	for s := 0; s < staffCount; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, id := range orderIDs {
				for {
					order, err := orderService.AdvanceNext(ctx, id)
					if err == nil {
						advanced.Add(1)
						if order.Status == domain.OrderStatusCompleted {
							break
						}
						continue
					}
					if !errors.Is(err, domain.ErrInvalidTransition) {
						log.Printf("simulate: advance %s: %v", id, err)
						break
					}
					current, getErr := orderService.GetOrder(ctx, id)
					if getErr != nil || current.Status == domain.OrderStatusCompleted {
						break
					}
					conflicts.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	waitUntil(func() bool { return kitchenView.count(domain.OrderStatusCompleted) == tableCount })
	stats := board.Stats()

	board.Close()
	cancel()
	board.Alert().Wait()
	events.Close()

	// Results
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "========== SIMULATION RESULTS ==========")
	fmt.Fprintf(tw, "Tables:\t%d\n", tableCount)
	fmt.Fprintf(tw, "Place attempts:\t%d\n", tableCount*retriesPerTable)
	fmt.Fprintf(tw, "Placed:\t%d\n", placedCount.Load())
	fmt.Fprintf(tw, "Duplicates:\t%d\n", duplicateCount.Load())
	fmt.Fprintf(tw, "Failed:\t%d\n", failCount.Load())
	fmt.Fprintf(tw, "Peak pending:\t%d\n", pendingPeak)
	fmt.Fprintf(tw, "Notifications:\t%d\n", notified)
	fmt.Fprintf(tw, "Chimes:\t%d\n", chime.Latest())
	fmt.Fprintf(tw, "Advances:\t%d\n", advanced.Load())
	fmt.Fprintf(tw, "Staff conflicts:\t%d\n", conflicts.Load())
	fmt.Fprintf(tw, "Revenue:\t%s\n", stats.Revenue.StringFixed(2))
	fmt.Fprintf(tw, "Events placed/changed:\t%d/%d\n", sink.placed.Load(), sink.changed.Load())
	fmt.Fprintf(tw, "Board deliveries:\t%d\n", board.Deliveries())
	fmt.Fprintf(tw, "Duration:\t%v\n", elapsed)
	fmt.Fprintln(tw, "=========================================")
	tw.Flush()

	check(placedCount.Load() == tableCount && duplicateCount.Load() == tableCount*(retriesPerTable-1),
		fmt.Sprintf("exactly one order per table (%d placed, %d duplicates)", placedCount.Load(), duplicateCount.Load()))
	check(advanced.Load() == 3*tableCount,
		fmt.Sprintf("every order advanced exactly three times (%d)", advanced.Load()))
	check(stats.PendingOrders == 0 && stats.ActiveTables == 0,
		fmt.Sprintf("kitchen cleared (pending %d, active tables %d)", stats.PendingOrders, stats.ActiveTables))
	want := perOrder.Mul(decimal.NewFromInt(tableCount))
	check(stats.Revenue.Equal(want),
		fmt.Sprintf("revenue %s matches %s", stats.Revenue.StringFixed(2), want.StringFixed(2)))
	check(chime.Latest() >= 1, "new orders rang the alert")
	check(int(sink.placed.Load()) == tableCount && int(sink.changed.Load()) == 3*tableCount,
		"every write published one event")
}

func waitUntil(cond func() bool) {
	deadline := time.Now().Add(settleTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func check(ok bool, what string) {
	if ok {
		fmt.Printf("PASS: %s\n", what)
	} else {
		fmt.Printf("FAIL: %s\n", what)
	}
}
