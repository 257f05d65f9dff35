package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/table-order/internal/core/domain"
	"github.com/rl1809/table-order/internal/port"
)

const defaultPollInterval = 2 * time.Second

const orderColumns = `id, table_id, table_name, items, total_amount, status, created_at, updated_at`

// SQLStore persists orders in MySQL, PostgreSQL or SQLite. Subscriptions poll
// the table and are woken early by local writes and by the change signal.
type SQLStore struct {
	db           *sql.DB
	dialect      Dialect
	pollInterval time.Duration
	signal       port.ChangeSignal

	mu      sync.Mutex
	waiters map[*sqlSubscription]struct{}
}

type SQLStoreOption func(*SQLStore)

func WithPollInterval(d time.Duration) SQLStoreOption {
	return func(s *SQLStore) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithChangeSignal shares write notifications with other processes.
func WithChangeSignal(signal port.ChangeSignal) SQLStoreOption {
	return func(s *SQLStore) { s.signal = signal }
}

func NewSQLStore(db *sql.DB, dialect Dialect, opts ...SQLStoreOption) *SQLStore {
	s := &SQLStore{
		db:           db,
		dialect:      dialect,
		pollInterval: defaultPollInterval,
		waiters:      make(map[*sqlSubscription]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SQLStore) migrations() []string {
	if s.dialect == DialectMySQL {
		return []string{`
			CREATE TABLE IF NOT EXISTS orders (
				id VARCHAR(64) PRIMARY KEY,
				table_id VARCHAR(64) NOT NULL,
				table_name VARCHAR(128) NOT NULL,
				items TEXT NOT NULL,
				total_amount VARCHAR(32) NOT NULL,
				status VARCHAR(16) NOT NULL,
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL,
				INDEX idx_orders_created_at (created_at)
			)`}
	}
	return []string{`
		CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(64) PRIMARY KEY,
			table_id VARCHAR(64) NOT NULL,
			table_name VARCHAR(128) NOT NULL,
			items TEXT NOT NULL,
			total_amount VARCHAR(32) NOT NULL,
			status VARCHAR(16) NOT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders (created_at)`,
	}
}

// Migrate creates the orders table if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.migrations() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate orders: %w", err)
		}
	}
	return nil
}

type storedItem struct {
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func (s *SQLStore) CreateOrder(ctx context.Context, order domain.Order) (string, error) {
	order.ID = uuid.NewString()
	if err := order.Validate(); err != nil {
		return "", err
	}

	items := make([]storedItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, storedItem{MenuItemID: it.MenuItemID, Name: it.Name, Price: it.Price, Quantity: it.Quantity})
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		order.ID, order.TableID, order.TableName, string(itemsJSON),
		order.TotalAmount.String(), string(order.Status),
		toMillis(order.CreatedAt), toMillis(order.UpdatedAt),
	)
	if err != nil {
		return "", fmt.Errorf("%w: insert order: %w", domain.ErrStoreUnavailable, err)
	}

	s.changed(ctx)
	return order.ID, nil
}

func (s *SQLStore) UpdateOrder(ctx context.Context, id string, patch domain.OrderPatch) error {
	var sets []string
	var args []any
	if patch.Status != "" {
		sets = append(sets, "status = ?")
		args = append(args, string(patch.Status))
	}
	if !patch.UpdatedAt.IsZero() {
		sets = append(sets, "updated_at = ?")
		args = append(args, toMillis(patch.UpdatedAt))
	}
	if len(sets) == 0 {
		return nil
	}

	query := "UPDATE orders SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)
	if patch.IfStatus != "" {
		query += " AND status = ?"
		args = append(args, string(patch.IfStatus))
	}

	result, err := s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("%w: update order: %w", domain.ErrStoreUnavailable, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		// MySQL reports zero rows when the values are unchanged, so look before deciding
		current, err := s.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if patch.IfStatus != "" && current.Status != patch.IfStatus {
			return domain.ErrStatusConflict
		}
	}

	s.changed(ctx)
	return nil
}

func (s *SQLStore) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+orderColumns+` FROM orders WHERE id = ?`), id)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: query order: %w", domain.ErrStoreUnavailable, err)
	}
	return order, nil
}

// ListOrders returns matching orders oldest first. Rows that fail validation
// are skipped and logged so one bad record cannot break the feed.
func (s *SQLStore) ListOrders(ctx context.Context, query domain.OrderQuery) ([]domain.Order, error) {
	stmt := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if len(query.Statuses) > 0 {
		marks := make([]string, len(query.Statuses))
		for i, st := range query.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		stmt += " WHERE status IN (" + strings.Join(marks, ", ") + ")"
	}
	stmt += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(stmt), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			log.Printf("sql store: skipping order row: %v", err)
			continue
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list orders: %w", domain.ErrStoreUnavailable, err)
	}
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order              domain.Order
		itemsJSON, total   string
		status             string
		createdAt, updated int64
	)
	if err := row.Scan(&order.ID, &order.TableID, &order.TableName, &itemsJSON, &total, &status, &createdAt, &updated); err != nil {
		return domain.Order{}, err
	}

	var items []storedItem
	if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
		return domain.Order{}, fmt.Errorf("%w: order %s items: %v", domain.ErrMalformedOrder, order.ID, err)
	}
	for _, it := range items {
		order.Items = append(order.Items, domain.OrderItem{MenuItemID: it.MenuItemID, Name: it.Name, Price: it.Price, Quantity: it.Quantity})
	}

	if total != "" {
		amount, err := decimal.NewFromString(total)
		if err != nil {
			return domain.Order{}, fmt.Errorf("%w: order %s total %q", domain.ErrMalformedOrder, order.ID, total)
		}
		order.TotalAmount = amount
	}

	order.Status = domain.OrderStatus(status)
	order.CreatedAt = fromMillis(createdAt)
	order.UpdatedAt = fromMillis(updated)

	if err := order.Validate(); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// changed wakes local subscriptions and tells other processes.
func (s *SQLStore) changed(ctx context.Context) {
	s.mu.Lock()
	for sub := range s.waiters {
		select {
		case sub.kick <- struct{}{}:
		default:
		}
	}
	s.mu.Unlock()

	if s.signal != nil {
		if err := s.signal.NotifyOrdersChanged(ctx); err != nil {
			log.Printf("sql store: change signal failed: %v", err)
		}
	}
}

// version reads the shared change counter, or -1 when it is unknown.
func (s *SQLStore) version(ctx context.Context) int64 {
	if s.signal == nil {
		return -1
	}
	v, err := s.signal.OrdersVersion(ctx)
	if err != nil {
		log.Printf("sql store: read change version: %v", err)
		return -1
	}
	return v
}

func (s *SQLStore) Subscribe(ctx context.Context, query domain.OrderQuery) (port.Subscription, error) {
	version := s.version(ctx)
	initial, err := s.ListOrders(ctx, query)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &sqlSubscription{
		out:    make(chan domain.SnapshotEvent),
		kick:   make(chan struct{}, 1),
		cancel: cancel,
	}

	s.mu.Lock()
	s.waiters[sub] = struct{}{}
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.waiters, sub)
			s.mu.Unlock()
			close(sub.out)
		}()
		s.poll(ctx, sub, query, initial, version)
	}()

	return sub, nil
}

// poll re-reads the table on every wake-up. Timer wake-ups are skipped while
// the shared change version has not moved since the last read.
func (s *SQLStore) poll(ctx context.Context, sub *sqlSubscription, query domain.OrderQuery, prev []domain.Order, lastVersion int64) {
	if !sub.send(ctx, domain.InitialEvent(prev)) {
		return
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var remote <-chan struct{}
	if s.signal != nil {
		remote = s.signal.WatchOrderChanges(ctx)
	}

	for {
		timer := false
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			timer = true
		case <-sub.kick:
		case _, ok := <-remote:
			if !ok {
				remote = nil
				continue
			}
		}

		version := s.version(ctx)
		if timer && version >= 0 && version == lastVersion {
			continue
		}

		next, err := s.ListOrders(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("sql store: poll failed: %v", err)
			continue
		}
		lastVersion = version

		changes := diffSnapshots(prev, next)
		if len(changes) == 0 {
			continue
		}
		prev = next
		if !sub.send(ctx, domain.SnapshotEvent{Snapshot: next, Changes: changes}) {
			return
		}
	}
}

type sqlSubscription struct {
	out    chan domain.SnapshotEvent
	kick   chan struct{}
	cancel context.CancelFunc
}

func (s *sqlSubscription) Events() <-chan domain.SnapshotEvent {
	return s.out
}

func (s *sqlSubscription) Close() error {
	s.cancel()
	return nil
}

func (s *sqlSubscription) send(ctx context.Context, event domain.SnapshotEvent) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case s.out <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
