package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/tecelana/fichas/internal/domain/errors"
	"github.com/tecelana/fichas/internal/domain/model"
	"github.com/tecelana/fichas/internal/domain/repository"
	"github.com/tecelana/fichas/internal/pkg/token"
)

// dbPool is the subset of pgxpool.Pool used by the storage layer. Narrowing it
// to an interface lets tests swap in pgxmock.
type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Storage acts as repository facade backed by PostgreSQL. All cross-request
// coordination is pushed to the database's atomic update primitives; the
// service itself keeps no mutable shared state.
type Storage struct {
	pool      dbPool
	logger    *slog.Logger
	generator token.Generator
}

type orderRepository struct {
	storage *Storage
}

type tokenRepository struct {
	storage *Storage
}

type catalogRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger, generator token.Generator) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger, generator: generator}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) Tokens() repository.TokenRepository {
	return &tokenRepository{storage: s}
}

func (s *Storage) Catalog() repository.CatalogRepository {
	return &catalogRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS catalog_items (
            id BIGSERIAL PRIMARY KEY,
            title TEXT NOT NULL,
            price BIGINT NOT NULL,
            file_key TEXT NOT NULL DEFAULT '',
            active BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id TEXT PRIMARY KEY,
            buyer_email TEXT NOT NULL,
            status TEXT NOT NULL,
            total BIGINT NOT NULL,
            preference_ref TEXT NOT NULL DEFAULT '',
            payment_ref TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS order_items (
            id BIGSERIAL PRIMARY KEY,
            order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
            catalog_item_id BIGINT NOT NULL REFERENCES catalog_items(id),
            title TEXT NOT NULL,
            unit_price BIGINT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS capability_tokens (
            token TEXT PRIMARY KEY,
            order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
            scope TEXT NOT NULL,
            catalog_item_id BIGINT REFERENCES catalog_items(id),
            expires_at TIMESTAMPTZ NOT NULL,
            use_count INT NOT NULL DEFAULT 0,
            use_ceiling INT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tokens_order_scope ON capability_tokens(order_id, scope)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// --- OrderRepository implementation ---

func (r *orderRepository) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const insertOrder = `INSERT INTO orders (id, buyer_email, status, total)
                             VALUES ($1, $2, $3, $4)
                             RETURNING created_at`
		if err := tx.QueryRow(ctx, insertOrder, order.ID, order.BuyerEmail, order.Status, order.Total).Scan(&order.CreatedAt); err != nil {
			return err
		}

		const insertItem = `INSERT INTO order_items (order_id, catalog_item_id, title, unit_price)
                            VALUES ($1, $2, $3, $4)
                            RETURNING id`
		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			if err := tx.QueryRow(ctx, insertItem, order.ID, item.CatalogItemID, item.Title, item.UnitPrice).Scan(&item.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	const query = `SELECT id, buyer_email, status, total, preference_ref, payment_ref, created_at
                   FROM orders WHERE id=$1`
	var o model.Order
	err := r.storage.pool.QueryRow(ctx, query, id).Scan(&o.ID, &o.BuyerEmail, &o.Status, &o.Total, &o.PreferenceRef, &o.PaymentRef, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}

	items, err := r.storage.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

// TransitionToPaid flips a pending order to paid with one conditional UPDATE.
// The guard on the current status makes the transition idempotent under
// concurrent duplicate notifications: only one caller observes a returned row.
func (r *orderRepository) TransitionToPaid(ctx context.Context, id, paymentRef string) (*model.Order, bool, error) {
	// Line items are immutable once written, so they are read before the
	// status flip. A failing read leaves the order pending and the provider's
	// next retry gets a fresh attempt at the whole transition.
	items, err := r.storage.loadItems(ctx, id)
	if err != nil {
		return nil, false, err
	}

	const update = `UPDATE orders SET status=$2, payment_ref=$3
                    WHERE id=$1 AND status=$4
                    RETURNING id, buyer_email, status, total, preference_ref, payment_ref, created_at`
	var o model.Order
	err = r.storage.pool.QueryRow(ctx, update, id, model.OrderStatusPaid, paymentRef, model.OrderStatusPending).
		Scan(&o.ID, &o.BuyerEmail, &o.Status, &o.Total, &o.PreferenceRef, &o.PaymentRef, &o.CreatedAt)
	if err == nil {
		o.Items = items
		return &o, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	// No pending row: either the order is unknown or the transition already
	// happened. Both resolve through a plain read.
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *orderRepository) RecordPreference(ctx context.Context, id, preferenceRef string) error {
	const update = `UPDATE orders SET preference_ref=$2 WHERE id=$1`
	tag, err := r.storage.pool.Exec(ctx, update, id, preferenceRef)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (s *Storage) loadItems(ctx context.Context, orderID string) ([]model.LineItem, error) {
	const query = `SELECT id, order_id, catalog_item_id, title, unit_price
                   FROM order_items WHERE order_id=$1 ORDER BY id`
	rows, err := s.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.LineItem
	for rows.Next() {
		var item model.LineItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.CatalogItemID, &item.Title, &item.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// --- TokenRepository implementation ---

const tokenColumns = `token, order_id, scope, catalog_item_id, expires_at, use_count, use_ceiling, created_at`

func scanToken(row pgx.Row, t *model.CapabilityToken) error {
	return row.Scan(&t.Token, &t.OrderID, &t.Scope, &t.CatalogItemID, &t.ExpiresAt, &t.UseCount, &t.UseCeiling, &t.CreatedAt)
}

// IssueOrReuse returns a still-valid token for (order, scope, item) or mints a
// fresh one. The owning order row is locked for the duration of the decision,
// so concurrent callers cannot mint duplicates.
func (r *tokenRepository) IssueOrReuse(ctx context.Context, orderID string, scope model.TokenScope, itemID *int64, ttl time.Duration, ceiling int) (*model.CapabilityToken, error) {
	var result model.CapabilityToken
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const lockOrder = `SELECT status FROM orders WHERE id=$1 FOR UPDATE`
		var status model.OrderStatus
		if err := tx.QueryRow(ctx, lockOrder, orderID).Scan(&status); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}

		const findValid = `SELECT ` + tokenColumns + `
                           FROM capability_tokens
                           WHERE order_id=$1 AND scope=$2 AND catalog_item_id IS NOT DISTINCT FROM $3
                             AND expires_at > NOW()
                             AND (use_ceiling = 0 OR use_count < use_ceiling)
                           ORDER BY created_at DESC
                           LIMIT 1`
		err := scanToken(tx.QueryRow(ctx, findValid, orderID, scope, itemID), &result)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		value, err := r.storage.generator.Generate()
		if err != nil {
			return fmt.Errorf("generate token: %w", err)
		}

		const insert = `INSERT INTO capability_tokens (token, order_id, scope, catalog_item_id, expires_at, use_ceiling)
                        VALUES ($1, $2, $3, $4, NOW() + $5, $6)
                        RETURNING ` + tokenColumns
		return scanToken(tx.QueryRow(ctx, insert, value, orderID, scope, itemID, ttl, ceiling), &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Redeem validates a token and consumes one use. The row lock serializes
// concurrent redemptions, so successful uses never exceed the ceiling.
func (r *tokenRepository) Redeem(ctx context.Context, value string) (*model.CapabilityToken, *model.Order, error) {
	var (
		t     model.CapabilityToken
		order *model.Order
	)
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const lockToken = `SELECT ` + tokenColumns + `, NOW()
                           FROM capability_tokens WHERE token=$1 FOR UPDATE`
		var now time.Time
		err := tx.QueryRow(ctx, lockToken, value).
			Scan(&t.Token, &t.OrderID, &t.Scope, &t.CatalogItemID, &t.ExpiresAt, &t.UseCount, &t.UseCeiling, &t.CreatedAt, &now)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}

		if err := checkToken(t, now); err != nil {
			return err
		}

		const loadOrder = `SELECT id, buyer_email, status, total, preference_ref, payment_ref, created_at
                           FROM orders WHERE id=$1`
		var o model.Order
		if err := tx.QueryRow(ctx, loadOrder, t.OrderID).Scan(&o.ID, &o.BuyerEmail, &o.Status, &o.Total, &o.PreferenceRef, &o.PaymentRef, &o.CreatedAt); err != nil {
			return err
		}
		if o.Status != model.OrderStatusPaid {
			return domainErrors.ErrForbidden
		}

		// A download whose backing file went away must not burn a use;
		// otherwise retries would exhaust the ceiling on an unservable token.
		if t.Scope == model.ScopeDownload && t.CatalogItemID != nil {
			const checkItem = `SELECT active, file_key FROM catalog_items WHERE id=$1`
			var (
				active  bool
				fileKey string
			)
			if err := tx.QueryRow(ctx, checkItem, *t.CatalogItemID).Scan(&active, &fileKey); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return fmt.Errorf("%w: file unavailable", domainErrors.ErrNotFound)
				}
				return err
			}
			if !active || fileKey == "" {
				return fmt.Errorf("%w: file unavailable", domainErrors.ErrNotFound)
			}
		}

		const consume = `UPDATE capability_tokens SET use_count = use_count + 1 WHERE token=$1`
		if _, err := tx.Exec(ctx, consume, value); err != nil {
			return err
		}
		t.UseCount++
		order = &o
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &t, order, nil
}

// Resolve validates a token without consuming a use.
func (r *tokenRepository) Resolve(ctx context.Context, value string) (*model.CapabilityToken, *model.Order, error) {
	const query = `SELECT t.token, t.order_id, t.scope, t.catalog_item_id, t.expires_at, t.use_count, t.use_ceiling, t.created_at,
                          o.id, o.buyer_email, o.status, o.total, o.preference_ref, o.payment_ref, o.created_at, NOW()
                   FROM capability_tokens t
                   JOIN orders o ON o.id = t.order_id
                   WHERE t.token=$1`
	var (
		t   model.CapabilityToken
		o   model.Order
		now time.Time
	)
	err := r.storage.pool.QueryRow(ctx, query, value).
		Scan(&t.Token, &t.OrderID, &t.Scope, &t.CatalogItemID, &t.ExpiresAt, &t.UseCount, &t.UseCeiling, &t.CreatedAt,
			&o.ID, &o.BuyerEmail, &o.Status, &o.Total, &o.PreferenceRef, &o.PaymentRef, &o.CreatedAt, &now)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, domainErrors.ErrNotFound
		}
		return nil, nil, err
	}

	if err := checkToken(t, now); err != nil {
		return nil, nil, err
	}
	if o.Status != model.OrderStatusPaid {
		return nil, nil, domainErrors.ErrForbidden
	}

	items, err := r.storage.loadItems(ctx, o.ID)
	if err != nil {
		return nil, nil, err
	}
	o.Items = items
	return &t, &o, nil
}

// checkToken applies the expiry and ceiling rules against database time.
func checkToken(t model.CapabilityToken, now time.Time) error {
	if !now.Before(t.ExpiresAt) {
		return domainErrors.ErrExpired
	}
	if t.UseCeiling != model.UnlimitedUses && t.UseCount >= t.UseCeiling {
		return domainErrors.ErrExhausted
	}
	return nil
}

// --- CatalogRepository implementation ---

func (r *catalogRepository) GetByID(ctx context.Context, id int64) (*model.CatalogItem, error) {
	const query = `SELECT id, title, price, file_key, active, created_at FROM catalog_items WHERE id=$1`
	var item model.CatalogItem
	err := r.storage.pool.QueryRow(ctx, query, id).Scan(&item.ID, &item.Title, &item.Price, &item.FileKey, &item.Active, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *catalogRepository) ListByIDs(ctx context.Context, ids []int64) ([]model.CatalogItem, error) {
	const query = `SELECT id, title, price, file_key, active, created_at
                   FROM catalog_items WHERE id = ANY($1) ORDER BY id`
	rows, err := r.storage.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.CatalogItem
	for rows.Next() {
		var item model.CatalogItem
		if err := rows.Scan(&item.ID, &item.Title, &item.Price, &item.FileKey, &item.Active, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
