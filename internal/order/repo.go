package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrAlreadyThere: the order is already at or past the requested status.
	// Callers treat this as a no-op, not a failure.
	ErrAlreadyThere = errors.New("order already at or past requested status")
	// ErrIllegalTransition: the requested status skips a stage or leaves the
	// allowed path (e.g. cancelling a delivering order).
	ErrIllegalTransition = errors.New("illegal status transition")
)

type Repository interface {
	Create(ctx context.Context, o *Order, lines []Line) error
	GetByID(ctx context.Context, id string) (*Order, []Line, error)
	Advance(ctx context.Context, id string, to Status) (*Order, error)
	SetPaymentStatus(ctx context.Context, id string, ps PaymentStatus) (*Order, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, o *Order, lines []Line) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
    INSERT INTO orders (id, customer_id, status, payment_method, payment_status, total, shipping_address, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
  `, o.ID, o.CustomerID, o.Status, o.PaymentMethod, o.PaymentStatus, o.Total, o.ShippingAddress); err != nil {
		return err
	}

	for _, l := range lines {
		if _, err := tx.Exec(ctx, `
      INSERT INTO order_lines (id, order_id, line_item_id, quantity, unit_price, subtotal)
      VALUES ($1,$2,$3,$4,$5,$6)
    `, l.ID, o.ID, l.LineItemID, l.Quantity, l.UnitPrice, l.Subtotal); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, []Line, error) {
	var o Order
	if err := r.db.QueryRow(ctx, `
    SELECT id,customer_id,status,payment_method,payment_status,total::text,shipping_address,created_at,updated_at
    FROM orders WHERE id=$1
  `, id).Scan(&o.ID, &o.CustomerID, &o.Status, &o.PaymentMethod, &o.PaymentStatus, &o.Total, &o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, nil, ErrNotFound
	}
	rows, err := r.db.Query(ctx, `
    SELECT id,order_id,line_item_id,quantity,unit_price::text,subtotal::text
    FROM order_lines WHERE order_id=$1
  `, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.LineItemID, &l.Quantity, &l.UnitPrice, &l.Subtotal); err != nil {
			return nil, nil, err
		}
		lines = append(lines, l)
	}
	return &o, lines, rows.Err()
}

// Advance applies a single guarded transition. The UPDATE carries the guard
// in its WHERE clause so two racing orchestrator calls cannot both win; the
// loser re-reads and reports ErrAlreadyThere or ErrIllegalTransition from the
// authoritative row.
func (r *PGRepo) Advance(ctx context.Context, id string, to Status) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cur, _, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(cur.Status, to); err != nil {
		return cur, err
	}

	tag, err := r.db.Exec(ctx, `
    UPDATE orders
    SET status = $3, updated_at = NOW()
    WHERE id = $1 AND status = $2
  `, id, cur.Status, to)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		// Lost a race; decide again from the fresh row.
		fresh, _, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return fresh, CheckTransition(fresh.Status, to)
	}
	fresh, _, err := r.GetByID(ctx, id)
	return fresh, err
}

// CheckTransition classifies the requested move from the current status.
func CheckTransition(from, to Status) error {
	if !to.Valid() {
		return ErrIllegalTransition
	}
	if from == to || from.AtOrPast(to) {
		return ErrAlreadyThere
	}
	if !from.CanAdvanceTo(to) {
		return ErrIllegalTransition
	}
	return nil
}

func (r *PGRepo) SetPaymentStatus(ctx context.Context, id string, ps PaymentStatus) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
    UPDATE orders
    SET payment_status = $2, updated_at = NOW()
    WHERE id = $1
  `, id, ps)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	o, _, err := r.GetByID(ctx, id)
	return o, err
}
