package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	// Create writes the full order document. A second write under the
	// same id overwrites the first (upsert), it never duplicates.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// UpdateStatus merge-writes only the status and its transition
	// timestamp; untouched fields are not rewritten. The write is a
	// compare-and-set against the expected current status, so a
	// concurrent transition cannot slip past the state machine.
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) error
	// List returns all orders, newest first.
	List(ctx context.Context) ([]Order, error)
	// AllocateID returns a fresh unique order id.
	AllocateID(ctx context.Context) (string, error)
}

// statusColumn maps each update target to its transition timestamp column.
var statusColumn = map[Status]string{
	StatusProgress: "progress_at",
	StatusDone:     "done_at",
	StatusCanceled: "canceled_at",
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, o *Order) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO orders
		  (id, customer_name, phone, email, comment, currency, total, total_text,
		   items, status, fcm_token, owner_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
		  customer_name = EXCLUDED.customer_name,
		  phone         = EXCLUDED.phone,
		  email         = EXCLUDED.email,
		  comment       = EXCLUDED.comment,
		  currency      = EXCLUDED.currency,
		  total         = EXCLUDED.total,
		  total_text    = EXCLUDED.total_text,
		  items         = EXCLUDED.items,
		  status        = EXCLUDED.status,
		  fcm_token     = EXCLUDED.fcm_token,
		  owner_id      = EXCLUDED.owner_id,
		  created_at    = EXCLUDED.created_at
	`, o.ID, o.CustomerName, o.Phone, o.Email, o.Comment, o.Currency,
		o.Total, o.TotalText, items, o.Status, o.FCMToken, o.OwnerID, o.CreatedAt)
	return err
}

const orderColumns = `
	id, customer_name, phone, email, comment, currency, total::float8,
	total_text, items, status, fcm_token, owner_id, created_at,
	progress_at, done_at, canceled_at`

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		// Connection failures and timeouts are persistence errors, not 404s.
		return nil, err
	}
	return o, nil
}

func (r *PGRepo) UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	col, ok := statusColumn[to]
	if !ok {
		return ErrInvalidStatus
	}
	tag, err := r.db.Exec(ctx,
		fmt.Sprintf(`UPDATE orders SET status=$2, %s=$3 WHERE id=$1 AND status=$4`, col),
		id, to, at, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// The order moved concurrently (or vanished); the caller has
		// already verified existence, so this is a lost transition.
		return ErrInvalidStatus
	}
	return nil
}

func (r *PGRepo) List(ctx context.Context) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *PGRepo) AllocateID(ctx context.Context) (string, error) {
	return uuid.NewString(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var items []byte
	if err := row.Scan(&o.ID, &o.CustomerName, &o.Phone, &o.Email, &o.Comment,
		&o.Currency, &o.Total, &o.TotalText, &items, &o.Status, &o.FCMToken,
		&o.OwnerID, &o.CreatedAt, &o.ProgressAt, &o.DoneAt, &o.CanceledAt); err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, err
		}
	}
	return &o, nil
}
