package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wires/internal/wire/models"
	"wires/pkg/domain"
	"wires/pkg/platform/sentinel"
	"wires/pkg/platform/tx"
)

//go:embed schema.sql
var schemaSQL string

const defaultTxTimeout = 5 * time.Second

// Postgres persists wires as JSONB documents with the Dodd-Frank window
// columns projected out for querying.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgres constructs a PostgreSQL-backed wire store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, timeout: defaultTxTimeout}
}

// Migrate creates the wires table if it does not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate wires schema: %w", err)
	}
	return nil
}

func (s *Postgres) conn(ctx context.Context) tx.Querier {
	return tx.Conn(ctx, s.db)
}

func (s *Postgres) Save(ctx context.Context, wire *models.Wire) error {
	doc, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("marshal wire: %w", err)
	}

	var inWindow sql.NullBool
	var windowEnd sql.NullTime
	if df := wire.DoddFrank(); df != nil {
		inWindow = sql.NullBool{Bool: df.InCancellationWindow, Valid: true}
		windowEnd = sql.NullTime{Time: df.CancellationWindowEnd, Valid: !df.CancellationWindowEnd.IsZero()}
	}

	var tag int
	err = s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO wires (id, status, in_cancellation_window, cancellation_window_end, document, tag, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, now())
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			in_cancellation_window = EXCLUDED.in_cancellation_window,
			cancellation_window_end = EXCLUDED.cancellation_window_end,
			document = EXCLUDED.document,
			tag = wires.tag + 1,
			updated_at = now()
		WHERE wires.tag = $6
		RETURNING tag`,
		uuid.UUID(wire.ID), string(wire.Status), inWindow, windowEnd, string(doc), wire.Tag,
	).Scan(&tag)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save wire: %w", err)
	}
	wire.Tag = tag
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.WireID) (*models.Wire, error) {
	query := `SELECT document, tag FROM wires WHERE id = $1`
	if _, ok := tx.From(ctx); ok {
		query += ` FOR UPDATE`
	}
	wire, err := scanWire(s.conn(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find wire by id: %w", err)
	}
	return wire, nil
}

func (s *Postgres) FindByDoddFrankWindow(ctx context.Context, inWindow bool) ([]*models.Wire, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT document, tag FROM wires
		WHERE in_cancellation_window = $1
		ORDER BY cancellation_window_end`, inWindow)
	if err != nil {
		return nil, fmt.Errorf("find wires by dodd-frank window: %w", err)
	}
	defer rows.Close()

	var out []*models.Wire
	for rows.Next() {
		wire, err := scanWire(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wire: %w", err)
		}
		out = append(out, wire)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wires: %w", err)
	}
	return out, nil
}

// RunInTx runs fn with a transaction stored in its context; store calls made
// with that context join the transaction.
func (s *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return tx.Run(ctx, s.db, s.timeout, fn)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWire(row scanner) (*models.Wire, error) {
	var doc []byte
	var tag int
	if err := row.Scan(&doc, &tag); err != nil {
		return nil, err
	}
	var wire models.Wire
	if err := json.Unmarshal(doc, &wire); err != nil {
		return nil, fmt.Errorf("unmarshal wire: %w", err)
	}
	wire.Tag = tag
	return &wire, nil
}
