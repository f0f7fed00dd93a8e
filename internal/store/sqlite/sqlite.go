package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/store"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/store/model"
)

// DB defines the interface for database operations (satisfied by *sqlx.DB and *sqlx.Tx)
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SqliteRepository stores each profile as a row and routing as a singleton row.
// Reads and writes each run in one transaction so readers never see half a write.
type SqliteRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSqliteRepository(db *sqlx.DB) *SqliteRepository {
	return &SqliteRepository{db: db, now: time.Now}
}

func (r *SqliteRepository) Close() error {
	return r.db.Close()
}

func (r *SqliteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return domain.StorageError("Database unavailable", err)
	}
	return nil
}

func (r *SqliteRepository) withTx(ctx context.Context, fn func(tx DB) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		// attempt rollback, but prioritize original error
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *SqliteRepository) Read(ctx context.Context) (*domain.Aggregate, error) {
	var agg *domain.Aggregate

	err := r.withTx(ctx, func(tx DB) error {
		var rows []model.ProfileRow
		if err := tx.SelectContext(ctx, &rows,
			`SELECT id, position, provider, document, updated_at FROM profiles ORDER BY position`); err != nil {
			return err
		}

		out := domain.NewAggregate()
		for _, row := range rows {
			var p domain.Profile
			if err := json.Unmarshal([]byte(row.Document), &p); err != nil {
				return err
			}
			out.Profiles = append(out.Profiles, &p)
		}

		var routing model.RoutingRow
		err := tx.GetContext(ctx, &routing, `SELECT id, document, updated_at FROM routing WHERE id = 1`)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal([]byte(routing.Document), &out.Routing); err != nil {
				return err
			}
		}

		out.Normalize()
		agg = out
		return nil
	})
	if err != nil {
		return nil, domain.StorageError("Failed to read configuration", err)
	}
	return agg, nil
}

// Write replaces every row. Positions follow the aggregate's profile order.
func (r *SqliteRepository) Write(ctx context.Context, agg *domain.Aggregate) error {
	now := r.now().UTC()

	rows := make([]model.ProfileRow, 0, len(agg.Profiles))
	for i, p := range agg.Profiles {
		doc, err := json.Marshal(p)
		if err != nil {
			return domain.StorageError("Failed to encode profile", err)
		}
		rows = append(rows, model.ProfileRow{
			ID:        p.ID,
			Position:  i,
			Provider:  string(p.Provider),
			Document:  string(doc),
			UpdatedAt: now,
		})
	}

	routingDoc, err := json.Marshal(agg.Routing)
	if err != nil {
		return domain.StorageError("Failed to encode routing", err)
	}

	err = r.withTx(ctx, func(tx DB) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM profiles`); err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO profiles (id, position, provider, document, updated_at)
				 VALUES (:id, :position, :provider, :document, :updated_at)`, row); err != nil {
				return err
			}
		}
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO routing (id, document, updated_at) VALUES (:id, :document, :updated_at)
			 ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
			model.RoutingRow{ID: 1, Document: string(routingDoc), UpdatedAt: now})
		return err
	})
	if err != nil {
		return domain.StorageError("Failed to write configuration", err)
	}
	return nil
}

var _ store.Repository = (*SqliteRepository)(nil)
