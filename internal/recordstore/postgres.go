package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/AlibekovAA/book-exchange/backend/internal/common/crypto"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/db"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
	"github.com/AlibekovAA/book-exchange/backend/internal/observability/metrics"
)

const postgresBackend = "postgres"

// PgStore keeps a collection as JSONB rows of the shared records table.
// Writers take a transaction-scoped advisory lock keyed by the collection name.
type PgStore[T Record[T]] struct {
	name   string
	lockID int64
	pool   *pgxpool.Pool
	tx     db.TxManager
	ids    crypto.IDGenerator
	log    *logger.Logger
	retry  db.RetryConfig
}

func NewPgStore[T Record[T]](name string, pool *pgxpool.Pool, ids crypto.IDGenerator, log *logger.Logger) *PgStore[T] {
	h := fnv.New64a()
	h.Write([]byte("recordstore:" + name))

	return &PgStore[T]{
		name:   name,
		lockID: int64(h.Sum64()),
		pool:   pool,
		tx:     db.NewPgTxManager(pool),
		ids:    ids,
		log:    log,
		retry:  db.DefaultRetryConfig,
	}
}

func (s *PgStore[T]) Name() string {
	return s.name
}

func (s *PgStore[T]) LoadAll(ctx context.Context) (out []T, err error) {
	start := time.Now()
	defer func() { observe(postgresBackend, s.name, "load_all", start, err) }()

	err = db.RetryWithBackoff(ctx, s.log, s.retry, func() error {
		records, loadErr := s.load(ctx, s.pool)
		if loadErr != nil {
			return loadErr
		}
		out = records
		return nil
	})
	if err != nil {
		return nil, s.storageError("load_all", err)
	}
	return out, nil
}

func (s *PgStore[T]) Append(ctx context.Context, rec T) (T, error) {
	return s.AppendUnless(ctx, rec, nil)
}

func (s *PgStore[T]) AppendUnless(ctx context.Context, rec T, conflicts Predicate[T]) (out T, err error) {
	start := time.Now()
	defer func() { observe(postgresBackend, s.name, "append", start, err) }()

	if rec.RecordID() == "" {
		id, idErr := s.ids.NewID()
		if idErr != nil {
			return out, &StorageError{Collection: s.name, Op: "append", Err: fmt.Errorf("generate id: %w", idErr)}
		}
		rec = rec.WithRecordID(id)
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return out, &StorageError{Collection: s.name, Op: "append", Err: fmt.Errorf("encode record: %w", err)}
	}

	err = s.withLockedTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if conflicts != nil {
			records, err := s.load(ctx, tx)
			if err != nil {
				return err
			}
			if _, found := FindFirst(records, conflicts); found {
				return ErrConflict
			}
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO records (collection, id, body) VALUES ($1, $2, $3)`,
			s.name, rec.RecordID(), body,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return out, s.storageError("append", err)
	}
	return rec, nil
}

func (s *PgStore[T]) UpdateWhere(ctx context.Context, match Predicate[T], mutate Mutator[T]) (out T, err error) {
	start := time.Now()
	defer func() { observe(postgresBackend, s.name, "update", start, err) }()

	err = s.withLockedTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		records, err := s.load(ctx, tx)
		if err != nil {
			return err
		}

		idx, found := FindFirst(records, match)
		if !found {
			return ErrNotFound
		}

		original := records[idx]
		updated, err := mutate(original)
		if err != nil {
			return &rejection{err: err}
		}
		updated = updated.WithRecordID(original.RecordID())

		body, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE records SET body = $3, updated_at = now() WHERE collection = $1 AND id = $2`,
			s.name, original.RecordID(), body,
		); err != nil {
			return err
		}

		out = updated
		return nil
	})
	if err != nil {
		return out, s.storageError("update", err)
	}
	return out, nil
}

func (s *PgStore[T]) DeleteWhere(ctx context.Context, match Predicate[T]) (out T, err error) {
	start := time.Now()
	defer func() { observe(postgresBackend, s.name, "delete", start, err) }()

	err = s.withLockedTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		records, err := s.load(ctx, tx)
		if err != nil {
			return err
		}

		idx, found := FindFirst(records, match)
		if !found {
			return ErrNotFound
		}

		removed := records[idx]
		if _, err := tx.Exec(ctx,
			`DELETE FROM records WHERE collection = $1 AND id = $2`,
			s.name, removed.RecordID(),
		); err != nil {
			return err
		}

		out = removed
		return nil
	})
	if err != nil {
		return out, s.storageError("delete", err)
	}
	return out, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func (s *PgStore[T]) load(ctx context.Context, q querier) ([]T, error) {
	rows, err := q.Query(ctx,
		`SELECT id, body FROM records WHERE collection = $1 ORDER BY seq ASC`,
		s.name,
	)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	defer rows.Close()

	records := make([]T, 0)
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		var rec T
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", id, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	metrics.StoreRecords.WithLabelValues(postgresBackend, s.name).Set(float64(len(records)))
	return records, nil
}

func (s *PgStore[T]) withLockedTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	return db.RetryWithBackoff(ctx, s.log, s.retry, func() error {
		return s.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, s.lockID); err != nil {
				return fmt.Errorf("lock collection: %w", err)
			}
			return fn(ctx, tx)
		})
	})
}

// rejection carries a mutator error out of the transaction untouched.
type rejection struct {
	err error
}

func (r *rejection) Error() string { return r.err.Error() }
func (r *rejection) Unwrap() error { return r.err }

// storageError passes store sentinels, mutator rejections and context errors
// through and wraps everything else.
func (s *PgStore[T]) storageError(op string, err error) error {
	var rej *rejection
	if errors.As(err, &rej) {
		return rej.err
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	s.log.WithFields(context.Background(), logger.Fields{
		"collection": s.name,
		"operation":  op,
		"action":     "record_store_query_failed",
	}).Errorf("record store query failed: %v", err)
	return &StorageError{Collection: s.name, Op: op, Err: err}
}
