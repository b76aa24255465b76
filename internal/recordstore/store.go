// Package recordstore persists homogeneous collections of records with atomic
// whole-record CRUD. Writers on one collection are serialized; writers on
// different collections never wait for each other.
package recordstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlibekovAA/book-exchange/backend/internal/observability/metrics"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflicts with an existing record")
)

// Record is implemented by value types stored in a collection. WithRecordID
// returns a copy carrying the given identifier.
type Record[T any] interface {
	RecordID() string
	WithRecordID(id string) T
}

type Predicate[T any] func(T) bool

// Mutator produces the new value of a matched record. A returned error aborts
// the update and is passed back to the caller unchanged.
type Mutator[T any] func(T) (T, error)

type Store[T Record[T]] interface {
	Name() string
	LoadAll(ctx context.Context) ([]T, error)
	Append(ctx context.Context, rec T) (T, error)
	// AppendUnless appends rec only if no stored record satisfies conflicts,
	// checked inside the same critical section as the write.
	AppendUnless(ctx context.Context, rec T, conflicts Predicate[T]) (T, error)
	UpdateWhere(ctx context.Context, match Predicate[T], mutate Mutator[T]) (T, error)
	DeleteWhere(ctx context.Context, match Predicate[T]) (T, error)
}

// StorageError reports a failed durable read or write.
type StorageError struct {
	Collection string
	Op         string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("record store %s: %s: %v", e.Collection, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func ByID[T Record[T]](id string) Predicate[T] {
	return func(rec T) bool {
		return rec.RecordID() == id
	}
}

func FindFirst[T any](records []T, match Predicate[T]) (int, bool) {
	for i, rec := range records {
		if match(rec) {
			return i, true
		}
	}
	return -1, false
}

func Filter[T any](records []T, match Predicate[T]) []T {
	out := make([]T, 0)
	for _, rec := range records {
		if match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func observe(backend, collection, op string, start time.Time, err error) {
	metrics.StoreOperationDurationSeconds.WithLabelValues(backend, collection, op).Observe(time.Since(start).Seconds())
	if err == nil {
		return
	}

	errorType := "rejected"
	switch {
	case errors.Is(err, ErrNotFound):
		errorType = "not_found"
	case errors.Is(err, ErrConflict):
		errorType = "conflict"
	case IsStorageError(err):
		errorType = "storage"
	}
	metrics.StoreOperationErrors.WithLabelValues(backend, collection, op, errorType).Inc()
}
