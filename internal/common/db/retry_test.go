package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgconn"

	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
)

func testRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestRetryWithBackoff_RetriesSerializationFailure(t *testing.T) {
	log, _ := logger.New("", "test", "error")

	attempts := 0
	err := RetryWithBackoff(context.Background(), log, testRetryConfig(), func() error {
		attempts++
		if attempts < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithBackoff_DoesNotRetryPermanentErrors(t *testing.T) {
	log, _ := logger.New("", "test", "error")
	permanent := errors.New("boom")

	attempts := 0
	err := RetryWithBackoff(context.Background(), log, testRetryConfig(), func() error {
		attempts++
		return permanent
	})

	if !errors.Is(err, permanent) {
		t.Errorf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected a single attempt, got %d", attempts)
	}
}

func TestRetryWithBackoff_GivesUpAfterMaxAttempts(t *testing.T) {
	log, _ := logger.New("", "test", "error")

	attempts := 0
	err := RetryWithBackoff(context.Background(), log, testRetryConfig(), func() error {
		attempts++
		return &pgconn.PgError{Code: "40P01"}
	})

	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}
