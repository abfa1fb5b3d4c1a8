package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/intelligentbasedhms/hms-gateway/internal/domain"
)

func TestGetIdempotency_BlankKey_ReturnsNotFound(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	rec, err := GetIdempotency(context.Background(), db, "   ", time.Now().UTC())
	if rec != nil || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected (nil, ErrNotFound) for blank key, got (%v, %v)", rec, err)
	}
}

func TestGetIdempotency_ExpiredOrMissing_ReturnsNotFound(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Now().UTC()

	exp := &domain.Idempotency{
		ID: "expired", Key: "k1", ThreadID: "t1", Assistant: "old",
		Status: 200, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}
	if err := db.Create(exp).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "k1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired record should be ErrNotFound, got %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "other", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing record should be ErrNotFound, got %v", err)
	}
}

func TestCreateAndGetIdempotency_RoundTripAndDuplicate(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, "k1", "t1", "the reply", 200, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if !rec.ExpiresAt.After(rec.CreatedAt) {
		t.Fatalf("ExpiresAt should be after CreatedAt: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "k1", time.Now().UTC())
	if err != nil {
		t.Fatalf("GetIdempotency: %v", err)
	}
	if got.ThreadID != "t1" || got.Assistant != "the reply" || got.Status != 200 {
		t.Fatalf("unexpected record: %+v", got)
	}

	if _, err := CreateIdempotency(ctx, db, "k1", "t2", "x", 200, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestCreateIdempotency_Error_NoTable(t *testing.T) {
	db := newRepoDB(t)
	_, err := CreateIdempotency(context.Background(), db, "k", "t", "a", 200, time.Minute)
	if err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected raw DB error, got %v", err)
	}
}

func TestPurgeExpiredIdempotency(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Now().UTC()

	for i, exp := range []time.Time{now.Add(-time.Minute), now.Add(-time.Second), now.Add(time.Hour)} {
		rec := &domain.Idempotency{
			ID: string(rune('a' + i)), Key: string(rune('a' + i)), ThreadID: "t",
			Assistant: "x", Status: 200, ExpiresAt: exp,
		}
		if err := db.Create(rec).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	n, err := PurgeExpiredIdempotency(ctx, db, now)
	if err != nil || n != 2 {
		t.Fatalf("purged=%d err=%v, want 2", n, err)
	}
	var left int64
	db.Model(&domain.Idempotency{}).Count(&left)
	if left != 1 {
		t.Fatalf("left=%d want 1", left)
	}
}
