// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Thread model.
//
// All functions are context-aware and accept a *gorm.DB handle, so they can
// run inside a transaction opened by the caller.
//
// Error semantics:
//   - When a thread is not found, functions return ErrNotFound
//     (an alias of gorm.ErrRecordNotFound).
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/intelligentbasedhms/hms-gateway/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// EnsureThread inserts the thread if it does not exist yet, otherwise it
// bumps its UpdatedAt. created reports whether a new row was written.
func EnsureThread(ctx context.Context, db *gorm.DB, id, title string) (created bool, err error) {
	now := time.Now().UTC()
	t := &domain.Thread{ID: id, Title: title, CreatedAt: now, UpdatedAt: now}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(t)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	err = db.WithContext(ctx).
		Model(&domain.Thread{}).
		Where("id = ?", id).
		Update("updated_at", now).Error
	return false, err
}

// GetThread fetches a single thread by id, or ErrNotFound.
func GetThread(ctx context.Context, db *gorm.DB, id string) (*domain.Thread, error) {
	var t domain.Thread
	if err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListThreadIDs returns every thread id ordered by creation time (oldest
// first, ties broken by id). An empty store yields an empty, non-nil slice.
func ListThreadIDs(ctx context.Context, db *gorm.DB) ([]string, error) {
	out := []string{}
	err := db.WithContext(ctx).
		Model(&domain.Thread{}).
		Order("created_at ASC, id ASC").
		Pluck("id", &out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateThreadTitle sets the title of a thread. It returns ErrNotFound when
// no row matches id.
func UpdateThreadTitle(ctx context.Context, db *gorm.DB, id, title string) error {
	res := db.WithContext(ctx).
		Model(&domain.Thread{}).
		Where("id = ?", id).
		Update("title", title)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
