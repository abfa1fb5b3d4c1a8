package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestIdempotency_Migration_UniqueKey(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if (Idempotency{}).TableName() != "idempotency" {
		t.Fatalf("unexpected table name")
	}
	if !db.Migrator().HasIndex(&Idempotency{}, "ux_idem_key") {
		t.Fatalf("expected unique index ux_idem_key")
	}

	now := time.Now().UTC()
	rec := Idempotency{ID: "i1", Key: "k1", ThreadID: "t1", Assistant: "hello", Status: 200, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt should be auto-populated")
	}

	dup := Idempotency{ID: "i2", Key: "k1", ThreadID: "t2", Assistant: "x", Status: 200, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(&dup).Error; err == nil {
		t.Fatalf("expected unique violation on duplicate key")
	}
}

func TestIdempotency_Expired(t *testing.T) {
	now := time.Now()
	if (Idempotency{ExpiresAt: now.Add(time.Minute)}).Expired(now) {
		t.Fatalf("future expiry should not be expired")
	}
	if !(Idempotency{ExpiresAt: now}).Expired(now) {
		t.Fatalf("expiry at now should be expired")
	}
}
