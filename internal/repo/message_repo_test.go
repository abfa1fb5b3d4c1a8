package repo

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/intelligentbasedhms/hms-gateway/internal/domain"
)

func seedThread(t *testing.T, id string) *domain.Thread {
	t.Helper()
	now := time.Now().UTC()
	return &domain.Thread{ID: id, Title: id, CreatedAt: now, UpdatedAt: now}
}

func TestCreateMessage_StoresMetadata(t *testing.T) {
	db := newRepoDB(t, &domain.Thread{}, &domain.Message{})
	ctx := context.Background()
	if err := db.Create(seedThread(t, "t1")).Error; err != nil {
		t.Fatal(err)
	}

	m, err := CreateMessage(ctx, db, "t1", domain.RoleAssistant, "answer", map[string]any{"run_name": "chat_turn"})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if m.ID == "" || m.CreatedAt.IsZero() {
		t.Fatalf("unexpected message: %+v", m)
	}

	var got domain.Message
	if err := db.First(&got, "id = ?", m.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Metadata["run_name"] != "chat_turn" {
		t.Fatalf("metadata=%#v", got.Metadata)
	}

	plain, err := CreateMessage(ctx, db, "t1", domain.RoleUser, "q", nil)
	if err != nil || plain.Metadata != nil {
		t.Fatalf("nil metadata expected, got %#v err=%v", plain.Metadata, err)
	}
}

func TestCreateMessage_Error_NoTable(t *testing.T) {
	db := newRepoDB(t)
	if _, err := CreateMessage(context.Background(), db, "t1", domain.RoleUser, "x", nil); err == nil {
		t.Fatalf("expected error without messages table")
	}
}

func seedMessages(t *testing.T, n int) (*gorm.DB, string) {
	t.Helper()
	db := newRepoDB(t, &domain.Thread{}, &domain.Message{})
	if err := db.Create(seedThread(t, "t1")).Error; err != nil {
		t.Fatal(err)
	}
	base := time.Now().UTC()
	for i := 0; i < n; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		m := &domain.Message{
			ID: string(rune('a' + i)), ThreadID: "t1", Role: role,
			Content:   string(rune('A' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			UpdatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
	return db, "t1"
}

func contents(ms []domain.Message) string {
	s := ""
	for _, m := range ms {
		s += m.Content
	}
	return s
}

func TestRecentMessages_LastNChronological(t *testing.T) {
	db, tid := seedMessages(t, 5)
	ctx := context.Background()

	got, err := RecentMessages(ctx, db, tid, 3)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if contents(got) != "CDE" {
		t.Fatalf("want CDE, got %q", contents(got))
	}

	all, err := RecentMessages(ctx, db, tid, 0)
	if err != nil || contents(all) != "ABCDE" {
		t.Fatalf("want ABCDE, got %q err=%v", contents(all), err)
	}

	none, err := RecentMessages(ctx, db, "unknown", 10)
	if err != nil || len(none) != 0 {
		t.Fatalf("unknown thread should be empty, got %v err=%v", none, err)
	}
}

func TestCountAndListMessagesPage(t *testing.T) {
	db, tid := seedMessages(t, 5)
	ctx := context.Background()

	n, err := CountMessages(ctx, db, tid)
	if err != nil || n != 5 {
		t.Fatalf("CountMessages = %d, %v", n, err)
	}
	page, err := ListMessagesPage(ctx, db, tid, 2, 2)
	if err != nil || contents(page) != "CD" {
		t.Fatalf("page = %q, %v", contents(page), err)
	}
}

func TestCountMessages_Error_NoTable(t *testing.T) {
	db := newRepoDB(t)
	if _, err := CountMessages(context.Background(), db, "t1"); err == nil {
		t.Fatalf("expected error without messages table")
	}
}
