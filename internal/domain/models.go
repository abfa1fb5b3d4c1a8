// Package domain defines the persistence models for conversation threads and
// their messages. These types are mapped with GORM and form the data layer
// behind the conversational engine.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Thread is a conversation identified by a client-visible thread id. Ids are
// either supplied by the client (any non-empty string) or generated as UUIDs,
// so the column is free-form text.
//
// Fields:
//   - ID: thread identifier, primary key.
//   - Title: short label derived from the first user message.
//   - CreatedAt: first persisted turn; threads are listed in this order.
//   - UpdatedAt: last persisted turn.
type Thread struct {
	ID        string    `json:"id"         gorm:"type:text;primaryKey"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null;default:'New conversation'"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_threads_created"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Thread.
func (Thread) TableName() string { return "threads" }

// Message is one utterance within a thread. Assistant messages carry the
// run metadata the engine was invoked with.
type Message struct {
	ID        string            `json:"id"                 gorm:"type:char(36);primaryKey"`
	ThreadID  string            `json:"thread_id"          gorm:"type:text;not null;index:idx_thread_msgs,priority:1"`
	Role      string            `json:"role"               gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content   string            `json:"content"            gorm:"type:text;not null"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:text"`
	CreatedAt time.Time         `json:"created_at"         gorm:"index:idx_thread_msgs,priority:2"`
	UpdatedAt time.Time         `json:"updated_at"`

	Thread Thread `json:"-" gorm:"foreignKey:ThreadID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
