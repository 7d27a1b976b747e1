package pg

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Model is the common uuid primary key and timestamp columns. The id is
// assigned client-side so sqlite and postgres behave the same.
type Model struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// UTCNow is the gorm clock. Timestamps are stored in UTC so range queries
// compare the same way on postgres and sqlite.
func UTCNow() time.Time {
	return time.Now().UTC()
}

func (m *Model) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
