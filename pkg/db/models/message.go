package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
)

// Message is one line of the WhatsApp conversation log.
type Message struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Phone     string                 `gorm:"column:phone;not null;index"`
	Direction enums.MessageDirection `gorm:"column:direction;not null"`
	Body      string                 `gorm:"column:body;not null"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
