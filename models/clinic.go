package models

import (
	"github.com/google/uuid"
)

type Clinic struct {
	ID                    uuid.UUID `gorm:"type:uuid;primary_key"`
	Name                  string    `gorm:"not null"`
	Address               string
	Phone                 string
	Currency              string `gorm:"type:varchar(3);default:'MMK'"`
	WorkingHours          JSONB  `gorm:"type:jsonb;default:'{}'"`
	VisitReminders        bool   `gorm:"default:true"`
	FollowUpReminders     bool   `gorm:"default:true"`
	WhatsAppNotifications bool   `gorm:"default:false"`
	SMSNotifications      bool   `gorm:"default:false"`

	Users             []User             `gorm:"foreignKey:ClinicID"`
	Patients          []Patient          `gorm:"foreignKey:ClinicID"`
	ServiceItems      []ServiceItem      `gorm:"foreignKey:ClinicID"`
	Invoices          []Invoice          `gorm:"foreignKey:ClinicID"`
	ReminderTemplates []ReminderTemplate `gorm:"foreignKey:ClinicID"`
}
