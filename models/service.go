package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ServiceItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	ClinicID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Name        string    `gorm:"not null"`
	Description string
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Duration    int             // in minutes
	Category    string          `gorm:"default:'General'"`
	IsActive    bool            `gorm:"default:true"`
}
