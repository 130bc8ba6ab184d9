package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Medication struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	ClinicID     uuid.UUID `gorm:"type:uuid;index;not null"`
	Name         string    `gorm:"not null"`
	GenericName  string
	Form         string          `gorm:"type:varchar(20)"` // tablet, capsule, syrup, injection
	Strength     string          `gorm:"type:varchar(30)"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	StockOnHand  int             `gorm:"default:0"`
	ReorderLevel int             `gorm:"default:0"`
	IsActive     bool            `gorm:"default:true"`

	gorm.Model
}

func (m *Medication) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}

// DispenseRecord is one pharmacy dispense against a visit. Completing it is
// the external event that posts PHARMACY charge lines onto the visit invoice.
type DispenseRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	ClinicID     uuid.UUID `gorm:"type:uuid;index;not null"`
	VisitID      uuid.UUID `gorm:"type:uuid;index;not null"`
	PatientID    uuid.UUID `gorm:"type:uuid;index;not null"`
	MedicationID uuid.UUID `gorm:"type:uuid;index;not null"`

	MedicationName string          `gorm:"not null"`
	Quantity       int             `gorm:"not null"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Instructions   string
	Status         string `gorm:"type:varchar(20);default:'PENDING'"` // PENDING, COMPLETED, CANCELLED
	CompletedAt    *time.Time

	gorm.Model
}

func (d *DispenseRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return
}
