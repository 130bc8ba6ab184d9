package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Visit struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	ClinicID  uuid.UUID `gorm:"type:uuid;index;not null"`
	PatientID uuid.UUID `gorm:"type:uuid;index;not null"`
	DoctorID  uuid.UUID `gorm:"type:uuid;index;not null"`

	VisitDate time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	Reason    string
	Status    string `gorm:"type:varchar(20);default:'SCHEDULED'"` // SCHEDULED, IN_PROGRESS, COMPLETED, CANCELLED
	Notes     string

	Dispenses []DispenseRecord `gorm:"foreignKey:VisitID"`

	gorm.Model
}

func (v *Visit) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return
}
