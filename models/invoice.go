package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceStatus is derived from (amountPaid, grandTotal, voided); it is never
// written directly outside creation, payment posting and voiding.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusPending       InvoiceStatus = "PENDING"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusVoid          InvoiceStatus = "VOID"
)

// ItemSourceType tags where an invoice line originated.
type ItemSourceType string

const (
	ItemSourceService  ItemSourceType = "SERVICE"
	ItemSourcePharmacy ItemSourceType = "PHARMACY"
	ItemSourceManual   ItemSourceType = "MANUAL"
)

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodMobile       PaymentMethod = "MOBILE"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

type Invoice struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	ClinicID  uuid.UUID `gorm:"type:uuid;index;not null"`
	VisitID   uuid.UUID `gorm:"type:uuid;index;not null"`
	PatientID uuid.UUID `gorm:"type:uuid;index;not null"`

	InvoiceNumber string        `gorm:"uniqueIndex;not null"`
	Status        InvoiceStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	Currency      string        `gorm:"type:varchar(3);not null"`

	SubTotal    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountAmt decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TaxAmt      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	GrandTotal  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	AmountPaid  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	AmountDue   decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Note       string
	VoidReason string
	VoidedAt   *time.Time

	Items    []InvoiceItem `gorm:"foreignKey:InvoiceID"`
	Payments []Payment     `gorm:"foreignKey:InvoiceID"`

	gorm.Model
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}

type InvoiceItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	InvoiceID uuid.UUID `gorm:"type:uuid;index;not null"`

	SourceType  ItemSourceType  `gorm:"type:varchar(10);not null"`
	SourceRefID *uuid.UUID      `gorm:"type:uuid;index"`
	Description string          `gorm:"not null"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	gorm.Model
}

func (it *InvoiceItem) BeforeCreate(tx *gorm.DB) (err error) {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	return
}

// Payment rows are immutable once created; corrections are new payments.
type Payment struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	ClinicID  uuid.UUID `gorm:"type:uuid;index;not null"`
	InvoiceID uuid.UUID `gorm:"type:uuid;index;not null"`

	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Method      PaymentMethod   `gorm:"type:varchar(20);not null"`
	ReferenceNo string
	Note        string

	CreatedAt time.Time
}

func (p *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

// ChargeEvent records one externally triggered posting (e.g. a completed
// dispense). The unique index turns a concurrent duplicate post into a
// detectable conflict instead of duplicate invoice lines.
type ChargeEvent struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	ClinicID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_clinic_source_event,priority:1"`
	SourceEventID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_clinic_source_event,priority:2"`
	VisitID       uuid.UUID `gorm:"type:uuid;index;not null"`
	InvoiceID     uuid.UUID `gorm:"type:uuid;index;not null"`

	CreatedAt time.Time
}

func (e *ChargeEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return
}
