package billing

import (
	"context"
	"time"

	"clinicpro-backend/models"

	"github.com/google/uuid"
)

// InvoiceFilter narrows ListInvoices. Zero values mean "no filter".
type InvoiceFilter struct {
	PatientID *uuid.UUID
	VisitID   *uuid.UUID
	Status    models.InvoiceStatus
	From      *time.Time
	To        *time.Time
}

// Repository is the tenant-scoped persistence contract for the billing core.
// Every method takes the clinic ID explicitly, so a tenant-less query cannot
// be expressed. Implementations map "row exists but belongs to another
// clinic" to ErrNotFound.
type Repository interface {
	// Transaction runs fn against a transactional view of the repository.
	// Everything fn does commits together or not at all.
	Transaction(ctx context.Context, fn func(Repository) error) error

	// VisitExists reports whether the visit exists in the clinic and
	// belongs to the given patient.
	VisitExists(ctx context.Context, clinicID, visitID, patientID uuid.UUID) (bool, error)

	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	// GetInvoice loads an invoice with its items and payments.
	GetInvoice(ctx context.Context, clinicID, invoiceID uuid.UUID) (*models.Invoice, error)
	// GetInvoiceForUpdate locks the invoice row for the rest of the
	// enclosing transaction and loads its items. Mutations on the same
	// invoice serialize on this lock.
	GetInvoiceForUpdate(ctx context.Context, clinicID, invoiceID uuid.UUID) (*models.Invoice, error)
	// GetVisitInvoiceForUpdate locks and returns the latest non-void
	// invoice for a visit, or ErrNotFound.
	GetVisitInvoiceForUpdate(ctx context.Context, clinicID, visitID uuid.UUID) (*models.Invoice, error)
	ListInvoices(ctx context.Context, clinicID uuid.UUID, filter InvoiceFilter) ([]models.Invoice, error)
	// SaveInvoice persists the invoice's derived fields (totals, status,
	// void columns).
	SaveInvoice(ctx context.Context, inv *models.Invoice) error

	// GetItemForUpdate resolves an item by ID within the clinic, locking
	// its owning invoice row, and returns both. The item is read after the
	// lock is held, so it reflects any update that committed while this
	// transaction waited.
	GetItemForUpdate(ctx context.Context, clinicID, itemID uuid.UUID) (*models.InvoiceItem, *models.Invoice, error)
	AddItems(ctx context.Context, items []models.InvoiceItem) error
	SaveItem(ctx context.Context, item *models.InvoiceItem) error
	// RemoveItem deletes the item. hard controls whether the row is
	// physically removed (allowed only while no payment exists).
	RemoveItem(ctx context.Context, item *models.InvoiceItem, hard bool) error

	CreatePayment(ctx context.Context, p *models.Payment) error
	CountPayments(ctx context.Context, clinicID, invoiceID uuid.UUID) (int64, error)

	// CreateChargeEvent inserts the posting marker for an external event.
	// A second insert for the same (clinic, sourceEvent) pair returns
	// ErrDuplicateEvent.
	CreateChargeEvent(ctx context.Context, e *models.ChargeEvent) error
	FindChargeEvent(ctx context.Context, clinicID, sourceEventID uuid.UUID) (*models.ChargeEvent, error)
}
