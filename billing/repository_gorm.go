package billing

import (
	"context"
	"errors"

	"clinicpro-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormRepository is the postgres-backed Repository. It relies on
// SELECT ... FOR UPDATE row locks for per-invoice serialization and on the
// (clinic_id, source_event_id) unique index for idempotent charge posting,
// which requires the gorm connection to be opened with TranslateError so
// unique violations surface as gorm.ErrDuplicatedKey.
type gormRepository struct {
	db *gorm.DB
}

// NewGormRepository wraps db as a billing Repository.
func NewGormRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) VisitExists(ctx context.Context, clinicID, visitID, patientID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Visit{}).
		Where("clinic_id = ? AND id = ? AND patient_id = ?", clinicID, visitID, patientID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormRepository) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *gormRepository) GetInvoice(ctx context.Context, clinicID, invoiceID uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.WithContext(ctx).Preload("Items").Preload("Payments").
		Where("clinic_id = ? AND id = ?", clinicID, invoiceID).
		First(&inv).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &inv, nil
}

func (r *gormRepository) GetInvoiceForUpdate(ctx context.Context, clinicID, invoiceID uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	// Lock the invoice row first; items are loaded by a follow-up query so
	// the FOR UPDATE applies only to the invoices table.
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("clinic_id = ? AND id = ?", clinicID, invoiceID).
		First(&inv).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	if err := r.loadItems(ctx, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *gormRepository) GetVisitInvoiceForUpdate(ctx context.Context, clinicID, visitID uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("clinic_id = ? AND visit_id = ? AND status <> ?", clinicID, visitID, models.InvoiceStatusVoid).
		Order("created_at DESC").
		First(&inv).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	if err := r.loadItems(ctx, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *gormRepository) loadItems(ctx context.Context, inv *models.Invoice) error {
	return r.db.WithContext(ctx).
		Where("invoice_id = ?", inv.ID).
		Order("created_at ASC").
		Find(&inv.Items).Error
}

func (r *gormRepository) ListInvoices(ctx context.Context, clinicID uuid.UUID, filter InvoiceFilter) ([]models.Invoice, error) {
	q := r.db.WithContext(ctx).Preload("Items").Where("clinic_id = ?", clinicID)
	if filter.PatientID != nil {
		q = q.Where("patient_id = ?", *filter.PatientID)
	}
	if filter.VisitID != nil {
		q = q.Where("visit_id = ?", *filter.VisitID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}

	var invoices []models.Invoice
	if err := q.Order("created_at DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *gormRepository) SaveInvoice(ctx context.Context, inv *models.Invoice) error {
	// Omit associations: items and payments are written through their own
	// repository methods, never as a side effect of an invoice save.
	return r.db.WithContext(ctx).Omit("Items", "Payments").Save(inv).Error
}

func (r *gormRepository) GetItemForUpdate(ctx context.Context, clinicID, itemID uuid.UUID) (*models.InvoiceItem, *models.Invoice, error) {
	// The pre-lock read only resolves the owning invoice; invoice_id never
	// changes, so it is safe to use before the lock is held.
	var ref models.InvoiceItem
	if err := r.db.WithContext(ctx).Select("id", "invoice_id").
		Where("id = ?", itemID).First(&ref).Error; err != nil {
		return nil, nil, translateNotFound(err)
	}
	inv, err := r.GetInvoiceForUpdate(ctx, clinicID, ref.InvoiceID)
	if err != nil {
		// Cross-tenant item lookups land here and stay ErrNotFound.
		return nil, nil, err
	}
	// Return the item from the post-lock load. A snapshot taken before the
	// lock could miss a concurrent update that committed while this
	// transaction was blocked, and writing it back would lose that update.
	for i := range inv.Items {
		if inv.Items[i].ID == itemID {
			item := inv.Items[i]
			return &item, inv, nil
		}
	}
	return nil, nil, ErrNotFound
}

func (r *gormRepository) AddItems(ctx context.Context, items []models.InvoiceItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *gormRepository) SaveItem(ctx context.Context, item *models.InvoiceItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *gormRepository) RemoveItem(ctx context.Context, item *models.InvoiceItem, hard bool) error {
	q := r.db.WithContext(ctx)
	if hard {
		q = q.Unscoped()
	}
	return q.Delete(item).Error
}

func (r *gormRepository) CreatePayment(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *gormRepository) CountPayments(ctx context.Context, clinicID, invoiceID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("clinic_id = ? AND invoice_id = ?", clinicID, invoiceID).
		Count(&count).Error
	return count, err
}

func (r *gormRepository) CreateChargeEvent(ctx context.Context, e *models.ChargeEvent) error {
	err := r.db.WithContext(ctx).Create(e).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEvent
	}
	return err
}

func (r *gormRepository) FindChargeEvent(ctx context.Context, clinicID, sourceEventID uuid.UUID) (*models.ChargeEvent, error) {
	var event models.ChargeEvent
	err := r.db.WithContext(ctx).
		Where("clinic_id = ? AND source_event_id = ?", clinicID, sourceEventID).
		First(&event).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &event, nil
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
