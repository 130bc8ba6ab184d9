package billing

import (
	"context"
	"time"

	"clinicpro-backend/models"
	"clinicpro-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Config carries the billing policies that are deliberately not hard
// invariants.
type Config struct {
	// Currency is stamped on every new invoice. No conversion happens.
	Currency string
	// EmptyInvoiceStatus is the status of an invoice created with no
	// items. DRAFT by default; clinics that bill up-front may prefer
	// PENDING.
	EmptyInvoiceStatus models.InvoiceStatus
}

// Service owns the invoice lifecycle: creation, item and adjustment
// mutation, payments, voiding and external charge posting. Every mutation
// runs as one repository transaction with the invoice row locked, so
// concurrent calls against the same invoice serialize.
type Service struct {
	repo Repository
	cfg  Config
}

func NewService(repo Repository, cfg Config) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "MMK"
	}
	if cfg.EmptyInvoiceStatus == "" {
		cfg.EmptyInvoiceStatus = models.InvoiceStatusDraft
	}
	return &Service{repo: repo, cfg: cfg}
}

// NewItemInput is one charge line to place on an invoice.
type NewItemInput struct {
	SourceType  models.ItemSourceType
	SourceRefID *uuid.UUID
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// ItemPatch updates an existing charge line. Nil fields are left unchanged.
type ItemPatch struct {
	Description *string
	Quantity    *int
	UnitPrice   *decimal.Decimal
}

// CreateInvoice opens an invoice for a visit with zero or more initial
// items. The visit must exist in the clinic and belong to the patient.
func (s *Service) CreateInvoice(ctx context.Context, clinicID, visitID, patientID uuid.UUID, initialItems []NewItemInput, note string) (*models.Invoice, error) {
	for i := range initialItems {
		if err := validateItemInput(&initialItems[i]); err != nil {
			return nil, err
		}
	}

	var created *models.Invoice
	err := s.repo.Transaction(ctx, func(repo Repository) error {
		ok, err := repo.VisitExists(ctx, clinicID, visitID, patientID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		inv := &models.Invoice{
			ID:            uuid.New(),
			ClinicID:      clinicID,
			VisitID:       visitID,
			PatientID:     patientID,
			InvoiceNumber: newInvoiceNumber(),
			Currency:      s.cfg.Currency,
			DiscountAmt:   decimal.Zero,
			TaxAmt:        decimal.Zero,
			AmountPaid:    decimal.Zero,
			Note:          note,
		}
		for _, in := range initialItems {
			inv.Items = append(inv.Items, newItem(inv.ID, in))
		}
		s.recompute(inv)

		if err := repo.CreateInvoice(ctx, inv); err != nil {
			return err
		}
		created = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AddItem appends a charge line and recomputes totals atomically.
func (s *Service) AddItem(ctx context.Context, clinicID, invoiceID uuid.UUID, input NewItemInput) (*models.Invoice, error) {
	if err := validateItemInput(&input); err != nil {
		return nil, err
	}

	var updated *models.Invoice
	err := s.repo.Transaction(ctx, func(repo Repository) error {
		inv, err := repo.GetInvoiceForUpdate(ctx, clinicID, invoiceID)
		if err != nil {
			return err
		}
		if err := ensureMutable(inv); err != nil {
			return err
		}

		item := newItem(inv.ID, input)
		if err := repo.AddItems(ctx, []models.InvoiceItem{item}); err != nil {
			return err
		}
		inv.Items = append(inv.Items, item)
		s.recompute(inv)
		if err := repo.SaveInvoice(ctx, inv); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateItem patches a charge line and recomputes totals atomically.
func (s *Service) UpdateItem(ctx context.Context, clinicID, itemID uuid.UUID, patch ItemPatch) (*models.Invoice, error) {
	if patch.Quantity != nil && *patch.Quantity < 1 {
		return nil, validationErr("quantity", "must be a positive integer")
	}
	if patch.UnitPrice != nil && patch.UnitPrice.IsNegative() {
		return nil, validationErr("unitPrice", "must not be negative")
	}
	if patch.Description != nil && *patch.Description == "" {
		return nil, validationErr("description", "must not be empty")
	}

	var updated *models.Invoice
	err := s.repo.Transaction(ctx, func(repo Repository) error {
		item, inv, err := repo.GetItemForUpdate(ctx, clinicID, itemID)
		if err != nil {
			return err
		}
		if err := ensureMutable(inv); err != nil {
			return err
		}

		if patch.Description != nil {
			item.Description = *patch.Description
		}
		if patch.Quantity != nil {
			item.Quantity = *patch.Quantity
		}
		if patch.UnitPrice != nil {
			item.UnitPrice = RoundMoney(*patch.UnitPrice)
		}
		item.LineTotal = lineTotal(item.Quantity, item.UnitPrice)
		if err := repo.SaveItem(ctx, item); err != nil {
			return err
		}

		for i := range inv.Items {
			if inv.Items[i].ID == item.ID {
				inv.Items[i] = *item
			}
		}
		s.recompute(inv)
		if err := repo.SaveInvoice(ctx, inv); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveItem drops a charge line. The row is physically deleted only while
// no payment exists against the invoice; afterwards it is soft-removed so
// the billing history stays reconstructible. Either way totals recompute and
// amountDue floors at zero.
func (s *Service) RemoveItem(ctx context.Context, clinicID, itemID uuid.UUID) (*models.Invoice, error) {
	var updated *models.Invoice
	err := s.repo.Transaction(ctx, func(repo Repository) error {
		item, inv, err := repo.GetItemForUpdate(ctx, clinicID, itemID)
		if err != nil {
			return err
		}
		if err := ensureMutable(inv); err != nil {
			return err
		}

		payments, err := repo.CountPayments(ctx, clinicID, inv.ID)
		if err != nil {
			return err
		}
		if err := repo.RemoveItem(ctx, item, payments == 0); err != nil {
			return err
		}

		kept := inv.Items[:0]
		for _, it := range inv.Items {
			if it.ID != item.ID {
				kept = append(kept, it)
			}
		}
		inv.Items = kept
		s.recompute(inv)
		if err := repo.SaveInvoice(ctx, inv); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateAdjustments sets the discount and/or tax amounts. Nil leaves a field
// unchanged.
func (s *Service) UpdateAdjustments(ctx context.Context, clinicID, invoiceID uuid.UUID, discountAmt, taxAmt *decimal.Decimal) (*models.Invoice, error) {
	if discountAmt != nil && discountAmt.IsNegative() {
		return nil, validationErr("discountAmt", "must not be negative")
	}
	if taxAmt != nil && taxAmt.IsNegative() {
		return nil, validationErr("taxAmt", "must not be negative")
	}

	var updated *models.Invoice
	err := s.repo.Transaction(ctx, func(repo Repository) error {
		inv, err := repo.GetInvoiceForUpdate(ctx, clinicID, invoiceID)
		if err != nil {
			return err
		}
		if err := ensureMutable(inv); err != nil {
			return err
		}

		if discountAmt != nil {
			inv.DiscountAmt = RoundMoney(*discountAmt)
		}
		if taxAmt != nil {
			inv.TaxAmt = RoundMoney(*taxAmt)
		}
		s.recompute(inv)
		if err := repo.SaveInvoice(ctx, inv); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetInvoice loads one invoice with items and payments.
func (s *Service) GetInvoice(ctx context.Context, clinicID, invoiceID uuid.UUID) (*models.Invoice, error) {
	return s.repo.GetInvoice(ctx, clinicID, invoiceID)
}

// ListInvoices lists the clinic's invoices, newest first.
func (s *Service) ListInvoices(ctx context.Context, clinicID uuid.UUID, filter InvoiceFilter) ([]models.Invoice, error) {
	return s.repo.ListInvoices(ctx, clinicID, filter)
}

// ensureMutable rejects structural changes and payments on a voided invoice.
func ensureMutable(inv *models.Invoice) error {
	if inv.Status == models.InvoiceStatusVoid || inv.VoidedAt != nil {
		return ErrConflict
	}
	return nil
}

func validateItemInput(in *NewItemInput) error {
	if in.Description == "" {
		return validationErr("description", "must not be empty")
	}
	if in.Quantity < 1 {
		return validationErr("quantity", "must be a positive integer")
	}
	if in.UnitPrice.IsNegative() {
		return validationErr("unitPrice", "must not be negative")
	}
	if in.SourceType == "" {
		in.SourceType = models.ItemSourceManual
	}
	return nil
}

func newItem(invoiceID uuid.UUID, in NewItemInput) models.InvoiceItem {
	price := RoundMoney(in.UnitPrice)
	return models.InvoiceItem{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		SourceType:  in.SourceType,
		SourceRefID: in.SourceRefID,
		Description: in.Description,
		Quantity:    in.Quantity,
		UnitPrice:   price,
		LineTotal:   lineTotal(in.Quantity, price),
	}
}

func newInvoiceNumber() string {
	return "INV-" + time.Now().Format("20060102") + "-" + utils.GenerateRandomString(6)
}
