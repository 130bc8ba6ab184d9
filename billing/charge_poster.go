package billing

import (
	"context"
	"errors"

	"clinicpro-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeLine is one billable line produced by an external workflow, e.g.
// one medication on a completed dispense.
type ChargeLine struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// PostExternalCharges bridges a completed external event into billing
// exactly once. It finds or creates the visit's invoice, appends the charge
// lines tagged with the source event, and returns the invoice ID. A repeated
// call for the same sourceEventID (even a concurrent retry) returns the
// same invoice ID without creating duplicate lines: the charge-event insert
// is guarded by a unique constraint, and a duplicate insert is treated as
// the success case.
func (s *Service) PostExternalCharges(ctx context.Context, clinicID, sourceEventID, visitID, patientID uuid.UUID, lines []ChargeLine) (uuid.UUID, error) {
	if len(lines) == 0 {
		return uuid.Nil, validationErr("lines", "must not be empty")
	}
	for _, line := range lines {
		if line.Description == "" {
			return uuid.Nil, validationErr("lines.description", "must not be empty")
		}
		if line.Quantity < 1 {
			return uuid.Nil, validationErr("lines.quantity", "must be a positive integer")
		}
		if line.UnitPrice.IsNegative() {
			return uuid.Nil, validationErr("lines.unitPrice", "must not be negative")
		}
	}

	// Fast path: the event was already posted.
	if event, err := s.repo.FindChargeEvent(ctx, clinicID, sourceEventID); err == nil {
		return event.InvoiceID, nil
	} else if !errors.Is(err, ErrNotFound) {
		return uuid.Nil, err
	}

	var invoiceID uuid.UUID
	err := s.repo.Transaction(ctx, func(repo Repository) error {
		inv, err := repo.GetVisitInvoiceForUpdate(ctx, clinicID, visitID)
		if errors.Is(err, ErrNotFound) {
			inv, err = s.openVisitInvoice(ctx, repo, clinicID, visitID, patientID)
		}
		if err != nil {
			return err
		}

		// The posting marker commits with the lines; a concurrent retry
		// for the same event fails here instead of double-posting.
		event := &models.ChargeEvent{
			ID:            uuid.New(),
			ClinicID:      clinicID,
			SourceEventID: sourceEventID,
			VisitID:       visitID,
			InvoiceID:     inv.ID,
		}
		if err := repo.CreateChargeEvent(ctx, event); err != nil {
			return err
		}

		items := make([]models.InvoiceItem, 0, len(lines))
		ref := sourceEventID
		for _, line := range lines {
			items = append(items, newItem(inv.ID, NewItemInput{
				SourceType:  models.ItemSourcePharmacy,
				SourceRefID: &ref,
				Description: line.Description,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
			}))
		}
		if err := repo.AddItems(ctx, items); err != nil {
			return err
		}
		inv.Items = append(inv.Items, items...)
		s.recompute(inv)
		if err := repo.SaveInvoice(ctx, inv); err != nil {
			return err
		}
		invoiceID = inv.ID
		return nil
	})
	if errors.Is(err, ErrDuplicateEvent) {
		// Lost the race to another call for the same event; its result is
		// ours too.
		event, findErr := s.repo.FindChargeEvent(ctx, clinicID, sourceEventID)
		if findErr != nil {
			return uuid.Nil, findErr
		}
		return event.InvoiceID, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	return invoiceID, nil
}

// openVisitInvoice creates the invoice the external charges land on when
// the visit has none yet.
func (s *Service) openVisitInvoice(ctx context.Context, repo Repository, clinicID, visitID, patientID uuid.UUID) (*models.Invoice, error) {
	ok, err := repo.VisitExists(ctx, clinicID, visitID, patientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
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
	}
	s.recompute(inv)
	if err := repo.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}
