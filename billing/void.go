package billing

import (
	"context"
	"time"

	"clinicpro-backend/models"

	"github.com/google/uuid"
)

// VoidInvoice writes the invoice off. The transition is terminal: every
// later item, adjustment or payment mutation fails with ErrConflict.
// Recorded payments are not reversed; a void is not a refund.
func (s *Service) VoidInvoice(ctx context.Context, clinicID, invoiceID uuid.UUID, reason string) (*models.Invoice, error) {
	if reason == "" {
		return nil, validationErr("reason", "must not be empty")
	}

	var voided *models.Invoice
	err := s.repo.Transaction(ctx, func(repo Repository) error {
		inv, err := repo.GetInvoiceForUpdate(ctx, clinicID, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == models.InvoiceStatusVoid {
			return ErrConflict
		}

		now := time.Now()
		inv.Status = models.InvoiceStatusVoid
		inv.VoidReason = reason
		inv.VoidedAt = &now
		if err := repo.SaveInvoice(ctx, inv); err != nil {
			return err
		}
		voided = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return voided, nil
}
