package billing

import (
	"context"

	"clinicpro-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostPayment records a settled payment against the invoice and moves its
// status toward PARTIALLY_PAID/PAID. Payments that push amountPaid past
// grandTotal are accepted; amountDue floors at zero rather than going
// negative. The read-increment-write on amountPaid runs under the invoice
// row lock, so two concurrent postings cannot lose an update.
func (s *Service) PostPayment(ctx context.Context, clinicID, invoiceID uuid.UUID, amount decimal.Decimal, method models.PaymentMethod, referenceNo, note string) (*models.Payment, error) {
	if !amount.IsPositive() {
		return nil, validationErr("amount", "must be greater than zero")
	}
	if !validPaymentMethods[method] {
		return nil, validationErr("method", "unknown payment method")
	}

	var created *models.Payment
	err := s.repo.Transaction(ctx, func(repo Repository) error {
		inv, err := repo.GetInvoiceForUpdate(ctx, clinicID, invoiceID)
		if err != nil {
			return err
		}
		if err := ensureMutable(inv); err != nil {
			return err
		}

		payment := &models.Payment{
			ID:          uuid.New(),
			ClinicID:    clinicID,
			InvoiceID:   inv.ID,
			Amount:      RoundMoney(amount),
			Method:      method,
			ReferenceNo: referenceNo,
			Note:        note,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return err
		}

		inv.AmountPaid = RoundMoney(inv.AmountPaid.Add(payment.Amount))
		s.recompute(inv)
		if err := repo.SaveInvoice(ctx, inv); err != nil {
			return err
		}
		created = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

var validPaymentMethods = map[models.PaymentMethod]bool{
	models.PaymentMethodCash:         true,
	models.PaymentMethodCard:         true,
	models.PaymentMethodMobile:       true,
	models.PaymentMethodBankTransfer: true,
	models.PaymentMethodOther:        true,
}
