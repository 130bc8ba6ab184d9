package billing

import (
	"clinicpro-backend/models"

	"github.com/shopspring/decimal"
)

// CalculateTotals derives subTotal and grandTotal from the current items and
// adjustments. subTotal sums line totals at full precision; grandTotal
// applies the discount, then tax, and floors at zero. Both results are
// rounded to money precision because they are what gets persisted.
func CalculateTotals(items []models.InvoiceItem, discountAmt, taxAmt decimal.Decimal) (subTotal, grandTotal decimal.Decimal) {
	subTotal = decimal.Zero
	for _, item := range items {
		subTotal = subTotal.Add(item.LineTotal)
	}
	grandTotal = clampZero(subTotal.Sub(discountAmt).Add(taxAmt))
	return RoundMoney(subTotal), RoundMoney(grandTotal)
}

// lineTotal computes quantity × unitPrice for one charge line.
func lineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return RoundMoney(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// recompute refreshes every derived field on the invoice from its items and
// payments-to-date. It must run, and commit atomically with the triggering
// change, after every structural mutation.
func (s *Service) recompute(inv *models.Invoice) {
	inv.SubTotal, inv.GrandTotal = CalculateTotals(inv.Items, inv.DiscountAmt, inv.TaxAmt)
	inv.AmountDue = RoundMoney(clampZero(inv.GrandTotal.Sub(inv.AmountPaid)))
	inv.Status = s.deriveStatus(inv)
}

// deriveStatus is the single status rule: VOID is terminal, otherwise the
// status is a pure function of amountPaid vs grandTotal. An invoice that has
// never been charged nor paid falls back to the empty-invoice policy.
func (s *Service) deriveStatus(inv *models.Invoice) models.InvoiceStatus {
	if inv.VoidedAt != nil {
		return models.InvoiceStatusVoid
	}
	if inv.AmountPaid.IsZero() {
		if len(inv.Items) == 0 {
			return s.cfg.EmptyInvoiceStatus
		}
		return models.InvoiceStatusPending
	}
	if inv.AmountPaid.LessThan(inv.GrandTotal) {
		return models.InvoiceStatusPartiallyPaid
	}
	return models.InvoiceStatusPaid
}
