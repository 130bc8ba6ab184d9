package billing

import (
	"context"
	"testing"

	"clinicpro-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() (*Service, *memoryRepository) {
	repo := newMemoryRepository()
	return NewService(repo, Config{}), repo
}

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func consultationItem(price string) NewItemInput {
	return NewItemInput{
		SourceType:  models.ItemSourceService,
		Description: "Consultation",
		Quantity:    1,
		UnitPrice:   amt(price),
	}
}

func TestCreateInvoiceWithItem(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)

	inv, err := svc.CreateInvoice(context.Background(), clinicID, visitID, patientID,
		[]NewItemInput{consultationItem("8000.00")}, "")
	require.NoError(t, err)

	assert.Equal(t, models.InvoiceStatusPending, inv.Status)
	assert.True(t, inv.SubTotal.Equal(amt("8000.00")))
	assert.True(t, inv.GrandTotal.Equal(amt("8000.00")))
	assert.True(t, inv.AmountDue.Equal(amt("8000.00")))
	assert.True(t, inv.AmountPaid.IsZero())
	assert.Equal(t, "MMK", inv.Currency)
	assert.NotEmpty(t, inv.InvoiceNumber)
	require.Len(t, inv.Items, 1)
	assert.True(t, inv.Items[0].LineTotal.Equal(amt("8000.00")))
}

func TestCreateInvoiceEmpty(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)

	inv, err := svc.CreateInvoice(context.Background(), clinicID, visitID, patientID, nil, "")
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusDraft, inv.Status)
	assert.True(t, inv.GrandTotal.IsZero())
	assert.True(t, inv.AmountDue.IsZero())
}

func TestCreateInvoiceEmptyStatusPolicy(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo, Config{EmptyInvoiceStatus: models.InvoiceStatusPending})
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)

	inv, err := svc.CreateInvoice(context.Background(), clinicID, visitID, patientID, nil, "")
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPending, inv.Status)
}

func TestCreateInvoiceUnknownVisit(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	repo.addVisit(clinicID, patientID)

	_, err := svc.CreateInvoice(context.Background(), clinicID, uuid.New(), patientID, nil, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateInvoiceVisitPatientMismatch(t *testing.T) {
	svc, repo := newTestService()
	clinicID := uuid.New()
	visitID := repo.addVisit(clinicID, uuid.New())

	_, err := svc.CreateInvoice(context.Background(), clinicID, visitID, uuid.New(), nil, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateInvoiceValidation(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)

	cases := []struct {
		name  string
		input NewItemInput
	}{
		{"empty description", NewItemInput{Quantity: 1, UnitPrice: amt("100")}},
		{"zero quantity", NewItemInput{Description: "X-ray", Quantity: 0, UnitPrice: amt("100")}},
		{"negative price", NewItemInput{Description: "X-ray", Quantity: 1, UnitPrice: amt("-1")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateInvoice(context.Background(), clinicID, visitID, patientID,
				[]NewItemInput{tc.input}, "")
			assert.True(t, IsValidation(err))
		})
	}
}

func TestPartialThenFullPayment(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, clinicID, visitID, patientID,
		[]NewItemInput{consultationItem("8000.00")}, "")
	require.NoError(t, err)

	_, err = svc.PostPayment(ctx, clinicID, inv.ID, amt("3000.00"), models.PaymentMethodCash, "", "")
	require.NoError(t, err)

	inv, err = svc.GetInvoice(ctx, clinicID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, inv.Status)
	assert.True(t, inv.AmountPaid.Equal(amt("3000.00")))
	assert.True(t, inv.AmountDue.Equal(amt("5000.00")))

	_, err = svc.PostPayment(ctx, clinicID, inv.ID, amt("5000.00"), models.PaymentMethodCard, "TX-991", "")
	require.NoError(t, err)

	inv, err = svc.GetInvoice(ctx, clinicID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, inv.Status)
	assert.True(t, inv.AmountPaid.Equal(amt("8000.00")))
	assert.True(t, inv.AmountDue.IsZero())
	assert.Len(t, inv.Payments, 2)
}

func TestOverpaymentFloorsAmountDue(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, clinicID, visitID, patientID,
		[]NewItemInput{consultationItem("8000.00")}, "")
	require.NoError(t, err)

	_, err = svc.PostPayment(ctx, clinicID, inv.ID, amt("10000.00"), models.PaymentMethodCash, "", "")
	require.NoError(t, err)

	inv, err = svc.GetInvoice(ctx, clinicID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, inv.Status)
	assert.True(t, inv.AmountPaid.Equal(amt("10000.00")))
	assert.True(t, inv.AmountDue.IsZero())
}

func TestPaymentValidation(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, clinicID, visitID, patientID,
		[]NewItemInput{consultationItem("8000.00")}, "")
	require.NoError(t, err)

	_, err = svc.PostPayment(ctx, clinicID, inv.ID, decimal.Zero, models.PaymentMethodCash, "", "")
	assert.True(t, IsValidation(err))

	_, err = svc.PostPayment(ctx, clinicID, inv.ID, amt("-50"), models.PaymentMethodCash, "", "")
	assert.True(t, IsValidation(err))

	_, err = svc.PostPayment(ctx, clinicID, inv.ID, amt("50"), models.PaymentMethod("CHEQUE"), "", "")
	assert.True(t, IsValidation(err))
}

func TestVoidInvoice(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, clinicID, visitID, patientID,
		[]NewItemInput{consultationItem("8000.00")}, "")
	require.NoError(t, err)
	_, err = svc.PostPayment(ctx, clinicID, inv.ID, amt("3000.00"), models.PaymentMethodCash, "", "")
	require.NoError(t, err)

	voided, err := svc.VoidInvoice(ctx, clinicID, inv.ID, "Test void")
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusVoid, voided.Status)
	assert.Equal(t, "Test void", voided.VoidReason)
	require.NotNil(t, voided.VoidedAt)

	// Terminal: every later mutation conflicts.
	_, err = svc.AddItem(ctx, clinicID, inv.ID, consultationItem("500.00"))
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.PostPayment(ctx, clinicID, inv.ID, amt("5000.00"), models.PaymentMethodCash, "", "")
	assert.ErrorIs(t, err, ErrConflict)
	discount := amt("100.00")
	_, err = svc.UpdateAdjustments(ctx, clinicID, inv.ID, &discount, nil)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.VoidInvoice(ctx, clinicID, inv.ID, "again")
	assert.ErrorIs(t, err, ErrConflict)

	// Voiding does not reverse recorded payments.
	inv, err = svc.GetInvoice(ctx, clinicID, inv.ID)
	require.NoError(t, err)
	assert.Len(t, inv.Payments, 1)
	assert.True(t, inv.AmountPaid.Equal(amt("3000.00")))
}

func TestVoidRequiresReason(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, clinicID, visitID, patientID, nil, "")
	require.NoError(t, err)

	_, err = svc.VoidInvoice(ctx, clinicID, inv.ID, "")
	assert.True(t, IsValidation(err))
}

func TestAddAndUpdateItem(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, clinicID, visitID, patientID,
		[]NewItemInput{consultationItem("8000.00")}, "")
	require.NoError(t, err)

	inv, err = svc.AddItem(ctx, clinicID, inv.ID, NewItemInput{
		Description: "Blood test",
		Quantity:    2,
		UnitPrice:   amt("1500.50"),
	})
	require.NoError(t, err)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, models.ItemSourceManual, inv.Items[1].SourceType)
	assert.True(t, inv.SubTotal.Equal(amt("11001.00")))
	assert.True(t, inv.AmountDue.Equal(amt("11001.00")))

	qty := 3
	inv, err = svc.UpdateItem(ctx, clinicID, inv.Items[1].ID, ItemPatch{Quantity: &qty})
	require.NoError(t, err)
	assert.True(t, inv.Items[1].LineTotal.Equal(amt("4501.50")))
	assert.True(t, inv.SubTotal.Equal(amt("12501.50")))
}

// rivalItemUpdateRepository commits a quantity change to an item right
// before the transaction body runs, standing in for a concurrent UpdateItem
// that finished while this one was waiting on the invoice row lock.
type rivalItemUpdateRepository struct {
	*memoryRepository
	itemID   uuid.UUID
	quantity int
	applied  bool
}

func (r *rivalItemUpdateRepository) Transaction(ctx context.Context, fn func(Repository) error) error {
	if !r.applied {
		r.applied = true
		item := r.items[r.itemID]
		item.Quantity = r.quantity
		item.LineTotal = lineTotal(r.quantity, item.UnitPrice)
		r.items[r.itemID] = item
	}
	return r.memoryRepository.Transaction(ctx, fn)
}

func TestUpdateItemKeepsConcurrentlyCommittedFields(t *testing.T) {
	mem := newMemoryRepository()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := mem.addVisit(clinicID, patientID)
	ctx := context.Background()

	setup := NewService(mem, Config{})
	inv, err := setup.CreateInvoice(ctx, clinicID, visitID, patientID,
		[]NewItemInput{consultationItem("8000.00")}, "")
	require.NoError(t, err)
	itemID := inv.Items[0].ID

	repo := &rivalItemUpdateRepository{memoryRepository: mem, itemID: itemID, quantity: 5}
	svc := NewService(repo, Config{})

	desc := "Extended consultation"
	inv, err = svc.UpdateItem(ctx, clinicID, itemID, ItemPatch{Description: &desc})
	require.NoError(t, err)

	// The rival's quantity change must survive the description patch.
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Extended consultation", inv.Items[0].Description)
	assert.Equal(t, 5, inv.Items[0].Quantity)
	assert.True(t, inv.Items[0].LineTotal.Equal(amt("40000.00")))
	assert.True(t, inv.SubTotal.Equal(amt("40000.00")))
}

func TestRemoveItem(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, clinicID, visitID, patientID,
		[]NewItemInput{consultationItem("8000.00"), {Description: "Blood test", Quantity: 1, UnitPrice: amt("2000.00")}}, "")
	require.NoError(t, err)

	inv, err = svc.RemoveItem(ctx, clinicID, inv.Items[1].ID)
	require.NoError(t, err)
	require.Len(t, inv.Items, 1)
	assert.True(t, inv.GrandTotal.Equal(amt("8000.00")))
}

func TestRemoveItemAfterPaymentFloorsDue(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, clinicID, visitID, patientID,
		[]NewItemInput{consultationItem("8000.00")}, "")
	require.NoError(t, err)
	_, err = svc.PostPayment(ctx, clinicID, inv.ID, amt("8000.00"), models.PaymentMethodCash, "", "")
	require.NoError(t, err)

	inv, err = svc.RemoveItem(ctx, clinicID, inv.Items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, inv.Items)
	assert.True(t, inv.GrandTotal.IsZero())
	assert.True(t, inv.AmountDue.IsZero())
	assert.Equal(t, models.InvoiceStatusPaid, inv.Status)
}

func TestAdjustments(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, clinicID, visitID, patientID,
		[]NewItemInput{consultationItem("8000.00")}, "")
	require.NoError(t, err)

	discount, tax := amt("500.00"), amt("120.00")
	inv, err = svc.UpdateAdjustments(ctx, clinicID, inv.ID, &discount, &tax)
	require.NoError(t, err)
	assert.True(t, inv.GrandTotal.Equal(amt("7620.00")))
	assert.True(t, inv.AmountDue.Equal(amt("7620.00")))

	// A discount bigger than the subtotal clamps the grand total at zero.
	huge := amt("20000.00")
	inv, err = svc.UpdateAdjustments(ctx, clinicID, inv.ID, &huge, nil)
	require.NoError(t, err)
	assert.True(t, inv.GrandTotal.IsZero())

	negative := amt("-1.00")
	_, err = svc.UpdateAdjustments(ctx, clinicID, inv.ID, &negative, nil)
	assert.True(t, IsValidation(err))
}

func TestZeroTotalInvoiceStaysPending(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)

	inv, err := svc.CreateInvoice(context.Background(), clinicID, visitID, patientID,
		[]NewItemInput{{Description: "Free sample", Quantity: 5, UnitPrice: decimal.Zero}}, "")
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPending, inv.Status)
	assert.True(t, inv.GrandTotal.IsZero())
	assert.True(t, inv.AmountDue.IsZero())
}

func TestTenantIsolation(t *testing.T) {
	svc, repo := newTestService()
	clinicA, patientID := uuid.New(), uuid.New()
	clinicB := uuid.New()
	visitID := repo.addVisit(clinicA, patientID)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, clinicA, visitID, patientID,
		[]NewItemInput{consultationItem("8000.00")}, "")
	require.NoError(t, err)

	_, err = svc.GetInvoice(ctx, clinicB, inv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.AddItem(ctx, clinicB, inv.ID, consultationItem("100.00"))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.UpdateItem(ctx, clinicB, inv.Items[0].ID, ItemPatch{})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.PostPayment(ctx, clinicB, inv.ID, amt("100.00"), models.PaymentMethodCash, "", "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.VoidInvoice(ctx, clinicB, inv.ID, "not yours")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListInvoicesFilters(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientA, patientB := uuid.New(), uuid.New(), uuid.New()
	visitA := repo.addVisit(clinicID, patientA)
	visitB := repo.addVisit(clinicID, patientB)
	ctx := context.Background()

	invA, err := svc.CreateInvoice(ctx, clinicID, visitA, patientA,
		[]NewItemInput{consultationItem("8000.00")}, "")
	require.NoError(t, err)
	_, err = svc.CreateInvoice(ctx, clinicID, visitB, patientB, nil, "")
	require.NoError(t, err)

	all, err := svc.ListInvoices(ctx, clinicID, InvoiceFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byPatient, err := svc.ListInvoices(ctx, clinicID, InvoiceFilter{PatientID: &patientA})
	require.NoError(t, err)
	require.Len(t, byPatient, 1)
	assert.Equal(t, invA.ID, byPatient[0].ID)

	pending, err := svc.ListInvoices(ctx, clinicID, InvoiceFilter{Status: models.InvoiceStatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, invA.ID, pending[0].ID)
}
