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

func TestPostExternalChargesCreatesInvoice(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)
	ctx := context.Background()

	eventID := uuid.New()
	invoiceID, err := svc.PostExternalCharges(ctx, clinicID, eventID, visitID, patientID, []ChargeLine{
		{Description: "Paracetamol 500mg", Quantity: 10, UnitPrice: amt("150.00")},
		{Description: "Amoxicillin 250mg", Quantity: 6, UnitPrice: amt("300.00")},
	})
	require.NoError(t, err)

	inv, err := svc.GetInvoice(ctx, clinicID, invoiceID)
	require.NoError(t, err)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, models.ItemSourcePharmacy, inv.Items[0].SourceType)
	require.NotNil(t, inv.Items[0].SourceRefID)
	assert.Equal(t, eventID, *inv.Items[0].SourceRefID)
	assert.True(t, inv.GrandTotal.Equal(amt("3300.00")))
	assert.Equal(t, models.InvoiceStatusPending, inv.Status)
}

func TestPostExternalChargesAppendsToOpenInvoice(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, clinicID, visitID, patientID,
		[]NewItemInput{consultationItem("8000.00")}, "")
	require.NoError(t, err)

	invoiceID, err := svc.PostExternalCharges(ctx, clinicID, uuid.New(), visitID, patientID, []ChargeLine{
		{Description: "Paracetamol 500mg", Quantity: 10, UnitPrice: amt("150.00")},
	})
	require.NoError(t, err)
	assert.Equal(t, inv.ID, invoiceID)

	inv, err = svc.GetInvoice(ctx, clinicID, inv.ID)
	require.NoError(t, err)
	require.Len(t, inv.Items, 2)
	assert.True(t, inv.GrandTotal.Equal(amt("9500.00")))
}

func TestPostExternalChargesIdempotent(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)
	ctx := context.Background()

	eventID := uuid.New()
	lines := []ChargeLine{{Description: "Free sample", Quantity: 5, UnitPrice: decimal.Zero}}

	first, err := svc.PostExternalCharges(ctx, clinicID, eventID, visitID, patientID, lines)
	require.NoError(t, err)
	second, err := svc.PostExternalCharges(ctx, clinicID, eventID, visitID, patientID, lines)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	inv, err := svc.GetInvoice(ctx, clinicID, first)
	require.NoError(t, err)
	require.Len(t, inv.Items, 1)
	assert.True(t, inv.GrandTotal.IsZero())
	assert.Equal(t, models.InvoiceStatusPending, inv.Status)
}

// racingRepository commits a rival charge-event marker right before the
// transaction runs, simulating a concurrent post for the same event that
// slips in after the fast-path check.
type racingRepository struct {
	*memoryRepository
	rival  models.ChargeEvent
	seeded bool
}

func (r *racingRepository) Transaction(ctx context.Context, fn func(Repository) error) error {
	if !r.seeded {
		r.seeded = true
		if err := r.memoryRepository.CreateChargeEvent(ctx, &r.rival); err != nil {
			return err
		}
	}
	return r.memoryRepository.Transaction(ctx, fn)
}

func TestPostExternalChargesDuplicateRace(t *testing.T) {
	mem := newMemoryRepository()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := mem.addVisit(clinicID, patientID)
	rivalInvoiceID := uuid.New()
	eventID := uuid.New()

	repo := &racingRepository{
		memoryRepository: mem,
		rival: models.ChargeEvent{
			ID: uuid.New(), ClinicID: clinicID, SourceEventID: eventID,
			VisitID: visitID, InvoiceID: rivalInvoiceID,
		},
	}
	svc := NewService(repo, Config{})

	got, err := svc.PostExternalCharges(context.Background(), clinicID, eventID, visitID, patientID, []ChargeLine{
		{Description: "Paracetamol 500mg", Quantity: 1, UnitPrice: amt("150.00")},
	})
	require.NoError(t, err)
	assert.Equal(t, rivalInvoiceID, got)
}

func TestPostExternalChargesSkipsVoidInvoice(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, clinicID, visitID, patientID,
		[]NewItemInput{consultationItem("8000.00")}, "")
	require.NoError(t, err)
	_, err = svc.VoidInvoice(ctx, clinicID, inv.ID, "data entry error")
	require.NoError(t, err)

	invoiceID, err := svc.PostExternalCharges(ctx, clinicID, uuid.New(), visitID, patientID, []ChargeLine{
		{Description: "Paracetamol 500mg", Quantity: 1, UnitPrice: amt("150.00")},
	})
	require.NoError(t, err)
	assert.NotEqual(t, inv.ID, invoiceID)
}

func TestPostExternalChargesValidation(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	visitID := repo.addVisit(clinicID, patientID)
	ctx := context.Background()

	_, err := svc.PostExternalCharges(ctx, clinicID, uuid.New(), visitID, patientID, nil)
	assert.True(t, IsValidation(err))

	_, err = svc.PostExternalCharges(ctx, clinicID, uuid.New(), visitID, patientID, []ChargeLine{
		{Description: "", Quantity: 1, UnitPrice: amt("10")},
	})
	assert.True(t, IsValidation(err))

	_, err = svc.PostExternalCharges(ctx, clinicID, uuid.New(), visitID, patientID, []ChargeLine{
		{Description: "Paracetamol 500mg", Quantity: 0, UnitPrice: amt("10")},
	})
	assert.True(t, IsValidation(err))
}

func TestPostExternalChargesUnknownVisit(t *testing.T) {
	svc, repo := newTestService()
	clinicID, patientID := uuid.New(), uuid.New()
	repo.addVisit(clinicID, patientID)

	_, err := svc.PostExternalCharges(context.Background(), clinicID, uuid.New(), uuid.New(), patientID, []ChargeLine{
		{Description: "Paracetamol 500mg", Quantity: 1, UnitPrice: amt("150.00")},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}
