package billing

import (
	"context"
	"sync"

	"clinicpro-backend/models"

	"github.com/google/uuid"
)

// memoryRepository backs the service tests without a database. Transaction
// serializes on a mutex; rollback is not modelled, which is fine because
// the service only writes after its checks pass.
type memoryRepository struct {
	mu sync.Mutex

	visits       map[uuid.UUID]memoryVisit
	invoices     map[uuid.UUID]models.Invoice
	invoiceOrder []uuid.UUID
	items        map[uuid.UUID]models.InvoiceItem
	itemOrder    map[uuid.UUID][]uuid.UUID
	removedItems map[uuid.UUID]bool
	payments     []models.Payment
	events       []models.ChargeEvent
}

type memoryVisit struct {
	clinicID  uuid.UUID
	patientID uuid.UUID
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		visits:       make(map[uuid.UUID]memoryVisit),
		invoices:     make(map[uuid.UUID]models.Invoice),
		items:        make(map[uuid.UUID]models.InvoiceItem),
		itemOrder:    make(map[uuid.UUID][]uuid.UUID),
		removedItems: make(map[uuid.UUID]bool),
	}
}

func (m *memoryRepository) addVisit(clinicID, patientID uuid.UUID) uuid.UUID {
	visitID := uuid.New()
	m.visits[visitID] = memoryVisit{clinicID: clinicID, patientID: patientID}
	return visitID
}

func (m *memoryRepository) Transaction(ctx context.Context, fn func(Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m)
}

func (m *memoryRepository) VisitExists(ctx context.Context, clinicID, visitID, patientID uuid.UUID) (bool, error) {
	v, ok := m.visits[visitID]
	return ok && v.clinicID == clinicID && v.patientID == patientID, nil
}

func (m *memoryRepository) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	stored := *inv
	stored.Items = nil
	stored.Payments = nil
	m.invoices[inv.ID] = stored
	m.invoiceOrder = append(m.invoiceOrder, inv.ID)
	for _, it := range inv.Items {
		m.items[it.ID] = it
		m.itemOrder[inv.ID] = append(m.itemOrder[inv.ID], it.ID)
	}
	return nil
}

func (m *memoryRepository) loadInvoice(clinicID, invoiceID uuid.UUID) (*models.Invoice, error) {
	stored, ok := m.invoices[invoiceID]
	if !ok || stored.ClinicID != clinicID {
		return nil, ErrNotFound
	}
	inv := stored
	for _, itemID := range m.itemOrder[invoiceID] {
		if m.removedItems[itemID] {
			continue
		}
		inv.Items = append(inv.Items, m.items[itemID])
	}
	return &inv, nil
}

func (m *memoryRepository) GetInvoice(ctx context.Context, clinicID, invoiceID uuid.UUID) (*models.Invoice, error) {
	inv, err := m.loadInvoice(clinicID, invoiceID)
	if err != nil {
		return nil, err
	}
	for _, p := range m.payments {
		if p.InvoiceID == invoiceID {
			inv.Payments = append(inv.Payments, p)
		}
	}
	return inv, nil
}

func (m *memoryRepository) GetInvoiceForUpdate(ctx context.Context, clinicID, invoiceID uuid.UUID) (*models.Invoice, error) {
	return m.loadInvoice(clinicID, invoiceID)
}

func (m *memoryRepository) GetVisitInvoiceForUpdate(ctx context.Context, clinicID, visitID uuid.UUID) (*models.Invoice, error) {
	for i := len(m.invoiceOrder) - 1; i >= 0; i-- {
		stored := m.invoices[m.invoiceOrder[i]]
		if stored.ClinicID == clinicID && stored.VisitID == visitID && stored.Status != models.InvoiceStatusVoid {
			return m.loadInvoice(clinicID, stored.ID)
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepository) ListInvoices(ctx context.Context, clinicID uuid.UUID, filter InvoiceFilter) ([]models.Invoice, error) {
	var out []models.Invoice
	for i := len(m.invoiceOrder) - 1; i >= 0; i-- {
		stored := m.invoices[m.invoiceOrder[i]]
		if stored.ClinicID != clinicID {
			continue
		}
		if filter.PatientID != nil && stored.PatientID != *filter.PatientID {
			continue
		}
		if filter.VisitID != nil && stored.VisitID != *filter.VisitID {
			continue
		}
		if filter.Status != "" && stored.Status != filter.Status {
			continue
		}
		inv, err := m.loadInvoice(clinicID, stored.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, nil
}

func (m *memoryRepository) SaveInvoice(ctx context.Context, inv *models.Invoice) error {
	stored, ok := m.invoices[inv.ID]
	if !ok || stored.ClinicID != inv.ClinicID {
		return ErrNotFound
	}
	updated := *inv
	updated.Items = nil
	updated.Payments = nil
	m.invoices[inv.ID] = updated
	return nil
}

func (m *memoryRepository) GetItemForUpdate(ctx context.Context, clinicID, itemID uuid.UUID) (*models.InvoiceItem, *models.Invoice, error) {
	ref, ok := m.items[itemID]
	if !ok || m.removedItems[itemID] {
		return nil, nil, ErrNotFound
	}
	inv, err := m.loadInvoice(clinicID, ref.InvoiceID)
	if err != nil {
		return nil, nil, err
	}
	// As in the gorm implementation, the returned item comes from the
	// invoice load, not an earlier snapshot.
	for i := range inv.Items {
		if inv.Items[i].ID == itemID {
			item := inv.Items[i]
			return &item, inv, nil
		}
	}
	return nil, nil, ErrNotFound
}

func (m *memoryRepository) AddItems(ctx context.Context, items []models.InvoiceItem) error {
	for _, it := range items {
		m.items[it.ID] = it
		m.itemOrder[it.InvoiceID] = append(m.itemOrder[it.InvoiceID], it.ID)
	}
	return nil
}

func (m *memoryRepository) SaveItem(ctx context.Context, item *models.InvoiceItem) error {
	if _, ok := m.items[item.ID]; !ok {
		return ErrNotFound
	}
	m.items[item.ID] = *item
	return nil
}

func (m *memoryRepository) RemoveItem(ctx context.Context, item *models.InvoiceItem, hard bool) error {
	if hard {
		delete(m.items, item.ID)
		order := m.itemOrder[item.InvoiceID]
		for i, id := range order {
			if id == item.ID {
				m.itemOrder[item.InvoiceID] = append(order[:i], order[i+1:]...)
				break
			}
		}
		return nil
	}
	m.removedItems[item.ID] = true
	return nil
}

func (m *memoryRepository) CreatePayment(ctx context.Context, p *models.Payment) error {
	m.payments = append(m.payments, *p)
	return nil
}

func (m *memoryRepository) CountPayments(ctx context.Context, clinicID, invoiceID uuid.UUID) (int64, error) {
	var n int64
	for _, p := range m.payments {
		if p.ClinicID == clinicID && p.InvoiceID == invoiceID {
			n++
		}
	}
	return n, nil
}

func (m *memoryRepository) CreateChargeEvent(ctx context.Context, e *models.ChargeEvent) error {
	for _, existing := range m.events {
		if existing.ClinicID == e.ClinicID && existing.SourceEventID == e.SourceEventID {
			return ErrDuplicateEvent
		}
	}
	m.events = append(m.events, *e)
	return nil
}

func (m *memoryRepository) FindChargeEvent(ctx context.Context, clinicID, sourceEventID uuid.UUID) (*models.ChargeEvent, error) {
	for _, e := range m.events {
		if e.ClinicID == clinicID && e.SourceEventID == sourceEventID {
			found := e
			return &found, nil
		}
	}
	return nil, ErrNotFound
}
