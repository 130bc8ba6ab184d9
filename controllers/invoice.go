// controllers/invoice.go
package controllers

import (
	"errors"
	"net/http"
	"time"

	"clinicpro-backend/billing"
	"clinicpro-backend/config"
	"clinicpro-backend/models"
	"clinicpro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceController exposes the billing core over HTTP. All invoice and
// payment semantics live in the billing service; this layer only binds
// input, resolves catalog prices and maps domain errors to status codes.
type InvoiceController struct {
	Billing *billing.Service
}

func NewInvoiceController(b *billing.Service) *InvoiceController {
	return &InvoiceController{Billing: b}
}

// InvoiceItemInput is one charge line in a create/add request. SERVICE
// lines resolve description and price from the clinic's catalog; MANUAL
// lines carry their own. Amounts travel as decimal strings.
type InvoiceItemInput struct {
	SourceType  string     `json:"sourceType" binding:"omitempty,oneof=SERVICE MANUAL"`
	ServiceID   *uuid.UUID `json:"serviceId"`
	Description string     `json:"description"`
	Quantity    int        `json:"quantity" binding:"required,min=1"`
	UnitPrice   *string    `json:"unitPrice"`
}

// CreateInvoiceInput defines the expected JSON structure for creating an invoice
type CreateInvoiceInput struct {
	VisitID   uuid.UUID          `json:"visitId" binding:"required"`
	PatientID uuid.UUID          `json:"patientId" binding:"required"`
	Items     []InvoiceItemInput `json:"items"`
	Note      string             `json:"note"`
}

type UpdateItemInput struct {
	Description *string `json:"description"`
	Quantity    *int    `json:"quantity" binding:"omitempty,min=1"`
	UnitPrice   *string `json:"unitPrice"`
}

type UpdateAdjustmentsInput struct {
	DiscountAmt *string `json:"discountAmt"`
	TaxAmt      *string `json:"taxAmt"`
}

type PostPaymentInput struct {
	Amount      string `json:"amount" binding:"required"`
	Method      string `json:"method" binding:"required,oneof=CASH CARD MOBILE BANK_TRANSFER OTHER"`
	ReferenceNo string `json:"referenceNo"`
	Note        string `json:"note"`
}

type VoidInvoiceInput struct {
	Reason string `json:"reason" binding:"required"`
}

// respondBillingError maps billing domain errors to HTTP statuses. Tenant
// mismatches arrive here as ErrNotFound already.
func respondBillingError(c *gin.Context, err error) {
	switch {
	case billing.IsValidation(err):
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, billing.ErrNotFound):
		utils.RespondWithError(c, http.StatusNotFound, "Not found")
	case errors.Is(err, billing.ErrConflict):
		utils.RespondWithError(c, http.StatusConflict, "Invoice is void")
	default:
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
	}
}

// resolveItemInput turns one request line into a billing item, pulling
// SERVICE line prices from the clinic's catalog.
func resolveItemInput(clinicID uuid.UUID, in InvoiceItemInput) (billing.NewItemInput, error) {
	item := billing.NewItemInput{
		SourceType:  models.ItemSourceManual,
		Description: in.Description,
		Quantity:    in.Quantity,
	}

	if in.SourceType == "SERVICE" || in.ServiceID != nil {
		if in.ServiceID == nil {
			return item, errors.New("serviceId is required for SERVICE items")
		}
		var service models.ServiceItem
		if err := config.DB.Where("clinic_id = ? AND id = ?", clinicID, *in.ServiceID).
			First(&service).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return item, errors.New("service not found: " + in.ServiceID.String())
			}
			return item, err
		}
		item.SourceType = models.ItemSourceService
		item.SourceRefID = in.ServiceID
		item.Description = service.Name
		item.UnitPrice = service.Price
		return item, nil
	}

	if in.UnitPrice == nil {
		return item, errors.New("unitPrice is required for MANUAL items")
	}
	price, err := billing.ParseAmount(*in.UnitPrice)
	if err != nil {
		return item, err
	}
	item.UnitPrice = price
	return item, nil
}

// CreateInvoice opens an invoice for a visit
func (ic *InvoiceController) CreateInvoice(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}

	var input CreateInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	items := make([]billing.NewItemInput, 0, len(input.Items))
	for _, in := range input.Items {
		item, err := resolveItemInput(clinicUUID, in)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		items = append(items, item)
	}

	invoice, err := ic.Billing.CreateInvoice(c.Request.Context(), clinicUUID, input.VisitID, input.PatientID, items, input.Note)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

// GetInvoices lists the clinic's invoices with optional filters
func (ic *InvoiceController) GetInvoices(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}

	var filter billing.InvoiceFilter
	if v := c.Query("patientId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid patientId format")
			return
		}
		filter.PatientID = &id
	}
	if v := c.Query("visitId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid visitId format")
			return
		}
		filter.VisitID = &id
	}
	if v := c.Query("status"); v != "" {
		filter.Status = models.InvoiceStatus(v)
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid from date")
			return
		}
		filter.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid to date")
			return
		}
		filter.To = &t
	}

	invoices, err := ic.Billing.ListInvoices(c.Request.Context(), clinicUUID, filter)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoices)
}

// GetInvoice retrieves a specific invoice by ID
func (ic *InvoiceController) GetInvoice(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}
	invoiceUUID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	invoice, err := ic.Billing.GetInvoice(c.Request.Context(), clinicUUID, invoiceUUID)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// AddItem appends a charge line to an invoice
func (ic *InvoiceController) AddItem(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}
	invoiceUUID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var input InvoiceItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	item, err := resolveItemInput(clinicUUID, input)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	invoice, err := ic.Billing.AddItem(c.Request.Context(), clinicUUID, invoiceUUID, item)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// UpdateItem patches a charge line
func (ic *InvoiceController) UpdateItem(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}
	itemUUID, ok := uuidParam(c, "itemId")
	if !ok {
		return
	}

	var input UpdateItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	patch := billing.ItemPatch{
		Description: input.Description,
		Quantity:    input.Quantity,
	}
	if input.UnitPrice != nil {
		price, err := billing.ParseAmount(*input.UnitPrice)
		if err != nil {
			respondBillingError(c, err)
			return
		}
		patch.UnitPrice = &price
	}

	invoice, err := ic.Billing.UpdateItem(c.Request.Context(), clinicUUID, itemUUID, patch)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// RemoveItem drops a charge line from an invoice
func (ic *InvoiceController) RemoveItem(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}
	itemUUID, ok := uuidParam(c, "itemId")
	if !ok {
		return
	}

	invoice, err := ic.Billing.RemoveItem(c.Request.Context(), clinicUUID, itemUUID)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// UpdateAdjustments sets discount and/or tax amounts on an invoice
func (ic *InvoiceController) UpdateAdjustments(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}
	invoiceUUID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var input UpdateAdjustmentsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var discountAmt, taxAmt *decimal.Decimal
	if input.DiscountAmt != nil {
		d, err := billing.ParseAmount(*input.DiscountAmt)
		if err != nil {
			respondBillingError(c, err)
			return
		}
		discountAmt = &d
	}
	if input.TaxAmt != nil {
		t, err := billing.ParseAmount(*input.TaxAmt)
		if err != nil {
			respondBillingError(c, err)
			return
		}
		taxAmt = &t
	}

	invoice, err := ic.Billing.UpdateAdjustments(c.Request.Context(), clinicUUID, invoiceUUID, discountAmt, taxAmt)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// PostPayment records a settled payment against an invoice
func (ic *InvoiceController) PostPayment(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}
	invoiceUUID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var input PostPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	amount, err := billing.ParseAmount(input.Amount)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	payment, err := ic.Billing.PostPayment(c.Request.Context(), clinicUUID, invoiceUUID,
		amount, models.PaymentMethod(input.Method), input.ReferenceNo, input.Note)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// VoidInvoice writes an invoice off
func (ic *InvoiceController) VoidInvoice(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}
	invoiceUUID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var input VoidInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	invoice, err := ic.Billing.VoidInvoice(c.Request.Context(), clinicUUID, invoiceUUID, input.Reason)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}
