// controllers/pharmacy.go
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
	"gorm.io/gorm"
)

// PharmacyController handles the medication catalog and dispensing. A
// completed dispense is the external event that posts PHARMACY charges onto
// the visit's invoice, exactly once per dispense.
type PharmacyController struct {
	Billing *billing.Service
}

func NewPharmacyController(b *billing.Service) *PharmacyController {
	return &PharmacyController{Billing: b}
}

// CreateMedicationInput defines the expected JSON structure for creating a medication
type CreateMedicationInput struct {
	Name         string `json:"name" binding:"required"`
	GenericName  string `json:"genericName"`
	Form         string `json:"form" binding:"omitempty,oneof=tablet capsule syrup injection"`
	Strength     string `json:"strength"`
	UnitPrice    string `json:"unitPrice" binding:"required"`
	StockOnHand  int    `json:"stockOnHand" binding:"min=0"`
	ReorderLevel int    `json:"reorderLevel" binding:"min=0"`
}

// CreateDispenseInput defines the expected JSON structure for creating a dispense
type CreateDispenseInput struct {
	VisitID      uuid.UUID `json:"visitId" binding:"required"`
	MedicationID uuid.UUID `json:"medicationId" binding:"required"`
	Quantity     int       `json:"quantity" binding:"required,min=1"`
	Instructions string    `json:"instructions"`
}

// CreateMedication adds a medication to the clinic's catalog
func (pc *PharmacyController) CreateMedication(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}

	var input CreateMedicationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	price, err := parsePrice(input.UnitPrice)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid unitPrice: "+err.Error())
		return
	}

	medication := models.Medication{
		ID:           uuid.New(),
		ClinicID:     clinicUUID,
		Name:         input.Name,
		GenericName:  input.GenericName,
		Form:         input.Form,
		Strength:     input.Strength,
		UnitPrice:    price,
		StockOnHand:  input.StockOnHand,
		ReorderLevel: input.ReorderLevel,
		IsActive:     true,
	}

	if err := config.DB.Create(&medication).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create medication")
		return
	}

	c.JSON(http.StatusCreated, medication)
}

// GetMedications retrieves the clinic's medication catalog
func (pc *PharmacyController) GetMedications(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}

	var medications []models.Medication
	if err := config.DB.Where("clinic_id = ?", clinicUUID).Find(&medications).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve medications")
		return
	}

	c.JSON(http.StatusOK, medications)
}

// CreateDispense opens a pending dispense for a visit
func (pc *PharmacyController) CreateDispense(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}

	var input CreateDispenseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	// Validate visit exists in the same clinic
	var visit models.Visit
	if err := config.DB.Where("clinic_id = ? AND id = ?", clinicUUID, input.VisitID).
		First(&visit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusBadRequest, "Visit not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	// Validate medication exists in the same clinic
	var medication models.Medication
	if err := config.DB.Where("clinic_id = ? AND id = ?", clinicUUID, input.MedicationID).
		First(&medication).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusBadRequest, "Medication not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	dispense := models.DispenseRecord{
		ID:             uuid.New(),
		ClinicID:       clinicUUID,
		VisitID:        visit.ID,
		PatientID:      visit.PatientID,
		MedicationID:   medication.ID,
		MedicationName: medication.Name,
		Quantity:       input.Quantity,
		UnitPrice:      medication.UnitPrice,
		Instructions:   input.Instructions,
		Status:         "PENDING",
	}

	if err := config.DB.Create(&dispense).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create dispense")
		return
	}

	c.JSON(http.StatusCreated, dispense)
}

// GetDispenses lists dispenses for the clinic, optionally filtered by visit
func (pc *PharmacyController) GetDispenses(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}

	q := config.DB.Where("clinic_id = ?", clinicUUID)
	if visitID := c.Query("visitId"); visitID != "" {
		visitUUID, err := uuid.Parse(visitID)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid visitId format")
			return
		}
		q = q.Where("visit_id = ?", visitUUID)
	}

	var dispenses []models.DispenseRecord
	if err := q.Order("created_at DESC").Find(&dispenses).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve dispenses")
		return
	}

	c.JSON(http.StatusOK, dispenses)
}

// CompleteDispense marks a dispense as handed out, decrements stock and
// posts the charge onto the visit's invoice. The whole endpoint is safe to
// retry: a repeated call finds the dispense already COMPLETED and the
// charge poster returns the already-posted invoice without new lines.
func (pc *PharmacyController) CompleteDispense(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}
	dispenseUUID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var dispense models.DispenseRecord
	if err := config.DB.Where("clinic_id = ? AND id = ?", clinicUUID, dispenseUUID).
		First(&dispense).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Dispense not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if dispense.Status == "CANCELLED" {
		utils.RespondWithError(c, http.StatusConflict, "Dispense is cancelled")
		return
	}

	if dispense.Status != "COMPLETED" {
		now := time.Now()
		err := config.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&dispense).Updates(map[string]interface{}{
				"status":       "COMPLETED",
				"completed_at": now,
			}).Error; err != nil {
				return err
			}
			return tx.Model(&models.Medication{}).Where("id = ?", dispense.MedicationID).
				Update("stock_on_hand", gorm.Expr("stock_on_hand - ?", dispense.Quantity)).Error
		})
		if err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to complete dispense")
			return
		}
	}

	// Posting is keyed by the dispense ID, so retries after a failure here
	// cannot double-charge the invoice.
	lines := []billing.ChargeLine{{
		Description: dispense.MedicationName,
		Quantity:    dispense.Quantity,
		UnitPrice:   dispense.UnitPrice,
	}}
	invoiceID, err := pc.Billing.PostExternalCharges(c.Request.Context(),
		clinicUUID, dispense.ID, dispense.VisitID, dispense.PatientID, lines)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dispenseId": dispense.ID,
		"status":     "COMPLETED",
		"invoiceId":  invoiceID,
	})
}
