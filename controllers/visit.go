package controllers

import (
	"errors"
	"net/http"
	"time"

	"clinicpro-backend/config"
	"clinicpro-backend/models"
	"clinicpro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateVisitInput defines the expected JSON structure for creating a visit
type CreateVisitInput struct {
	PatientID uuid.UUID  `json:"patientId" binding:"required"`
	DoctorID  uuid.UUID  `json:"doctorId" binding:"required"`
	VisitDate *time.Time `json:"visitDate"`
	Reason    string     `json:"reason"`
	Notes     string     `json:"notes"`
}

// UpdateVisitInput defines the expected JSON structure for updating a visit
type UpdateVisitInput struct {
	VisitDate *time.Time `json:"visitDate"`
	Reason    *string    `json:"reason"`
	Status    *string    `json:"status" binding:"omitempty,oneof=SCHEDULED IN_PROGRESS COMPLETED CANCELLED"`
	Notes     *string    `json:"notes"`
}

// CreateVisit creates a new visit for a patient
func CreateVisit(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}

	var input CreateVisitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	// Validate patient exists in the same clinic
	var patient models.Patient
	if err := config.DB.Where("clinic_id = ? AND id = ?", clinicUUID, input.PatientID).
		First(&patient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusBadRequest, "Patient not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	// Validate doctor exists in the same clinic
	var doctor models.User
	if err := config.DB.Where("clinic_id = ? AND id = ?", clinicUUID, input.DoctorID).
		First(&doctor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusBadRequest, "Doctor not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	visitDate := time.Now()
	if input.VisitDate != nil {
		visitDate = *input.VisitDate
	}

	visit := models.Visit{
		ID:        uuid.New(),
		ClinicID:  clinicUUID,
		PatientID: input.PatientID,
		DoctorID:  input.DoctorID,
		VisitDate: visitDate,
		Reason:    input.Reason,
		Status:    "SCHEDULED",
		Notes:     input.Notes,
	}

	// Create the visit and bump the patient's stats together
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&visit).Error; err != nil {
			return err
		}
		return tx.Model(&models.Patient{}).Where("id = ?", input.PatientID).
			Updates(map[string]interface{}{
				"total_visits": gorm.Expr("total_visits + ?", 1),
				"last_visit":   visitDate,
			}).Error
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create visit")
		return
	}

	c.JSON(http.StatusCreated, visit)
}

// GetVisits retrieves visits for the clinic, optionally filtered by patient
func GetVisits(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}

	q := config.DB.Where("clinic_id = ?", clinicUUID)
	if patientID := c.Query("patientId"); patientID != "" {
		patientUUID, err := uuid.Parse(patientID)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid patientId format")
			return
		}
		q = q.Where("patient_id = ?", patientUUID)
	}

	var visits []models.Visit
	if err := q.Order("visit_date DESC").Find(&visits).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve visits")
		return
	}

	c.JSON(http.StatusOK, visits)
}

// GetVisit retrieves a specific visit by ID
func GetVisit(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}
	visitUUID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var visit models.Visit
	if err := config.DB.Preload("Dispenses").
		Where("clinic_id = ? AND id = ?", clinicUUID, visitUUID).
		First(&visit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Visit not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, visit)
}

// UpdateVisit updates an existing visit
func UpdateVisit(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}
	visitUUID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var input UpdateVisitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var visit models.Visit
	if err := config.DB.Where("clinic_id = ? AND id = ?", clinicUUID, visitUUID).
		First(&visit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Visit not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.VisitDate != nil {
		visit.VisitDate = *input.VisitDate
	}
	if input.Reason != nil {
		visit.Reason = *input.Reason
	}
	if input.Status != nil {
		visit.Status = *input.Status
	}
	if input.Notes != nil {
		visit.Notes = *input.Notes
	}

	if err := config.DB.Save(&visit).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update visit")
		return
	}

	c.JSON(http.StatusOK, visit)
}
