package controllers

import (
	"net/http"

	"clinicpro-backend/config"
	"clinicpro-backend/models"
	"clinicpro-backend/utils"

	"github.com/gin-gonic/gin"
)

type UpdateClinicProfileInput struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Currency string `json:"currency" binding:"omitempty,len=3"`
}

type UpdateNotificationsInput struct {
	VisitReminders        *bool `json:"visitReminders"`
	FollowUpReminders     *bool `json:"followUpReminders"`
	WhatsAppNotifications *bool `json:"whatsAppNotifications"`
	SMSNotifications      *bool `json:"smsNotifications"`
}

// GetProfile returns the clinic's profile and settings
func GetProfile(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}

	var clinic models.Clinic
	if err := config.DB.First(&clinic, "id = ?", clinicUUID).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "Clinic not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":                  clinic.Name,
		"address":               clinic.Address,
		"phone":                 clinic.Phone,
		"currency":              clinic.Currency,
		"workingHours":          clinic.WorkingHours,
		"visitReminders":        clinic.VisitReminders,
		"followUpReminders":     clinic.FollowUpReminders,
		"whatsAppNotifications": clinic.WhatsAppNotifications,
		"smsNotifications":      clinic.SMSNotifications,
	})
}

// UpdateClinicProfile updates the clinic's basic details
func UpdateClinicProfile(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}

	var input UpdateClinicProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	var clinic models.Clinic
	if err := config.DB.First(&clinic, "id = ?", clinicUUID).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "Clinic not found")
		return
	}

	if input.Name != "" {
		clinic.Name = input.Name
	}
	if input.Address != "" {
		clinic.Address = input.Address
	}
	if input.Phone != "" {
		clinic.Phone = input.Phone
	}
	if input.Currency != "" {
		clinic.Currency = input.Currency
	}

	if err := config.DB.Save(&clinic).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated"})
}

// UpdateWorkingHours replaces the clinic's working hours
func UpdateWorkingHours(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}

	var input struct {
		WorkingHours models.JSONB `json:"workingHours" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	if err := config.DB.Model(&models.Clinic{}).Where("id = ?", clinicUUID).
		Update("working_hours", input.WorkingHours).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update working hours")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Working hours updated"})
}

// UpdateNotifications toggles the clinic's reminder and notification channels
func UpdateNotifications(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}

	var input UpdateNotificationsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	updates := map[string]interface{}{}
	if input.VisitReminders != nil {
		updates["visit_reminders"] = *input.VisitReminders
	}
	if input.FollowUpReminders != nil {
		updates["follow_up_reminders"] = *input.FollowUpReminders
	}
	if input.WhatsAppNotifications != nil {
		updates["whats_app_notifications"] = *input.WhatsAppNotifications
	}
	if input.SMSNotifications != nil {
		updates["sms_notifications"] = *input.SMSNotifications
	}
	if len(updates) == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "No settings provided")
		return
	}

	if err := config.DB.Model(&models.Clinic{}).Where("id = ?", clinicUUID).
		Updates(updates).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification settings updated"})
}
