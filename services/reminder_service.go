// services/reminder_service.go
package services

import (
	"log"
	"os"
	"strings"
	"time"

	"clinicpro-backend/models"
	"clinicpro-backend/utils"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"
)

// ReminderService sends visit reminders for the next day's scheduled
// visits. It runs outside the request path and only reads visits and
// patients; billing data is never touched here.
type ReminderService struct {
	db     *gorm.DB
	client *twilio.RestClient
}

func NewReminderService(db *gorm.DB) *ReminderService {
	// Initialize Twilio client
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")

	return &ReminderService{
		db: db,
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
	}
}

func (s *ReminderService) StartScheduler() {
	c := cron.New()

	// Run every day at 8 AM
	c.AddFunc("0 8 * * *", s.SendDailyReminders)

	c.Start()
	log.Println("Reminder scheduler started")
}

func (s *ReminderService) SendDailyReminders() {
	log.Println("Starting daily reminder processing...")

	var clinics []models.Clinic
	if err := s.db.Where("visit_reminders = ?", true).Find(&clinics).Error; err != nil {
		log.Printf("Failed to fetch clinics: %v", err)
		return
	}

	for _, clinic := range clinics {
		s.ProcessClinicReminders(clinic)
	}

	log.Println("Daily reminder processing completed")
}

func (s *ReminderService) ProcessClinicReminders(clinic models.Clinic) {
	visits, err := s.getTomorrowsVisits(clinic.ID)
	if err != nil {
		log.Printf("Clinic %s: Failed to get upcoming visits: %v", clinic.ID, err)
		return
	}
	if len(visits) == 0 {
		return
	}

	// Get active visit template for this clinic
	var template models.ReminderTemplate
	if err := s.db.Where("clinic_id = ? AND type = ? AND is_active = true", clinic.ID, "visit").
		First(&template).Error; err != nil {
		log.Printf("Clinic %s: No active visit template: %v", clinic.ID, err)
		return
	}

	for _, visit := range visits {
		var patient models.Patient
		if err := s.db.Where("clinic_id = ? AND id = ?", clinic.ID, visit.PatientID).
			First(&patient).Error; err != nil {
			log.Printf("Clinic %s: Patient %s not found for visit %s", clinic.ID, visit.PatientID, visit.ID)
			continue
		}

		s.sendReminder(clinic, patient, template, visit)
	}
}

func (s *ReminderService) getTomorrowsVisits(clinicID uuid.UUID) ([]models.Visit, error) {
	start := utils.BeginningOfDay(time.Now().AddDate(0, 0, 1))
	end := start.AddDate(0, 0, 1)

	var visits []models.Visit
	err := s.db.Where("clinic_id = ? AND status = ? AND visit_date >= ? AND visit_date < ?",
		clinicID, "SCHEDULED", start, end).Find(&visits).Error
	return visits, err
}

func (s *ReminderService) sendReminder(clinic models.Clinic, patient models.Patient, template models.ReminderTemplate, visit models.Visit) {
	// Replace placeholders in the template
	message := strings.ReplaceAll(template.Message, "[PatientName]", patient.Name)
	message = strings.ReplaceAll(message, "[ClinicName]", clinic.Name)
	message = strings.ReplaceAll(message, "[VisitTime]", visit.VisitDate.Format("3:04 PM"))

	// Determine channel (WhatsApp if enabled and phone is E.164, else SMS)
	channel := "sms"
	to := patient.Phone
	if clinic.WhatsAppNotifications && strings.HasPrefix(patient.Phone, "+") {
		to = "whatsapp:" + patient.Phone
		channel = "whatsapp"
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetBody(message)

	if channel == "whatsapp" {
		params.SetFrom("whatsapp:" + os.Getenv("TWILIO_WHATSAPP_NUMBER"))
	} else {
		params.SetFrom(os.Getenv("TWILIO_PHONE_NUMBER"))
	}

	resp, err := s.client.Api.CreateMessage(params)
	status := "sent"
	errorMsg := ""

	if err != nil {
		log.Printf("Failed to send reminder to %s: %v", patient.Phone, err)
		status = "failed"
		errorMsg = err.Error()
	} else if resp.Sid != nil {
		log.Printf("Reminder sent to %s, SID: %s", patient.Phone, *resp.Sid)
	} else {
		log.Printf("Reminder sent to %s, but no SID returned", patient.Phone)
	}

	// Log the reminder
	reminderLog := models.ReminderLog{
		ClinicID:     clinic.ID,
		PatientID:    patient.ID,
		TemplateID:   template.ID,
		Type:         "visit",
		Message:      message,
		Status:       status,
		ErrorMessage: errorMsg,
		Channel:      channel,
		SentAt:       time.Now(),
	}

	if err := s.db.Create(&reminderLog).Error; err != nil {
		log.Printf("Failed to log reminder for patient %s: %v", patient.ID, err)
	}
}
