package main

import (
	"fmt"
	"log"
	"os"

	"clinicpro-backend/billing"
	"clinicpro-backend/config"
	"clinicpro-backend/models"
	"clinicpro-backend/routes"
	"clinicpro-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func init() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	config.ConnectDB()

	config.DB.AutoMigrate(
		&models.Clinic{},
		&models.User{},
		&models.Patient{},
		&models.Visit{},
		&models.ServiceItem{},
		&models.Medication{},
		&models.DispenseRecord{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.Payment{},
		&models.ChargeEvent{},
		&models.ReminderTemplate{},
		&models.ReminderLog{},
	)
}

func main() {
	billingService := billing.NewService(
		billing.NewGormRepository(config.DB),
		billing.Config{
			Currency:           os.Getenv("CLINIC_CURRENCY"),
			EmptyInvoiceStatus: models.InvoiceStatus(os.Getenv("EMPTY_INVOICE_STATUS")),
		},
	)

	reminderService := services.NewReminderService(config.DB)
	reminderService.StartScheduler()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r := routes.SetupRouter(billingService)
	printRoutes(r)
	r.Run(":" + port)
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
