package routes

import (
	"os"
	"strings"

	"clinicpro-backend/billing"
	"clinicpro-backend/config"
	"clinicpro-backend/controllers"
	"clinicpro-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(billingService *billing.Service) *gin.Engine {
	r := gin.Default()

	allowedOrigins := []string{"http://localhost:3000"}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		allowedOrigins = strings.Split(env, ",")
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)

		auth.Use(utils.AuthMiddleware())
		auth.GET("/me", controllers.Me)
	}

	invoiceController := controllers.NewInvoiceController(billingService)
	pharmacyController := controllers.NewPharmacyController(billingService)

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware())
	{
		// Patient routes
		patients := api.Group("/patients")
		{
			patients.POST("", controllers.CreatePatient)
			patients.GET("", controllers.GetPatients)
			patients.GET("/:id", controllers.GetPatient)
			patients.PUT("/:id", controllers.UpdatePatient)
			patients.DELETE("/:id", controllers.DeletePatient)
		}

		// Visit routes
		visits := api.Group("/visits")
		{
			visits.POST("", controllers.CreateVisit)
			visits.GET("", controllers.GetVisits)
			visits.GET("/:id", controllers.GetVisit)
			visits.PUT("/:id", controllers.UpdateVisit)
		}

		// Service catalog routes
		services := api.Group("/services")
		{
			services.POST("", controllers.CreateService)
			services.GET("", controllers.GetServices)
			services.GET("/:id", controllers.GetService)
			services.PUT("/:id", controllers.UpdateService)
			services.DELETE("/:id", controllers.DeleteService)
		}

		// Invoice routes
		invoices := api.Group("/invoices")
		{
			invoices.POST("", invoiceController.CreateInvoice)
			invoices.GET("", invoiceController.GetInvoices)
			invoices.GET("/:id", invoiceController.GetInvoice)
			invoices.POST("/:id/items", invoiceController.AddItem)
			invoices.PUT("/:id/items/:itemId", invoiceController.UpdateItem)
			invoices.DELETE("/:id/items/:itemId", invoiceController.RemoveItem)
			invoices.PUT("/:id/adjustments", invoiceController.UpdateAdjustments)
			invoices.POST("/:id/payments", invoiceController.PostPayment)
			invoices.POST("/:id/void", invoiceController.VoidInvoice)
		}

		// Pharmacy routes
		pharmacy := api.Group("/pharmacy")
		{
			pharmacy.POST("/medications", pharmacyController.CreateMedication)
			pharmacy.GET("/medications", pharmacyController.GetMedications)
			pharmacy.POST("/dispenses", pharmacyController.CreateDispense)
			pharmacy.GET("/dispenses", pharmacyController.GetDispenses)
			pharmacy.POST("/dispenses/:id/complete", pharmacyController.CompleteDispense)
		}

		//Reports routes
		reportController := controllers.ReportController{}
		api.GET("/reports", reportController.GetReportAnalytics)

		// Dashboard routes
		api.GET("/dashboard", controllers.GetDashboardOverview)

		// Settings routes
		profile := api.Group("/profile")
		{
			profile.GET("", controllers.GetProfile)
			profile.PUT("/update-clinic", controllers.UpdateClinicProfile)
			profile.PUT("/update-hours", controllers.UpdateWorkingHours)
			profile.PUT("/update-notifications", controllers.UpdateNotifications)
		}

		// Reminder template routes
		reminders := api.Group("/reminders")
		{
			reminders.POST("/templates", controllers.CreateReminderTemplate)
			reminders.GET("/templates", controllers.GetReminderTemplates)
			reminders.PUT("/templates/:id", controllers.UpdateReminderTemplate)
			reminders.GET("/logs", controllers.GetReminderLogs)
		}
	}

	return r
}
