package controllers

import (
	"net/http"
	"time"

	"clinicpro-backend/config"
	"clinicpro-backend/models"
	"clinicpro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type DashboardOverview struct {
	TotalPatients       int64           `json:"totalPatients"`
	TodayVisits         int64           `json:"todayVisits"`
	MonthlyRevenue      decimal.Decimal `json:"monthlyRevenue"`
	OutstandingAmount   decimal.Decimal `json:"outstandingAmount"`
	TotalInvoices       int64           `json:"totalInvoices"`
	PendingDispenses    int64           `json:"pendingDispenses"`
	LowStockMedications []LowStockItem  `json:"lowStockMedications"`
	RecentVisits        []RecentVisit   `json:"recentVisits"`
}

type LowStockItem struct {
	Name        string `json:"name"`
	StockOnHand int    `json:"stockOnHand"`
}

type RecentVisit struct {
	PatientName string    `json:"patientName"`
	Reason      string    `json:"reason"`
	VisitDate   time.Time `json:"visitDate"`
}

func GetDashboardOverview(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}

	var overview DashboardOverview

	config.DB.Model(&models.Patient{}).
		Where("clinic_id = ? AND deleted_at IS NULL", clinicUUID).
		Count(&overview.TotalPatients)

	now := time.Now()
	startOfDay := utils.BeginningOfDay(now)
	config.DB.Model(&models.Visit{}).
		Where("clinic_id = ? AND visit_date >= ? AND visit_date < ?", clinicUUID, startOfDay, startOfDay.AddDate(0, 0, 1)).
		Count(&overview.TodayVisits)

	// This month's collected revenue (payments, not invoice totals)
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	var monthly struct{ Total decimal.Decimal }
	config.DB.Raw(`
		SELECT COALESCE(SUM(amount), 0) AS total FROM payments
		WHERE clinic_id = ? AND created_at >= ?
	`, clinicUUID, firstOfMonth).Scan(&monthly)
	overview.MonthlyRevenue = monthly.Total

	// Amount still due across open invoices
	var outstanding struct{ Total decimal.Decimal }
	config.DB.Raw(`
		SELECT COALESCE(SUM(amount_due), 0) AS total FROM invoices
		WHERE clinic_id = ? AND status IN ('PENDING', 'PARTIALLY_PAID') AND deleted_at IS NULL
	`, clinicUUID).Scan(&outstanding)
	overview.OutstandingAmount = outstanding.Total

	config.DB.Model(&models.Invoice{}).
		Where("clinic_id = ? AND deleted_at IS NULL", clinicUUID).
		Count(&overview.TotalInvoices)

	config.DB.Model(&models.DispenseRecord{}).
		Where("clinic_id = ? AND status = 'PENDING' AND deleted_at IS NULL", clinicUUID).
		Count(&overview.PendingDispenses)

	config.DB.Raw(`
		SELECT name, stock_on_hand FROM medications
		WHERE clinic_id = ? AND is_active = true AND stock_on_hand <= reorder_level AND deleted_at IS NULL
		ORDER BY stock_on_hand ASC LIMIT 10
	`, clinicUUID).Scan(&overview.LowStockMedications)

	config.DB.Raw(`
		SELECT p.name AS patient_name, v.reason, v.visit_date FROM visits v
		JOIN patients p ON p.id = v.patient_id
		WHERE v.clinic_id = ? AND v.deleted_at IS NULL
		ORDER BY v.visit_date DESC LIMIT 5
	`, clinicUUID).Scan(&overview.RecentVisits)

	c.JSON(http.StatusOK, overview)
}
