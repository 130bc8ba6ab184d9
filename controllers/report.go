// controllers/report.go
package controllers

import (
	"net/http"
	"time"

	"clinicpro-backend/config"
	"clinicpro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReportController handles all reporting functions
type ReportController struct{}

// AnalyticsSummary represents the Analytics data
type AnalyticsSummary struct {
	CurrentMonthRevenue   decimal.Decimal  `json:"currentMonthRevenue"`
	MonthGrowth           float64          `json:"monthGrowth"`
	CurrentQuarterRevenue decimal.Decimal  `json:"currentQuarterRevenue"`
	QuarterGrowth         float64          `json:"quarterGrowth"`
	CurrentYearRevenue    decimal.Decimal  `json:"currentYearRevenue"`
	YearGrowth            float64          `json:"yearGrowth"`
	TopServices           []ServiceSummary `json:"topServices"`
	QuickStats            QuickStatistics  `json:"quickStats"`
}

type ServiceSummary struct {
	Description string          `json:"description"`
	Count       int             `json:"count"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type QuickStatistics struct {
	TotalPatients   int64           `json:"totalPatients"`
	TotalInvoices   int64           `json:"totalInvoices"`
	PaidInvoices    int64           `json:"paidInvoices"`
	VoidedInvoices  int64           `json:"voidedInvoices"`
	AvgInvoiceValue decimal.Decimal `json:"avgInvoiceValue"`
	CollectionRate  float64         `json:"collectionRate"`
}

// GetReportAnalytics returns the clinic's revenue analytics
func (rc *ReportController) GetReportAnalytics(c *gin.Context) {
	clinicUUID, ok := clinicFromContext(c)
	if !ok {
		return
	}

	// Get current time
	now := time.Now()
	currentYear, currentMonth, _ := now.Date()
	currentLocation := now.Location()

	// Calculate date ranges
	firstOfMonth := time.Date(currentYear, currentMonth, 1, 0, 0, 0, 0, currentLocation)
	firstOfLastMonth := firstOfMonth.AddDate(0, -1, 0)

	quarter := (int(currentMonth) - 1) / 3
	firstOfQuarter := time.Date(currentYear, time.Month(quarter*3+1), 1, 0, 0, 0, 0, currentLocation)
	firstOfLastQuarter := firstOfQuarter.AddDate(0, -3, 0)

	firstOfYear := time.Date(currentYear, 1, 1, 0, 0, 0, 0, currentLocation)
	firstOfLastYear := firstOfYear.AddDate(-1, 0, 0)

	summary := AnalyticsSummary{}

	currentMonthRevenue, err := rc.getRevenue(clinicUUID, firstOfMonth, now)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get monthly revenue")
		return
	}
	lastMonthRevenue, err := rc.getRevenue(clinicUUID, firstOfLastMonth, firstOfMonth)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get monthly revenue")
		return
	}
	summary.CurrentMonthRevenue = currentMonthRevenue
	summary.MonthGrowth = growthPercent(lastMonthRevenue, currentMonthRevenue)

	currentQuarterRevenue, err := rc.getRevenue(clinicUUID, firstOfQuarter, now)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get quarterly revenue")
		return
	}
	lastQuarterRevenue, err := rc.getRevenue(clinicUUID, firstOfLastQuarter, firstOfQuarter)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get quarterly revenue")
		return
	}
	summary.CurrentQuarterRevenue = currentQuarterRevenue
	summary.QuarterGrowth = growthPercent(lastQuarterRevenue, currentQuarterRevenue)

	currentYearRevenue, err := rc.getRevenue(clinicUUID, firstOfYear, now)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get yearly revenue")
		return
	}
	lastYearRevenue, err := rc.getRevenue(clinicUUID, firstOfLastYear, firstOfYear)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get yearly revenue")
		return
	}
	summary.CurrentYearRevenue = currentYearRevenue
	summary.YearGrowth = growthPercent(lastYearRevenue, currentYearRevenue)

	// Top billed lines this year by revenue
	if err := config.DB.Raw(`
		SELECT ii.description, COUNT(*) AS count, COALESCE(SUM(ii.line_total), 0) AS revenue
		FROM invoice_items ii
		JOIN invoices i ON i.id = ii.invoice_id
		WHERE i.clinic_id = ? AND i.status NOT IN ('VOID') AND i.created_at >= ?
		  AND ii.deleted_at IS NULL AND i.deleted_at IS NULL
		GROUP BY ii.description
		ORDER BY revenue DESC LIMIT 5
	`, clinicUUID, firstOfYear).Scan(&summary.TopServices).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get top services")
		return
	}

	config.DB.Raw(`SELECT COUNT(*) FROM patients WHERE clinic_id = ? AND deleted_at IS NULL`, clinicUUID).
		Scan(&summary.QuickStats.TotalPatients)
	config.DB.Raw(`SELECT COUNT(*) FROM invoices WHERE clinic_id = ? AND deleted_at IS NULL`, clinicUUID).
		Scan(&summary.QuickStats.TotalInvoices)
	config.DB.Raw(`SELECT COUNT(*) FROM invoices WHERE clinic_id = ? AND status = 'PAID' AND deleted_at IS NULL`, clinicUUID).
		Scan(&summary.QuickStats.PaidInvoices)
	config.DB.Raw(`SELECT COUNT(*) FROM invoices WHERE clinic_id = ? AND status = 'VOID' AND deleted_at IS NULL`, clinicUUID).
		Scan(&summary.QuickStats.VoidedInvoices)

	var totals struct {
		Billed    decimal.Decimal
		Collected decimal.Decimal
	}
	config.DB.Raw(`
		SELECT COALESCE(SUM(grand_total), 0) AS billed, COALESCE(SUM(amount_paid), 0) AS collected
		FROM invoices WHERE clinic_id = ? AND status <> 'VOID' AND deleted_at IS NULL
	`, clinicUUID).Scan(&totals)
	if summary.QuickStats.TotalInvoices > 0 {
		summary.QuickStats.AvgInvoiceValue = totals.Billed.
			Div(decimal.NewFromInt(summary.QuickStats.TotalInvoices)).Round(2)
	} else {
		summary.QuickStats.AvgInvoiceValue = decimal.Zero
	}
	if totals.Billed.IsPositive() {
		rate, _ := totals.Collected.Div(totals.Billed).Mul(decimal.NewFromInt(100)).Round(1).Float64()
		summary.QuickStats.CollectionRate = rate
	}

	c.JSON(http.StatusOK, summary)
}

// getRevenue sums payments collected in [from, to)
func (rc *ReportController) getRevenue(clinicID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var result struct{ Total decimal.Decimal }
	err := config.DB.Raw(`
		SELECT COALESCE(SUM(amount), 0) AS total FROM payments
		WHERE clinic_id = ? AND created_at >= ? AND created_at < ?
	`, clinicID, from, to).Scan(&result).Error
	return result.Total, err
}

func growthPercent(previous, current decimal.Decimal) float64 {
	if !previous.IsPositive() {
		return 0
	}
	growth, _ := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(1).Float64()
	return growth
}
