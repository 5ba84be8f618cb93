package admin

import (
	"time"

	"acczen/database"
	"acczen/helpers"
	"acczen/models"

	"github.com/gofiber/fiber/v2"
)

type dailySales struct {
	Day         time.Time `json:"day"`
	OrdersCount int64     `json:"orders_count"`
	TotalAmount float64   `json:"total_amount"`
}

// SalesReport aggregates completed orders per day over a date range
// (defaults to the last 30 days).
func SalesReport(c *fiber.Ctx) error {
	to := time.Now()
	from := to.AddDate(0, 0, -30)

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return helpers.JSONError(c, "INVALID_DATE")
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return helpers.JSONError(c, "INVALID_DATE")
		}
		to = parsed.AddDate(0, 0, 1)
	}

	var rows []dailySales
	err := database.DB.Model(&models.Order{}).
		Select("date_trunc('day', created_at) AS day, COUNT(*) AS orders_count, SUM(total_amount) AS total_amount").
		Where("status = ? AND created_at >= ? AND created_at < ?", models.OrderCompleted, from, to).
		Group("day").Order("day").Scan(&rows).Error
	if err != nil {
		return helpers.JSONError(c, "FAILED_TO_BUILD_REPORT")
	}

	var totals struct {
		OrdersCount int64   `json:"orders_count"`
		TotalAmount float64 `json:"total_amount"`
	}
	for _, row := range rows {
		totals.OrdersCount += row.OrdersCount
		totals.TotalAmount += row.TotalAmount
	}

	var depositTotals []struct {
		PaymentMethod string  `json:"payment_method"`
		Count         int64   `json:"count"`
		TotalAmount   float64 `json:"total_amount"`
	}
	err = database.DB.Model(&models.Deposit{}).
		Select("payment_method, COUNT(*) AS count, SUM(amount) AS total_amount").
		Where("status = ? AND created_at >= ? AND created_at < ?", models.DepositCompleted, from, to).
		Group("payment_method").Scan(&depositTotals).Error
	if err != nil {
		return helpers.JSONError(c, "FAILED_TO_BUILD_REPORT")
	}

	return helpers.JSONSuccess(c, "OK", fiber.Map{
		"from":     from.Format("2006-01-02"),
		"to":       to.Format("2006-01-02"),
		"daily":    rows,
		"totals":   totals,
		"deposits": depositTotals,
	})
}
