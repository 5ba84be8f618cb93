package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"acczen/database"
	"acczen/models"
	"acczen/providers/taphoammo"
	"acczen/retry"

	"gorm.io/gorm"
)

// OrderItemData is the shape of OrderItem.Data: the reseller order id and
// the fulfillment keys once they are available.
type OrderItemData struct {
	SupplierOrderID string   `json:"supplier_order_id"`
	Keys            []string `json:"keys,omitempty"`
}

const maxJobAttempts = 5

func EnqueueSyncJob(db *gorm.DB, jobType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return db.Create(&models.SyncJob{
		JobType: jobType,
		Payload: raw,
		Status:  models.SyncJobPending,
		RunAt:   time.Now(),
	}).Error
}

// SyncStockAll refreshes the stock of every active product from the
// reseller, one kiosk token at a time.
func SyncStockAll() error {
	var tokens []string
	if err := database.DB.Model(&models.Product{}).
		Where("is_active = true AND kiosk_token <> ''").
		Distinct().Pluck("kiosk_token", &tokens).Error; err != nil {
		return err
	}

	client := taphoammo.NewClient()
	breaker := NewCircuitBreaker("taphoammo")

	for _, token := range tokens {
		var stock *taphoammo.StockInfo
		_, err := retry.Execute(context.Background(), func(ctx context.Context) error {
			var err error
			stock, err = client.GetStock(token)
			return err
		}, 2, retry.Options{Breaker: breaker})
		if err != nil {
			log.Printf("[SYNC] ❌ stock fetch failed for kiosk %s: %v", token, err)
			continue
		}

		if err := database.DB.Model(&models.Product{}).
			Where("kiosk_token = ?", token).
			Update("stock", stock.Stock).Error; err != nil {
			log.Printf("[SYNC] ❌ stock update failed for kiosk %s: %v", token, err)
		}
	}

	return nil
}

// ProcessSyncJobs drains due pending jobs from the sync_jobs queue.
func ProcessSyncJobs() error {
	var pending []models.SyncJob
	if err := database.DB.
		Where("status = ? AND run_at <= ?", models.SyncJobPending, time.Now()).
		Order("run_at").Limit(20).Find(&pending).Error; err != nil {
		return err
	}

	for i := range pending {
		job := &pending[i]
		var err error

		switch job.JobType {
		case models.JobFetchOrderKeys:
			err = runFetchOrderKeys(job)
		case models.JobStockSync:
			err = SyncStockAll()
		default:
			err = fmt.Errorf("unknown job type %q", job.JobType)
		}

		if err != nil {
			failJob(job, err)
			continue
		}

		job.Status = models.SyncJobDone
		if err := database.DB.Save(job).Error; err != nil {
			log.Printf("[SYNC] ⚠️ failed to mark job %d done: %v", job.ID, err)
		}
	}

	return nil
}

func runFetchOrderKeys(job *models.SyncJob) error {
	var payload struct {
		OrderItemID     uint   `json:"order_item_id"`
		SupplierOrderID string `json:"supplier_order_id"`
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return err
	}

	client := taphoammo.NewClient()
	keys, err := client.GetOrderProducts(payload.SupplierOrderID)
	if err != nil {
		return err
	}

	var item models.OrderItem
	if err := database.DB.First(&item, payload.OrderItemID).Error; err != nil {
		return err
	}

	data := OrderItemData{SupplierOrderID: payload.SupplierOrderID}
	if len(item.Data) > 0 {
		_ = json.Unmarshal(item.Data, &data)
	}
	data.Keys = keys

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if err := database.DB.Model(&models.OrderItem{}).Where("id = ?", item.ID).
		Update("data", raw).Error; err != nil {
		return err
	}

	log.Printf("[SYNC] ✅ fulfillment keys stored for order item %d (%d keys)", item.ID, len(keys))
	return nil
}

func failJob(job *models.SyncJob, cause error) {
	job.Attempts++
	job.LastError = cause.Error()

	if job.Attempts >= maxJobAttempts {
		job.Status = models.SyncJobFailed
		log.Printf("[SYNC] ❌ job %d (%s) failed permanently: %v", job.ID, job.JobType, cause)
	} else {
		// Pending reseller orders settle on their own; poke again later.
		job.RunAt = time.Now().Add(time.Duration(job.Attempts) * time.Minute)
		log.Printf("[SYNC] ⚠️ job %d (%s) attempt %d failed: %v", job.ID, job.JobType, job.Attempts, cause)
	}

	if err := database.DB.Save(job).Error; err != nil {
		log.Printf("[SYNC] ⚠️ failed to persist job %d state: %v", job.ID, err)
	}
}
