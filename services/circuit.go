package services

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"acczen/database"
	"acczen/metrics"
	"acczen/models"

	"gorm.io/gorm"
)

var ErrAPITempDown = errors.New("API_TEMP_DOWN")

const (
	defaultCircuitThreshold = 5
	defaultCircuitRecovery  = 5 * time.Minute
)

// CircuitBreaker is the persisted breaker over the api_health table. It
// satisfies retry.Breaker. State reads/writes are plain row updates; no
// cross-request atomicity is assumed beyond the unique endpoint row.
type CircuitBreaker struct {
	Endpoint  string
	Threshold int64
	Recovery  time.Duration
}

func NewCircuitBreaker(endpoint string) *CircuitBreaker {
	threshold := int64(defaultCircuitThreshold)
	if v, err := strconv.ParseInt(os.Getenv("CIRCUIT_THRESHOLD"), 10, 64); err == nil && v > 0 {
		threshold = v
	}
	recovery := defaultCircuitRecovery
	if v, err := strconv.Atoi(os.Getenv("CIRCUIT_RECOVERY_SECONDS")); err == nil && v > 0 {
		recovery = time.Duration(v) * time.Second
	}
	return &CircuitBreaker{Endpoint: endpoint, Threshold: threshold, Recovery: recovery}
}

func (b *CircuitBreaker) health(db *gorm.DB) (*models.ApiHealth, error) {
	var health models.ApiHealth
	err := db.Where("endpoint = ?", b.Endpoint).First(&health).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		health = models.ApiHealth{Endpoint: b.Endpoint, CheckedAt: time.Now()}
		if err := db.Create(&health).Error; err != nil {
			return nil, err
		}
		return &health, nil
	}
	if err != nil {
		return nil, err
	}
	return &health, nil
}

// Allow fails fast while the circuit is open and inside the recovery
// window, and auto-resets once the window has elapsed.
func (b *CircuitBreaker) Allow() error {
	health, err := b.health(database.DB)
	if err != nil {
		// A broken health table must not take the shop down with it.
		log.Printf("[CIRCUIT] ⚠️ failed to read health for %s: %v", b.Endpoint, err)
		return nil
	}

	if !health.IsOpen {
		return nil
	}

	if health.OpenedAt != nil && time.Since(*health.OpenedAt) >= b.Recovery {
		log.Printf("[CIRCUIT] 🟡 recovery window elapsed for %s, closing circuit", b.Endpoint)
		b.reset(health)
		return nil
	}

	return ErrAPITempDown
}

func (b *CircuitBreaker) Success() {
	health, err := b.health(database.DB)
	if err != nil {
		return
	}
	if health.IsOpen || health.ErrorCount > 0 {
		b.reset(health)
	}
}

func (b *CircuitBreaker) Failure(failure error) {
	health, err := b.health(database.DB)
	if err != nil {
		return
	}

	health.ErrorCount++
	health.LastError = failure.Error()
	health.CheckedAt = time.Now()

	if !health.IsOpen && health.ErrorCount >= b.Threshold {
		now := time.Now()
		health.IsOpen = true
		health.OpenedAt = &now
		metrics.CircuitOpenTotal.WithLabelValues(b.Endpoint).Inc()
		log.Printf("[CIRCUIT] ❌ opening circuit for %s after %d consecutive errors", b.Endpoint, health.ErrorCount)
	}

	if err := database.DB.Save(health).Error; err != nil {
		log.Printf("[CIRCUIT] ⚠️ failed to persist failure for %s: %v", b.Endpoint, err)
	}
}

func (b *CircuitBreaker) reset(health *models.ApiHealth) {
	health.IsOpen = false
	health.OpenedAt = nil
	health.ErrorCount = 0
	health.CheckedAt = time.Now()
	if err := database.DB.Save(health).Error; err != nil {
		log.Printf("[CIRCUIT] ⚠️ failed to reset circuit for %s: %v", b.Endpoint, err)
	}
}
