package services

import (
	"errors"
	"testing"
	"time"

	"acczen/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_ClosedBelowThreshold(t *testing.T) {
	setupTestDB(t)
	breaker := &CircuitBreaker{Endpoint: "test-api", Threshold: 5, Recovery: time.Minute}

	for i := 0; i < 4; i++ {
		breaker.Failure(errors.New("boom"))
	}

	assert.NoError(t, breaker.Allow())
}

func TestCircuitBreaker_OpensAtThresholdAndFailsFast(t *testing.T) {
	db := setupTestDB(t)
	breaker := &CircuitBreaker{Endpoint: "test-api", Threshold: 3, Recovery: time.Minute}

	for i := 0; i < 3; i++ {
		breaker.Failure(errors.New("boom"))
	}

	err := breaker.Allow()
	require.ErrorIs(t, err, ErrAPITempDown)

	var health models.ApiHealth
	require.NoError(t, db.Where("endpoint = ?", "test-api").First(&health).Error)
	assert.True(t, health.IsOpen)
	assert.NotNil(t, health.OpenedAt)
	assert.Equal(t, int64(3), health.ErrorCount)
}

func TestCircuitBreaker_AutoResetsAfterRecoveryWindow(t *testing.T) {
	db := setupTestDB(t)
	breaker := &CircuitBreaker{Endpoint: "test-api", Threshold: 1, Recovery: time.Minute}

	breaker.Failure(errors.New("boom"))
	require.ErrorIs(t, breaker.Allow(), ErrAPITempDown)

	// Push the opening into the past, beyond the recovery window.
	past := time.Now().Add(-2 * time.Minute)
	require.NoError(t, db.Model(&models.ApiHealth{}).
		Where("endpoint = ?", "test-api").
		Update("opened_at", past).Error)

	assert.NoError(t, breaker.Allow())

	var health models.ApiHealth
	require.NoError(t, db.Where("endpoint = ?", "test-api").First(&health).Error)
	assert.False(t, health.IsOpen)
	assert.Equal(t, int64(0), health.ErrorCount)
}

func TestCircuitBreaker_SuccessResetsCounter(t *testing.T) {
	db := setupTestDB(t)
	breaker := &CircuitBreaker{Endpoint: "test-api", Threshold: 3, Recovery: time.Minute}

	breaker.Failure(errors.New("boom"))
	breaker.Failure(errors.New("boom"))
	breaker.Success()

	var health models.ApiHealth
	require.NoError(t, db.Where("endpoint = ?", "test-api").First(&health).Error)
	assert.Equal(t, int64(0), health.ErrorCount)
	assert.False(t, health.IsOpen)
}
