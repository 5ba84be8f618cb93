package jobs

import (
	"log"
	"time"

	"acczen/services"
)

// StartSyncScheduler runs the periodic stock refresh and drains the
// sync job queue.
func StartSyncScheduler() {
	tickerStock := time.NewTicker(5 * time.Minute)
	go func() {
		for {
			<-tickerStock.C
			if err := services.SyncStockAll(); err != nil {
				log.Printf("❌ error syncing stock: %v", err)
			}
		}
	}()

	tickerJobs := time.NewTicker(30 * time.Second)
	go func() {
		for {
			<-tickerJobs.C
			if err := services.ProcessSyncJobs(); err != nil {
				log.Printf("❌ error processing sync jobs: %v", err)
			}
		}
	}()
}
