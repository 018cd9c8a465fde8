package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"stockdesk/internal/config"
	"stockdesk/internal/core"
	"stockdesk/internal/db"
)

// batchcheck sweeps every batch-tracked item and reports quantities that
// diverge from the sum of their batches. Run with -repair to resync the
// item quantities from their batches.
func main() {
	repair := flag.Bool("repair", false, "resync mismatched item quantities from their batches")
	flag.Parse()

	_ = godotenv.Load()

	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	batches := core.NewBatchService(pool)

	report, err := batches.ValidateItemBatchConsistency(ctx)
	if err != nil {
		log.Fatalf("consistency check: %v", err)
	}

	log.WithFields(logrus.Fields{
		"consistent":   report.Consistent,
		"inconsistent": report.Inconsistent,
	}).Info("consistency sweep complete")

	if report.Inconsistent == 0 {
		return
	}

	for _, m := range report.Mismatches {
		log.WithFields(logrus.Fields{
			"item_id":       m.ItemID,
			"item_name":     m.ItemName,
			"item_quantity": m.ItemQuantity,
			"batch_total":   m.BatchTotal,
		}).Warn(m.Description)

		if *repair {
			if _, err := batches.SyncItemQuantityFromBatches(ctx, m.ItemID); err != nil {
				log.WithField("item_id", m.ItemID).Errorf("resync failed: %v", err)
				continue
			}
			log.WithField("item_id", m.ItemID).Info("resynced from batches")
		}
	}

	if !*repair {
		os.Exit(1)
	}
}
