package billingRepo

import (
	"context"
	"fmt"
	"time"

	"nestly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateRun inserts a new billing run record in the running state.
func (repo *MongoBillingRepo) CreateRun(ctx context.Context, run *models.BillingRun) error {
	if _, err := repo.runColl.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("error creating billing run %s: %w", run.RunID, err)
	}
	return nil
}

// FinalizeRun persists the run summary. Only a running run can be finalized;
// terminal runs never change again.
func (repo *MongoBillingRepo) FinalizeRun(ctx context.Context, run *models.BillingRun) error {
	filter := bson.M{"run_id": run.RunID, "status": models.RunStatusRunning}
	update := bson.M{
		"$set": bson.M{
			"status":            run.Status,
			"completed_at":      time.Now(),
			"invoices_created":  run.InvoicesCreated,
			"late_fees_applied": run.LateFeesApplied,
			"holds_imposed":     run.HoldsImposed,
			"failures":          run.Failures,
		},
	}
	res, err := repo.runColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error finalizing billing run %s: %w", run.RunID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("billing run %s not running: %w", run.RunID, ErrNotFound)
	}
	return nil
}

// GetRunByID retrieves a billing run record for operator inspection.
func (repo *MongoBillingRepo) GetRunByID(ctx context.Context, runID string) (*models.BillingRun, error) {
	var run models.BillingRun
	filter := bson.M{"run_id": runID}
	if err := repo.runColl.FindOne(ctx, filter).Decode(&run); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("billing run %s: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("error fetching billing run %s: %w", runID, err)
	}
	return &run, nil
}

// LatestRun retrieves the most recently started billing run.
func (repo *MongoBillingRepo) LatestRun(ctx context.Context) (*models.BillingRun, error) {
	var run models.BillingRun
	opts := options.FindOne().SetSort(bson.D{{Key: "started_at", Value: -1}})
	if err := repo.runColl.FindOne(ctx, bson.M{}, opts).Decode(&run); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("no billing runs: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("error fetching latest billing run: %w", err)
	}
	return &run, nil
}
