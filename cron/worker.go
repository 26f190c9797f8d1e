package cron

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"nestly/config"
	"nestly/services/billing"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

const TypeBillingRun = "billing:run"

// BillingRunPayload is the task payload for a scheduled billing run.
type BillingRunPayload struct {
	DryRun bool `json:"dryRun"`
}

// InitBillingWorker runs the async worker and the nightly scheduler in background.
func InitBillingWorker(svc billing.BillingService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisBillingDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			// Billing runs are strictly sequential; the run lock rejects overlap
			// anyway, but there is no point racing it.
			Concurrency: 1,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeBillingRun, handleBillingRunTask(svc))

	go monitorRedisConnection()
	go runScheduler(redisOpts)

	// Start async worker with retry logic
	go func() {
		log.Println("[BillingWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[BillingWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[BillingWorker] max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

// runScheduler enqueues the nightly billing run on the configured cron spec.
func runScheduler(redisOpts asynq.RedisClientOpt) {
	scheduler := asynq.NewScheduler(redisOpts, nil)

	payload, _ := json.Marshal(BillingRunPayload{DryRun: config.AppConfig.BillingDryRun})
	if _, err := scheduler.Register(config.AppConfig.BillingCronSpec, asynq.NewTask(TypeBillingRun, payload)); err != nil {
		log.Fatalf("[BillingScheduler] failed to register cron entry: %v", err)
	}

	log.Printf("[BillingScheduler] nightly billing run scheduled: %q", config.AppConfig.BillingCronSpec)
	if err := scheduler.Run(); err != nil {
		log.Fatalf("[BillingScheduler] scheduler stopped: %v", err)
	}
}

func handleBillingRunTask(svc billing.BillingService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p BillingRunPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[BillingRunHandler] invalid payload: %v", err)
			return err
		}

		run, err := svc.RunBilling(ctx, billing.RunOptions{DryRun: p.DryRun})
		if err != nil {
			if errors.Is(err, billing.ErrRunInProgress) {
				log.Printf("[BillingRunHandler] run already in progress, skipping")
				return nil
			}
			// The run never started; let asynq retry it.
			log.Printf("[BillingRunHandler] failed to start billing run: %v", err)
			return err
		}

		// A terminal run, fatal included, is done: the run record carries the
		// post-mortem and re-running would not be any safer.
		log.Printf("[BillingRunHandler] billing run %s finished with status %s (%d invoices, %d late fees, %d failures)",
			run.RunID, run.Status, run.InvoicesCreated, run.LateFeesApplied, len(run.Failures))
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisBillingDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[BillingWorker] redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
