package cron

import (
	"context"
	"log"
	"time"

	"servana/config"
	"servana/services/escrow"
	"servana/services/recurrence"
	"servana/services/refund"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// Periodic task types.
const (
	TypeEscrowExpireSweep = "escrow:expire_sweep"
	TypeRefundRetrySweep  = "refund:retry_sweep"
	TypeSeriesMaterialize = "series:materialize"
)

// InitSweepWorker runs the async worker and its scheduler in background.
// The sweeps are idempotent: a settlement already expired by a concurrent
// run is skipped, a refund already paid is not retried.
func InitSweepWorker(settlements escrow.SettlementService, refunds refund.RefundService, expander recurrence.Expander) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEscrowExpireSweep, func(ctx context.Context, t *asynq.Task) error {
		return settlements.ExpireDue(ctx)
	})
	mux.HandleFunc(TypeRefundRetrySweep, func(ctx context.Context, t *asynq.Task) error {
		return refunds.RetryQueued(ctx)
	})
	mux.HandleFunc(TypeSeriesMaterialize, func(ctx context.Context, t *asynq.Task) error {
		return expander.MaterializeDue(ctx)
	})

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[SweepWorker] 🚀 Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[SweepWorker] ❌ Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[SweepWorker] ❗ Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()

	// Schedule the periodic sweeps.
	go func() {
		scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{Location: time.UTC})

		entries := []struct {
			spec string
			task *asynq.Task
		}{
			{"@every 5m", asynq.NewTask(TypeEscrowExpireSweep, nil)},
			{"@every 10m", asynq.NewTask(TypeRefundRetrySweep, nil)},
			{"@every 1h", asynq.NewTask(TypeSeriesMaterialize, nil)},
		}
		for _, e := range entries {
			if _, err := scheduler.Register(e.spec, e.task); err != nil {
				log.Printf("[SweepWorker] ❌ Failed to register %s: %v", e.task.Type(), err)
			}
		}

		if err := scheduler.Run(); err != nil {
			log.Printf("[SweepWorker] ❌ Scheduler stopped: %v", err)
		}
	}()
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[SweepWorker] ⚠️ Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
