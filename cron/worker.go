package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"tourly/config"

	"github.com/hibiken/asynq"
)

const TypeCheckoutSweep = "checkout:sweep"

// SweepPayload identifies the checkout session to re-check.
type SweepPayload struct {
	SessionID string `json:"sessionId"`
}

// CheckoutSweeper settles local state for a session whose webhook may have
// been lost. Implemented by the payment reconciler.
type CheckoutSweeper interface {
	SweepSession(ctx context.Context, sessionID string) error
}

// NewSweepTask builds a delayed sweep task for one checkout session.
func NewSweepTask(sessionID string) (*asynq.Task, error) {
	payload, err := json.Marshal(SweepPayload{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCheckoutSweep, payload), nil
}

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// NewQueueClient returns the asynq client used to enqueue sweep tasks.
func NewQueueClient() *asynq.Client {
	return asynq.NewClient(redisOpts())
}

// InitSweepWorker runs the async worker in background.
func InitSweepWorker(sweeper CheckoutSweeper) {
	srv := asynq.NewServer(
		redisOpts(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCheckoutSweep, handleSweepTask(sweeper))

	go func() {
		log.Println("[CheckoutSweeper] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[CheckoutSweeper] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[CheckoutSweeper] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleSweepTask(sweeper CheckoutSweeper) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p SweepPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[CheckoutSweeper] invalid payload: %v", err)
			return err
		}
		if err := sweeper.SweepSession(ctx, p.SessionID); err != nil {
			log.Printf("[CheckoutSweeper] sweep failed for session %s: %v", p.SessionID, err)
			return err
		}
		return nil
	}
}
