package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var R *redis.Client

// Deliver and Inbox are the two persistent work queues. They are created in
// Setup once the redis connection and job handlers are available.
var (
	Deliver *Queue
	Inbox   *Queue
)

func NewRedis() (*redis.Client, error) {
	opts, err := redis.ParseURL(viper.GetString("cache.redis_uri"))
	if err != nil {
		return nil, fmt.Errorf("invalid redis uri: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to connect redis: %w", err)
	}

	R = client
	return client, nil
}

// HandlerFunc consumes one job payload. The returned string describes the
// terminal outcome of the job; a non-nil error means the job failed
// transiently and should be retried.
type HandlerFunc func(ctx context.Context, payload jsoniter.RawMessage) (string, error)

// retryDelays is the escalation schedule between attempts; jobs past the end
// of it reuse the last delay until maxAttempts is reached.
var retryDelays = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	60 * time.Minute,
	240 * time.Minute,
	1440 * time.Minute,
}

const maxAttempts = 8

type envelope struct {
	ID       string              `json:"id"`
	Attempts int                 `json:"attempts"`
	Payload  jsoniter.RawMessage `json:"payload"`
}

// Queue is a redis-list backed job queue with a sorted-set retry schedule.
// Jobs wait on <name>:jobs, scheduled retries park in <name>:retries scored
// by their due time.
type Queue struct {
	Name    string
	rate    time.Duration
	handler HandlerFunc
}

func NewQueue(name string, ratePerSecond int, handler HandlerFunc) *Queue {
	if ratePerSecond < 1 {
		ratePerSecond = 1
	}
	return &Queue{
		Name:    name,
		rate:    time.Second / time.Duration(ratePerSecond),
		handler: handler,
	}
}

func (q *Queue) jobsKey() string {
	return "queues:" + q.Name + ":jobs"
}

func (q *Queue) retriesKey() string {
	return "queues:" + q.Name + ":retries"
}

// Enqueue serializes the payload and pushes a fresh job.
func (q *Queue) Enqueue(ctx context.Context, payload any) error {
	raw, err := jsoniter.Marshal(payload)
	if err != nil {
		return fmt.Errorf("unable to serialize job payload: %w", err)
	}
	job := envelope{ID: uuid.NewString(), Payload: raw}
	data, _ := jsoniter.Marshal(job)
	if err := R.LPush(ctx, q.jobsKey(), data).Err(); err != nil {
		return fmt.Errorf("unable to enqueue job: %w", err)
	}
	return nil
}

// Run consumes jobs until the context is cancelled. The per-queue rate
// limiter spaces out handler invocations.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.rate)
	defer ticker.Stop()

	log.Info().Str("queue", q.Name).Msg("Queue worker started...")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("queue", q.Name).Msg("Queue worker stopped...")
			return
		case <-ticker.C:
		}

		data, err := R.BRPop(ctx, 5*time.Second, q.jobsKey()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			log.Warn().Err(err).Str("queue", q.Name).Msg("An error occurred when popping job...")
			continue
		}
		if len(data) < 2 {
			continue
		}

		q.handle(ctx, []byte(data[1]))
	}
}

func (q *Queue) handle(ctx context.Context, data []byte) {
	var job envelope
	if err := jsoniter.Unmarshal(data, &job); err != nil {
		log.Warn().Err(err).Str("queue", q.Name).Msg("Dropping undecodable job...")
		return
	}

	started := time.Now()
	outcome, err := q.handler(ctx, job.Payload)
	if err == nil {
		log.Info().
			Str("queue", q.Name).
			Str("job", job.ID).
			Str("outcome", outcome).
			Dur("elapsed", time.Since(started)).
			Msg("Job finished...")
		return
	}

	job.Attempts++
	if job.Attempts >= maxAttempts {
		log.Error().
			Err(err).
			Str("queue", q.Name).
			Str("job", job.ID).
			Int("attempts", job.Attempts).
			Msg("Job gave up after max attempts...")
		return
	}

	delay := retryDelays[min(job.Attempts-1, len(retryDelays)-1)]
	payload, _ := jsoniter.Marshal(job)
	if err := R.ZAdd(ctx, q.retriesKey(), redis.Z{
		Score:  float64(time.Now().Add(delay).Unix()),
		Member: payload,
	}).Err(); err != nil {
		log.Error().Err(err).Str("queue", q.Name).Str("job", job.ID).Msg("Unable to schedule job retry...")
		return
	}

	log.Warn().
		Err(err).
		Str("queue", q.Name).
		Str("job", job.ID).
		Int("attempts", job.Attempts).
		Dur("delay", delay).
		Msg("Job failed, scheduled for retry...")
}

// PumpRetries moves due retries back onto the job list. Ran periodically by
// the scheduler.
func (q *Queue) PumpRetries(ctx context.Context) {
	now := fmt.Sprintf("%d", time.Now().Unix())
	due, err := R.ZRangeByScore(ctx, q.retriesKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil || len(due) == 0 {
		return
	}

	for _, member := range due {
		if err := R.LPush(ctx, q.jobsKey(), member).Err(); err != nil {
			continue
		}
		R.ZRem(ctx, q.retriesKey(), member)
	}

	log.Debug().Str("queue", q.Name).Int("count", len(due)).Msg("Requeued due retries...")
}

// Depth reports the waiting and scheduled job counts.
func (q *Queue) Depth(ctx context.Context) (waiting int64, scheduled int64) {
	waiting, _ = R.LLen(ctx, q.jobsKey()).Result()
	scheduled, _ = R.ZCard(ctx, q.retriesKey()).Result()
	return
}

// RetryDelayFor exposes the backoff schedule, capped at its last entry.
func RetryDelayFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return retryDelays[min(attempt-1, len(retryDelays)-1)]
}
