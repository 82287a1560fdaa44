package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/ports/adapter"
)

// Ensure DelayedQueue implements adapter.JobQueue
var _ adapter.JobQueue = (*DelayedQueue)(nil)

// DelayedQueue is a durable delayed-job queue on a Redis sorted set per queue
// name: the member is the serialized job, the score its ready-at time in unix
// milliseconds. Popping is a Lua script that removes the first due member
// atomically, so concurrent consumers never hand out the same job twice.
// Delivery is at-least-once: a consumer crash after the pop loses the in-
// flight job to that process but redelivery semantics upstream (re-sweeps,
// defensive re-reads in handlers) cover the gap.
type DelayedQueue struct {
	cli *redis.Client
}

func NewDelayedQueue(c *Client) *DelayedQueue {
	return &DelayedQueue{cli: c.cli}
}

func queueKey(name string) string { return "jobs:" + name }

func (q *DelayedQueue) Enqueue(ctx context.Context, job adapter.Job, delay time.Duration) error {
	if job.Queue == "" || job.SubscriptionID == "" {
		return domain.ErrInvalidArgument
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	readyAt := time.Now().Add(delay).UnixMilli()
	return q.cli.ZAdd(ctx, queueKey(job.Queue), &redis.Z{
		Score:  float64(readyAt),
		Member: payload,
	}).Err()
}

// popDue atomically removes and returns the first member whose score has
// passed. Returns nil when nothing is due.
var popDue = redis.NewScript(`
local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, 1)
if #due == 0 then
	return false
end
redis.call("ZREM", KEYS[1], due[1])
return due[1]`)

// DequeueDue pops the next due job from the named queue, or
// domain.ErrNotFound when none is ready.
func (q *DelayedQueue) DequeueDue(ctx context.Context, queue string, now time.Time) (*adapter.Job, error) {
	res, err := popDue.Run(ctx, q.cli, []string{queueKey(queue)}, now.UnixMilli()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	raw, ok := res.(string)
	if !ok {
		return nil, domain.ErrNotFound
	}
	var job adapter.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Depth returns the number of jobs (due or delayed) sitting in the queue.
func (q *DelayedQueue) Depth(ctx context.Context, queue string) (int64, error) {
	return q.cli.ZCard(ctx, queueKey(queue)).Result()
}
