package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueCierre = "jobs:cierre"

	JobCierre = "cierre"
)

// MaxCierreIntentos is how many times a cierre job runs before it is moved to
// the dead letter queue.
const MaxCierreIntentos = 5

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Processor handles one job type. Returning an error wrapped with
// Permanente skips the remaining retries.
type Processor interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EncolarCierre queues the close-out report of cajaID for delivery to
// destinatario.
func (d *Dispatcher) EncolarCierre(ctx context.Context, cajaID uuid.UUID, destinatario string) error {
	return d.enqueue(ctx, QueueCierre, JobCierre, CierreJobPayload{
		CajaID:       cajaID.String(),
		Destinatario: destinatario,
	})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return d.push(ctx, queue, Job{Type: jobType, Payload: data})
}

func (d *Dispatcher) push(ctx context.Context, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Pool consumes the job queues with a fixed number of goroutines.
type Pool struct {
	rdb        *redis.Client
	dispatcher *Dispatcher
	handlers   map[string]Processor
	queues     []string
	wg         sync.WaitGroup
}

func NewPool(rdb *redis.Client, handlers map[string]Processor) *Pool {
	return &Pool{
		rdb:        rdb,
		dispatcher: NewDispatcher(rdb),
		handlers:   handlers,
		queues:     []string{QueueCierre},
	}
}

// Start launches numWorkers goroutines. Each blocks on BRPOP, so an idle pool
// uses no CPU. They exit when ctx is cancelled; Wait blocks until they have.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
	log.Info().Int("workers", numWorkers).Strs("queues", p.queues).Msg("worker pool started")
}

func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		default:
		}

		// waits up to 5s then loops to check ctx
		result, err := p.rdb.BRPop(ctx, 5*time.Second, p.queues...).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Error().Err(err).Int("worker", id).Msg("brpop failed")
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}
		p.processJob(ctx, result[0], result[1])
	}
}

func (p *Pool) processJob(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		quoted, _ := json.Marshal(raw)
		SendToDLQ(ctx, p.rdb, queue, Job{Type: "unknown", Payload: quoted}, "invalid envelope: "+err.Error())
		return
	}

	h, ok := p.handlers[job.Type]
	if !ok {
		SendToDLQ(ctx, p.rdb, queue, job, "no handler for job type")
		return
	}

	err := h.Process(ctx, job.Payload)
	job.Attempts++
	switch siguientePaso(job, err) {
	case pasoHecho:
		log.Info().Str("type", job.Type).Int("attempts", job.Attempts).Msg("job done")
	case pasoReintentar:
		log.Warn().Err(err).Str("type", job.Type).Int("attempts", job.Attempts).Msg("job failed, requeueing")
		if pushErr := p.dispatcher.push(ctx, queue, job); pushErr != nil {
			log.Error().Err(pushErr).Str("queue", queue).Msg("requeue failed")
		}
	case pasoDLQ:
		SendToDLQ(ctx, p.rdb, queue, job, err.Error())
	}
}

type paso int

const (
	pasoHecho paso = iota
	pasoReintentar
	pasoDLQ
)

// siguientePaso decides what to do with job after an attempt. job.Attempts
// already counts that attempt.
func siguientePaso(job Job, err error) paso {
	switch {
	case err == nil:
		return pasoHecho
	case esPermanente(err), job.Attempts >= MaxCierreIntentos:
		return pasoDLQ
	default:
		return pasoReintentar
	}
}

// ── Permanent errors ──────────────────────────────────────────────────────────

type errPermanente struct{ err error }

func (e errPermanente) Error() string { return e.err.Error() }
func (e errPermanente) Unwrap() error { return e.err }

// Permanente marks err as not worth retrying.
func Permanente(err error) error { return errPermanente{err: err} }

func esPermanente(err error) bool {
	var p errPermanente
	return errors.As(err, &p)
}

// withRetry runs fn up to maxAttempts times, waiting base, 2*base, … between
// attempts.
func withRetry(ctx context.Context, maxAttempts int, base time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := base * time.Duration(1<<uint(i-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			if esPermanente(err) {
				return err
			}
			continue
		}
		return nil
	}
	return lastErr
}
