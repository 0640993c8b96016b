package storage

import (
	"context"
	"sync"
	"time"

	"github.com/ecodeclub/ekit/retry"
	"github.com/rs/zerolog/log"
)

// Sink persists verification records. *DB is the production implementation.
type Sink interface {
	LogVerification(ctx context.Context, v *Verification) error
}

const (
	writeTimeout     = 5 * time.Second
	minRetryInterval = 100 * time.Millisecond
	maxRetryInterval = 2 * time.Second
	maxRetries       = 3
)

// AuditWriter buffers verification records and writes them in the background,
// so a slow database never delays a /verify/ response.
type AuditWriter struct {
	sink      Sink
	ch        chan *Verification
	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
	onDrop    func()
}

func NewAuditWriter(sink Sink, bufferSize int) *AuditWriter {
	if bufferSize < 1 {
		bufferSize = 10000
	}
	return &AuditWriter{
		sink:   sink,
		ch:     make(chan *Verification, bufferSize),
		done:   make(chan struct{}),
		onDrop: func() {},
	}
}

// OnDrop registers a callback invoked whenever a record is dropped.
func (w *AuditWriter) OnDrop(fn func()) {
	if fn != nil {
		w.onDrop = fn
	}
}

func (w *AuditWriter) Start() {
	w.wg.Add(1)
	go w.processLoop()
}

// Log enqueues v without blocking. A full buffer drops the record.
func (w *AuditWriter) Log(v *Verification) {
	select {
	case w.ch <- v:
	default:
		w.onDrop()
		log.Warn().Str("verification_id", v.ID).Msg("audit buffer full, dropping record")
	}
}

// Flush stops the writer after draining queued records, waiting at most timeout.
func (w *AuditWriter) Flush(timeout time.Duration) {
	w.closeOnce.Do(func() { close(w.done) })

	doneCh := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
		log.Info().Msg("audit writer flushed")
	case <-time.After(timeout):
		log.Warn().Msg("audit writer flush timed out")
	}
}

func (w *AuditWriter) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case v := <-w.ch:
			w.writeWithRetry(v)
		case <-w.done:
			// Drain remaining entries
			for {
				select {
				case v := <-w.ch:
					w.writeWithRetry(v)
				default:
					return
				}
			}
		}
	}
}

func (w *AuditWriter) writeWithRetry(v *Verification) {
	strategy, err := retry.NewExponentialBackoffRetryStrategy(minRetryInterval, maxRetryInterval, maxRetries)
	if err != nil {
		log.Error().Err(err).Msg("invalid audit retry strategy")
		return
	}

	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := w.sink.LogVerification(ctx, v)
		cancel()

		if err == nil {
			return
		}

		backoff, ok := strategy.Next()
		if !ok {
			log.Error().
				Err(err).
				Str("verification_id", v.ID).
				Msg("audit write failed permanently after retries")
			return
		}

		log.Warn().
			Err(err).
			Str("verification_id", v.ID).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("audit write failed, retrying")
		time.Sleep(backoff)
	}
}
