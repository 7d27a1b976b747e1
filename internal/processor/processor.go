package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/healthythako/booking-service/internal/queue"
	"github.com/healthythako/booking-service/pkg/logger"
	"github.com/healthythako/booking-service/pkg/redis"
	"github.com/healthythako/booking-service/pkg/worker"
)

const ProcessingTimeout = time.Second * 5
const HealthInterval = time.Second * 30
const ShutdownTimeout = time.Minute

// Processor handles one decoded stream entry. Returning nil acks it.
type Processor interface {
	Process(ctx context.Context, message *queue.Message) error
	GetType() string
}

type Config struct {
	Queue      queue.QueueConfig
	Consumers  int
	Workers    int
	BufferSize int
}

// ProcessorService runs several consumers on one stream and hands every
// entry to a shared worker pool. A consumer blocks until its entry has
// been processed so acking stays tied to the outcome.
type ProcessorService struct {
	adapter   redis.RedisAdapter
	config    Config
	queues    []*queue.Queue
	processor Processor
	metrics   *ServiceMetrics
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	worker    *worker.WorkerManager
}

func NewProcessorService(adapter redis.RedisAdapter, config Config) *ProcessorService {
	if config.Consumers <= 0 {
		config.Consumers = 1
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ProcessorService{
		adapter: adapter,
		config:  config,
		metrics: NewServiceMetrics(),
		ctx:     ctx,
		cancel:  cancel,
		worker:  worker.NewWorkerManager(config.BufferSize, config.Workers, nil),
	}
}

func (s *ProcessorService) RegisterProcessor(p Processor) {
	s.processor = p
	logger.Info("registered processor", "type", p.GetType())
}

func (s *ProcessorService) Metrics() ServiceStats {
	return s.metrics.Stats()
}

func (s *ProcessorService) Start() error {
	if s.processor == nil {
		return fmt.Errorf("no processor registered")
	}
	s.worker.SetWorker(s.workerHandler)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.worker.Start(); err != nil {
			logger.Info("worker manager stopped", "reason", err)
		}
	}()

	for i := 0; i < s.config.Consumers; i++ {
		qc := s.config.Queue
		qc.ConsumerName = fmt.Sprintf("%s-instance-%d", qc.ConsumerName, i)

		q, err := queue.NewQueue(s.adapter, qc)
		if err != nil {
			return fmt.Errorf("failed to create consumer %d: %w", i, err)
		}
		if err := q.Consume(s.messageHandler); err != nil {
			return fmt.Errorf("failed to start consumer %d: %w", i, err)
		}
		s.queues = append(s.queues, q)
	}

	s.wg.Add(1)
	go s.healthChecker()

	logger.Info("processor service started", "stream", s.config.Queue.Name, "consumers", len(s.queues), "workers", s.config.Workers)
	return nil
}

func (s *ProcessorService) healthChecker() {
	defer s.wg.Done()

	ticker := time.NewTicker(HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.performHealthCheck()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *ProcessorService) performHealthCheck() {
	if err := s.adapter.Client().Ping(s.ctx).Err(); err != nil {
		logger.Error("health check: redis unreachable", "error", err)
		return
	}
	if len(s.queues) == 0 {
		return
	}
	// Consumers share one stream and group; any of them reports for all.
	stats, err := s.queues[0].GetStats()
	if err != nil {
		logger.Warn("health check: stream stats unavailable", "error", err)
		return
	}
	m := s.metrics.Stats()
	fields := []any{
		"stream_len", stats.TotalMessages,
		"pending", stats.PendingMessages,
		"buffered", s.worker.GetUnreadCount(),
		"processed", m.Processed,
		"failed", m.Failed,
		"avg_ms", m.AvgDuration.Milliseconds(),
	}
	if stats.PendingMessages > 10000 {
		logger.Warn("health check: push backlog is high", fields...)
		return
	}
	logger.Info("health check ok", fields...)
}

func (s *ProcessorService) Stop() {
	logger.Info("shutting down processor service")
	s.cancel()

	var stopWG sync.WaitGroup
	for i, q := range s.queues {
		stopWG.Add(1)
		go func(index int, q *queue.Queue) {
			defer stopWG.Done()
			if err := q.Stop(ShutdownTimeout); err != nil {
				logger.Error("error stopping consumer", "consumer", index, "error", err)
			}
		}(i, q)
	}
	stopWG.Wait()

	s.worker.Exit()
	s.wg.Wait()

	m := s.metrics.Stats()
	logger.Info("processor service stopped", "processed", m.Processed, "failed", m.Failed, "uptime", m.Uptime.String())
}

type job struct {
	msg    *queue.Message
	result chan error
	ctx    context.Context
}

func (s *ProcessorService) messageHandler(ctx context.Context, msg *queue.Message) error {
	msgCtx, cancel := context.WithTimeout(ctx, ProcessingTimeout+time.Second)
	defer cancel()

	j := &job{msg: msg, result: make(chan error, 1), ctx: msgCtx}
	if !s.worker.Enqueue(j) {
		return fmt.Errorf("worker pool stopped")
	}

	select {
	case err := <-j.result:
		return err
	case <-msgCtx.Done():
		return fmt.Errorf("timeout waiting for worker: %w", msgCtx.Err())
	}
}

func (s *ProcessorService) workerHandler(workerIndex int, payload any) {
	j, ok := payload.(*job)
	if !ok {
		logger.Error("unexpected job type", "worker", workerIndex)
		return
	}
	if j.ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(j.ctx, ProcessingTimeout)
	defer cancel()

	start := time.Now()
	err := s.processor.Process(ctx, j.msg)
	if err != nil {
		s.metrics.RecordFailure()
	} else {
		s.metrics.RecordSuccess(time.Since(start))
	}
	// Buffered; never blocks.
	j.result <- err
}
