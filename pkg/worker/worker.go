package worker

import (
	"errors"
	"sync"

	"github.com/healthythako/booking-service/pkg/logger"
)

var ErrStopped = errors.New("workers terminated")

type WorkerHandler = func(workerIndex int, job any)

// WorkerManager fans jobs from one channel out to a fixed set of goroutines.
// The job channel may be shared with other producers, so Exit never closes it.
type WorkerManager struct {
	jobChannel     chan any
	numberOfWorker int
	quit           chan struct{}
	once           sync.Once
	do             WorkerHandler
	waiter         sync.WaitGroup
}

func NewWorkerManager(bufferSize, numberOfWorkers int, jobChannel chan any) *WorkerManager {
	if jobChannel == nil {
		jobChannel = make(chan any, bufferSize)
	}
	if numberOfWorkers <= 0 {
		numberOfWorkers = 1
	}
	return &WorkerManager{
		numberOfWorker: numberOfWorkers,
		jobChannel:     jobChannel,
		quit:           make(chan struct{}),
	}
}

func (w *WorkerManager) GetUnreadCount() int64 {
	return int64(len(w.jobChannel))
}

func (w *WorkerManager) SetWorker(worker WorkerHandler) {
	w.do = worker
}

// Enqueue blocks while the buffer is full. It drops the job once Exit has
// been called.
func (w *WorkerManager) Enqueue(val any) bool {
	select {
	case w.jobChannel <- val:
		return true
	case <-w.quit:
		return false
	}
}

// Start runs the workers and blocks until Exit is called.
func (w *WorkerManager) Start() error {
	if w.do == nil {
		return errors.New("worker handler is not set")
	}
	w.waiter.Add(w.numberOfWorker)
	for i := 0; i < w.numberOfWorker; i++ {
		go func(index int) {
			defer w.waiter.Done()
			for {
				select {
				case job := <-w.jobChannel:
					w.do(index, job)
				case <-w.quit:
					return
				}
			}
		}(i)
	}
	w.waiter.Wait()
	return ErrStopped
}

func (w *WorkerManager) Exit() {
	w.once.Do(func() {
		logger.Info("worker manager shutting down", "workers", w.numberOfWorker)
		close(w.quit)
	})
}
