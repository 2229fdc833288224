package services

import (
	"context"
	"log"
	"sync"
	"time"

	"alfredoptarigan/resumeiq/internal/repositories"
)

const queueSize = 100

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueRun(runID string)
}

// RunProcessor executes one queued feature run.
type RunProcessor interface {
	ProcessRun(ctx context.Context, runID string) error
}

type worker struct {
	sessionRepo  repositories.SessionRepository
	processor    RunProcessor
	jobQueue     chan string
	concurrency  int
	pollInterval time.Duration
	wg           sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
}

func NewWorker(
	sessionRepo repositories.SessionRepository,
	processor RunProcessor,
	concurrency int,
	pollInterval time.Duration,
) Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &worker{
		sessionRepo:  sessionRepo,
		processor:    processor,
		jobQueue:     make(chan string, queueSize),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
	}
}

// Start puts runs interrupted by a previous shutdown back in the queue and
// launches the pool and the queued-run poller.
func (w *worker) Start(ctx context.Context) {
	log.Printf("🚀 Starting worker with %d concurrent workers\n", w.concurrency)

	if n, err := w.sessionRepo.RequeueProcessing(); err != nil {
		log.Printf("⚠️  Failed to requeue interrupted runs: %v\n", err)
	} else if n > 0 {
		log.Printf("♻️  Requeued %d interrupted runs\n", n)
	}

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processRuns(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollQueuedRuns(ctx)

	log.Println("✅ Worker started successfully")
}

func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		log.Println("🛑 Stopping worker...")
		close(w.stopChan)
		w.wg.Wait()
		log.Println("✅ Worker stopped")
	})
}

// EnqueueRun never blocks the caller. A run that does not fit in the queue
// stays queued in the database and is picked up by the poller.
func (w *worker) EnqueueRun(runID string) {
	select {
	case <-w.stopChan:
		log.Printf("⚠️  Worker stopped, run %s left for the next start\n", runID)
		return
	default:
	}

	select {
	case w.jobQueue <- runID:
		log.Printf("📥 Run %s enqueued\n", runID)
	default:
		log.Printf("⚠️  Queue full, run %s deferred to the poller\n", runID)
	}
}

func (w *worker) processRuns(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			log.Printf("👷 Worker #%d stopped\n", workerID)
			return
		case <-ctx.Done():
			return
		case runID := <-w.jobQueue:
			log.Printf("👷 Worker #%d processing run %s\n", workerID, runID)
			if err := w.processor.ProcessRun(ctx, runID); err != nil {
				log.Printf("❌ Worker #%d failed run %s: %v\n", workerID, runID, err)
			} else {
				log.Printf("✅ Worker #%d finished run %s\n", workerID, runID)
			}
		}
	}
}

func (w *worker) pollQueuedRuns(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			log.Println("🔄 Queued run poller stopped")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			queued, err := w.sessionRepo.FindQueuedRuns(queueSize / 10)
			if err != nil {
				log.Printf("⚠️  Failed to fetch queued runs: %v\n", err)
				continue
			}
			if len(queued) > 0 {
				log.Printf("📋 Found %d queued runs\n", len(queued))
			}
			for _, run := range queued {
				w.EnqueueRun(run.ID)
			}
		}
	}
}
