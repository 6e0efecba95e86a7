package generation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// WorkItem はワーカーに引き渡す処理単位です。
// クレデンシャルはメモリ上でのみ運ばれ、ストアには永続化されません。
type WorkItem struct {
	JobID      uuid.UUID
	Credential string
}

// Scheduler は作成済みジョブの処理を引き受けます。
// 提出側をブロックしないことが実装の要件です。
type Scheduler interface {
	Schedule(item WorkItem)
}

// ProcessFunc はワーカーがジョブ1件に対して実行する処理です
type ProcessFunc func(ctx context.Context, item WorkItem)

// Dispatcher は有限バッファのキューと固定数のワーカープールで
// ジョブを非同期に処理します。キューが満杯の場合もバックプレッシャーは
// かけず、臨時のゴルーチンで直接処理します。
type Dispatcher struct {
	queue   chan WorkItem
	workers int
	logger  *slog.Logger

	mu      sync.Mutex
	process ProcessFunc
	started bool
	closed  bool
	wg      sync.WaitGroup
}

// NewDispatcher は新しいDispatcherを作成します。
// workersとqueueCapacityが0以下の場合は最低値に切り上げます。
func NewDispatcher(workers, queueCapacity int, logger *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueCapacity < 1 {
		queueCapacity = 1
	}
	return &Dispatcher{
		queue:   make(chan WorkItem, queueCapacity),
		workers: workers,
		logger:  logger,
	}
}

// Start はワーカープールを起動します。Scheduleより先に呼び出してください。
// ワーカーはcontext.Backgroundで処理を実行します。一度Processingに入った
// ジョブへ外部からキャンセルを届ける手段は提供しません。
func (d *Dispatcher) Start(process ProcessFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.process = process
	d.started = true

	for i := range d.workers {
		d.wg.Add(1)
		go d.worker(i)
	}

	d.logger.Info("Dispatcher started",
		"workers", d.workers,
		"queueCapacity", cap(d.queue),
	)
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for item := range d.queue {
		d.logger.Debug("Worker picked up job", "worker", id, "jobID", item.JobID)
		d.process(context.Background(), item)
	}
}

// Schedule はジョブをキューへ投入します。キューが満杯でも呼び出し元は
// 待たされず、その場で臨時のゴルーチンに処理を逃がします
func (d *Dispatcher) Schedule(item WorkItem) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.logger.Warn("Dispatcher is closed, dropping job", "jobID", item.JobID)
		return
	}
	if !d.started {
		d.logger.Error("Dispatcher is not started, dropping job", "jobID", item.JobID)
		return
	}

	select {
	case d.queue <- item:
	default:
		d.logger.Warn("Work queue is full, processing on a transient goroutine", "jobID", item.JobID)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.process(context.Background(), item)
		}()
	}
}

// Close は新規の受け付けを止め、キューに残ったジョブと実行中のジョブが
// すべて終わるまで待ちます。実行中のジョブをキャンセルすることはありません
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	started := d.started
	d.mu.Unlock()

	if started {
		close(d.queue)
	}
	d.wg.Wait()

	d.logger.Info("Dispatcher stopped")
}
