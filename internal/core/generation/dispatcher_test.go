package generation

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvID(t *testing.T, ch <-chan uuid.UUID) uuid.UUID {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("ジョブの実行を待機中にタイムアウトしました")
		return uuid.Nil
	}
}

// TestNewDispatcherClampsLimits はワーカー数とキュー容量が最低値に切り上げられることを確認します
func TestNewDispatcherClampsLimits(t *testing.T) {
	d := NewDispatcher(0, -3, testLogger())

	assert.Equal(t, 1, d.workers)
	assert.Equal(t, 1, cap(d.queue))
}

// TestDispatcherProcessesScheduledItems はスケジュールされたジョブがすべてワーカーで処理されることを確認します
func TestDispatcherProcessesScheduledItems(t *testing.T) {
	d := NewDispatcher(2, 4, testLogger())
	processed := make(chan uuid.UUID, 3)
	d.Start(func(ctx context.Context, item WorkItem) {
		processed <- item.JobID
	})

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		d.Schedule(WorkItem{JobID: id})
	}
	d.Close()

	close(processed)
	var got []uuid.UUID
	for id := range processed {
		got = append(got, id)
	}
	assert.ElementsMatch(t, ids, got)
}

// TestDispatcherOverflowRunsTransientGoroutine はキュー満杯時に臨時のゴルーチンで即時処理されることを確認します
func TestDispatcherOverflowRunsTransientGoroutine(t *testing.T) {
	d := NewDispatcher(1, 1, testLogger())
	block := make(chan struct{})
	started := make(chan uuid.UUID, 8)
	d.Start(func(ctx context.Context, item WorkItem) {
		started <- item.JobID
		<-block
	})

	first := uuid.New()
	d.Schedule(WorkItem{JobID: first})
	require.Equal(t, first, recvID(t, started))

	// ワーカーがfirstを実行中のため、2件目はキューに滞留する
	queued := uuid.New()
	d.Schedule(WorkItem{JobID: queued})

	// 3件目はキュー満杯となり、臨時ゴルーチンで即時に実行される
	overflow := uuid.New()
	d.Schedule(WorkItem{JobID: overflow})
	assert.Equal(t, overflow, recvID(t, started))

	close(block)
	d.Close()

	// 滞留していた2件目もCloseまでに処理されている
	assert.Equal(t, queued, recvID(t, started))
}

// TestDispatcherDropsBeforeStart はStart前のScheduleが破棄されることを確認します
func TestDispatcherDropsBeforeStart(t *testing.T) {
	d := NewDispatcher(1, 4, testLogger())
	d.Schedule(WorkItem{JobID: uuid.New()})

	var count atomic.Int32
	d.Start(func(ctx context.Context, item WorkItem) {
		count.Add(1)
	})
	d.Close()

	assert.Zero(t, count.Load())
}

// TestDispatcherDropsAfterClose はClose後のScheduleが破棄されパニックも起きないことを確認します
func TestDispatcherDropsAfterClose(t *testing.T) {
	d := NewDispatcher(1, 4, testLogger())
	var count atomic.Int32
	d.Start(func(ctx context.Context, item WorkItem) {
		count.Add(1)
	})
	d.Close()

	assert.NotPanics(t, func() {
		d.Schedule(WorkItem{JobID: uuid.New()})
	})
	assert.NotPanics(t, func() {
		d.Close()
	})
	assert.Zero(t, count.Load())
}

// TestDispatcherCloseWaitsForQueuedItems はCloseがキュー内と実行中のジョブの完了を待つことを確認します
func TestDispatcherCloseWaitsForQueuedItems(t *testing.T) {
	d := NewDispatcher(2, 8, testLogger())
	var count atomic.Int32
	d.Start(func(ctx context.Context, item WorkItem) {
		time.Sleep(10 * time.Millisecond)
		count.Add(1)
	})

	for range 5 {
		d.Schedule(WorkItem{JobID: uuid.New()})
	}
	d.Close()

	assert.Equal(t, int32(5), count.Load())
}

// TestDispatcherStartIsIdempotent は2回目以降のStartが無視されることを確認します
func TestDispatcherStartIsIdempotent(t *testing.T) {
	d := NewDispatcher(1, 4, testLogger())
	first := make(chan uuid.UUID, 1)
	second := make(chan uuid.UUID, 1)
	d.Start(func(ctx context.Context, item WorkItem) {
		first <- item.JobID
	})
	d.Start(func(ctx context.Context, item WorkItem) {
		second <- item.JobID
	})

	id := uuid.New()
	d.Schedule(WorkItem{JobID: id})
	d.Close()

	assert.Equal(t, id, recvID(t, first))
	assert.Empty(t, second)
}
