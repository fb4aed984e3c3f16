package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO_SingleProducer(t *testing.T) {
	q := New[int]()
	for i := 0; i < 100; i++ {
		require.NoError(t, q.Enqueue(i))
	}
	for i := 0; i < 100; i++ {
		item, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, i, item)
	}
}

// TestQueue_FIFO_ConcurrentProducers 多生产者并发入队：
// 单消费者观察到的顺序必须保持每个生产者的入队顺序，且不丢不重。
func TestQueue_FIFO_ConcurrentProducers(t *testing.T) {
	type item struct{ producer, seq int }
	const producers = 8
	const perProducer = 500

	q := New[item]()
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = q.Enqueue(item{producer: p, seq: i})
			}
		}(p)
	}
	wg.Wait()

	lastSeq := make([]int, producers)
	for i := range lastSeq {
		lastSeq[i] = -1
	}
	total := 0
	for q.Len() > 0 {
		it, ok := q.Dequeue()
		require.True(t, ok)
		require.Greater(t, it.seq, lastSeq[it.producer],
			"producer %d out of order", it.producer)
		lastSeq[it.producer] = it.seq
		total++
	}
	assert.Equal(t, producers*perProducer, total)
}

func TestQueue_Dequeue_BlocksUntilEnqueue(t *testing.T) {
	q := New[string]()
	got := make(chan string, 1)
	go func() {
		item, ok := q.Dequeue()
		if ok {
			got <- item
		}
	}()

	// 消费 goroutine 先挂起，入队后被唤醒
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Enqueue("hello"))

	select {
	case item := <-got:
		assert.Equal(t, "hello", item)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake up")
	}
}

// TestQueue_DrainThenEnqueue 清空后立即入队：
// 队列只包含新入队元素，不丢失、不重复。
func TestQueue_DrainThenEnqueue(t *testing.T) {
	q := New[int]()
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(i))
	}
	assert.Equal(t, 5, q.Drain())
	assert.Equal(t, 0, q.Len())

	require.NoError(t, q.Enqueue(100))
	require.NoError(t, q.Enqueue(101))
	assert.Equal(t, 2, q.Len())

	item, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 100, item)
	item, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 101, item)
}

// TestQueue_DrainRace Drain 与并发入队互斥：清空与入队的总账必须对得上
func TestQueue_DrainRace(t *testing.T) {
	q := New[int]()
	const n = 2000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			_ = q.Enqueue(i)
		}
	}()

	drained := 0
	for i := 0; i < 50; i++ {
		drained += q.Drain()
		time.Sleep(time.Millisecond)
	}
	wg.Wait()
	drained += q.Drain()

	assert.Equal(t, n, drained, "no item may be lost or double counted")
	assert.Equal(t, 0, q.Len())
}

func TestQueue_StopWakesBlockedDequeue(t *testing.T) {
	q := New[int]()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Stop()

	select {
	case ok := <-done:
		assert.False(t, ok, "stopped dequeue must signal stop")
	case <-time.After(time.Second):
		t.Fatal("stop did not wake blocked dequeue")
	}
}

func TestQueue_EnqueueAfterStop(t *testing.T) {
	q := New[int]()
	q.Stop()
	assert.ErrorIs(t, q.Enqueue(1), ErrStopped)
}

func TestQueue_StopDeliversRemainingItems(t *testing.T) {
	q := New[int]()
	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	q.Stop()

	item, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 1, item)
	item, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 2, item)
	_, ok = q.Dequeue()
	assert.False(t, ok)
}
