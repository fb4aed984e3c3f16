// Package queue 提供适配器内部使用的线程安全 FIFO 队列与绑定单 goroutine 的 Worker。
// 队列支持阻塞出队、原子清空与停止；Worker 负责按入队顺序逐项消费。
package queue

import (
	"errors"
	"sync"
)

// ErrStopped 队列已停止，不再接受入队
var ErrStopped = errors.New("queue stopped")

// Queue 线程安全 FIFO 队列。
// 任意 goroutine 可安全入队；约定仅一个 Worker goroutine 出队。
// Drain 与 Enqueue 互斥，清空期间不会丢失或重复计数任何元素。
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	items    []T
	stopped  bool
}

// New 创建空队列
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Enqueue 入队，永不阻塞调用方；队列停止后返回 ErrStopped
func (q *Queue[T]) Enqueue(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return ErrStopped
	}
	q.items = append(q.items, item)
	q.notEmpty.Signal()
	return nil
}

// Dequeue 阻塞直到有元素可取或队列停止。
// 第二个返回值为 false 表示收到停止信号，调用方应退出消费循环。
func (q *Queue[T]) Dequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.stopped {
		q.notEmpty.Wait()
	}
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	item := q.items[0]
	q.items[0] = *new(T) // 释放引用
	q.items = q.items[1:]
	return item, true
}

// Drain 原子地移除并丢弃当前全部待处理元素，返回丢弃数量。
// 用于重置后丢弃上一轮遗留的过期工作。
func (q *Queue[T]) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

// Stop 唤醒阻塞中的 Dequeue 并拒绝后续入队。
// 已入队元素保留，Worker 可先取完再收到停止信号。
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = true
	q.notEmpty.Broadcast()
}

// Len 当前待处理元素数量（用于指标上报）
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
