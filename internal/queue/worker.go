package queue

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ProcessFunc Worker 的消费回调，对出队的单个元素同步执行
type ProcessFunc[T any] func(item T) error

// ErrorFunc 回调失败（返回错误或 panic）时的通知钩子
type ErrorFunc[T any] func(item T, err error)

// Worker 绑定单条队列的消费 goroutine。
// 队列为空时挂起在 Dequeue 上，取到元素后同步调用处理回调。
// 回调抛出的 panic 或返回的错误不会终止消费循环：
// 统一被捕获、记录日志并通过 onError 钩子上报，
// 保证单条异常消息不会阻断后续全部处理。
type Worker[T any] struct {
	name    string
	queue   *Queue[T]
	process ProcessFunc[T]
	onError ErrorFunc[T]
	log     *zap.Logger
	wg      sync.WaitGroup
	started bool
}

// NewWorker 创建 Worker；onError 可为 nil
func NewWorker[T any](name string, q *Queue[T], process ProcessFunc[T], onError ErrorFunc[T], log *zap.Logger) *Worker[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker[T]{
		name:    name,
		queue:   q,
		process: process,
		onError: onError,
		log:     log.With(zap.String("worker", name)),
	}
}

// Queue 返回绑定的队列
func (w *Worker[T]) Queue() *Queue[T] { return w.queue }

// Start 启动消费 goroutine，重复调用无效果
func (w *Worker[T]) Start() {
	if w.started {
		return
	}
	w.started = true
	w.wg.Add(1)
	go w.loop()
}

// Stop 停止队列并等待消费 goroutine 退出（仅测试使用；生产运行至进程终止）
func (w *Worker[T]) Stop() {
	w.queue.Stop()
	w.wg.Wait()
}

func (w *Worker[T]) loop() {
	defer w.wg.Done()
	for {
		item, ok := w.queue.Dequeue()
		if !ok {
			w.log.Debug("worker stopped")
			return
		}
		w.safeProcess(item)
	}
}

// safeProcess 执行回调并隔离 panic
func (w *Worker[T]) safeProcess(item T) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in worker callback: %v", r)
			w.log.Error("worker callback panicked", zap.Any("panic", r))
			if w.onError != nil {
				w.onError(item, err)
			}
		}
	}()
	if err := w.process(item); err != nil {
		w.log.Error("worker callback failed", zap.Error(err))
		if w.onError != nil {
			w.onError(item, err)
		}
	}
}
