// Package adapter 实现适配器核心：协议状态机与并发消息分发引擎。
// 入站、出站各一条队列与一个 Worker，保证：
//   - 平台读线程入队即返回，绝不被应用处理阻塞；
//   - 任一时刻最多一条出站消息在途（唯一出站 Worker 串行发送）；
//   - 出站队列的入队顺序即投递顺序。
package adapter

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taoyao-code/mbt-adapter/internal/metrics"
	"github.com/taoyao-code/mbt-adapter/internal/protocol"
	"github.com/taoyao-code/mbt-adapter/internal/queue"
	"github.com/taoyao-code/mbt-adapter/internal/sut"
)

// PlatformSender 平台传输的发送端。Send 为同步阻塞发送，
// 底层链路同一时刻只允许一条消息在途。
type PlatformSender interface {
	Send(data []byte) error
}

// PendingRequest 在途激励：已转发 SUT、等待响应的关联记录
type PendingRequest struct {
	ID          string
	Label       protocol.Label
	ForwardedAt time.Time
}

// inboundItem 入站队列元素：解码成功的消息，或携带解码错误
type inboundItem struct {
	msg       *protocol.Message
	decodeErr error
}

// Core 适配器核心编排器
type Core struct {
	name   string
	sender PlatformSender
	conn   sut.Connector
	vocab  sut.Vocabulary
	log    *zap.Logger
	appm   *metrics.AppMetrics // 可为 nil

	inbound   *queue.Queue[inboundItem]
	outbound  *queue.Queue[*protocol.Message]
	inWorker  *queue.Worker[inboundItem]
	outWorker *queue.Worker[*protocol.Message]

	// mu 串行化状态机与在途激励的访问：
	// 入站 Worker 与 SUT 事件回调是两个独立写者。
	mu      sync.Mutex
	machine Machine
	pending *PendingRequest
}

// NewCore 创建适配器核心
func NewCore(name string, sender PlatformSender, conn sut.Connector, vocab sut.Vocabulary, appm *metrics.AppMetrics, log *zap.Logger) *Core {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Core{
		name:     name,
		sender:   sender,
		conn:     conn,
		vocab:    vocab,
		log:      log.With(zap.String("component", "adapter_core")),
		appm:     appm,
		inbound:  queue.New[inboundItem](),
		outbound: queue.New[*protocol.Message](),
	}
	// 入站回调失败统一走出站错误通道，绝不终止 Worker 循环
	c.inWorker = queue.NewWorker("inbound", c.inbound, c.processInbound,
		func(_ inboundItem, err error) { c.emit(protocol.NewErrorf("internal error: %v", err)) }, log)
	c.outWorker = queue.NewWorker("outbound", c.outbound, c.processOutbound, nil, log)
	conn.RegisterSink(c)
	return c
}

// Start 启动两个 Worker。生产环境永不调用 Stop，运行至进程终止。
func (c *Core) Start() {
	c.inWorker.Start()
	c.outWorker.Start()
	c.log.Info("adapter core started", zap.String("name", c.name))
}

// Stop 清空队列、停止两个 Worker 并等待退出（仅测试使用）
func (c *Core) Stop() {
	c.inbound.Drain()
	c.outbound.Drain()
	c.inWorker.Stop()
	c.outWorker.Stop()
	c.conn.Stop()
	c.log.Info("adapter core stopped")
}

// State 当前状态机状态
func (c *Core) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.State()
}

// Pending 当前在途激励的副本，无在途时返回 nil
func (c *Core) Pending() *PendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return nil
	}
	p := *c.pending
	return &p
}

// HandleMessage 平台传输读回调：解码后入队即返回。
// 不做任何阻塞的 SUT 操作与网络发送，耗时与 SUT 无关。
func (c *Core) HandleMessage(raw []byte) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		c.log.Error("cannot decode platform message", zap.Error(err))
		if c.appm != nil {
			c.appm.DecodeErrors.Inc()
		}
		c.enqueueInbound(inboundItem{decodeErr: err})
		return
	}
	if c.appm != nil {
		c.appm.InboundTotal.WithLabelValues(msg.Kind.String()).Inc()
	}
	c.enqueueInbound(inboundItem{msg: msg})
}

func (c *Core) enqueueInbound(it inboundItem) {
	if err := c.inbound.Enqueue(it); err != nil {
		c.log.Warn("inbound queue rejected message", zap.Error(err))
		return
	}
	if c.appm != nil {
		c.appm.QueueDepth.WithLabelValues("inbound").Set(float64(c.inbound.Len()))
	}
}

// OnConnected 平台连接建立：公告适配器名称、支持的标签与默认配置
func (c *Core) OnConnected() {
	c.log.Info("platform connection opened, announcing", zap.String("name", c.name))
	c.emit(protocol.NewAnnouncement(c.name, c.vocab.SupportedLabels(), c.vocab.DefaultConfiguration()))
}

// OnDisconnected 平台连接断开：回到初始状态并丢弃积压
func (c *Core) OnDisconnected() {
	c.mu.Lock()
	c.machine.Disconnect()
	c.pending = nil
	c.mu.Unlock()
	c.setStateGauge()

	in := c.inbound.Drain()
	out := c.outbound.Drain()
	c.log.Info("platform connection closed, queues cleared",
		zap.Int("inbound_dropped", in), zap.Int("outbound_dropped", out))
	c.conn.Stop()
}

// OnSutEvent SUT 连接器回调，运行在连接器自己的 goroutine 上。
// 已关联在途激励的响应无需再过状态机校验，直接进出站队列。
func (c *Core) OnSutEvent(raw []byte) {
	if c.appm != nil {
		c.appm.SutEvents.Inc()
	}
	label := c.vocab.LabelFor(raw)
	label.Timestamp = time.Now().UnixNano()

	c.mu.Lock()
	if c.pending != nil {
		label.CorrelationID = c.pending.ID
		c.pending = nil
		if err := c.machine.CompleteStimulus(); err != nil {
			// 在途记录存在则必为 Running；防御性记录
			c.log.Warn("state mismatch on SUT response", zap.Error(err))
		}
		c.mu.Unlock()
		c.setStateGauge()
		c.emit(protocol.NewResponse(&label))
		return
	}
	state := c.machine.State()
	c.mu.Unlock()

	c.logInvalid(&TransitionError{From: state, Event: fmt.Sprintf("sut-event %q", raw)})
}

// processInbound 入站 Worker 回调：驱动状态机
func (c *Core) processInbound(it inboundItem) error {
	if c.appm != nil {
		c.appm.QueueDepth.WithLabelValues("inbound").Set(float64(c.inbound.Len()))
	}
	if it.decodeErr != nil {
		c.emit(protocol.NewErrorf("cannot decode message: %v", it.decodeErr))
		return nil
	}

	msg := it.msg
	c.log.Debug("processing inbound message", zap.Stringer("kind", msg.Kind))

	switch msg.Kind {
	case protocol.KindHeartbeat:
		if c.appm != nil {
			c.appm.HeartbeatTotal.Inc()
		}
		return nil
	case protocol.KindConfiguration:
		c.onConfiguration(msg.Config)
	case protocol.KindReady:
		c.onReadyRequest()
	case protocol.KindStimulus:
		c.onStimulus(msg.Label)
	case protocol.KindReset:
		c.onReset()
	case protocol.KindError:
		c.onPlatformError(msg.Error)
	default:
		c.mu.Lock()
		state := c.machine.State()
		c.mu.Unlock()
		c.logInvalid(&TransitionError{From: state, Event: msg.Kind.String()})
	}
	return nil
}

// onConfiguration 配置消息：启动（或重新配置）SUT 连接器
func (c *Core) onConfiguration(cfg *protocol.Configuration) {
	c.mu.Lock()
	err := c.machine.Configure()
	c.mu.Unlock()
	if err != nil {
		c.logInvalid(err)
		return
	}
	c.setStateGauge()

	c.log.Info("configuration received, connecting to the SUT")
	if err := c.conn.Start(cfg); err != nil {
		c.fault(fmt.Errorf("connect to the SUT: %w", err))
	}
}

// onReadyRequest 就绪请求：核实 SUT 可达后上报 Ready
func (c *Core) onReadyRequest() {
	c.mu.Lock()
	state := c.machine.State()
	c.mu.Unlock()
	if state != StateConfigured {
		c.logInvalid(&TransitionError{From: state, Event: "ready"})
		return
	}

	if !c.conn.Alive() {
		c.fault(fmt.Errorf("SUT not reachable"))
		return
	}

	c.mu.Lock()
	err := c.machine.MarkReady()
	c.mu.Unlock()
	if err != nil {
		c.logInvalid(err)
		return
	}
	c.setStateGauge()
	c.emit(protocol.NewReady())
}

// onStimulus 激励：同步转发 SUT，建立在途记录，回送激励确认
func (c *Core) onStimulus(label *protocol.Label) {
	cmd, err := c.vocab.CommandFor(label)
	if err != nil {
		c.logInvalid(fmt.Errorf("stimulus rejected: %w", err))
		return
	}

	c.mu.Lock()
	if err := c.machine.BeginStimulus(); err != nil {
		c.mu.Unlock()
		c.logInvalid(err)
		return
	}
	p := &PendingRequest{ID: uuid.NewString(), Label: *label, ForwardedAt: time.Now()}
	c.pending = p
	c.mu.Unlock()
	c.setStateGauge()

	// 先确认后执行：平台据此获知激励的物理命令与执行时刻
	confirmation := protocol.NewStimulusConfirmation(label, cmd)
	confirmation.Label.CorrelationID = p.ID
	c.emit(confirmation)

	c.log.Info("injecting stimulus at SUT", zap.String("label", label.Name))
	if err := c.conn.SendStimulus(cmd); err != nil {
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()
		c.fault(fmt.Errorf("stimulate the SUT: %w", err))
	}
}

// onReset 重置：丢弃上一轮积压，复位 SUT，完成后上报 Ready
func (c *Core) onReset() {
	c.mu.Lock()
	if err := c.machine.BeginReset(); err != nil {
		c.mu.Unlock()
		c.logInvalid(err)
		return
	}
	c.pending = nil
	c.mu.Unlock()
	c.setStateGauge()

	// 入站 Worker 正在执行本回调，Drain 期间不会有并发出队；
	// 出站积压属于上一轮测试，一并丢弃。
	in := c.inbound.Drain()
	out := c.outbound.Drain()
	c.log.Info("reset: stale queue backlog discarded",
		zap.Int("inbound_dropped", in), zap.Int("outbound_dropped", out))

	if err := c.conn.Reset(); err != nil {
		c.fault(fmt.Errorf("reset the SUT: %w", err))
		return
	}

	c.mu.Lock()
	err := c.machine.MarkReady()
	c.mu.Unlock()
	if err != nil {
		c.logInvalid(err)
		return
	}
	c.setStateGauge()
	c.emit(protocol.NewReady())
}

// onPlatformError 平台侧错误：进入故障态，不回送错误
func (c *Core) onPlatformError(msg string) {
	c.log.Error("error message received from platform", zap.String("message", msg))
	c.mu.Lock()
	c.machine.Fault()
	c.mu.Unlock()
	c.setStateGauge()
}

// processOutbound 出站 Worker 回调：编码并执行唯一的阻塞发送。
// 仅此一个 Worker 调用 Send，发送天然串行。
func (c *Core) processOutbound(msg *protocol.Message) error {
	if c.appm != nil {
		c.appm.QueueDepth.WithLabelValues("outbound").Set(float64(c.outbound.Len()))
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode outbound %s: %w", msg.Kind, err)
	}
	if err := c.sender.Send(data); err != nil {
		if c.appm != nil {
			c.appm.OutboundFailures.Inc()
		}
		// 每次失败至少一条日志；重试策略属于外部协作方
		return fmt.Errorf("send %s to platform: %w", msg.Kind, err)
	}
	if c.appm != nil {
		c.appm.OutboundSent.WithLabelValues(msg.Kind.String()).Inc()
	}
	return nil
}

// emit 将消息排入出站队列，顺序即最终发送顺序
func (c *Core) emit(msg *protocol.Message) {
	if err := c.outbound.Enqueue(msg); err != nil {
		c.log.Warn("outbound queue rejected message",
			zap.Stringer("kind", msg.Kind), zap.Error(err))
		return
	}
	if c.appm != nil {
		c.appm.QueueDepth.WithLabelValues("outbound").Set(float64(c.outbound.Len()))
	}
}

// logInvalid 无迁移可用的消息：上报错误，状态不变
func (c *Core) logInvalid(err error) {
	if c.appm != nil {
		c.appm.InvalidTransitions.Inc()
	}
	c.log.Error("invalid message for current state", zap.Error(err))
	c.emit(protocol.NewError(err.Error()))
}

// fault SUT 故障：进入故障态并上报，需显式 Reset 恢复
func (c *Core) fault(err error) {
	if c.appm != nil {
		c.appm.SutFaults.Inc()
	}
	c.log.Error("SUT fault", zap.Error(err))
	c.mu.Lock()
	c.machine.Fault()
	c.mu.Unlock()
	c.setStateGauge()
	c.emit(protocol.NewError(err.Error()))
}

func (c *Core) setStateGauge() {
	if c.appm == nil {
		return
	}
	c.mu.Lock()
	s := c.machine.State()
	c.mu.Unlock()
	c.appm.StateGauge.Set(float64(s))
}
