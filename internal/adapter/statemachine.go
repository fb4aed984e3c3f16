package adapter

import "fmt"

// State 适配器生命周期状态
type State uint8

const (
	// StateDisconnected 初始状态：尚未收到平台配置
	StateDisconnected State = iota
	// StateConfigured 已收到配置并启动 SUT 连接器
	StateConfigured
	// StateReady 可接收激励
	StateReady
	// StateRunning 激励已转发 SUT，等待响应
	StateRunning
	// StateResetPending 重置进行中
	StateResetPending
	// StateFaulted 故障态，仅显式 Reset 可恢复
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConfigured:
		return "configured"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateResetPending:
		return "reset-pending"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// TransitionError 当前状态下不存在对应迁移
type TransitionError struct {
	From  State
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s in state %s", e.Event, e.From)
}

// Machine 协议状态机。纯逻辑组件，自身不加锁：
// 并发序列化由持有它的 AdapterCore 通过单一互斥量保证。
type Machine struct {
	state State
}

// State 当前状态
func (m *Machine) State() State { return m.state }

// Configure 收到配置：Disconnected/Configured → Configured
func (m *Machine) Configure() error {
	switch m.state {
	case StateDisconnected, StateConfigured:
		m.state = StateConfigured
		return nil
	default:
		return &TransitionError{From: m.state, Event: "configuration"}
	}
}

// MarkReady 就绪：Configured（就绪请求核实通过）或 ResetPending（重置完成）→ Ready
func (m *Machine) MarkReady() error {
	switch m.state {
	case StateConfigured, StateResetPending:
		m.state = StateReady
		return nil
	default:
		return &TransitionError{From: m.state, Event: "ready"}
	}
}

// BeginStimulus 激励转发 SUT：Ready → Running
func (m *Machine) BeginStimulus() error {
	if m.state != StateReady {
		return &TransitionError{From: m.state, Event: "stimulus"}
	}
	m.state = StateRunning
	return nil
}

// CompleteStimulus 收到 SUT 响应：Running → Ready
func (m *Machine) CompleteStimulus() error {
	if m.state != StateRunning {
		return &TransitionError{From: m.state, Event: "sut-response"}
	}
	m.state = StateReady
	return nil
}

// BeginReset 收到重置：Ready/Running/Faulted → ResetPending
func (m *Machine) BeginReset() error {
	switch m.state {
	case StateReady, StateRunning, StateFaulted:
		m.state = StateResetPending
		return nil
	default:
		return &TransitionError{From: m.state, Event: "reset"}
	}
}

// Fault 进入故障态（任意状态可达）
func (m *Machine) Fault() { m.state = StateFaulted }

// Disconnect 平台连接断开，回到初始状态
func (m *Machine) Disconnect() { m.state = StateDisconnected }
