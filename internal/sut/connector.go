// Package sut 提供被测系统（SUT）连接器：建立独立连接、下发激励、
// 接收异步事件，并维护标签与 SUT 物理命令之间的映射。
package sut

import "github.com/taoyao-code/mbt-adapter/internal/protocol"

// EventSink SUT 异步事件的接收方（由 AdapterCore 实现）。
// OnSutEvent 在连接器自己的接收 goroutine 上被调用，
// 可能与入站处理并发执行。
type EventSink interface {
	OnSutEvent(raw []byte)
}

// Connector SUT 连接器。Start/Reset/SendStimulus 均可能阻塞
// SUT 相关的任意时长，只允许从入站 Worker goroutine 调用。
type Connector interface {
	// Start 按配置建立到 SUT 的连接，开始新一轮测试
	Start(cfg *protocol.Configuration) error
	// Reset 将 SUT 复位到初始状态，阻塞直到 SUT 确认复位完成
	Reset() error
	// SendStimulus 向 SUT 下发物理命令
	SendStimulus(cmd []byte) error
	// Alive 连接是否可用（就绪请求时的可达性核实）
	Alive() bool
	// Stop 断开连接并回收接收 goroutine
	Stop()
	// RegisterSink 注册异步事件接收方，须在 Start 之前调用
	RegisterSink(sink EventSink)
}

// Vocabulary 标签词汇表：适配器支持的标签集合及其与物理命令的互转
type Vocabulary interface {
	// SupportedLabels 适配器公告给平台的标签集合
	SupportedLabels() []protocol.Label
	// DefaultConfiguration 适配器所需的默认配置项
	DefaultConfiguration() *protocol.Configuration
	// CommandFor 将激励标签翻译为 SUT 命令
	CommandFor(l *protocol.Label) ([]byte, error)
	// LabelFor 将 SUT 消息翻译为响应标签
	LabelFor(raw []byte) protocol.Label
}
