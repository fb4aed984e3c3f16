package protocol

import (
	"fmt"
	"time"
)

// Kind 平台协议消息类型
type Kind uint8

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindReset
	KindStimulus
	KindResponse
	KindReady
	KindError
	KindHeartbeat
	KindAnnouncement
)

// String 返回与线上报文 type 字段一致的名称
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindReset:
		return "reset"
	case KindStimulus:
		return "stimulus"
	case KindResponse:
		return "response"
	case KindReady:
		return "ready"
	case KindError:
		return "error"
	case KindHeartbeat:
		return "heartbeat"
	case KindAnnouncement:
		return "announcement"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Message 平台协议消息（带类型标签的联合体）
// 构造后不可变；由入站帧解码产生，或由状态机在事件响应中产生。
type Message struct {
	Kind         Kind
	Config       *Configuration
	Label        *Label
	Error        string
	Announcement *Announcement
}

// NewReady 构造 Ready 消息
func NewReady() *Message { return &Message{Kind: KindReady} }

// NewError 构造错误消息
func NewError(msg string) *Message { return &Message{Kind: KindError, Error: msg} }

// NewErrorf 按格式构造错误消息
func NewErrorf(format string, args ...any) *Message {
	return &Message{Kind: KindError, Error: fmt.Sprintf(format, args...)}
}

// NewResponse 构造响应消息（SUT 行为上报）
func NewResponse(l *Label) *Message { return &Message{Kind: KindResponse, Label: l} }

// NewStimulusConfirmation 构造激励确认消息：
// 将已执行的激励标签附带执行时间与物理命令回送平台。
func NewStimulusConfirmation(l *Label, physical []byte) *Message {
	c := *l
	c.Timestamp = time.Now().UnixNano()
	c.Physical = physical
	return &Message{Kind: KindStimulus, Label: &c}
}

// NewAnnouncement 构造上线公告消息
func NewAnnouncement(name string, labels []Label, cfg *Configuration) *Message {
	return &Message{Kind: KindAnnouncement, Announcement: &Announcement{
		Name:          name,
		Labels:        labels,
		Configuration: cfg,
	}}
}

// Announcement 适配器上线公告：名称、支持的标签集与所需配置项
type Announcement struct {
	Name          string         `json:"name"`
	Labels        []Label        `json:"labels"`
	Configuration *Configuration `json:"configuration,omitempty"`
}
