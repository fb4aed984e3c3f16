package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// 线上帧为 JSON 信封：{"type":"...", "<type>":{...}}。
// 信封之外的字段一律忽略，保持与平台侧的前向兼容。

var (
	// ErrUnknownKind 信封 type 字段无法识别
	ErrUnknownKind = errors.New("unknown message kind")
	// ErrMissingBody 信封缺少与 type 对应的负载
	ErrMissingBody = errors.New("missing message body")
)

// DecodeError 入站帧解码失败
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode frame: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode frame: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type wireError struct {
	Message string `json:"message"`
}

type envelope struct {
	Type          string         `json:"type"`
	Configuration *Configuration `json:"configuration,omitempty"`
	Label         *Label         `json:"label,omitempty"`
	Error         *wireError     `json:"error,omitempty"`
	Announcement  *Announcement  `json:"announcement,omitempty"`
}

// Decode 将原始帧解码为类型化消息
func Decode(raw []byte) (*Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &DecodeError{Reason: "malformed frame", Err: err}
	}

	switch env.Type {
	case "configuration":
		if env.Configuration == nil {
			return nil, &DecodeError{Reason: "configuration", Err: ErrMissingBody}
		}
		return &Message{Kind: KindConfiguration, Config: env.Configuration}, nil
	case "reset":
		return &Message{Kind: KindReset}, nil
	case "stimulus":
		if env.Label == nil {
			return nil, &DecodeError{Reason: "stimulus", Err: ErrMissingBody}
		}
		l := *env.Label
		l.Sort = SortStimulus
		return &Message{Kind: KindStimulus, Label: &l}, nil
	case "response":
		if env.Label == nil {
			return nil, &DecodeError{Reason: "response", Err: ErrMissingBody}
		}
		l := *env.Label
		l.Sort = SortResponse
		return &Message{Kind: KindResponse, Label: &l}, nil
	case "ready":
		return &Message{Kind: KindReady}, nil
	case "error":
		if env.Error == nil {
			return nil, &DecodeError{Reason: "error", Err: ErrMissingBody}
		}
		return &Message{Kind: KindError, Error: env.Error.Message}, nil
	case "heartbeat":
		return &Message{Kind: KindHeartbeat}, nil
	case "announcement":
		if env.Announcement == nil {
			return nil, &DecodeError{Reason: "announcement", Err: ErrMissingBody}
		}
		return &Message{Kind: KindAnnouncement, Announcement: env.Announcement}, nil
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("type %q", env.Type), Err: ErrUnknownKind}
	}
}

// Encode 将类型化消息编码为可发送的帧
func Encode(m *Message) ([]byte, error) {
	env := envelope{Type: m.Kind.String()}

	switch m.Kind {
	case KindConfiguration:
		env.Configuration = m.Config
	case KindStimulus, KindResponse:
		if m.Label == nil {
			return nil, fmt.Errorf("encode %s: nil label", m.Kind)
		}
		env.Label = m.Label
	case KindError:
		env.Error = &wireError{Message: m.Error}
	case KindAnnouncement:
		env.Announcement = m.Announcement
	case KindReset, KindReady, KindHeartbeat:
		// 仅类型标签，无负载
	default:
		return nil, fmt.Errorf("encode: %w: %d", ErrUnknownKind, m.Kind)
	}

	return json.Marshal(&env)
}
