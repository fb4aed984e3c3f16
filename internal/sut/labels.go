package sut

import (
	"fmt"
	"strings"

	"github.com/taoyao-code/mbt-adapter/internal/protocol"
)

// 智能门 SUT 的文本命令
const (
	cmdReset       = "RESET"
	evResetDone    = "RESET_PERFORMED"
	defaultChannel = "door"
)

// DoorVocabulary 智能门 SUT 的标签词汇表。
// 激励翻译为大写文本命令（带密码的命令形如 LOCK:<passcode>），
// SUT 返回的小写文本即响应标签名。
type DoorVocabulary struct {
	// Endpoint 公告中的默认 SUT 地址
	Endpoint string
}

// SupportedLabels 公告给平台的标签集合
func (v *DoorVocabulary) SupportedLabels() []protocol.Label {
	passcode := protocol.Parameter{Name: "passcode", Type: protocol.ParamInteger}
	return []protocol.Label{
		protocol.Stimulus("open", defaultChannel),
		protocol.Response("opened", defaultChannel),
		protocol.Stimulus("close", defaultChannel),
		protocol.Response("closed", defaultChannel),
		protocol.Stimulus("lock", defaultChannel, passcode),
		protocol.Response("locked", defaultChannel),
		protocol.Stimulus("unlock", defaultChannel, passcode),
		protocol.Response("unlocked", defaultChannel),
		protocol.Response("invalid_command", defaultChannel),
		protocol.Response("invalid_passcode", defaultChannel),
		protocol.Response("incorrect_passcode", defaultChannel),
		protocol.Response("shut_off", defaultChannel),
	}
}

// DefaultConfiguration 适配器所需配置项
func (v *DoorVocabulary) DefaultConfiguration() *protocol.Configuration {
	endpoint := v.Endpoint
	if endpoint == "" {
		endpoint = "ws://localhost:3001"
	}
	return &protocol.Configuration{Items: []protocol.ConfigurationItem{{
		Name:        "endpoint",
		Type:        protocol.ParamString,
		Description: "Base websocket URL of the SmartDoor API",
		Value:       endpoint,
	}}}
}

// CommandFor 激励标签 → SUT 命令
func (v *DoorVocabulary) CommandFor(l *protocol.Label) ([]byte, error) {
	if l == nil || l.Sort != protocol.SortStimulus {
		return nil, fmt.Errorf("label is not a stimulus")
	}
	cmd := strings.ToUpper(l.Name)
	switch l.Name {
	case "open", "close":
		return []byte(cmd), nil
	case "lock", "unlock":
		p := l.Parameter("passcode")
		if p == nil {
			return nil, fmt.Errorf("stimulus %q requires a passcode parameter", l.Name)
		}
		return []byte(fmt.Sprintf("%s:%v", cmd, p.Value)), nil
	default:
		return nil, fmt.Errorf("unsupported stimulus %q", l.Name)
	}
}

// LabelFor SUT 消息 → 响应标签
func (v *DoorVocabulary) LabelFor(raw []byte) protocol.Label {
	name := strings.ToLower(strings.TrimSpace(string(raw)))
	l := protocol.Response(name, defaultChannel)
	l.Physical = raw
	return l
}
