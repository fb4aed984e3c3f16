package protocol

import "encoding/json"

// Sort 标签方向：激励（平台→SUT）或响应（SUT→平台）
type Sort uint8

const (
	SortStimulus Sort = iota + 1
	SortResponse
)

// String 返回线上报文使用的方向名称
func (s Sort) String() string {
	switch s {
	case SortStimulus:
		return "stimulus"
	case SortResponse:
		return "response"
	default:
		return "unknown"
	}
}

// ParamType 标签参数类型
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamDecimal ParamType = "decimal"
	ParamBoolean ParamType = "boolean"
)

// Parameter 标签的命名参数
type Parameter struct {
	Name  string    `json:"name"`
	Type  ParamType `json:"type"`
	Value any       `json:"value,omitempty"`
}

// Label 测试标签：平台与适配器之间交换的最小语义单元。
// Timestamp 与 Physical 仅在激励确认与响应上报时填充。
type Label struct {
	Sort          Sort        `json:"-"`
	Name          string      `json:"name"`
	Channel       string      `json:"channel,omitempty"`
	Parameters    []Parameter `json:"parameters,omitempty"`
	Timestamp     int64       `json:"timestamp,omitempty"`
	Physical      []byte      `json:"physical,omitempty"`
	CorrelationID string      `json:"correlationId,omitempty"`
}

// MarshalJSON 序列化时附带 direction 字段（公告中的标签需要自带方向）
func (l Label) MarshalJSON() ([]byte, error) {
	type alias Label
	out := struct {
		alias
		Direction string `json:"direction,omitempty"`
	}{alias: alias(l)}
	if l.Sort == SortStimulus || l.Sort == SortResponse {
		out.Direction = l.Sort.String()
	}
	return json.Marshal(out)
}

// UnmarshalJSON 解析可选的 direction 字段
func (l *Label) UnmarshalJSON(data []byte) error {
	type alias Label
	aux := struct {
		*alias
		Direction string `json:"direction,omitempty"`
	}{alias: (*alias)(l)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch aux.Direction {
	case "stimulus":
		l.Sort = SortStimulus
	case "response":
		l.Sort = SortResponse
	}
	return nil
}

// Stimulus 构造激励标签
func Stimulus(name, channel string, params ...Parameter) Label {
	return Label{Sort: SortStimulus, Name: name, Channel: channel, Parameters: params}
}

// Response 构造响应标签
func Response(name, channel string, params ...Parameter) Label {
	return Label{Sort: SortResponse, Name: name, Channel: channel, Parameters: params}
}

// Parameter 按名称查找参数，未找到返回 nil
func (l *Label) Parameter(name string) *Parameter {
	for i := range l.Parameters {
		if l.Parameters[i].Name == name {
			return &l.Parameters[i]
		}
	}
	return nil
}

// ConfigurationItem 适配器配置项
type ConfigurationItem struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description,omitempty"`
	Value       string    `json:"value,omitempty"`
}

// Configuration 平台下发（或适配器公告）的配置集合
type Configuration struct {
	Items []ConfigurationItem `json:"items"`
}

// Item 按名称查找配置项，未找到返回 nil
func (c *Configuration) Item(name string) *ConfigurationItem {
	if c == nil {
		return nil
	}
	for i := range c.Items {
		if c.Items[i].Name == name {
			return &c.Items[i]
		}
	}
	return nil
}
