package sut

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/taoyao-code/mbt-adapter/internal/protocol"
)

// ErrNotConnected 连接器尚未建立连接
var ErrNotConnected = errors.New("sut: not connected")

// WSConnector 通过 WebSocket 连接智能门 SUT。
// 接收 goroutine 由连接器自有；复位确认（RESET_PERFORMED）在连接器内部
// 消化，不会作为普通事件上抛。
type WSConnector struct {
	endpoint    string
	dialTimeout time.Duration
	log         *zap.Logger

	sink EventSink

	mu     sync.Mutex
	conn   *websocket.Conn
	alive  bool
	resetC chan struct{}
	wg     sync.WaitGroup
}

// NewWSConnector 创建连接器；endpoint 为默认 SUT 地址，
// 平台配置中的 endpoint 项优先生效。
func NewWSConnector(endpoint string, dialTimeout time.Duration, log *zap.Logger) *WSConnector {
	if log == nil {
		log = zap.NewNop()
	}
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	return &WSConnector{
		endpoint:    endpoint,
		dialTimeout: dialTimeout,
		log:         log.With(zap.String("component", "sut_ws")),
		resetC:      make(chan struct{}, 1),
	}
}

// RegisterSink 注册事件接收方
func (c *WSConnector) RegisterSink(sink EventSink) { c.sink = sink }

// Start 建立到 SUT 的连接；重复调用视为重新配置，先断开旧连接
func (c *WSConnector) Start(cfg *protocol.Configuration) error {
	endpoint := c.endpoint
	if item := cfg.Item("endpoint"); item != nil && item.Value != "" {
		endpoint = item.Value
	}
	if endpoint == "" {
		return fmt.Errorf("sut: no endpoint configured")
	}

	c.Stop()

	dialer := websocket.Dialer{HandshakeTimeout: c.dialTimeout}
	conn, _, err := dialer.Dial(endpoint, nil)
	if err != nil {
		return fmt.Errorf("sut: dial %s: %w", endpoint, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.alive = true
	c.mu.Unlock()

	c.log.Info("connected to SUT", zap.String("endpoint", endpoint))

	c.wg.Add(1)
	go c.readLoop(conn)
	return nil
}

// readLoop 接收 SUT 消息并分发，连接关闭后退出
func (c *WSConnector) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.alive = false
			}
			c.mu.Unlock()
			c.log.Debug("sut read loop closed", zap.Error(err))
			return
		}
		c.dispatch(data)
	}
}

func (c *WSConnector) dispatch(data []byte) {
	if string(data) == evResetDone {
		select {
		case c.resetC <- struct{}{}:
		default:
		}
		return
	}
	c.log.Debug("sut event received", zap.ByteString("data", data))
	if c.sink != nil {
		c.sink.OnSutEvent(data)
	}
}

// Reset 下发复位命令并阻塞等待 SUT 确认。
// 不设超时：SUT 无响应即无限等待，由上层重置协议兜底。
func (c *WSConnector) Reset() error {
	// 丢弃上一轮遗留的确认信号
	select {
	case <-c.resetC:
	default:
	}
	if err := c.write([]byte(cmdReset)); err != nil {
		return fmt.Errorf("sut: send reset: %w", err)
	}
	<-c.resetC
	c.log.Info("SUT reset performed")
	return nil
}

// SendStimulus 向 SUT 下发物理命令
func (c *WSConnector) SendStimulus(cmd []byte) error {
	c.log.Debug("sending stimulus to SUT", zap.ByteString("cmd", cmd))
	if err := c.write(cmd); err != nil {
		return fmt.Errorf("sut: send stimulus: %w", err)
	}
	return nil
}

func (c *WSConnector) write(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Alive 连接是否可用
func (c *WSConnector) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.alive
}

// Stop 断开连接并等待接收 goroutine 退出
func (c *WSConnector) Stop() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.alive = false
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	c.wg.Wait()
}
