package sut

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/mbt-adapter/internal/protocol"
)

// TCPConnector 通过 TCP 连接 SUT，报文为换行分隔的文本命令。
// 用于不提供 WebSocket 端点的 SUT 变体，协议词汇与 WSConnector 一致。
type TCPConnector struct {
	endpoint    string
	dialTimeout time.Duration
	log         *zap.Logger

	sink EventSink

	mu     sync.Mutex
	conn   net.Conn
	alive  bool
	resetC chan struct{}
	wg     sync.WaitGroup
}

// NewTCPConnector 创建 TCP 连接器
func NewTCPConnector(endpoint string, dialTimeout time.Duration, log *zap.Logger) *TCPConnector {
	if log == nil {
		log = zap.NewNop()
	}
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	return &TCPConnector{
		endpoint:    endpoint,
		dialTimeout: dialTimeout,
		log:         log.With(zap.String("component", "sut_tcp")),
		resetC:      make(chan struct{}, 1),
	}
}

// RegisterSink 注册事件接收方
func (c *TCPConnector) RegisterSink(sink EventSink) { c.sink = sink }

// Start 建立到 SUT 的 TCP 连接
func (c *TCPConnector) Start(cfg *protocol.Configuration) error {
	endpoint := c.endpoint
	if item := cfg.Item("endpoint"); item != nil && item.Value != "" {
		endpoint = item.Value
	}
	if endpoint == "" {
		return fmt.Errorf("sut: no endpoint configured")
	}

	c.Stop()

	conn, err := net.DialTimeout("tcp", endpoint, c.dialTimeout)
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

func (c *TCPConnector) readLoop(conn net.Conn) {
	defer c.wg.Done()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		data := make([]byte, len(line))
		copy(data, line)
		c.dispatch(data)
	}
	c.mu.Lock()
	if c.conn == conn {
		c.alive = false
	}
	c.mu.Unlock()
	c.log.Debug("sut read loop closed", zap.Error(scanner.Err()))
}

func (c *TCPConnector) dispatch(data []byte) {
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

// Reset 下发复位命令并阻塞等待确认
func (c *TCPConnector) Reset() error {
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
func (c *TCPConnector) SendStimulus(cmd []byte) error {
	c.log.Debug("sending stimulus to SUT", zap.ByteString("cmd", cmd))
	if err := c.write(cmd); err != nil {
		return fmt.Errorf("sut: send stimulus: %w", err)
	}
	return nil
}

func (c *TCPConnector) write(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	_, err := conn.Write(append(data, '\n'))
	return err
}

// Alive 连接是否可用
func (c *TCPConnector) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.alive
}

// Stop 断开连接并等待接收 goroutine 退出
func (c *TCPConnector) Stop() {
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
