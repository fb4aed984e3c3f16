// Package platform 实现到测试平台的 WebSocket 传输。
// 读回调在传输自己的 goroutine 上同步触发；发送为同步阻塞，
// 由唯一的出站 Worker 调用，链路上同一时刻只有一条消息在途。
package platform

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Handler 传输事件的接收方（由 AdapterCore 实现）。
// HandleMessage 在读 goroutine 上同步调用，必须在有界时间内返回：
// 读 goroutine 单线程，回调未返回前无法处理下一帧。
type Handler interface {
	HandleMessage(raw []byte)
	OnConnected()
	OnDisconnected()
}

// Config 平台连接参数
type Config struct {
	URL              string
	Token            string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// RedialPerMinute 重连令牌桶速率，防止对端故障时的连接风暴
	RedialPerMinute int
}

// Client 平台 WebSocket 客户端。连接断开后持续重拨：
// 适配器设计为运行至进程终止，不存在优雅下线路径。
type Client struct {
	cfg     Config
	handler Handler
	log     *zap.Logger
	limiter *rate.Limiter
	onDial  func() // 指标回调，可为 nil

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewClient 创建平台客户端
func NewClient(cfg Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	perMin := cfg.RedialPerMinute
	if perMin <= 0 {
		perMin = 12
	}
	return &Client{
		cfg:     cfg,
		log:     log.With(zap.String("component", "platform")),
		limiter: rate.NewLimiter(rate.Limit(float64(perMin)/60.0), 1),
	}
}

// RegisterHandler 注册事件接收方，须在 Start 之前调用
func (c *Client) RegisterHandler(h Handler) { c.handler = h }

// SetDialCallback 设置每次拨号的指标回调
func (c *Client) SetDialCallback(fn func()) { c.onDial = fn }

// Start 启动连接循环（内部 goroutine，立即返回）
func (c *Client) Start() {
	go c.run()
}

// run 拨号→读循环→断开→限速重拨，永不返回
func (c *Client) run() {
	for {
		if err := c.limiter.Wait(context.Background()); err != nil {
			return
		}
		if c.onDial != nil {
			c.onDial()
		}

		conn, err := c.dial()
		if err != nil {
			c.log.Error("cannot connect to platform",
				zap.String("url", c.cfg.URL), zap.Error(err))
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.log.Info("connected to platform", zap.String("url", c.cfg.URL))
		c.handler.OnConnected()

		c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		c.handler.OnDisconnected()
		c.log.Info("platform connection lost, reconnecting")
	}
}

func (c *Client) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	conn, _, err := dialer.Dial(c.cfg.URL, header)
	return conn, err
}

// readLoop 单线程读循环：每帧同步交给 handler，返回前不读下一帧
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.log.Debug("platform read loop closed", zap.Error(err))
			_ = conn.Close()
			return
		}
		c.handler.HandleMessage(data)
	}
}

// Send 同步发送一帧。调用方（唯一出站 Worker）保证串行。
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
