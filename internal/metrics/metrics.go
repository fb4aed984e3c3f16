package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 适配器业务指标
type AppMetrics struct {
	InboundTotal       *prometheus.CounterVec // labels: kind
	DecodeErrors       prometheus.Counter
	InvalidTransitions prometheus.Counter
	OutboundSent       *prometheus.CounterVec // labels: kind
	OutboundFailures   prometheus.Counter
	SutEvents          prometheus.Counter
	SutFaults          prometheus.Counter
	HeartbeatTotal     prometheus.Counter
	QueueDepth         *prometheus.GaugeVec // labels: queue=inbound|outbound
	StateGauge         prometheus.Gauge     // 当前状态机状态（枚举序号）
	ReconnectTotal     prometheus.Counter
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		InboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adapter_inbound_messages_total",
			Help: "Inbound platform messages by kind.",
		}, []string{"kind"}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adapter_decode_errors_total",
			Help: "Inbound frames that failed to decode.",
		}),
		InvalidTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adapter_invalid_transitions_total",
			Help: "Messages rejected by the protocol state machine.",
		}),
		OutboundSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adapter_outbound_messages_total",
			Help: "Outbound platform messages by kind.",
		}, []string{"kind"}),
		OutboundFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adapter_outbound_failures_total",
			Help: "Outbound sends that failed at the transport.",
		}),
		SutEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adapter_sut_events_total",
			Help: "Asynchronous events received from the SUT.",
		}),
		SutFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adapter_sut_faults_total",
			Help: "SUT start/reset/actuation failures.",
		}),
		HeartbeatTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adapter_heartbeat_total",
			Help: "Heartbeat frames observed from the platform.",
		}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "adapter_queue_depth",
			Help: "Current number of queued messages.",
		}, []string{"queue"}),
		StateGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "adapter_state",
			Help: "Current protocol state machine state (enum ordinal).",
		}),
		ReconnectTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adapter_platform_reconnect_total",
			Help: "Platform connection (re)dial attempts.",
		}),
	}
	reg.MustRegister(
		m.InboundTotal, m.DecodeErrors, m.InvalidTransitions,
		m.OutboundSent, m.OutboundFailures,
		m.SutEvents, m.SutFaults, m.HeartbeatTotal,
		m.QueueDepth, m.StateGauge, m.ReconnectTotal,
	)
	return m
}
