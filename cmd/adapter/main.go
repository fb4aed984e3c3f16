package main

import (
	"flag"
	"os"

	"go.uber.org/zap"

	"github.com/taoyao-code/mbt-adapter/internal/adapter"
	cfgpkg "github.com/taoyao-code/mbt-adapter/internal/config"
	"github.com/taoyao-code/mbt-adapter/internal/httpserver"
	"github.com/taoyao-code/mbt-adapter/internal/logging"
	"github.com/taoyao-code/mbt-adapter/internal/metrics"
	"github.com/taoyao-code/mbt-adapter/internal/platform"
	"github.com/taoyao-code/mbt-adapter/internal/sut"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	// 1) 加载配置
	cfg, err := cfgpkg.Load(configPath)
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	log := zap.L()

	// 3) 指标注册与处理器
	reg := metrics.NewRegistry()
	appm := metrics.NewAppMetrics(reg)
	metricsHandler := metrics.Handler(reg)

	// 4) SUT 连接器（按配置选择传输方式）
	var conn sut.Connector
	switch cfg.Sut.Transport {
	case "tcp":
		conn = sut.NewTCPConnector(cfg.Sut.Endpoint, cfg.Sut.DialTimeout, log)
	default:
		conn = sut.NewWSConnector(cfg.Sut.Endpoint, cfg.Sut.DialTimeout, log)
	}
	vocab := &sut.DoorVocabulary{Endpoint: cfg.Sut.Endpoint}

	// 5) 平台传输
	client := platform.NewClient(platform.Config{
		URL:              cfg.Platform.URL,
		Token:            cfg.Platform.Token,
		HandshakeTimeout: cfg.Platform.HandshakeTimeout,
		WriteTimeout:     cfg.Platform.WriteTimeout,
		RedialPerMinute:  cfg.Platform.RedialPerMinute,
	}, log)
	client.SetDialCallback(appm.ReconnectTotal.Inc)

	// 6) 适配器核心
	name := cfg.Platform.Name
	if host, err := os.Hostname(); err == nil && host != "" {
		name = name + "@" + host
	}
	core := adapter.NewCore(name, client, conn, vocab, appm, log)
	client.RegisterHandler(core)

	// 7) HTTP 服务（健康检查、状态、指标）
	httpSrv := httpserver.New(cfg.HTTP, cfg.Metrics.Path, metricsHandler,
		func() bool { return core.State() != adapter.StateFaulted },
		func() string { return core.State().String() })
	go func() {
		if err := httpSrv.Start(); err != nil {
			log.Error("http server error", zap.Error(err))
		}
	}()

	// 8) 启动核心与平台连接循环，运行至进程被外部终止
	core.Start()
	client.Start()

	log.Info("adapter running",
		zap.String("name", name),
		zap.String("platform_url", cfg.Platform.URL),
		zap.String("sut_transport", cfg.Sut.Transport),
		zap.String("sut_endpoint", cfg.Sut.Endpoint))

	select {}
}
