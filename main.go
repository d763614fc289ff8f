package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	daprd "github.com/dapr/go-sdk/service/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"techintel-service/api"
	_ "techintel-service/docs"
	"techintel-service/logger"
	"techintel-service/service"
	"techintel-service/service/config"
)

// @title 科技企业情报查询服务 API
// @version 1.0
// @description 企业数据集过滤、排序、深度分析与重载事件推送
// @BasePath /
func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("加载配置失败", "error", err)
		os.Exit(1)
	}
	logger.InitLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := service.Init(ctx, cfg)
	if err != nil {
		slog.Error("服务初始化失败", "error", err)
		os.Exit(1)
	}
	defer app.Shutdown()

	mux := chi.NewRouter()

	// 如果有BASE_CONTEXT，则在该路径下挂载所有路由
	if base := cfg.Server.BaseContext; base != "" {
		mux.Route(base, func(r chi.Router) {
			subMux := r.(*chi.Mux)
			api.InitRoute(subMux, app)
			r.Handle("/metrics", promhttp.Handler())
			r.Handle("/swagger*", httpSwagger.WrapHandler)
		})
	} else {
		api.InitRoute(mux, app)
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/swagger*", httpSwagger.WrapHandler)
	}

	s := daprd.NewServiceWithMux(":"+strconv.Itoa(cfg.Server.Port), mux)
	go func() {
		<-ctx.Done()
		slog.Info("收到退出信号，正在停止服务")
		if err := s.GracefulStop(); err != nil {
			slog.Error("停止HTTP服务失败", "error", err)
		}
	}()

	slog.Info("服务启动", "port", cfg.Server.Port, "base_context", cfg.Server.BaseContext)
	if err := s.Start(); err != nil && err != http.ErrServerClosed {
		slog.Error("HTTP服务异常退出", "error", err)
	}
}
