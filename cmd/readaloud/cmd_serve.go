package main

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/iabetor/readaloud/internal/logger"
	"github.com/iabetor/readaloud/internal/pipeline"
	"github.com/iabetor/readaloud/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动供编辑器插件调用的本地 HTTP 桥接",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "监听地址，覆盖配置文件中的 server.addr")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		addr = v
	}

	store, err := a.openSettings()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	deps, err := a.buildDeps(store, nil, pipeline.NewMetrics(registry))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("[main] readaloud 桥接服务启动中")
	err = server.New(deps, store, registry).ListenAndServe(ctx, addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("[main] readaloud 已停止")
	return nil
}
