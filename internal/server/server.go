// Package server 是供编辑器插件调用的本地 HTTP 桥接。
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iabetor/readaloud/internal/errs"
	"github.com/iabetor/readaloud/internal/host"
	"github.com/iabetor/readaloud/internal/logger"
	"github.com/iabetor/readaloud/internal/pipeline"
	"github.com/iabetor/readaloud/internal/settings"
)

const (
	readHeaderTimeout = 10 * time.Second
	maxBodyBytes      = 1 << 20
)

// Server 处理朗读和设置请求。
type Server struct {
	deps     pipeline.Deps
	store    *settings.Store
	registry *prometheus.Registry
	mux      *http.ServeMux
}

// New 创建桥接服务。deps.Notifier 会被替换为每个请求独立的收集器。
func New(deps pipeline.Deps, store *settings.Store, registry *prometheus.Registry) *Server {
	s := &Server{
		deps:     deps,
		store:    store,
		registry: registry,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /v1/speak", s.handleSpeak)
	s.mux.HandleFunc("GET /v1/settings", s.handleListSettings)
	s.mux.HandleFunc("GET /v1/settings/{field}", s.handleGetSetting)
	s.mux.HandleFunc("PUT /v1/settings/{field}", s.handlePutSetting)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	if registry != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	}
	return s
}

// ServeHTTP 实现 http.Handler。
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe 监听 addr，ctx 取消时优雅关闭。
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("[server] 监听 %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("[server] 正在关闭")
		return srv.Shutdown(shutdownCtx)
	}
}

type errorResponse struct {
	Origin  string   `json:"origin"`
	Message string   `json:"message"`
	Notices []string `json:"notices,omitempty"`
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	text, err := readText(r, "text")
	if err != nil {
		writeError(w, err, nil)
		return
	}

	notices := &host.CollectingNotifier{}
	deps := s.deps
	deps.Notifier = notices
	res, err := pipeline.New(deps).Speak(r.Context(), text)
	if err != nil {
		writeError(w, err, notices.Messages())
		return
	}

	w.Header().Set("Content-Type", res.Handle.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Handle.Data)))
	w.Header().Set("X-Invocation-Id", res.InvocationID)
	if res.Artifact != nil {
		w.Header().Set("X-Archive-Path", res.Artifact.Path)
	}
	if res.ArchiveErr != nil {
		w.Header().Set("X-Archive-Error", errs.MessageOf(res.ArchiveErr))
	}
	if res.Handle.Duration > 0 {
		w.Header().Set("X-Audio-Duration-Ms", strconv.FormatInt(res.Handle.Duration.Milliseconds(), 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, res.Handle.Reader()); err != nil {
		logger.Warnf("[server] 写出音频失败: %v", err)
	}
}

type fieldView struct {
	settings.Field
	Value string `json:"value"`
}

func (s *Server) handleListSettings(w http.ResponseWriter, _ *http.Request) {
	cur := s.store.Current()
	fields := settings.Fields()
	views := make([]fieldView, 0, len(fields))
	for _, f := range fields {
		views = append(views, fieldView{Field: f, Value: cur.Value(f.Key, false)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": views})
}

func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("field")
	f, ok := settings.LookupField(key)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Origin: string(errs.OriginConfiguration), Message: "unknown setting " + key})
		return
	}
	writeJSON(w, http.StatusOK, fieldView{Field: f, Value: s.store.Current().Value(key, false)})
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("field")
	f, ok := settings.LookupField(key)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Origin: string(errs.OriginConfiguration), Message: "unknown setting " + key})
		return
	}

	value, err := readText(r, "value")
	if err != nil {
		writeError(w, err, nil)
		return
	}

	updated, err := s.store.Set(key, value)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, fieldView{Field: f, Value: updated.Value(key, false)})
}

// readText 读取纯文本请求体，或 JSON 请求体中的 field 字段。
// 请求体本身的问题都算作调用方的 configuration 错误（400）。
func readText(r *http.Request, field string) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return "", errs.Wrap(errs.OriginNetwork, "could not read request body", err)
	}
	if len(body) > maxBodyBytes {
		return "", errs.New(errs.OriginConfiguration, "request body too large")
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return string(body), nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", errs.Wrap(errs.OriginConfiguration, "invalid JSON body", err)
	}
	raw, ok := doc[field]
	if !ok {
		return "", errs.Newf(errs.OriginConfiguration, "JSON body has no %q field", field)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	// 开关类字段允许直接传布尔值
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b), nil
	}
	return "", errs.Newf(errs.OriginConfiguration, "%q must be a string", field)
}

// statusFor 把错误来源映射为 HTTP 状态码。
func statusFor(err error) int {
	if errors.Is(err, pipeline.ErrEmptySelection) {
		return http.StatusBadRequest
	}
	switch errs.OriginOf(err) {
	case errs.OriginConfiguration:
		return http.StatusBadRequest
	case errs.OriginService, errs.OriginParse:
		return http.StatusBadGateway
	case errs.OriginNetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error, notices []string) {
	origin := errs.OriginOf(err)
	if errors.Is(err, pipeline.ErrEmptySelection) {
		origin = errs.OriginConfiguration
	}
	writeJSON(w, statusFor(err), errorResponse{
		Origin:  string(origin),
		Message: errs.MessageOf(err),
		Notices: notices,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("[server] 写出响应失败: %v", err)
	}
}
