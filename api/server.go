// api/server.go
// HTTP/3 服务器加同端口的 TCP TLS 回退：QUIC 走 UDP，
// 传统客户端和 pprof 等 TCP 工具走同号的 TCP 端口。
package api

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"net/http/pprof"
	"path/filepath"
	"strings"
	"time"

	"assetproxy/config"
	"assetproxy/crt"
	"assetproxy/logs"
	"assetproxy/middleware"
	"assetproxy/service"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
)

// Server 对外服务入口
type Server struct {
	cfg     *config.Config
	handler http.Handler
	limiter *middleware.Limiter

	h3  *http3.Server
	tcp *http.Server
}

// NewServer 组装路由、限流和处理器链
func NewServer(node *service.Node) *Server {
	cfg := node.Config()

	mux := http.NewServeMux()
	NewHandlerManager(node).RegisterRoutes(mux)

	// pprof 路由，性能分析用
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	limiter := middleware.NewLimiter(cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst)

	return &Server{
		cfg:     cfg,
		handler: limiter.Middleware(mux),
		limiter: limiter,
	}
}

// Start 加载（或生成）证书并启动两个监听：
// HTTP/3 在 UDP 上，TCP TLS 回退在同号端口上。
// 绑定失败同步返回，之后的服务错误只打日志
func (s *Server) Start() error {
	certFile := filepath.Join(s.cfg.Node.DataDir, "server.crt")
	keyFile := filepath.Join(s.cfg.Node.DataDir, "server.key")
	if err := crt.EnsureCert(certFile, keyFile, s.cfg.Server.CertValidityDays); err != nil {
		return err
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return err
	}
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tlsVersion(s.cfg.Server.TLSMinVersion),
		MaxVersion:   tlsVersion(s.cfg.Server.TLSMaxVersion),
		// ALPN 同时声明 h3 和 http/1.1，TCP 回退才有协议可协商
		NextProtos: []string{"h3", "h3-29", "h3-28", "h3-27", "http/1.1"},
	}

	quicConfig := &quic.Config{
		KeepAlivePeriod: s.cfg.Server.QUICKeepAlivePeriod,
		MaxIdleTimeout:  s.cfg.Server.QUICMaxIdleTimeout,
		Allow0RTT:       s.cfg.Server.QUICAllow0RTT,
	}

	addr := s.cfg.Node.Listen
	s.h3 = &http3.Server{
		Addr:       addr,
		Handler:    s.handler,
		TLSConfig:  tlsConfig,
		QUICConfig: quicConfig,
	}

	listener, err := quic.ListenAddrEarly(addr, tlsConfig, quicConfig)
	if err != nil {
		return err
	}

	s.tcp = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		TLSConfig:    tlsConfig,
		ReadTimeout:  s.cfg.Server.HTTPTimeout,
		WriteTimeout: s.cfg.Server.HTTPTimeout,
	}

	logs.Info("[API] serving HTTP/3 on %s (TCP TLS fallback on same port)", addr)

	go func() {
		if err := s.h3.ServeListener(listener); err != nil && !isServerClosedErr(err) {
			logs.Error("[API] HTTP/3 server error: %v", err)
		}
	}()
	go func() {
		if err := s.tcp.ListenAndServeTLS("", ""); err != nil && !isServerClosedErr(err) {
			logs.Error("[API] TCP TLS server error: %v", err)
		}
	}()
	return nil
}

// Shutdown 停掉两个监听和限流器的后台清理
func (s *Server) Shutdown() {
	if s.h3 != nil {
		if err := s.h3.Close(); err != nil && !isServerClosedErr(err) {
			logs.Warn("[API] close HTTP/3 server: %v", err)
		}
	}
	if s.tcp != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.tcp.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logs.Warn("[API] shutdown TCP server: %v", err)
		}
		cancel()
	}
	s.limiter.Stop()
}

// tlsVersion 把配置里的版本号字符串转成 tls 常量，认不出就按 1.3
func tlsVersion(s string) uint16 {
	switch s {
	case "1.2":
		return tls.VersionTLS12
	default:
		return tls.VersionTLS13
	}
}

func isServerClosedErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, http.ErrServerClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "server closed") ||
		strings.Contains(msg, "closed network connection") ||
		strings.Contains(msg, "use of closed network connection")
}
