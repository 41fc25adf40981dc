// internal/network/proxy.go
package network

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/elazarl/goproxy"
	"go.uber.org/zap"

	"github.com/xkilldash9x/certmint/internal/certauth"
)

// InterceptionProxy is the thin serving layer around the certificate
// authority: every CONNECT target is terminated with a leaf minted (or
// reused) by the authority's file-backed cache.
type InterceptionProxy struct {
	proxy       *goproxy.ProxyHttpServer
	server      *http.Server
	serverMutex sync.Mutex
	authority   *certauth.CertificateAuthority
	logger      *zap.Logger
}

// NewInterceptionProxy creates a MITM proxy backed by the given authority.
func NewInterceptionProxy(authority *certauth.CertificateAuthority, verbose bool, logger *zap.Logger) *InterceptionProxy {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("interception_proxy")

	proxy := goproxy.NewProxyHttpServer()
	proxy.Verbose = verbose

	ip := &InterceptionProxy{
		proxy:     proxy,
		authority: authority,
		logger:    log,
	}
	ip.setupHandlers()
	return ip
}

// setupHandlers configures the core interception logic.
func (ip *InterceptionProxy) setupHandlers() {
	mitm := &goproxy.ConnectAction{
		Action:    goproxy.ConnectMitm,
		TLSConfig: ip.tlsConfigForHost,
	}

	ip.proxy.OnRequest().HandleConnect(goproxy.FuncHttpsHandler(func(host string, ctx *goproxy.ProxyCtx) (*goproxy.ConnectAction, string) {
		return mitm, host
	}))

	ip.proxy.OnRequest().DoFunc(func(r *http.Request, ctx *goproxy.ProxyCtx) (*http.Request, *http.Response) {
		ip.logger.Debug("Proxy intercepted request",
			zap.String("method", r.Method), zap.String("url", r.URL.String()))
		return r, nil
	})
}

// tlsConfigForHost mints (or reuses) a leaf for the CONNECT target and wraps
// it in a server-side TLS config. The CONNECT host carries a port; the bare
// hostname keys the certificate cache.
func (ip *InterceptionProxy) tlsConfigForHost(host string, _ *goproxy.ProxyCtx) (*tls.Config, error) {
	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}

	cert, err := ip.authority.TLSCertForHost(hostname)
	if err != nil {
		ip.logger.Error("Failed to mint certificate for intercepted host",
			zap.String("host", hostname), zap.Error(err))
		return nil, fmt.Errorf("mint certificate for %q: %w", hostname, err)
	}

	return &tls.Config{Certificates: []tls.Certificate{*cert}}, nil
}

// Start runs the proxy server and blocks until the context is cancelled or a
// fatal error occurs.
func (ip *InterceptionProxy) Start(ctx context.Context, addr string) error {
	ip.serverMutex.Lock()
	if ip.server != nil {
		ip.serverMutex.Unlock()
		return errors.New("proxy server already started")
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      ip.proxy,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     zap.NewStdLog(ip.logger.Named("http_server")),
	}
	ip.server = server
	ip.serverMutex.Unlock()

	shutdownErr := make(chan error)
	go func() {
		// Wait for the context to be cancelled.
		<-ctx.Done()
		ip.logger.Info("Shutdown signal received, stopping interception proxy...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	ip.logger.Info("Starting interception proxy", zap.String("address", addr))
	err := server.ListenAndServe()

	// ErrServerClosed means a graceful shutdown; wait for its result.
	if errors.Is(err, http.ErrServerClosed) {
		err = <-shutdownErr
	}

	ip.serverMutex.Lock()
	if ip.server == server {
		ip.server = nil
	}
	ip.serverMutex.Unlock()

	if err != nil {
		ip.logger.Error("Proxy server stopped with an error", zap.Error(err))
		return fmt.Errorf("proxy server failed: %w", err)
	}

	ip.logger.Info("Interception proxy stopped gracefully.")
	return nil
}
