// Package http provides outbound HTTP plumbing shared by platform clients.
package http

import (
	"net"
	"net/http"
	"time"
)

// ClientConfig tunes an outbound client. Zero values fall back to defaults.
type ClientConfig struct {
	// Timeout bounds a whole request including reading the body.
	Timeout time.Duration
	// DialTimeout bounds TCP connection setup.
	DialTimeout time.Duration
	// MaxIdleConnsPerHost caps pooled connections per upstream.
	MaxIdleConnsPerHost int
}

const (
	defaultTimeout             = 10 * time.Second
	defaultDialTimeout         = 5 * time.Second
	defaultMaxIdleConnsPerHost = 10
)

// NewHTTPClient は外部API呼び出し用に設定されたHTTPクライアントを作成します。
// http.DefaultClientにはタイムアウトがないため、常にこちらを使用すること。
func NewHTTPClient(cfg ClientConfig) *http.Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}

	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: cfg.DialTimeout,
	}
	return &http.Client{Timeout: cfg.Timeout, Transport: t}
}
