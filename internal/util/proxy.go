package util

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"
)

// NewProxyFunc creates a proxy function based on configuration.
// If no proxy URLs are provided, falls back to environment variables.
// noProxy uses the NO_PROXY syntax (comma separated hosts, domains and CIDRs).
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	cfg := &httpproxy.Config{
		HTTPProxy:  httpProxy,
		HTTPSProxy: httpsProxy,
		NoProxy:    noProxy,
	}
	if cfg.HTTPSProxy == "" {
		cfg.HTTPSProxy = httpProxy
	}
	resolve := cfg.ProxyFunc()

	return func(req *http.Request) (*url.URL, error) {
		return resolve(req.URL)
	}
}

// NewTransport returns an http.Transport routed through the configured proxies
func NewTransport(httpProxy, httpsProxy, noProxy string) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = NewProxyFunc(httpProxy, httpsProxy, noProxy)
	return t
}
