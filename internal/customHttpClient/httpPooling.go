package customHttpClient

import (
	"net/http"
	"time"

	"github.com/akolanti/DocChat/internal/config"
)

// one pooled transport for every outbound model API call
var customTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

// NewClient returns an http.Client sharing the pooled transport. A zero
// timeout leaves deadlines to the request context.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: customTransport,
		Timeout:   timeout,
	}
}

func CloseIdle() {
	customTransport.CloseIdleConnections()
}
