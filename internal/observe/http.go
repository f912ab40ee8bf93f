package observe

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusSource 提供 /status 的 JSON 快照，由 server 实现
type StatusSource interface {
	StatusJSON() []byte
}

// StartHTTP 启动运维 HTTP 服务：/healthz、/metrics、/status
func StartHTTP(addr string, src StatusSource) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintln(w, "ok")
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if src != nil {
			_, _ = w.Write(src.StatusJSON())
			return
		}
		_, _ = w.Write([]byte("{}"))
	})
	return http.ListenAndServe(addr, mux)
}
