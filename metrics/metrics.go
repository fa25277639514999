// Package metrics exposes Prometheus-format counters for the auction
// registry over a dedicated listener, kept off the public API port.
package metrics

import (
	"context"
	"net/http"

	vmetrics "github.com/VictoriaMetrics/metrics"
)

// Counters updated by the HTTP layer.
var (
	BidsAccepted  = vmetrics.NewCounter("ntv_bids_accepted_total")
	BidsRejected  = vmetrics.NewCounter("ntv_bids_rejected_total")
	SlotsCreated  = vmetrics.NewCounter("ntv_slots_created_total")
	AuctionsEnded = vmetrics.NewCounter("ntv_auctions_ended_total")
	TextsSet      = vmetrics.NewCounter("ntv_texts_set_total")
	Audits        = vmetrics.NewCounter("ntv_audits_total")
	Sweeps        = vmetrics.NewCounter("ntv_sweeps_total")
	Settlements   = vmetrics.NewCounter("ntv_settlements_total")
)

// MetricsServer serves the metrics endpoint on its own address.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server listening on addr. An empty addr is allowed;
// the returned server then does nothing.
func New(addr string) *MetricsServer {
	if addr == "" {
		return &MetricsServer{}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		vmetrics.WritePrometheus(w, true)
	})
	return &MetricsServer{srv: &http.Server{Addr: addr, Handler: mux}}
}

// ListenAndServe blocks serving metrics until Shutdown.
func (m *MetricsServer) ListenAndServe() error {
	if m.srv == nil {
		return nil
	}
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}
