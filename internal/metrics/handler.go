package metrics

import (
	"encoding/json"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
)

// Summary is the JSON response for the metrics summary endpoint.
type Summary struct {
	API    apiInfo    `json:"api"`
	Auth   authInfo   `json:"auth"`
	Stores storeInfo  `json:"stores"`
	State  stateInfo  `json:"state"`
	Server serverInfo `json:"server"`
}

type apiInfo struct {
	TotalRequests float64 `json:"totalRequests"`
	ErrorRate     float64 `json:"errorRate"`
	Fallbacks     float64 `json:"fallbacks"`
}

type authInfo struct {
	Successes float64 `json:"successes"`
	Failures  float64 `json:"failures"`
	Throttled float64 `json:"throttled"`
}

type storeInfo struct {
	ActiveNotifications float64 `json:"activeNotifications"`
	AuditEntries        float64 `json:"auditEntries"`
}

type stateInfo struct {
	OpenConns  float64 `json:"openConns"`
	IdleConns  float64 `json:"idleConns"`
	InUseConns float64 `json:"inUseConns"`
}

type serverInfo struct {
	StartTime     float64 `json:"startTime"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// Handler returns an http.HandlerFunc serving a JSON metrics summary.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.handleSummary(w)
	}
}

func (m *Metrics) handleSummary(w http.ResponseWriter) {
	families, err := m.registry.Gather()
	if err != nil {
		http.Error(w, "failed to gather metrics", http.StatusInternalServerError)
		return
	}

	fam := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		fam[f.GetName()] = f
	}

	start := gaugeValue(fam["mlconsole_start_time_seconds"])

	summary := Summary{
		API: apiInfo{
			TotalRequests: sumCounter(fam["mlconsole_api_requests_total"]),
			ErrorRate:     computeErrorRate(fam["mlconsole_api_requests_total"]),
			Fallbacks:     sumCounter(fam["mlconsole_local_fallbacks_total"]),
		},
		Auth: authInfo{
			Successes: sumCounter(fam["mlconsole_auth_successes_total"]),
			Failures:  sumCounter(fam["mlconsole_auth_failures_total"]),
			Throttled: counterValue(fam["mlconsole_login_throttled_total"]),
		},
		Stores: storeInfo{
			ActiveNotifications: gaugeValue(fam["mlconsole_active_notifications"]),
			AuditEntries:        gaugeValue(fam["mlconsole_audit_entries"]),
		},
		State: stateInfo{
			OpenConns:  gaugeValue(fam["mlconsole_state_open_conns"]),
			IdleConns:  gaugeValue(fam["mlconsole_state_idle_conns"]),
			InUseConns: gaugeValue(fam["mlconsole_state_in_use_conns"]),
		},
		Server: serverInfo{
			StartTime:     start,
			UptimeSeconds: float64(time.Now().Unix()) - start,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	_ = json.NewEncoder(w).Encode(summary)
}

// --- Prometheus metric helpers ---

func sumCounter(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	var total float64
	for _, m := range f.GetMetric() {
		if m.GetCounter() != nil {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func gaugeValue(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	ms := f.GetMetric()
	if len(ms) == 0 {
		return 0
	}
	if ms[0].GetGauge() != nil {
		return ms[0].GetGauge().GetValue()
	}
	return 0
}

func counterValue(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	ms := f.GetMetric()
	if len(ms) == 0 {
		return 0
	}
	if ms[0].GetCounter() != nil {
		return ms[0].GetCounter().GetValue()
	}
	return 0
}

// computeErrorRate treats 4xx/5xx status codes and status 0 (transport
// failure) as errors.
func computeErrorRate(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	var total, errors float64
	for _, m := range f.GetMetric() {
		if m.GetCounter() == nil {
			continue
		}
		v := m.GetCounter().GetValue()
		total += v
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "status_code" {
				code := lp.GetValue()
				if code == "0" || (len(code) > 0 && code[0] >= '4') {
					errors += v
				}
			}
		}
	}
	if total == 0 {
		return 0
	}
	return errors / total
}
