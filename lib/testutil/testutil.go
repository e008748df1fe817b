package testutil

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

// Report is a single call recorded by Telemetry.
type Report struct {
	Kind   string
	ID     string
	Params []any
}

// Telemetry is a telemetry.API that records every report and forwards it to t.Log.
type Telemetry struct {
	t testing.TB

	mutex   sync.Mutex
	reports []Report
}

func NewTelemetry(t testing.TB) *Telemetry {
	return &Telemetry{t: t}
}

func (r *Telemetry) record(kind, id string, params []any) {
	r.mutex.Lock()
	r.reports = append(r.reports, Report{Kind: kind, ID: id, Params: params})
	r.mutex.Unlock()
	r.t.Log(kind, id, fmt.Sprint(params...))
}

func (r *Telemetry) ReportBroken(id string, params ...any) {
	r.record("broken", id, params)
}

func (r *Telemetry) ReportWarning(id string, params ...any) {
	r.record("warning", id, params)
}

func (r *Telemetry) ReportDebug(msg string, params ...any) {
	r.record("debug", msg, params)
}

func (r *Telemetry) ReportCount(id string, count int64) {
	r.record("count", id, []any{count})
}

// Reports returns the recorded reports of a kind whose id contains `id`.
func (r *Telemetry) Reports(kind, id string) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out []Report
	for _, report := range r.reports {
		if report.Kind == kind && strings.Contains(report.ID, id) {
			out = append(out, report)
		}
	}
	return out
}
