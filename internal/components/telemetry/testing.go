package telemetry

import (
	"strings"
	"sync"
)

// Report is a single call recorded by TestAPI.
type Report struct {
	Kind   string
	Id     string
	Params []any
}

// TestAPI records every report so tests can assert on what a component reported.
type TestAPI struct {
	mutex   *sync.Mutex
	reports *[]Report
}

func NewTestAPI() TestAPI {
	return TestAPI{
		mutex:   &sync.Mutex{},
		reports: &[]Report{},
	}
}

func (t TestAPI) record(kind, id string, params []any) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	*t.reports = append(*t.reports, Report{Kind: kind, Id: id, Params: params})
}

func (t TestAPI) ReportBroken(id string, params ...any) {
	t.record("broken", id, params)
}

func (t TestAPI) ReportWarning(id string, params ...any) {
	t.record("warning", id, params)
}

func (t TestAPI) ReportDebug(msg string, params ...any) {
	t.record("debug", msg, params)
}

func (t TestAPI) ReportCount(id string, count int64) {
	t.record("count", id, []any{count})
}

// Reports returns a copy of the reports of the given kind ("" for all kinds).
func (t TestAPI) Reports(kind string) []Report {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var out []Report
	for _, r := range *t.reports {
		if kind == "" || r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// HasReport tells whether a report of the given kind has an id ending with suffix.
func (t TestAPI) HasReport(kind, suffix string) bool {
	for _, r := range t.Reports(kind) {
		if strings.HasSuffix(r.Id, suffix) {
			return true
		}
	}
	return false
}
