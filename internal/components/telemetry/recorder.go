package telemetry

import (
	"fmt"
	"strings"
	"sync"
)

// Report is a single report captured by Recorder.
type Report struct {
	Kind   string
	ID     string
	Params []any
}

func (r Report) String() string {
	return fmt.Sprintf("%s %s %v", r.Kind, r.ID, r.Params)
}

// Recorder is an API that keeps every report in memory, it is meant for tests that need to
// assert a warning or breakage was (or was not) reported.
type Recorder struct {
	mutex   sync.Mutex
	reports []Report
}

func (r *Recorder) add(kind, id string, params []any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, ID: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.add("broken", id, params)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.add("warning", id, params)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.add("debug", msg, params)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.add("count", id, []any{count})
}

// Reports returns the captured reports of a given kind ("broken", "warning", "debug", "count"),
// or all of them if kind is empty.
func (r *Recorder) Reports(kind string) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out []Report
	for _, rep := range r.reports {
		if kind == "" || rep.Kind == kind {
			out = append(out, rep)
		}
	}
	return out
}

// HasWarning reports whether a warning whose id contains `substr` was captured.
func (r *Recorder) HasWarning(substr string) bool {
	for _, rep := range r.Reports("warning") {
		if strings.Contains(rep.ID, substr) {
			return true
		}
	}
	return false
}
