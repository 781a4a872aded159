package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

const defaultCheckTimeout = 2 * time.Second

// ReadyCheck is a named dependency check for /readyz. Timeout defaults to
// two seconds.
type ReadyCheck struct {
	Name    string
	Check   func(context.Context) error
	Timeout time.Duration
}

// Readiness is the /readyz response body. Checks maps each dependency name
// to "ok" or its error text.
type Readiness struct {
	Service string            `json:"service"`
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// NewBaseMux returns a mux with /healthz and /readyz mounted. Readiness runs
// every check concurrently and answers 503 when any of them fails.
func NewBaseMux(service string, checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		report := Readiness{Service: service, Status: "ready"}
		results := runChecks(r.Context(), checks)
		if len(results) > 0 {
			report.Checks = results
		}
		status := http.StatusOK
		for _, res := range results {
			if res != "ok" {
				report.Status = "unavailable"
				status = http.StatusServiceUnavailable
				break
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(report)
	})
	return mux
}

func runChecks(ctx context.Context, checks []ReadyCheck) map[string]string {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(checks))
	)
	for _, check := range checks {
		if check.Check == nil {
			continue
		}
		name := check.Name
		if name == "" {
			name = "dependency"
		}
		timeout := check.Timeout
		if timeout <= 0 {
			timeout = defaultCheckTimeout
		}
		wg.Add(1)
		go func(name string, fn func(context.Context) error) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			res := "ok"
			if err := fn(cctx); err != nil {
				res = err.Error()
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}(name, check.Check)
	}
	wg.Wait()
	return results
}
