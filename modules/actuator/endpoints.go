package actuator

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/wiring"
)

// Endpoint IDs.
const (
	EndpointInfo       = "info"
	EndpointHealth     = "health"
	EndpointEnv        = "env"
	EndpointLoggers    = "loggers"
	EndpointPrometheus = "prometheus"
)

// LevelController is satisfied by the dynamic logging provider. The loggers
// endpoint reads and changes levels through it when it is registered.
type LevelController interface {
	Levels() map[string]core.LevelInfo
	SetLevel(category, level string) error
	ResetLevel(category string)
}

// LoggingServiceName is where the loggers endpoint looks for a
// LevelController.
const LoggingServiceName = "logging.dynamic"

var logLevels = []string{"off", "fatal", "error", "warn", "info", "debug"}

// sensitive key fragments whose values /env masks.
var sensitive = []string{"password", "secret", "key", "token", "credentials"}

const masked = "******"

// NewHandler serves the endpoints in opts under every base path.
func NewHandler(h *host.Host, opts Options) http.Handler {
	mux := http.NewServeMux()
	enabled := make(map[string]bool, len(opts.Endpoints))
	for _, id := range opts.Endpoints {
		enabled[id] = true
	}

	for _, base := range opts.BasePaths {
		e := &endpoints{host: h, opts: opts, base: base, enabled: enabled}
		mux.HandleFunc("GET "+base, e.index)
		if enabled[EndpointInfo] {
			mux.HandleFunc("GET "+base+"/info", e.info)
		}
		if enabled[EndpointHealth] {
			mux.HandleFunc("GET "+base+"/health", e.health)
			mux.HandleFunc("GET "+base+"/health/liveness", e.liveness)
			mux.HandleFunc("GET "+base+"/health/readiness", e.readiness)
			mux.HandleFunc("GET "+base+"/health/{component}", e.component)
		}
		if enabled[EndpointEnv] {
			mux.HandleFunc("GET "+base+"/env", e.env)
		}
		if enabled[EndpointLoggers] {
			mux.HandleFunc("GET "+base+"/loggers", e.loggers)
			mux.HandleFunc("GET "+base+"/loggers/{name}", e.logger)
			mux.HandleFunc("POST "+base+"/loggers/{name}", e.setLogger)
		}
		if enabled[EndpointPrometheus] {
			mux.Handle("GET "+base+"/prometheus", promhttp.HandlerFor(wiring.MetricsRegistry(), promhttp.HandlerOpts{}))
		}
	}
	return corsMiddleware(opts.CORS)(mux)
}

type endpoints struct {
	host    *host.Host
	opts    Options
	base    string
	enabled map[string]bool
}

type link struct {
	Href      string `json:"href"`
	Templated bool   `json:"templated"`
}

func (e *endpoints) index(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	root := scheme + "://" + r.Host + e.base

	links := map[string]link{"self": {Href: root}}
	for _, id := range e.opts.Endpoints {
		links[id] = link{Href: root + "/" + id}
	}
	if e.enabled[EndpointHealth] {
		links["health-path"] = link{Href: root + "/health/{*path}", Templated: true}
	}
	if e.enabled[EndpointLoggers] {
		links["loggers-name"] = link{Href: root + "/loggers/{name}", Templated: true}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"_links": links})
}

func (e *endpoints) info(w http.ResponseWriter, _ *http.Request) {
	settings := e.host.Settings()
	body := map[string]interface{}{
		"app": map[string]interface{}{
			"name":    e.host.Name(),
			"profile": settings.GetString(core.KeyApplicationProfile),
		},
		"framework": map[string]interface{}{"version": core.Version},
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		build := map[string]interface{}{
			"go":     bi.GoVersion,
			"module": bi.Main.Path,
		}
		if bi.Main.Version != "" {
			build["version"] = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				build["revision"] = s.Value
			case "vcs.time":
				build["time"] = s.Value
			}
		}
		body["build"] = build
	}
	for k, v := range settings.Sub("info").AllSettings() {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func (e *endpoints) health(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, id := range e.host.HealthContributors() {
		if id != LivenessID && id != ReadinessID {
			ids = append(ids, id)
		}
	}
	e.writeHealth(w, e.host.HealthOf(r.Context(), ids...))
}

func (e *endpoints) liveness(w http.ResponseWriter, r *http.Request) {
	e.writeHealth(w, e.host.HealthOf(r.Context(), LivenessID))
}

func (e *endpoints) readiness(w http.ResponseWriter, r *http.Request) {
	ids := append([]string{ReadinessID}, e.opts.ReadinessInclude...)
	e.writeHealth(w, e.host.HealthOf(r.Context(), ids...))
}

func (e *endpoints) component(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("component")
	report := e.host.HealthOf(r.Context(), id)
	result, ok := report.Components[id]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown health component "+id)
		return
	}
	writeJSON(w, statusCode(result.Status), result)
}

func (e *endpoints) writeHealth(w http.ResponseWriter, report host.HealthReport) {
	if !e.opts.ShowDetails {
		report.Components = nil
	}
	writeJSON(w, statusCode(report.Status), report)
}

func statusCode(s core.HealthStatus) int {
	switch s {
	case core.HealthUnhealthy, core.HealthOutOfService:
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func (e *endpoints) env(w http.ResponseWriter, _ *http.Request) {
	settings := e.host.Settings()
	flat := settings.Flat()
	properties := make(map[string]interface{}, len(flat))
	for k, v := range flat {
		if isSensitive(k) {
			v = masked
		}
		properties[k] = map[string]interface{}{"value": v}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active_profiles": []string{settings.GetString(core.KeyApplicationProfile)},
		"property_sources": []map[string]interface{}{{
			"name":       "merged",
			"properties": properties,
		}},
	})
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	if strings.HasPrefix(key, "vcap.services.") {
		return true
	}
	last := key[strings.LastIndexByte(key, '.')+1:]
	for _, s := range sensitive {
		if strings.Contains(last, s) {
			return true
		}
	}
	return false
}

func (e *endpoints) controller(r *http.Request) LevelController {
	if !e.host.Services().Has(LoggingServiceName) {
		return nil
	}
	c, err := host.Resolve[LevelController](r.Context(), e.host.Services(), LoggingServiceName)
	if err != nil {
		e.host.Logger().Warn("Dynamic logging provider unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return c
}

func (e *endpoints) loggers(w http.ResponseWriter, r *http.Request) {
	levels := map[string]core.LevelInfo{}
	if c := e.controller(r); c != nil {
		levels = c.Levels()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"levels":  logLevels,
		"loggers": levels,
	})
}

func (e *endpoints) logger(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(r.PathValue("name"))
	c := e.controller(r)
	if c == nil {
		writeError(w, http.StatusNotFound, "dynamic logging is not enabled")
		return
	}
	info, ok := c.Levels()[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown logger "+name)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (e *endpoints) setLogger(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	c := e.controller(r)
	if c == nil {
		writeError(w, http.StatusNotFound, "dynamic logging is not enabled")
		return
	}

	var req struct {
		ConfiguredLevel *string `json:"configured_level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.ConfiguredLevel == nil || *req.ConfiguredLevel == "" {
		c.ResetLevel(name)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := c.SetLevel(name, *req.ConfiguredLevel); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrInvalidConfiguration) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	e.host.Logger().Info("Logger level changed", map[string]interface{}{
		"logger": name,
		"level":  *req.ConfiguredLevel,
	})
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sortedEndpoints returns ids without duplicates, sorted.
func sortedEndpoints(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
