package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof" // register handlers
	"regexp"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zephyrtronium/bouncer/registry"
)

func (b *Bouncer) api(ctx context.Context, listen string, mux *http.ServeMux, metrics []prometheus.Collector) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(
		collectors.WithGoCollectorMemStatsMetricsDisabled(),
		collectors.WithGoCollectorRuntimeMetrics(
			collectors.GoRuntimeMetricsRule{
				Matcher: regexp.MustCompile(`^(/gc/gogc:percent|/gc/gomemlimit:bytes|/gc/heap/allocs:bytes|/gc/heap/goal:bytes|/memory/classes/total:bytes|/sched/goroutines:goroutines|/sched/latencies:seconds)$`),
			},
		),
	))
	reg.MustRegister(metrics...)
	opts := promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}
	mux.HandleFunc("GET /{$}", b.apiAlive)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, opts))
	mux.HandleFunc("GET /debug/pprof/", pprof.Index)
	mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("GET /api/registry/{name}", b.apiRegistry)
	l, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("couldn't start API server: %w", err)
	}
	srv := http.Server{
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
		BaseContext: func(l net.Listener) context.Context { return ctx },
	}
	go func() {
		slog.InfoContext(ctx, "HTTP API server", slog.Any("addr", l.Addr()))
		err := srv.Serve(l)
		if err == http.ErrServerClosed {
			return
		}
		slog.ErrorContext(ctx, "HTTP API server closed", slog.Any("err", err))
	}()
	<-ctx.Done()
	// The context is now done, so it is obviously the wrong choice for
	// managing the shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func jsonerror(w http.ResponseWriter, status int, msg string) {
	v := struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}{
		Error:  msg,
		Status: status,
	}
	b, err := json.Marshal(&v)
	if err != nil {
		panic(err)
	}
	w.WriteHeader(status)
	w.Write(b)
}

// apiAlive answers keep-alive pings from hosting platforms.
func (b *Bouncer) apiAlive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "bouncer is running\nowner: %s %s\n", b.owner, b.ownerContact)
}

func (b *Bouncer) apiRegistry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slog.With(slog.String("api", "registry"), slog.Any("trace", uuid.New()))
	log.InfoContext(ctx, "handle", slog.String("route", r.Pattern), slog.String("remote", r.RemoteAddr))
	defer log.InfoContext(ctx, "done")
	w.Header().Set("Content-Type", "application/json")
	name := r.PathValue("name")
	if _, ok := registry.KindOf(name); !ok {
		log.WarnContext(ctx, "no such collection", slog.String("name", name))
		jsonerror(w, http.StatusNotFound, "no such collection")
		return
	}
	var l *registry.Collection
	for _, c := range b.registry.Snapshot() {
		if c.Name == name {
			l = c
			break
		}
	}
	u := collectionJSON(l)
	u.Status = http.StatusOK
	out, err := json.Marshal(&u)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(out); err != nil {
		log.ErrorContext(ctx, "write response failed", slog.Any("err", err))
	}
}

// apiCollection is the JSON form of a collection.
type apiCollection struct {
	Name   string          `json:"name"`
	Kind   string          `json:"kind"`
	IDs    []string        `json:"ids,omitempty"`
	Pairs  []registry.Pair `json:"pairs,omitempty"`
	Status int             `json:"status,omitzero"`
}

func collectionJSON(l *registry.Collection) apiCollection {
	return apiCollection{
		Name:  l.Name,
		Kind:  l.Kind.String(),
		IDs:   l.IDs,
		Pairs: l.Pairs,
	}
}
