package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/rednhax/varman/pkg/catalog"
	"github.com/rednhax/varman/pkg/config"
	"github.com/rednhax/varman/pkg/depgraph"
	verrors "github.com/rednhax/varman/pkg/errors"
	"github.com/rednhax/varman/pkg/hub"
	"github.com/rednhax/varman/pkg/library"
	"github.com/rednhax/varman/pkg/local"
	"github.com/rednhax/varman/pkg/pkgid"
)

// serveCommand creates the serve command exposing the engine over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the library API over HTTP",
		Long: `Serve the library API over HTTP.

Endpoints:
  GET  /healthz                 liveness probe
  GET  /api/graph/{package}     dependency graph as JSON (mode, depth params)
  GET  /api/status              streaming evaluation results as NDJSON (query, page params)
  POST /api/rescan              rescan the package folders`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "listen address")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	client, err := c.newHub(cfg, false)
	if err != nil {
		return err
	}

	srv := &server{cli: c, cfg: cfg, hub: client}
	if err := srv.rescan(); err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	printInfo("Listening on %s", addr)
	if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// server is the HTTP facade over the library engine. The metadata view is
// rebuilt by rescan and swapped atomically; handlers read the snapshot
// current at request time.
type server struct {
	cli *CLI
	cfg *config.Config
	hub *hub.Client

	library atomic.Pointer[libraryState]
}

// libraryState is one immutable scan result.
type libraryState struct {
	packages []local.Package
	store    *catalog.Store
	meta     *local.Metadata
}

func (s *server) rescan() error {
	pkgs, store, err := s.cli.scanLibrary(s.cfg)
	if err != nil {
		return err
	}
	s.library.Store(&libraryState{
		packages: pkgs,
		store:    store,
		meta:     local.BuildMetadata(pkgs, s.cli.Logger),
	})
	return nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(withLogger(req.Context(), s.cli.Logger)))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/api/graph/{package}", s.handleGraph)
	r.Get("/api/status", s.handleStatus)
	r.Post("/api/rescan", s.handleRescan)

	return r
}

func (s *server) handleGraph(w http.ResponseWriter, r *http.Request) {
	mode, err := parseMode(queryDefault(r, "mode", "deps"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	depth := 3
	if d := r.URL.Query().Get("depth"); d != "" {
		depth, err = parsePositiveInt("depth", d)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	lib := s.library.Load()
	root := pkgid.Normalize(chi.URLParam(r, "package"))
	rootDeps, _ := lib.meta.DeclaredDeps(root)
	loggerFromContext(r.Context()).Debugf("graph request: %s mode=%v depth=%d", root.Canonical(), mode, depth)

	builder := depgraph.Builder{
		Mode:       mode,
		MaxDepth:   depth,
		Metadata:   lib.meta.DeclaredDeps,
		Dependents: lib.meta.Dependents,
	}
	g := builder.Build(root, rootDeps)

	w.Header().Set("Content-Type", "application/json")
	_ = depgraph.WriteGraph(g, w)
}

// handleStatus streams evaluation results as NDJSON, one object per line,
// flushed as each evaluation completes.
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		var err error
		page, err = parsePositiveInt("page", p)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	if err := s.hub.LoadIndex(ctx); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	result, err := s.hub.Search(ctx, hub.SearchParams{Query: r.URL.Query().Get("query"), Page: page})
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	sched := &library.Scheduler{
		Evaluator: &library.Evaluator{
			Local:   s.library.Load().store,
			Remote:  s.hub,
			Details: s.hub,
			Logger:  s.cli.Logger,
		},
		Concurrency:  s.cfg.Scheduler.Concurrency,
		InitialDelay: -1, // HTTP consumers want results immediately
		Logger:       s.cli.Logger,
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	for res := range sched.Schedule(ctx, result.Resources) {
		line := statusLine{
			ID:              res.Resource.ID,
			Name:            res.Resource.Name,
			InLibrary:       res.Status.InLibrary,
			UpdateAvailable: res.Status.UpdateAvailable,
			BatchID:         res.BatchID,
		}
		if err := enc.Encode(line); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *server) handleRescan(w http.ResponseWriter, _ *http.Request) {
	if err := s.rescan(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"packages": len(s.library.Load().packages)})
}

// statusLine is one NDJSON record of the status stream.
type statusLine struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	InLibrary       bool   `json:"in_library"`
	UpdateAvailable bool   `json:"update_available"`
	BatchID         string `json:"batch_id"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": verrors.UserMessage(err),
		"code":  string(verrors.GetCode(err)),
	})
}

func queryDefault(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}

func parsePositiveInt(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, verrors.New(verrors.ErrCodeInvalidInput, "%s must be a positive integer", name)
	}
	return n, nil
}
