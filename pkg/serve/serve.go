// Package serve exposes the runs of a trace directory over HTTP. Each
// request rescans the run's trace and unions the result with the graph last
// returned for that run, so a polling client never sees nodes disappear.
package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/eval"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/graph"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/trace"
	"github.com/ormasoftchile/flowgraph/pkg/present"
)

// ErrRunNotFound is returned when no trace file carries the requested run id.
var ErrRunNotFound = errors.New("run not found")

// traceExts lists the file extensions treated as traces, in lookup order.
var traceExts = []string{".jsonl", ".yaml", ".yml", ".json"}

// Option configures a Server.
type Option func(*Server)

// WithGraphOptions passes options to every scan.
func WithGraphOptions(opts ...graph.Option) Option {
	return func(s *Server) { s.graphOpts = append(s.graphOpts, opts...) }
}

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// Server serves the runs found in one directory.
type Server struct {
	dir       string
	graphOpts []graph.Option
	log       *slog.Logger
	app       *fiber.App

	mu   sync.Mutex
	last map[string]shown // last graph returned per run
}

// shown is the graph last returned for a run and the start time of the
// execution it came from.
type shown struct {
	startMillis int64
	graph       *graph.Graph
}

// New creates a server over the trace files in dir.
func New(dir string, opts ...Option) *Server {
	s := &Server{
		dir:  dir,
		log:  slog.Default(),
		last: make(map[string]shown),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.app = fiber.New()
	s.routes()
	return s
}

// App returns the fiber application, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until ctx is cancelled.
func (s *Server) Listen(ctx context.Context, addr string) error {
	go func() {
		<-ctx.Done()
		if err := s.app.Shutdown(); err != nil {
			s.log.Error("shutdown", "error", err)
		}
	}()
	s.log.Info("serving traces", "dir", s.dir, "addr", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

func (s *Server) routes() {
	s.app.Use(s.logRequests)

	s.app.Get("/schema", s.handleSchema)
	s.app.Get("/runs", s.handleRuns)
	s.app.Get("/runs/:run/nodes", s.handleNodes)
	s.app.Get("/runs/:run/nodes/:node", s.handleNode)
	s.app.Get("/runs/:run/nodes/:node/steps", s.handleNodeSteps)
	s.app.Get("/runs/:run/steps", s.handleSteps)
	s.app.Get("/runs/:run/steps/:step", s.handleStep)
}

func (s *Server) logRequests(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start))
	return err
}

// ── Handlers ──────────────────────────────────────────────────────────

func (s *Server) handleSchema(c fiber.Ctx) error {
	data, err := flow.GenerateJSONSchema()
	if err != nil {
		return fail(c, 500, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

func (s *Server) handleRuns(c fiber.Ctx) error {
	runs, err := s.listRuns()
	if err != nil {
		return fail(c, 500, err)
	}
	views := make([]present.RunView, 0, len(runs))
	for _, r := range runs {
		views = append(views, present.RunView{
			ID:       r.ID,
			Name:     r.Name,
			Result:   r.Result,
			Building: r.Building,
			Links: present.Links{
				"self":  {Href: "/runs/" + r.ID},
				"nodes": {Href: "/runs/" + r.ID + "/nodes"},
				"steps": {Href: "/runs/" + r.ID + "/steps"},
			},
		})
	}
	return c.JSON(views)
}

func (s *Server) handleNodes(c fiber.Ctx) error {
	filter, err := eval.Compile(c.Query("where"))
	if err != nil {
		return fail(c, 400, err)
	}
	future := false
	if q := c.Query("future"); q != "" {
		if future, err = strconv.ParseBool(q); err != nil {
			return fail(c, 400, fmt.Errorf("future: %w", err))
		}
	}

	runID := c.Params("run")
	b, err := s.scan(runID)
	if err != nil {
		return s.runError(c, err)
	}
	g := s.remember(runID, b)
	if future {
		if ghost := s.lastCompleted(b.Execution()); ghost != nil {
			g = graph.Union(g, graph.Placeholders(ghost))
		}
	}
	nodes, err := filter.Apply(g.Nodes())
	if err != nil {
		return fail(c, 400, err)
	}
	return c.JSON(present.Nodes(paths(runID), g, nodes))
}

func (s *Server) handleNode(c fiber.Ctx) error {
	runID := c.Params("run")
	b, err := s.scan(runID)
	if err != nil {
		return s.runError(c, err)
	}
	g := s.remember(runID, b)
	n := g.NodeByID(c.Params("node"))
	if n == nil {
		return fail(c, 404, flow.ErrNodeNotFound)
	}
	return c.JSON(present.Node(paths(runID), g, n))
}

func (s *Server) handleNodeSteps(c fiber.Ctx) error {
	runID := c.Params("run")
	b, err := s.scan(runID)
	if err != nil {
		return s.runError(c, err)
	}
	nodeID := c.Params("node")
	if b.NodeByID(nodeID) == nil {
		return fail(c, 404, flow.ErrNodeNotFound)
	}
	return c.JSON(present.Steps(paths(runID), b.Steps(nodeID)))
}

func (s *Server) handleSteps(c fiber.Ctx) error {
	runID := c.Params("run")
	b, err := s.scan(runID)
	if err != nil {
		return s.runError(c, err)
	}
	return c.JSON(present.Steps(paths(runID), b.AllSteps()))
}

func (s *Server) handleStep(c fiber.Ctx) error {
	runID := c.Params("run")
	b, err := s.scan(runID)
	if err != nil {
		return s.runError(c, err)
	}
	step := b.StepByID(c.Params("step"))
	if step == nil {
		return fail(c, 404, fmt.Errorf("step %s: %w", c.Params("step"), flow.ErrNodeNotFound))
	}
	return c.JSON(present.Step(paths(runID), step))
}

// ── Runs ──────────────────────────────────────────────────────────────

// remember unions the fresh graph with the one last returned for the run
// and stores the result. A trace replaced by another execution starts over.
func (s *Server) remember(runID string, b *graph.Builder) *graph.Graph {
	start := b.Execution().StartMillis
	s.mu.Lock()
	defer s.mu.Unlock()
	var prev *graph.Graph
	if last, ok := s.last[runID]; ok && last.startMillis == start {
		prev = last.graph
	} else if ok {
		s.log.Debug("run replaced, dropping cached graph", "run", runID)
	}
	g := graph.Union(b.Graph(), prev)
	s.last[runID] = shown{startMillis: start, graph: g}
	return g
}

func (s *Server) scan(runID string) (*graph.Builder, error) {
	exec, err := s.loadRun(runID)
	if err != nil {
		return nil, err
	}
	return graph.Build(exec, s.graphOpts...), nil
}

func (s *Server) loadRun(runID string) (*flow.Execution, error) {
	if runID == "" || strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return nil, fmt.Errorf("%q: %w", runID, ErrRunNotFound)
	}
	for _, ext := range traceExts {
		path := filepath.Join(s.dir, runID+ext)
		if _, err := os.Stat(path); err == nil {
			exec, err := trace.LoadFile(path)
			if err != nil {
				return nil, fmt.Errorf("load run %s: %w", runID, err)
			}
			exec.ID = runID
			return exec, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
}

// listRuns loads every trace in the directory, newest first.
func (s *Server) listRuns() ([]*flow.Execution, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read trace directory: %w", err)
	}
	seen := make(map[string]bool)
	var runs []*flow.Execution
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || !isTraceExt(ext) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ext)
		if seen[id] {
			continue
		}
		seen[id] = true
		exec, err := s.loadRun(id)
		if err != nil {
			s.log.Warn("skipping unreadable trace", "file", e.Name(), "error", err)
			continue
		}
		runs = append(runs, exec)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartMillis > runs[j].StartMillis
	})
	return runs, nil
}

// lastCompleted returns the graph of the most recent finished run with the
// same name, or nil.
func (s *Server) lastCompleted(exec *flow.Execution) *graph.Graph {
	runs, err := s.listRuns()
	if err != nil {
		s.log.Warn("list runs", "error", err)
		return nil
	}
	for _, r := range runs {
		if r.ID == exec.ID || r.Building || r.Name != exec.Name {
			continue
		}
		return graph.Build(r, s.graphOpts...).Graph()
	}
	return nil
}

func isTraceExt(ext string) bool {
	for _, e := range traceExts {
		if e == ext {
			return true
		}
	}
	return false
}

func paths(runID string) present.Paths {
	return present.Paths{Base: "/runs/" + runID}
}

func (s *Server) runError(c fiber.Ctx, err error) error {
	if errors.Is(err, ErrRunNotFound) {
		return fail(c, 404, err)
	}
	s.log.Error("load run", "run", c.Params("run"), "error", err)
	return fail(c, 500, err)
}

func fail(c fiber.Ctx, code int, err error) error {
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
