// Package server exposes runs over HTTP: a JSON API for starting and
// inspecting runs, and an MCP endpoint so other agents can call the engine
// as a tool.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"taskweave/store"
	"taskweave/workflow"
)

const defaultPageSize = 20

// Server holds the dependencies of the HTTP API.
type Server struct {
	echo   *echo.Echo
	runner *workflow.Runner
	runs   store.RunStore
	logger hclog.Logger
	mcp    *mcpserver.MCPServer
}

// New builds the server and registers its routes.
func New(runner *workflow.Runner, runs store.RunStore, version string, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{
		echo:   e,
		runner: runner,
		runs:   runs,
		logger: logger.Named("server"),
	}
	s.mcp = newMCPServer(s, version)

	e.GET("/healthz", s.Health)

	api := e.Group("/api/v1")
	api.GET("/solvers", s.ListSolvers)
	api.POST("/runs", s.CreateRun)
	api.GET("/runs", s.ListRuns)
	api.GET("/runs/:id", s.GetRun)
	api.GET("/runs/:id/events", s.GetEvents)

	sse := mcpserver.NewSSEServer(s.mcp, mcpserver.WithStaticBasePath("/mcp"))
	e.Any("/mcp/*", echo.WrapHandler(sse))

	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("listening", "address", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Health reports liveness
// (GET /healthz)
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// SolverInfo is the API form of a registered solver.
type SolverInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Input       any    `json:"input"`
	Output      any    `json:"output"`
}

// ListSolvers returns the registry
// (GET /api/v1/solvers)
func (s *Server) ListSolvers(c echo.Context) error {
	list := s.runner.Executor().Solvers()
	out := make([]SolverInfo, 0, len(list))
	for _, sv := range list {
		out = append(out, SolverInfo{
			Name:        sv.Name(),
			Description: sv.Description(),
			Version:     sv.Version(),
			Input:       sv.InputSchema(),
			Output:      sv.OutputSchema(),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// CreateRunRequest is the body of POST /api/v1/runs.
type CreateRunRequest struct {
	Request string `json:"request"`
}

// CreateRunResponse carries the stored run id with the full report.
type CreateRunResponse struct {
	RunID  string          `json:"runId"`
	Report workflow.Report `json:"report"`
}

// CreateRun executes a request synchronously
// (POST /api/v1/runs)
func (s *Server) CreateRun(c echo.Context) error {
	var body CreateRunRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if body.Request == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "request must not be empty")
	}

	id, state, err := s.runner.Run(c.Request().Context(), body.Request, nil)
	if state == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, CreateRunResponse{RunID: id, Report: workflow.NewReport(state, err)})
}

// ListRunsResponse is one page of runs.
type ListRunsResponse struct {
	Runs  []store.RunInfo `json:"runs"`
	Total int             `json:"total"`
}

// ListRuns returns runs newest first
// (GET /api/v1/runs?limit=&offset=)
func (s *Server) ListRuns(c echo.Context) error {
	limit, offset, err := pageParams(c)
	if err != nil {
		return err
	}
	runs, total, err := s.runs.ListRuns(limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ListRunsResponse{Runs: runs, Total: total})
}

// RunDetail is a run with its steps.
type RunDetail struct {
	Run   *store.RunInfo     `json:"run"`
	Steps []store.StepRecord `json:"steps"`
}

// GetRun returns one run and its steps
// (GET /api/v1/runs/:id)
func (s *Server) GetRun(c echo.Context) error {
	id := c.Param("id")
	run, err := s.runs.GetRun(id)
	if errors.Is(err, store.ErrRunNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "run not found: "+id)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	steps, err := s.runs.GetSteps(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, RunDetail{Run: run, Steps: steps})
}

// GetEvents returns the progress events of a run
// (GET /api/v1/runs/:id/events?limit=&offset=)
func (s *Server) GetEvents(c echo.Context) error {
	id := c.Param("id")
	if _, err := s.runs.GetRun(id); errors.Is(err, store.ErrRunNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "run not found: "+id)
	}
	limit, offset, err := pageParams(c)
	if err != nil {
		return err
	}
	events, err := s.runs.GetEvents(id, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, events)
}

func pageParams(c echo.Context) (int, int, error) {
	limit, offset := defaultPageSize, 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid limit: "+v)
		}
		limit = n
	}
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid offset: "+v)
		}
		offset = n
	}
	return limit, offset, nil
}
