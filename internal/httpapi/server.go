// Package httpapi exposes the run-submission/status surface over HTTP,
// grounded on the teacher's internal/http/router.SetupRoutes: a gin.Engine,
// one route group per concern, health check first. Unlike the teacher's
// dashboard API it fronts a single operation — submit a run, check its
// status — rather than a full CRUD surface over users/organizations/issues.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"taskforge.dev/engine/common/id"
	"taskforge.dev/engine/internal/ledger"
	"taskforge.dev/engine/internal/queue"
	"taskforge.dev/engine/internal/runstore"
	"github.com/gin-gonic/gin"
)

// Runner executes one orchestration run synchronously. Satisfied by
// *orchestrator.Orchestrator.
type Runner interface {
	Run(ctx context.Context, inputText, traceID string) (*ledger.Ledger, error)
}

// Config selects the server's run-submission mode and auth posture.
type Config struct {
	Async bool // true: enqueue via Producer. false: run inline via Runner.
}

// Server wires the HTTP surface to the run queue/store and (in synchronous
// mode) directly to the orchestrator.
type Server struct {
	producer queue.Producer
	runner   Runner
	runs     *runstore.Store
	auth     *AuthGate
	cfg      Config
}

// New builds a Server. producer may be nil when cfg.Async is false, and
// runner may be nil when cfg.Async is true — exactly one is required,
// mirroring SPEC_FULL.md's two submission modes.
func New(producer queue.Producer, runner Runner, runs *runstore.Store, auth *AuthGate, cfg Config) *Server {
	return &Server{producer: producer, runner: runner, runs: runs, auth: auth, cfg: cfg}
}

// Routes registers the API on a gin.Engine.
func (s *Server) Routes(router *gin.Engine) {
	router.GET("/v1/healthz", s.handleHealthz)

	v1 := router.Group("/v1")
	v1.Use(s.auth.Middleware())
	v1.POST("/runs", s.handleCreateRun)
	v1.GET("/runs/:id", s.handleGetRun)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createRunRequest struct {
	Task    string `json:"task" binding:"required"`
	TraceID string `json:"trace_id"`
}

type createRunResponse struct {
	RunID string `json:"run_id"`
}

func (s *Server) handleCreateRun(c *gin.Context) {
	var req createRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	traceID := req.TraceID
	if traceID == "" {
		traceID = strconv.FormatInt(id.New(), 10)
	}

	if s.cfg.Async {
		task := queue.RunTask{InputText: req.Task, TraceID: traceID, Source: "http"}
		if err := s.producer.Enqueue(c.Request.Context(), task); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("enqueue run: %v", err)})
			return
		}
		c.JSON(http.StatusAccepted, createRunResponse{RunID: traceID})
		return
	}

	start := time.Now()
	if err := s.runs.CreateQueued(c.Request.Context(), traceID, req.Task, "http"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("recording run: %v", err)})
		return
	}

	l, err := s.runner.Run(c.Request.Context(), req.Task, traceID)
	if err != nil {
		_ = s.runs.RecordFailure(c.Request.Context(), traceID, err.Error(), time.Since(start))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "run_id": traceID})
		return
	}
	_ = s.runs.RecordCompletion(c.Request.Context(), traceID, l, time.Since(start))

	c.JSON(http.StatusOK, gin.H{
		"run_id":       traceID,
		"final_output": l.FinalOutput,
		"subtasks":     len(l.Plan),
	})
}

func (s *Server) handleGetRun(c *gin.Context) {
	traceID := c.Param("id")
	rec, err := s.runs.Get(c.Request.Context(), traceID)
	if err != nil {
		if errors.Is(err, runstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}
