package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/core/pipeline"
	"github.com/agenthands/ontograph/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultMaxBodyBytes = 32 << 20

type Server struct {
	Pipeline *pipeline.Pipeline

	metrics  *Metrics
	registry *prometheus.Registry
	log      *logger.Logger
	maxBody  int64
}

// NewServer serves p over HTTP and points its observer at the service metrics.
func NewServer(p *pipeline.Pipeline, log *logger.Logger, maxBodyBytes int64) (*Server, error) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	p.Observer = m
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &Server{
		Pipeline: p,
		metrics:  m,
		registry: reg,
		log:      logger.OrNop(log),
		maxBody:  maxBodyBytes,
	}, nil
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.log.GinMiddleware("/healthz", "/metrics"), s.limitBody)

	r.GET("/healthz", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	r.POST("/ontology/merge", s.MergeOntology)
	r.POST("/ontology/resolve", s.ResolveOntology)
	r.POST("/graph/consolidate", s.ConsolidateGraph)
	r.POST("/graph/export", s.ExportGraph)
	r.POST("/evaluate/structural", s.EvaluateStructural)
	r.POST("/evaluate/accuracy", s.EvaluateAccuracy)

	return r
}

func (s *Server) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody)
	c.Next()
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"reference_kb": s.Pipeline.Evaluator != nil,
		"export":       s.Pipeline.Exporter != nil,
	})
}

// MergeOntologyRequest carries either raw ontology batches, which go
// through the whole ontology stage, or bare names to place.
type MergeOntologyRequest struct {
	Existing json.RawMessage   `json:"existing,omitempty"`
	Names    []string          `json:"names,omitempty"`
	Batches  []json.RawMessage `json:"batches,omitempty"`
}

func (s *Server) MergeOntology(c *gin.Context) {
	var req MergeOntologyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	existing, err := decodeOntology(req.Existing)
	if err != nil {
		s.fail(c, err)
		return
	}

	if len(req.Batches) > 0 {
		o, rep, err := s.Pipeline.BuildOntology(c.Request.Context(), existing, req.Batches)
		if err != nil {
			s.fail(c, err)
			return
		}
		s.metrics.RecordFragments("ontology", rep.Clean.Fragments-rep.Clean.Rejected, rep.Clean.Rejected)
		c.JSON(http.StatusOK, gin.H{"ontology": o, "report": rep})
		return
	}

	o, rep := s.Pipeline.MergeHierarchy(existing, req.Names)
	c.JSON(http.StatusOK, gin.H{"ontology": o, "report": rep})
}

type OntologyRequest struct {
	Ontology json.RawMessage `json:"ontology" binding:"required"`
}

func (s *Server) ResolveOntology(c *gin.Context) {
	var req OntologyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	o, err := decodeOntology(req.Ontology)
	if err != nil {
		s.fail(c, err)
		return
	}
	resolved, rep := s.Pipeline.ResolveProperties(o)
	c.JSON(http.StatusOK, gin.H{"ontology": resolved, "report": rep})
}

type ConsolidateRequest struct {
	Ontology  json.RawMessage   `json:"ontology" binding:"required"`
	Fragments []json.RawMessage `json:"fragments"`
}

func (s *Server) ConsolidateGraph(c *gin.Context) {
	var req ConsolidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	o, err := decodeOntology(req.Ontology)
	if err != nil {
		s.fail(c, err)
		return
	}
	g, rep, err := s.Pipeline.ConsolidateGraph(c.Request.Context(), o, req.Fragments)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.metrics.RecordFragments("graph", rep.Accepted, rep.Rejected)
	c.JSON(http.StatusOK, gin.H{"graph": g, "report": rep})
}

type GraphRequest struct {
	Ontology json.RawMessage       `json:"ontology,omitempty"`
	Graph    *model.KnowledgeGraph `json:"graph" binding:"required"`
	GraphID  string                `json:"graph_id,omitempty"`
	Gold     []model.Triple        `json:"gold_triples,omitempty"`
}

func (s *Server) EvaluateStructural(c *gin.Context) {
	var req GraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	o, err := decodeOntology(req.Ontology)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Pipeline.Structural(req.Graph, o))
}

// EvaluateAccuracy resolves nodes against the reference KB when one is
// configured and scores gold triples when the request carries them.
func (s *Server) EvaluateAccuracy(c *gin.Context) {
	var req GraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	resp := gin.H{}
	if len(req.Gold) > 0 {
		resp["triples"] = s.Pipeline.Triples(req.Gold, req.Graph)
	}
	if s.Pipeline.Evaluator != nil || len(req.Gold) == 0 {
		res, err := s.Pipeline.Accuracy(c.Request.Context(), req.Graph)
		if err != nil {
			s.fail(c, err)
			return
		}
		resp["nodes"] = res
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ExportGraph(c *gin.Context) {
	var req GraphRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.GraphID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	rep, err := s.Pipeline.Export(c.Request.Context(), req.GraphID, req.Graph)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func decodeOntology(raw json.RawMessage) (*model.Ontology, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return model.NewOntology(), nil
	}
	o, _, err := model.DecodeOntology(raw)
	return o, err
}

func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrMalformedFragment):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrEmptyGraph):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrNoReferenceKB), errors.Is(err, pipeline.ErrNoExporter):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
