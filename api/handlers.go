package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zero-day-ai/binxgraph/address"
	"github.com/zero-day-ai/binxgraph/analysis"
	"github.com/zero-day-ai/binxgraph/store"
)

// HandleHealth handles GET /v1/health. It answers 503 when the store is
// unreachable.
func (s *Server) HandleHealth(c *gin.Context) {
	status := store.Healthy("no health check configured")
	if s.health != nil {
		status = s.health.Health(c.Request.Context())
	}
	code := http.StatusOK
	if !status.IsHealthy() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, HealthResponse{Status: status.Status, Version: s.version, Store: status})
}

// HandleStats handles GET /v1/stats.
func (s *Server) HandleStats(c *gin.Context) {
	if s.stats == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "statistics are not available", Code: "NOT_FOUND"})
		return
	}
	s.respond(c, func() (any, error) {
		return s.stats.Graph(c.Request.Context())
	})
}

// HandleFunctions handles GET /v1/functions.
func (s *Server) HandleFunctions(c *gin.Context) {
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	s.respond(c, func() (any, error) {
		fns, err := s.analyzer.FindFunctions(c.Request.Context(), analysis.FunctionQuery{
			Pattern: c.Query("pattern"),
			Binary:  c.Query("binary"),
			Limit:   limit,
		})
		if err != nil {
			return nil, err
		}
		return FunctionsResponse{Functions: fns, Count: len(fns)}, nil
	})
}

// HandlePaths handles GET /v1/functions/:name/paths.
func (s *Server) HandlePaths(c *gin.Context) {
	s.handlePaths(c, s.analyzer.CallPaths)
}

// HandleUpward handles GET /v1/functions/:name/upward.
func (s *Server) HandleUpward(c *gin.Context) {
	s.handlePaths(c, s.analyzer.UpwardChains)
}

type pathQuery func(ctx context.Context, function string, depth int) ([]analysis.CallPath, error)

func (s *Server) handlePaths(c *gin.Context, run pathQuery) {
	depth, ok := intQuery(c, "depth")
	if !ok {
		return
	}
	var filter *analysis.PathFilter
	if where := c.Query("where"); where != "" {
		f, err := analysis.CompileFilter(where)
		if err != nil {
			s.fail(c, err)
			return
		}
		filter = f
	}

	s.respond(c, func() (any, error) {
		name := c.Param("name")
		paths, err := run(c.Request.Context(), name, depth)
		if err != nil {
			return nil, err
		}
		if paths, err = filter.Filter(paths); err != nil {
			return nil, err
		}
		if depth == 0 {
			depth = analysis.DefaultDepth
		}
		resp := PathsResponse{Function: name, Depth: depth, Paths: paths, Count: len(paths)}
		if filter != nil {
			resp.Filter = filter.String()
		}
		return resp, nil
	})
}

// HandleSequences handles GET /v1/functions/:name/sequences.
func (s *Server) HandleSequences(c *gin.Context) {
	s.respond(c, func() (any, error) {
		name := c.Param("name")
		seqs, err := s.analyzer.CallSequences(c.Request.Context(), name)
		if err != nil {
			return nil, err
		}
		return SequencesResponse{Function: name, Sequences: seqs}, nil
	})
}

// HandleCallers handles GET /v1/functions/:name/callers.
func (s *Server) HandleCallers(c *gin.Context) {
	s.respond(c, func() (any, error) {
		name := c.Param("name")
		seqs, err := s.analyzer.CallerSequences(c.Request.Context(), name)
		if err != nil {
			return nil, err
		}
		return CallersResponse{Function: name, Callers: seqs}, nil
	})
}

// HandleRecursion handles GET /v1/functions/:name/recursion.
func (s *Server) HandleRecursion(c *gin.Context) {
	s.respond(c, func() (any, error) {
		name := c.Param("name")
		calls, err := s.analyzer.RecursiveCalls(c.Request.Context(), name)
		if err != nil {
			return nil, err
		}
		return RecursionResponse{Function: name, Recursive: calls}, nil
	})
}

// HandleContext handles GET /v1/functions/:name/context.
func (s *Server) HandleContext(c *gin.Context) {
	depth, ok := intQuery(c, "depth")
	if !ok {
		return
	}
	s.respond(c, func() (any, error) {
		return s.analyzer.AnalyzeContext(c.Request.Context(), c.Param("name"), depth)
	})
}

// HandleCallGraph handles GET /v1/functions/:name/callgraph. With
// enhanced=true it returns callees, call paths and call frequencies
// instead of callers and callees.
func (s *Server) HandleCallGraph(c *gin.Context) {
	depth, ok := intQuery(c, "depth")
	if !ok {
		return
	}
	enhanced, err := strconv.ParseBool(c.DefaultQuery("enhanced", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "enhanced must be a boolean", Code: "INVALID_REQUEST"})
		return
	}
	s.respond(c, func() (any, error) {
		if enhanced {
			return s.analyzer.EnhancedCallGraph(c.Request.Context(), c.Param("name"), depth)
		}
		return s.analyzer.CallGraph(c.Request.Context(), c.Param("name"), c.Query("binary"), depth)
	})
}

// HandleBinary handles GET /v1/binaries/:name, matching a hash or a
// filename substring.
func (s *Server) HandleBinary(c *gin.Context) {
	s.respond(c, func() (any, error) {
		return s.analyzer.FindBinary(c.Request.Context(), c.Param("name"))
	})
}

// HandleXrefs handles GET /v1/xrefs/:address.
func (s *Server) HandleXrefs(c *gin.Context) {
	s.respond(c, func() (any, error) {
		raw := c.Param("address")
		xrefs, err := s.analyzer.Xrefs(c.Request.Context(), raw, c.Query("binary"))
		if err != nil {
			return nil, err
		}
		return XrefsResponse{Address: address.NormalizeOr(raw, raw), Xrefs: xrefs}, nil
	})
}

// HandleStrings handles GET /v1/strings.
func (s *Server) HandleStrings(c *gin.Context) {
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	raw, err := strconv.ParseBool(c.DefaultQuery("raw", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "raw must be a boolean", Code: "INVALID_REQUEST"})
		return
	}
	text := c.Query("q")
	if text == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "q is required", Code: "INVALID_REQUEST"})
		return
	}
	s.respond(c, func() (any, error) {
		matches, err := s.analyzer.SearchStrings(c.Request.Context(), analysis.StringQuery{
			Text:       text,
			BinaryHash: c.Query("binary"),
			Raw:        raw,
			Limit:      limit,
		})
		if err != nil {
			return nil, err
		}
		return StringsResponse{Query: text, Matches: matches}, nil
	})
}

// respond serves a cached body for the request URI or runs fn and
// caches its result.
func (s *Server) respond(c *gin.Context, fn func() (any, error)) {
	key := c.Request.URL.RequestURI()
	if s.cache != nil {
		if body, ok := s.cache.Get(key); ok {
			c.Header("X-Cache", "HIT")
			c.JSON(http.StatusOK, body)
			return
		}
	}

	body, err := fn()
	if err != nil {
		s.fail(c, err)
		return
	}
	if s.cache != nil {
		s.cache.Set(key, body)
		c.Header("X-Cache", "MISS")
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) fail(c *gin.Context, err error) {
	code, status := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("query failed", "path", c.Request.URL.Path, "request_id", c.GetString("request_id"), "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func classify(err error) (string, int) {
	switch {
	case errors.Is(err, analysis.ErrFunctionRequired):
		return "FUNCTION_REQUIRED", http.StatusBadRequest
	case errors.Is(err, analysis.ErrInvalidDepth):
		return "INVALID_DEPTH", http.StatusBadRequest
	case errors.Is(err, analysis.ErrInvalidFilter):
		return "INVALID_FILTER", http.StatusBadRequest
	case errors.Is(err, address.ErrUnparseable):
		return "INVALID_ADDRESS", http.StatusBadRequest
	case errors.Is(err, analysis.ErrNotFound):
		return "NOT_FOUND", http.StatusNotFound
	default:
		return "QUERY_FAILED", http.StatusInternalServerError
	}
}

// intQuery parses an optional integer parameter, answering 400 when it is
// malformed. Absent parameters are 0.
func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: name + " must be an integer", Code: "INVALID_REQUEST"})
		return 0, false
	}
	return n, true
}
