// Package api serves the anchor registries over HTTP and, optionally, a local
// model directory in the hub resolve layout.
package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samcharles93/intervene/internal/anchor"
	"github.com/samcharles93/intervene/internal/hfconfig"
	"github.com/samcharles93/intervene/internal/logger"
	"github.com/samcharles93/intervene/internal/metrics"
	"github.com/samcharles93/intervene/internal/models"
	"github.com/samcharles93/intervene/internal/models/qwen"
)

type Options struct {
	// Config sizes anchors and dimensions when set.
	Config *hfconfig.Config
	// Model is the default model_type for requests without ?model=.
	Model string
	// MirrorDir, when set, is served under /:org/:repo/resolve/:revision/*.
	MirrorDir string
	Logger    logger.Logger
}

type Server struct {
	config    *hfconfig.Config
	model     string
	mirrorDir string
	log       logger.Logger
}

func NewServer(opts Options) *Server {
	s := &Server{
		config:    opts.Config,
		model:     opts.Model,
		mirrorDir: opts.MirrorDir,
		log:       opts.Logger,
	}
	if s.model == "" {
		s.model = qwen.ModelType
		if opts.Config != nil && opts.Config.ModelType != "" {
			if r, _, err := models.Detect(opts.Config); err == nil {
				s.model = r.Model()
			}
		}
	}
	if s.log == nil {
		s.log = logger.Default()
	}
	return s
}

// Echo returns an echo instance with the standard middleware and every route
// registered.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.Use(requestID)
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	s.Register(e)
	return e
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", handleMetrics)

	e.GET("/v1/variants", s.handleVariants)
	e.GET("/v1/anchors/:variant", s.handleAnchors)
	e.GET("/v1/anchors/:variant/:name", s.handleAnchor)
	e.GET("/v1/dimensions", s.handleDimensions)

	if s.mirrorDir != "" {
		e.GET("/:org/:repo/resolve/:revision/*", s.handleMirror)
	}
}

// requestID tags every response with an X-Request-Id, keeping one supplied
// by the client.
func requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := c.Request().Header.Get(echo.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, id)
		return next(c)
	}
}

func handleMetrics(c *echo.Context) error {
	promhttp.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}

func (s *Server) handleHealth(c *echo.Context) error {
	return writeJSON(c, "healthz", http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) registry(c *echo.Context) (*anchor.Registry, error) {
	name := c.QueryParam("model")
	if name == "" {
		name = s.model
	}
	return models.Lookup(name)
}

// attrs returns the loaded config as an AttrSource, or a nil interface when
// no config is loaded.
func (s *Server) attrs() anchor.AttrSource {
	if s.config == nil {
		return nil
	}
	return s.config
}

type variantInfo struct {
	Name    anchor.Variant `json:"name"`
	Table   string         `json:"table"`
	Anchors int            `json:"anchors"`
}

func (s *Server) handleVariants(c *echo.Context) error {
	const route = "variants"
	r, err := s.registry(c)
	if err != nil {
		return writeFailure(c, route, err)
	}
	out := make([]variantInfo, 0, len(anchor.Variants()))
	for _, v := range anchor.Variants() {
		p, err := r.Pair(v)
		if err != nil {
			return writeFailure(c, route, err)
		}
		out = append(out, variantInfo{Name: v, Table: p.Anchors.Name(), Anchors: p.Anchors.Len()})
	}
	return writeJSON(c, route, http.StatusOK, map[string]any{
		"model":    r.Model(),
		"families": models.Families(),
		"variants": out,
	})
}

func (s *Server) pair(c *echo.Context) (*anchor.Registry, anchor.Variant, anchor.Pair, error) {
	r, err := s.registry(c)
	if err != nil {
		return nil, "", anchor.Pair{}, err
	}
	v, err := anchor.ParseVariant(c.Param("variant"))
	if err != nil {
		return nil, "", anchor.Pair{}, newInvalidRequest(err.Error())
	}
	p, err := r.Pair(v)
	if err != nil {
		return nil, "", anchor.Pair{}, err
	}
	return r, v, p, nil
}

func (s *Server) handleAnchors(c *echo.Context) error {
	const route = "anchors"
	r, v, p, err := s.pair(c)
	if err != nil {
		return writeFailure(c, route, err)
	}
	return writeJSON(c, route, http.StatusOK, map[string]any{
		"model":   r.Model(),
		"variant": v,
		"anchors": p.Anchors.Entries(),
	})
}

func (s *Server) handleAnchor(c *echo.Context) error {
	const route = "anchor"
	r, v, _, err := s.pair(c)
	if err != nil {
		return writeFailure(c, route, err)
	}
	layer := 0
	if q := c.QueryParam("layer"); q != "" {
		layer, err = strconv.Atoi(q)
		if err != nil || layer < 0 {
			return writeFailure(c, route, newInvalidRequest("layer must be a non-negative integer"))
		}
	}
	if s.config != nil && s.config.NumHiddenLayers > 0 && layer >= s.config.NumHiddenLayers {
		return writeFailure(c, route, newInvalidRequest("layer "+strconv.Itoa(layer)+" out of range"))
	}

	name := c.Param("name")
	res, err := r.Describe(v, name, layer, s.attrs())
	if err != nil {
		metrics.AnchorLookups.WithLabelValues(r.Model()+"/"+string(v), metrics.OutcomeError).Inc()
		return writeFailure(c, route, err)
	}
	metrics.AnchorLookups.WithLabelValues(r.Model()+"/"+string(v), metrics.OutcomeOK).Inc()
	return writeJSON(c, route, http.StatusOK, res)
}

type dimensionInfo struct {
	anchor.DimensionEntry
	Value int `json:"value,omitempty"`
}

func (s *Server) handleDimensions(c *echo.Context) error {
	const route = "dimensions"
	r, err := s.registry(c)
	if err != nil {
		return writeFailure(c, route, err)
	}
	p, err := r.Pair(anchor.VariantBase)
	if err != nil {
		return writeFailure(c, route, err)
	}
	src := s.attrs()
	out := make([]dimensionInfo, 0, p.Dims.Len())
	for _, e := range p.Dims.Entries() {
		info := dimensionInfo{DimensionEntry: e}
		if src != nil {
			if n, err := p.Dims.Resolve(e.Name, src); err == nil {
				info.Value = n
			}
		}
		out = append(out, info)
	}
	return writeJSON(c, route, http.StatusOK, map[string]any{
		"model":      r.Model(),
		"dimensions": out,
	})
}
