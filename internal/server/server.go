// Package server exposes the transaction builder over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityBuilder/internal/model"
	"liquidityBuilder/internal/pipeline"
)

// Runner builds transactions. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, req *pipeline.Request) (*model.Response, error)
	StakeBalance(ctx context.Context, holder common.Address) (*model.BalanceResponse, error)
}

// Options configures the HTTP surface.
type Options struct {
	// SwapSlippage applies when a swap request omits slippage.
	SwapSlippage   decimal.Decimal
	RateLimitRPM   int
	RateLimitBurst int
	// JWTSecret enables bearer auth on routes that sign permits.
	JWTSecret string
	Metrics   *Metrics
	Logger    *zap.Logger
}

// Server routes HTTP requests into a Runner.
type Server struct {
	runner  Runner
	opts    Options
	metrics *Metrics
	logger  *zap.Logger
	router  http.Handler
}

func New(runner Runner, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	s := &Server{
		runner:  runner,
		opts:    opts,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	s.router = s.buildRouter()
	return s
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

var addRoutes = []liquidityRoute{
	{path: "/v2/unbalanced", action: pipeline.ActionAdd, operation: pipeline.OpUnbalanced, family: pipeline.FamilyV2},
	{path: "/v2/proportional", action: pipeline.ActionAdd, operation: pipeline.OpProportional, family: pipeline.FamilyV2, single: "referenceAmount"},
	{path: "/v2/single-token", action: pipeline.ActionAdd, operation: pipeline.OpSingleTokenExactOut, family: pipeline.FamilyV2, single: "bptOut", token: "tokenIn"},
	{path: "/v3/unbalanced", action: pipeline.ActionAdd, operation: pipeline.OpUnbalanced, family: pipeline.FamilyV3},
	{path: "/v3/proportional", action: pipeline.ActionAdd, operation: pipeline.OpProportional, family: pipeline.FamilyV3, single: "referenceAmount"},
	{path: "/v3/single-token", action: pipeline.ActionAdd, operation: pipeline.OpSingleTokenExactOut, family: pipeline.FamilyV3, single: "bptOut", token: "tokenIn"},
	{path: "/v3/boosted/unbalanced", action: pipeline.ActionAdd, operation: pipeline.OpBoostedUnbalanced, family: pipeline.FamilyV3},
	{path: "/v3/boosted/proportional", action: pipeline.ActionAdd, operation: pipeline.OpBoostedProportional, family: pipeline.FamilyV3, single: "referenceAmount"},
}

var removeRoutes = []liquidityRoute{
	{path: "/v2/proportional", action: pipeline.ActionRemove, operation: pipeline.OpProportional, family: pipeline.FamilyV2, single: "bptIn"},
	{path: "/v2/single-token-exact-in", action: pipeline.ActionRemove, operation: pipeline.OpSingleTokenExactIn, family: pipeline.FamilyV2, single: "bptIn", token: "tokenOut"},
	{path: "/v2/single-token-exact-out", action: pipeline.ActionRemove, operation: pipeline.OpSingleTokenExactOut, family: pipeline.FamilyV2, single: "amountOut"},
	{path: "/v2/unbalanced", action: pipeline.ActionRemove, operation: pipeline.OpUnbalanced, family: pipeline.FamilyV2},
	{path: "/v3/proportional", action: pipeline.ActionRemove, operation: pipeline.OpProportional, family: pipeline.FamilyV3, single: "bptIn"},
	{path: "/v3/single-token-exact-in", action: pipeline.ActionRemove, operation: pipeline.OpSingleTokenExactIn, family: pipeline.FamilyV3, single: "bptIn", token: "tokenOut"},
	{path: "/v3/single-token-exact-out", action: pipeline.ActionRemove, operation: pipeline.OpSingleTokenExactOut, family: pipeline.FamilyV3, single: "amountOut"},
	{path: "/v3/boosted/proportional", action: pipeline.ActionRemove, operation: pipeline.OpBoostedProportional, family: pipeline.FamilyV3, single: "bptIn"},
}

func (s *Server) buildRouter() http.Handler {
	auth := newAuthenticator(s.opts.JWTSecret, s.logger)

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog(s.logger))
	r.Use(s.metrics.Middleware)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		if s.opts.RateLimitRPM > 0 {
			api.Use(newRateLimiter(s.opts.RateLimitRPM, s.opts.RateLimitBurst).Middleware)
		}
		api.Route("/add-liquidity", func(sr chi.Router) {
			s.mountLiquidity(sr, addRoutes, auth)
		})
		api.Route("/remove-liquidity", func(sr chi.Router) {
			s.mountLiquidity(sr, removeRoutes, auth)
		})
		// the quote decides the family, so any swap may end in a signed permit
		api.With(auth.Middleware).Post("/swap", s.swap)
		api.Route("/stake", func(sr chi.Router) {
			sr.Post("/deposit", s.stake(pipeline.OpStakeDeposit))
			sr.Post("/undelegate", s.stake(pipeline.OpStakeUndelegate))
			sr.Post("/withdraw", s.stake(pipeline.OpStakeWithdraw))
			sr.Get("/balance/{address}", s.stakeBalance)
		})
	})
	return r
}

func (s *Server) mountLiquidity(r chi.Router, routes []liquidityRoute, auth *authenticator) {
	for _, rt := range routes {
		if rt.family == pipeline.FamilyV3 {
			r.With(auth.Middleware).Post(rt.path, s.liquidity(rt))
			continue
		}
		r.Post(rt.path, s.liquidity(rt))
	}
}

func (s *Server) liquidity(rt liquidityRoute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body liquidityBody
		if err := decodeBody(w, r, &body); err != nil {
			s.fail(w, r, err)
			return
		}
		req, err := rt.request(&body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.run(w, r, req)
	}
}

func (s *Server) swap(w http.ResponseWriter, r *http.Request) {
	var body swapBody
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := body.request(s.opts.SwapSlippage)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.run(w, r, req)
}

func (s *Server) stake(op pipeline.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body stakeBody
		if err := decodeBody(w, r, &body); err != nil {
			s.fail(w, r, err)
			return
		}
		req, err := body.request(op)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.run(w, r, req)
	}
}

func (s *Server) stakeBalance(w http.ResponseWriter, r *http.Request) {
	holder, err := parseAddress(chi.URLParam(r, "address"), "address")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp, err := s.runner.StakeBalance(r.Context(), holder)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request, req *pipeline.Request) {
	resp, err := s.runner.Run(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type errorBody struct {
	Error string `json:"error"`
}

const internalMessage = "Internal server error"

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind pipeline.Kind) int {
	switch kind {
	case pipeline.KindInvalidRequest,
		pipeline.KindInsufficientBalance,
		pipeline.KindTokenNotInPool,
		pipeline.KindTokenNotFound,
		pipeline.KindPriceImpactTooHigh:
		return http.StatusBadRequest
	case pipeline.KindPoolNotFound:
		return http.StatusNotFound
	case pipeline.KindQuote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := pipeline.KindOf(err)
	status := StatusFor(kind)
	s.metrics.failures.WithLabelValues(kind.String()).Inc()

	fields := []zap.Field{
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.String("path", r.URL.Path),
		zap.String("kind", kind.String()),
		zap.Error(err),
	}
	message := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		s.logger.Error("build failed", fields...)
		message = internalMessage
	} else {
		s.logger.Info("build rejected", fields...)
	}
	writeJSON(w, status, errorBody{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
