// Package server provides the HTTP surface of the planning core.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/platewise/v1/internal/domain/recipe"
	"github.com/platewise/v1/internal/infrastructure/config"
	"github.com/platewise/v1/internal/infrastructure/monitoring"
	"github.com/platewise/v1/internal/ports/inbound"
	"github.com/platewise/v1/internal/ports/outbound"
	apperrors "github.com/platewise/v1/pkg/errors"
)

// Server represents the HTTP server
type Server struct {
	config      *config.Config
	logger      *zap.Logger
	router      *chi.Mux
	server      *http.Server
	planService inbound.PlanService
	corpus      outbound.RecipeCorpus
	validate    *validator.Validate
}

// NewServer creates a new HTTP server instance
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	planService inbound.PlanService,
	corpus outbound.RecipeCorpus,
) *Server {
	s := &Server{
		config:      cfg,
		logger:      logger.Named("http"),
		planService: planService,
		corpus:      corpus,
		validate:    validator.New(),
	}

	s.router = s.setupRouter()
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins serving requests.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", monitoring.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/plan", s.handleBuildPlan)
		r.Get("/recipes/{id}", s.handleGetRecipe)
	})

	return r
}

// handleBuildPlan is the plan-for-today endpoint.
func (s *Server) handleBuildPlan(w http.ResponseWriter, r *http.Request) {
	var req inbound.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, apperrors.NewBadRequestError("request body is not valid JSON").WithCause(err))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	resp, err := s.planService.BuildPlan(r.Context(), req)
	if err != nil {
		s.writeError(w, r, apperrors.Wrap(err, "plan request failed"))
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// recipeResponse is a corpus record without its embedding.
type recipeResponse struct {
	ID          int64                   `json:"id"`
	Name        string                  `json:"name"`
	Ingredients string                  `json:"ingredients"`
	Nutrition   recipe.NutritionProfile `json:"nutrition"`
	MealTags    []recipe.MealTag        `json:"meal_tags,omitempty"`
}

// handleGetRecipe looks up one recipe by ID, so plan responses can be
// expanded into full recipe details.
func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, r, apperrors.NewBadRequestError("recipe id must be an integer"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	recipes, err := s.corpus.FindByIDs(ctx, []int64{id})
	if err != nil {
		s.writeError(w, r, apperrors.Wrap(err, "recipe lookup failed"))
		return
	}
	if len(recipes) == 0 {
		s.writeError(w, r, apperrors.NewNotFoundError("recipe"))
		return
	}

	found := recipes[0]
	s.writeJSON(w, http.StatusOK, recipeResponse{
		ID:          found.ID,
		Name:        found.Name,
		Ingredients: found.IngredientText,
		Nutrition:   found.Nutrition,
		MealTags:    found.MealTags,
	})
}

// handleHealth reports process liveness and corpus reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	count, err := s.corpus.Count(ctx)
	if err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	s.writeJSON(w, code, map[string]interface{}{
		"status":  status,
		"recipes": count,
		"version": s.config.App.Version,
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, appErr *apperrors.AppError) {
	requestID := chimiddleware.GetReqID(r.Context())
	if appErr.StatusCode() >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", requestID),
			zap.String("code", string(appErr.Code)),
			zap.Error(appErr),
		)
	}
	s.writeJSON(w, appErr.StatusCode(), apperrors.ToErrorResponse(appErr, requestID))
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

// requestLogger logs one line per request with latency and status.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}
