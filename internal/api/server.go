package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/auth"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/config"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/db"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/logger"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/pipeline"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/search"
	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/task"
)

// Deps carries everything the server wires together.
type Deps struct {
	Store       *db.Store
	AuthService *auth.Service
	Registry    *config.Registry
	Pipeline    *pipeline.Pipeline
	States      task.StateStore
	Publisher   *task.Publisher
}

type Server struct {
	Echo *echo.Echo

	deps  Deps
	tasks *task.Registry
}

func NewServer(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	allowedOrigins := []string{"http://localhost:4200"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s := &Server{
		Echo:  e,
		deps:  deps,
		tasks: task.NewRegistry(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)

	api := s.Echo.Group("/api/v1")
	api.GET("/tenders", s.handleListTenders)
	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)

	protected := api.Group("")
	protected.Use(auth.Middleware)
	protected.POST("/scrape", s.handleScrape)
	protected.GET("/tasks/:id", s.handleTaskStatus)
	protected.POST("/tasks/:id/cancel", s.handleTaskCancel)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTenders(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	status := c.QueryParam("status")
	if status != "" && status != "open" && status != "closed" {
		return echo.NewHTTPError(http.StatusBadRequest, "status must be open or closed")
	}

	result, err := s.deps.Store.List(c.Request().Context(), db.ListParams{
		Status: status,
		Query:  c.QueryParam("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		logger.ForComponent("api").WithError(err).Error().Msg("tender listing failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "listing failed")
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || len(req.Password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "email and a password of at least 8 characters are required")
	}

	resp, err := s.deps.AuthService.Signup(c.Request().Context(), req)
	if errors.Is(err, auth.ErrUserExists) {
		return echo.NewHTTPError(http.StatusConflict, "user already exists")
	}
	if err != nil {
		logger.ForComponent("api").WithError(err).Error().Msg("signup failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "signup failed")
	}
	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	resp, err := s.deps.AuthService.Login(c.Request().Context(), req)
	if errors.Is(err, auth.ErrInvalidCreds) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		logger.ForComponent("api").WithError(err).Error().Msg("login failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}
	return c.JSON(http.StatusOK, resp)
}

// ScrapeRequest launches one discovery task.
type ScrapeRequest struct {
	Terms      []string `json:"terms"`
	Engines    []string `json:"engines"`
	TimeWindow string   `json:"time_window,omitempty"`
	FileType   string   `json:"file_type,omitempty"`
	Region     string   `json:"region,omitempty"`
}

func (s *Server) handleScrape(c echo.Context) error {
	var req ScrapeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Terms) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one search term is required")
	}

	if len(req.Engines) == 0 {
		for _, eng := range s.deps.Registry.Engines {
			req.Engines = append(req.Engines, eng.ID)
		}
	}
	for _, engineID := range req.Engines {
		if _, ok := s.deps.Registry.Engine(engineID); !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown engine: "+engineID)
		}
	}

	taskID := uuid.NewString()
	ctrl := task.NewController(taskID, req.Terms, req.Engines, s.deps.States, s.deps.Publisher)
	s.tasks.Add(ctrl)

	// The task outlives the HTTP request.
	go func() {
		defer s.tasks.Remove(taskID)
		s.deps.Pipeline.Run(context.Background(), ctrl, pipeline.Params{
			Terms:   req.Terms,
			Engines: req.Engines,
			Filters: search.QueryFilters{
				TimeWindow: req.TimeWindow,
				FileType:   req.FileType,
				Region:     req.Region,
			},
		})
	}()

	return c.JSON(http.StatusAccepted, map[string]string{"task_id": taskID})
}

func (s *Server) handleTaskStatus(c echo.Context) error {
	taskID := c.Param("id")

	if ctrl, ok := s.tasks.Get(taskID); ok {
		return c.JSON(http.StatusOK, ctrl.Snapshot())
	}

	saved, err := s.deps.States.Load(c.Request().Context(), taskID)
	if errors.Is(err, task.ErrTaskNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	if err != nil {
		logger.ForComponent("api").WithError(err).Error().Msg("task state load failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "task lookup failed")
	}
	return c.JSON(http.StatusOK, saved)
}

func (s *Server) handleTaskCancel(c echo.Context) error {
	taskID := c.Param("id")

	ctrl, ok := s.tasks.Get(taskID)
	if !ok {
		// Not in-flight in this process; a terminal task has nothing to cancel.
		if _, err := s.deps.States.Load(c.Request().Context(), taskID); errors.Is(err, task.ErrTaskNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		return echo.NewHTTPError(http.StatusConflict, "task is not running")
	}

	ctrl.Cancel()
	return c.JSON(http.StatusAccepted, map[string]string{"task_id": taskID, "status": "cancel_requested"})
}

// Start runs the HTTP listener until the context is canceled.
func (s *Server) Start(ctx context.Context, port string) error {
	go func() {
		<-ctx.Done()
		if err := s.Echo.Shutdown(context.Background()); err != nil {
			logger.ForComponent("api").WithError(err).Error().Msg("server shutdown failed")
		}
	}()

	err := s.Echo.Start(":" + port)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
