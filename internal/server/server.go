// File: internal/server/server.go

// Package server exposes the HTTP API: chat, navigation flows, LMS queries,
// and student profiles.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/jmosier/campusnav/api/schemas"
	"github.com/jmosier/campusnav/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ChatAgent answers one student message.
type ChatAgent interface {
	Chat(ctx context.Context, message string) (string, error)
}

// PortalNavigator runs browser journeys against the registration portal.
type PortalNavigator interface {
	RunRegistration(ctx context.Context, creds *schemas.Credentials) schemas.FlowResult
	RunFinancialAccount(ctx context.Context, creds *schemas.Credentials) schemas.FlowResult
	Advisors() ([]schemas.Advisor, bool)
}

// CourseReader serves the LMS read endpoints.
type CourseReader interface {
	Courses(ctx context.Context) ([]schemas.Course, error)
	UpcomingAssignments(ctx context.Context) ([]schemas.CourseAssignments, error)
	Announcements(ctx context.Context, courseIDs []int64) ([]schemas.Announcement, error)
	Grades(ctx context.Context) ([]schemas.CourseGrade, error)
}

// ProfileStore serves the student profile endpoints.
type ProfileStore interface {
	Get(ctx context.Context, id string) (schemas.Student, error)
	List(ctx context.Context) ([]schemas.Student, error)
	Upsert(ctx context.Context, st schemas.Student) error
	Delete(ctx context.Context, id string) error
}

// Deps are the collaborators behind the API. Nil members disable their
// routes with 503 rather than panicking.
type Deps struct {
	Agent     ChatAgent
	Navigator PortalNavigator
	LMS       CourseReader
	Store     ProfileStore

	// NotFound distinguishes a missing profile from a store failure.
	NotFound error
}

// Server is the HTTP API front end.
type Server struct {
	logger *zap.Logger
	cfg    config.ServerConfig
	deps   Deps
	router chi.Router
}

// New builds the server and its route table.
func New(logger *zap.Logger, cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{
		logger: logger.Named("server"),
		cfg:    cfg,
		deps:   deps,
	}
	s.router = s.routes()
	return s
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)

		r.Route("/workday", func(r chi.Router) {
			r.Post("/registration", s.handleRegistration)
			r.Post("/financial-account", s.handleFinancialAccount)
			r.Get("/advisors", s.handleAdvisors)
		})

		r.Route("/canvas", func(r chi.Router) {
			r.Get("/courses", s.handleCourses)
			r.Get("/assignments", s.handleAssignments)
			r.Get("/announcements", s.handleAnnouncements)
			r.Get("/grades", s.handleGrades)
		})

		r.Route("/students", func(r chi.Router) {
			r.Get("/", s.handleListStudents)
			r.Get("/{id}", s.handleGetStudent)
			r.Put("/{id}", s.handlePutStudent)
			r.Delete("/{id}", s.handleDeleteStudent)
		})
	})

	return r
}

// Run serves until ctx is canceled, then drains connections within the
// configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP API listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownTimeout := s.cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP API")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("Request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
