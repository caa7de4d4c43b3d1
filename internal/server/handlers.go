// File: internal/server/handlers.go
package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jmosier/campusnav/api/schemas"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.deps.Agent == nil {
		s.writeError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}

	var req schemas.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := s.deps.Agent.Chat(r.Context(), req.Message)
	if err != nil {
		s.logger.Error("Chat failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "the assistant is unavailable right now")
		return
	}
	s.writeJSON(w, http.StatusOK, schemas.ChatResponse{Reply: reply})
}

// Flow endpoints always answer 200 with a FlowResult body; the success flag
// inside the result is the outcome, not the HTTP status. A flow failure is a
// well-formed answer, not a transport error.

func (s *Server) handleRegistration(w http.ResponseWriter, r *http.Request) {
	if s.deps.Navigator == nil {
		s.writeError(w, http.StatusServiceUnavailable, "navigation is not configured")
		return
	}
	s.writeJSON(w, http.StatusOK, s.deps.Navigator.RunRegistration(r.Context(), nil))
}

func (s *Server) handleFinancialAccount(w http.ResponseWriter, r *http.Request) {
	if s.deps.Navigator == nil {
		s.writeError(w, http.StatusServiceUnavailable, "navigation is not configured")
		return
	}
	s.writeJSON(w, http.StatusOK, s.deps.Navigator.RunFinancialAccount(r.Context(), nil))
}

func (s *Server) handleAdvisors(w http.ResponseWriter, r *http.Request) {
	if s.deps.Navigator == nil {
		s.writeError(w, http.StatusServiceUnavailable, "navigation is not configured")
		return
	}
	advisors, ok := s.deps.Navigator.Advisors()
	if !ok {
		s.writeError(w, http.StatusNotFound, "advisors have not been collected yet; run a registration navigation first")
		return
	}
	s.writeJSON(w, http.StatusOK, advisors)
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	if s.deps.LMS == nil {
		s.writeError(w, http.StatusServiceUnavailable, "LMS access is not configured")
		return
	}
	courses, err := s.deps.LMS.Courses(r.Context())
	if err != nil {
		s.logger.Error("Course fetch failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "could not reach the LMS")
		return
	}
	s.writeJSON(w, http.StatusOK, courses)
}

func (s *Server) handleAssignments(w http.ResponseWriter, r *http.Request) {
	if s.deps.LMS == nil {
		s.writeError(w, http.StatusServiceUnavailable, "LMS access is not configured")
		return
	}
	grouped, err := s.deps.LMS.UpcomingAssignments(r.Context())
	if err != nil {
		s.logger.Error("Assignment fetch failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "could not reach the LMS")
		return
	}
	s.writeJSON(w, http.StatusOK, grouped)
}

func (s *Server) handleAnnouncements(w http.ResponseWriter, r *http.Request) {
	if s.deps.LMS == nil {
		s.writeError(w, http.StatusServiceUnavailable, "LMS access is not configured")
		return
	}

	courses, err := s.deps.LMS.Courses(r.Context())
	if err != nil {
		s.logger.Error("Course fetch failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "could not reach the LMS")
		return
	}
	ids := make([]int64, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}

	announcements, err := s.deps.LMS.Announcements(r.Context(), ids)
	if err != nil {
		s.logger.Error("Announcement fetch failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "could not reach the LMS")
		return
	}
	s.writeJSON(w, http.StatusOK, announcements)
}

func (s *Server) handleGrades(w http.ResponseWriter, r *http.Request) {
	if s.deps.LMS == nil {
		s.writeError(w, http.StatusServiceUnavailable, "LMS access is not configured")
		return
	}
	grades, err := s.deps.LMS.Grades(r.Context())
	if err != nil {
		s.logger.Error("Grade fetch failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "could not reach the LMS")
		return
	}
	s.writeJSON(w, http.StatusOK, grades)
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "profile storage is not configured")
		return
	}
	students, err := s.deps.Store.List(r.Context())
	if err != nil {
		s.logger.Error("Student list failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not list students")
		return
	}
	if students == nil {
		students = []schemas.Student{}
	}
	s.writeJSON(w, http.StatusOK, students)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "profile storage is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	student, err := s.deps.Store.Get(r.Context(), id)
	if err != nil {
		if s.deps.NotFound != nil && errors.Is(err, s.deps.NotFound) {
			s.writeError(w, http.StatusNotFound, "student not found")
			return
		}
		s.logger.Error("Student fetch failed", zap.String("student_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not load student")
		return
	}
	s.writeJSON(w, http.StatusOK, student)
}

func (s *Server) handlePutStudent(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "profile storage is not configured")
		return
	}

	var student schemas.Student
	if err := json.NewDecoder(r.Body).Decode(&student); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	student.ID = chi.URLParam(r, "id")

	if err := s.deps.Store.Upsert(r.Context(), student); err != nil {
		s.logger.Error("Student save failed", zap.String("student_id", student.ID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not save student")
		return
	}
	s.writeJSON(w, http.StatusOK, student)
}

// handleDeleteStudent answers 204 whether or not the id existed; the store's
// delete is idempotent.
func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "profile storage is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.deps.Store.Delete(r.Context(), id); err != nil {
		s.logger.Error("Student delete failed", zap.String("student_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not delete student")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
