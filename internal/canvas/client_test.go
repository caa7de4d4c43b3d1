// File: internal/canvas/client_test.go
package canvas

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmosier/campusnav/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(zap.NewNop(), config.CanvasConfig{
		BaseURL:           srv.URL,
		Token:             "test-token",
		Timeout:           5 * time.Second,
		RequestsPerSecond: 1000,
	})
	c.maxRetries = 2
	return c
}

func TestCoursesParsesResponse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/courses", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "active", r.URL.Query().Get("enrollment_state"))
		w.Write([]byte(`[{"id": 101, "name": "Distributed Systems", "course_code": "CS 554"}]`))
	}))

	courses, err := c.Courses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, int64(101), courses[0].ID)
	assert.Equal(t, "Distributed Systems", courses[0].Name)
}

func TestAssignmentsRequestsUpcomingBucket(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/courses/101/assignments", r.URL.Path)
		assert.Equal(t, "upcoming", r.URL.Query().Get("bucket"))
		w.Write([]byte(`[{"id": 7, "name": "Problem Set 3", "due_at": "2026-09-15T04:59:00Z"}]`))
	}))

	assignments, err := c.Assignments(context.Background(), 101)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "Problem Set 3", assignments[0].Name)
}

func TestUpcomingAssignmentsGroupsByCourse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 1, "name": "Algorithms"}, {"id": 2, "name": "Databases"}]`))
	})
	mux.HandleFunc("/api/v1/courses/1/assignments", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 10, "name": "Homework 4"}]`))
	})
	mux.HandleFunc("/api/v1/courses/2/assignments", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	c := newTestClient(t, mux)
	grouped, err := c.UpcomingAssignments(context.Background())
	require.NoError(t, err)
	require.Len(t, grouped, 1, "courses without upcoming work are omitted")
	assert.Equal(t, "Algorithms", grouped[0].CourseName)
}

func TestUpcomingAssignmentsSkipsFailingCourse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 1, "name": "Algorithms"}, {"id": 2, "name": "Restricted"}]`))
	})
	mux.HandleFunc("/api/v1/courses/1/assignments", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 10, "name": "Homework 4"}]`))
	})
	mux.HandleFunc("/api/v1/courses/2/assignments", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})

	c := newTestClient(t, mux)
	grouped, err := c.UpcomingAssignments(context.Background())
	require.NoError(t, err)
	require.Len(t, grouped, 1)
	assert.Equal(t, "Algorithms", grouped[0].CourseName)
}

func TestAnnouncementsSendsContextCodes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, []string{"course_1", "course_2"}, r.URL.Query()["context_codes[]"])
		w.Write([]byte(`[{"id": 5, "title": "Midterm moved", "posted_at": "2026-08-20T12:00:00Z"}]`))
	}))

	announcements, err := c.Announcements(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, announcements, 1)
	assert.Equal(t, "Midterm moved", announcements[0].Title)
}

func TestAnnouncementsWithoutCoursesShortCircuits(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	announcements, err := c.Announcements(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, announcements)
}

func TestGradesExtractsStudentEnrollment(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "total_scores", r.URL.Query().Get("include[]"))
		w.Write([]byte(`[{
			"name": "Algorithms",
			"enrollments": [
				{"type": "teacher"},
				{"type": "student", "computed_current_score": 93.4, "computed_current_grade": "A"}
			]
		}, {
			"name": "Seminar",
			"enrollments": []
		}]`))
	}))

	grades, err := c.Grades(context.Background())
	require.NoError(t, err)
	require.Len(t, grades, 1, "courses without a student enrollment carry no grade")
	assert.Equal(t, "Algorithms", grades[0].CourseName)
	assert.InDelta(t, 93.4, grades[0].CurrentScore, 0.001)
	assert.Equal(t, "A", grades[0].CurrentGrade)
}

func TestGetRetriesOnRateLimit(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "throttled", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[]`))
	}))

	_, err := c.Courses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))

	_, err := c.Courses(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestMissingTokenFailsFast(t *testing.T) {
	c := NewClient(zap.NewNop(), config.CanvasConfig{BaseURL: "http://localhost:0"})
	_, err := c.Courses(context.Background())
	require.ErrorIs(t, err, ErrNoToken)
}
