// File: internal/canvas/client.go

// Package canvas is a small read-only client for the Canvas LMS REST API,
// covering the queries the chat agent answers from: courses, upcoming
// assignments, announcements, and grades.
package canvas

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jmosier/campusnav/api/schemas"
	"github.com/jmosier/campusnav/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoToken is returned before any network traffic when the API token is
// not configured.
var ErrNoToken = errors.New("canvas: API token not configured")

// APIError is a non-2xx response from the Canvas API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("canvas: API returned status %d: %s", e.StatusCode, e.Body)
}

// retryable reports whether the status is worth retrying: rate limiting and
// server-side failures. Client errors are permanent.
func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client talks to one Canvas instance on behalf of one student token. All
// requests share a rate limiter so agent tool bursts stay under the API's
// throttling threshold.
type Client struct {
	logger  *zap.Logger
	http    *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter

	maxRetries uint64
}

// NewClient creates a Canvas client from configuration.
func NewClient(logger *zap.Logger, cfg config.CanvasConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		logger:     logger.Named("canvas"),
		http:       &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		maxRetries: 3,
	}
}

// get performs one rate-limited, retried GET and decodes the JSON body.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.token == "" {
		return ErrNoToken
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			apiErr := &APIError{StatusCode: resp.StatusCode}
			if resp.StatusCode != http.StatusTooManyRequests {
				var snippet [512]byte
				n, _ := resp.Body.Read(snippet[:])
				apiErr.Body = string(snippet[:n])
			}
			if apiErr.retryable() {
				c.logger.Warn("Canvas request will be retried",
					zap.String("path", path),
					zap.Int("status", resp.StatusCode))
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding response for %s: %w", path, err))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), c.maxRetries), ctx)
	return backoff.Retry(op, bo)
}

func newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 30 * time.Second
	return bo
}

// Courses lists the student's actively enrolled courses.
func (c *Client) Courses(ctx context.Context) ([]schemas.Course, error) {
	var courses []schemas.Course
	q := url.Values{"enrollment_state": {"active"}, "per_page": {"50"}}
	if err := c.get(ctx, "/api/v1/courses", q, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// Assignments lists the upcoming assignments of one course.
func (c *Client) Assignments(ctx context.Context, courseID int64) ([]schemas.Assignment, error) {
	var assignments []schemas.Assignment
	q := url.Values{"bucket": {"upcoming"}, "per_page": {"50"}}
	path := fmt.Sprintf("/api/v1/courses/%d/assignments", courseID)
	if err := c.get(ctx, path, q, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

// UpcomingAssignments fans out over every active course and groups the
// upcoming assignments per course. A course whose assignment fetch fails is
// skipped with a warning rather than failing the whole answer.
func (c *Client) UpcomingAssignments(ctx context.Context) ([]schemas.CourseAssignments, error) {
	courses, err := c.Courses(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]schemas.CourseAssignments, 0, len(courses))
	for _, course := range courses {
		assignments, err := c.Assignments(ctx, course.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("Skipping course with failing assignment fetch",
				zap.Int64("course_id", course.ID),
				zap.Error(err))
			continue
		}
		if len(assignments) == 0 {
			continue
		}
		out = append(out, schemas.CourseAssignments{
			CourseName:  course.Name,
			Assignments: assignments,
		})
	}
	return out, nil
}

// Announcements lists recent announcements across the given courses.
func (c *Client) Announcements(ctx context.Context, courseIDs []int64) ([]schemas.Announcement, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	q := url.Values{"per_page": {"20"}}
	for _, id := range courseIDs {
		q.Add("context_codes[]", fmt.Sprintf("course_%d", id))
	}

	var announcements []schemas.Announcement
	if err := c.get(ctx, "/api/v1/announcements", q, &announcements); err != nil {
		return nil, err
	}
	return announcements, nil
}

// gradedCourse is the course shape when enrollment scores are included.
type gradedCourse struct {
	Name        string `json:"name"`
	Enrollments []struct {
		Type                 string  `json:"type"`
		ComputedCurrentScore float64 `json:"computed_current_score"`
		ComputedCurrentGrade string  `json:"computed_current_grade"`
	} `json:"enrollments"`
}

// Grades returns the current score for every active course that exposes one.
func (c *Client) Grades(ctx context.Context) ([]schemas.CourseGrade, error) {
	var courses []gradedCourse
	q := url.Values{
		"enrollment_state": {"active"},
		"include[]":        {"total_scores"},
		"per_page":         {"50"},
	}
	if err := c.get(ctx, "/api/v1/courses", q, &courses); err != nil {
		return nil, err
	}

	grades := make([]schemas.CourseGrade, 0, len(courses))
	for _, course := range courses {
		for _, e := range course.Enrollments {
			if e.Type != "student" {
				continue
			}
			grades = append(grades, schemas.CourseGrade{
				CourseName:   course.Name,
				CurrentScore: e.ComputedCurrentScore,
				CurrentGrade: e.ComputedCurrentGrade,
			})
			break
		}
	}
	return grades, nil
}
