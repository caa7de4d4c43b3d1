// api/schemas/schemas.go
package schemas

import "context"

// -- Common Schemas --

// Credentials holds the portal username and password pair. The password is
// excluded from JSON serialization and must never be logged.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"-"`
}

// IsZero reports whether no credentials were supplied.
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.Password == ""
}

// -- Navigator Schemas --

// FlowResult is the externally visible outcome of one navigation flow. It is
// the single result shape used by every flow; callers never receive a raw
// browser-driver error.
type FlowResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Screenshot string `json:"screenshot,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Advisor is one row of the advisor roster scraped from the Academics page.
type Advisor struct {
	Role   string `json:"role"`
	Cohort string `json:"cohort"`
	Person string `json:"person"`
	Email  string `json:"email"`
}

// -- Chat Schemas --

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	StudentID string `json:"student_id,omitempty"`
}

// ChatResponse carries the agent's reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// -- LMS Schemas --

// Course is a single enrolled course as returned by the LMS API.
type Course struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CourseCode string `json:"course_code"`
}

// Assignment is one upcoming assignment in a course.
type Assignment struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	DueAt    string `json:"due_at,omitempty"`
	HTMLURL  string `json:"html_url,omitempty"`
	CourseID int64  `json:"course_id,omitempty"`
}

// Announcement is one course announcement.
type Announcement struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Message  string `json:"message,omitempty"`
	PostedAt string `json:"posted_at,omitempty"`
}

// CourseGrade pairs a course with its current enrollment score.
type CourseGrade struct {
	CourseName   string  `json:"course_name"`
	CurrentScore float64 `json:"current_score"`
	CurrentGrade string  `json:"current_grade,omitempty"`
}

// CourseAssignments groups a course name with its assignments, the shape the
// chat agent serializes for the model.
type CourseAssignments struct {
	CourseName  string       `json:"course_name"`
	Assignments []Assignment `json:"assignments"`
}

// -- Profile Schemas --

// Student is one student profile record.
type Student struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Program string `json:"program,omitempty"`
	Year    string `json:"year,omitempty"`
}

// -- LLM Schemas --

// GenerationRequest is a provider-agnostic completion request.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// LLMClient abstracts the completion provider so the agent loop can be tested
// against a scripted fake.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}
