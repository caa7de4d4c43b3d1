// File: internal/agent/tools.go
package agent

import (
	"context"
	"fmt"

	json "github.com/json-iterator/go"

	"github.com/jmosier/campusnav/api/schemas"
)

// CourseReader is the slice of the LMS client the tools consume.
type CourseReader interface {
	Courses(ctx context.Context) ([]schemas.Course, error)
	UpcomingAssignments(ctx context.Context) ([]schemas.CourseAssignments, error)
	Announcements(ctx context.Context, courseIDs []int64) ([]schemas.Announcement, error)
	Grades(ctx context.Context) ([]schemas.CourseGrade, error)
}

// PortalNavigator is the slice of the browser navigator the tools consume.
type PortalNavigator interface {
	RunRegistration(ctx context.Context, creds *schemas.Credentials) schemas.FlowResult
	RunFinancialAccount(ctx context.Context, creds *schemas.Credentials) schemas.FlowResult
	Advisors() ([]schemas.Advisor, bool)
}

// RegisterDefaultTools wires the standard toolset onto the agent. Either
// collaborator may be nil; its tools are simply not registered, and the
// system prompt will not advertise them.
func RegisterDefaultTools(a *Agent, lms CourseReader, nav PortalNavigator) {
	if lms != nil {
		a.Register(Tool{
			Name:        "list_courses",
			Description: "List the student's actively enrolled courses.",
			Run: func(ctx context.Context, _ string) (string, error) {
				courses, err := lms.Courses(ctx)
				if err != nil {
					return "", err
				}
				return marshalObservation(courses)
			},
		})
		a.Register(Tool{
			Name:        "upcoming_assignments",
			Description: "List upcoming assignments grouped by course.",
			Run: func(ctx context.Context, _ string) (string, error) {
				grouped, err := lms.UpcomingAssignments(ctx)
				if err != nil {
					return "", err
				}
				if len(grouped) == 0 {
					return "No upcoming assignments.", nil
				}
				return marshalObservation(grouped)
			},
		})
		a.Register(Tool{
			Name:        "course_announcements",
			Description: "List recent announcements across the student's courses.",
			Run: func(ctx context.Context, _ string) (string, error) {
				courses, err := lms.Courses(ctx)
				if err != nil {
					return "", err
				}
				ids := make([]int64, 0, len(courses))
				for _, c := range courses {
					ids = append(ids, c.ID)
				}
				announcements, err := lms.Announcements(ctx, ids)
				if err != nil {
					return "", err
				}
				if len(announcements) == 0 {
					return "No recent announcements.", nil
				}
				return marshalObservation(announcements)
			},
		})
		a.Register(Tool{
			Name:        "current_grades",
			Description: "List the student's current score in each course.",
			Run: func(ctx context.Context, _ string) (string, error) {
				grades, err := lms.Grades(ctx)
				if err != nil {
					return "", err
				}
				return marshalObservation(grades)
			},
		})
	}

	if nav != nil {
		a.Register(Tool{
			Name:        "go_to_registration",
			Description: "Drive the browser to the course registration results and capture a screenshot. Takes no argument.",
			Run: func(ctx context.Context, _ string) (string, error) {
				return marshalObservation(nav.RunRegistration(ctx, nil))
			},
		})
		a.Register(Tool{
			Name:        "go_to_financial_account",
			Description: "Drive the browser to the student financial account page and capture a screenshot. Takes no argument.",
			Run: func(ctx context.Context, _ string) (string, error) {
				return marshalObservation(nav.RunFinancialAccount(ctx, nil))
			},
		})
		a.Register(Tool{
			Name:        "list_advisors",
			Description: "List the student's advisors. Available after a registration navigation has run.",
			Run: func(ctx context.Context, _ string) (string, error) {
				advisors, ok := nav.Advisors()
				if !ok {
					return "Advisor information has not been collected yet; run go_to_registration first.", nil
				}
				if len(advisors) == 0 {
					return "No advisors were found on the academics page.", nil
				}
				return marshalObservation(advisors)
			},
		})
	}
}

func marshalObservation(v any) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling tool observation: %w", err)
	}
	return string(out), nil
}
