// File: internal/navigator/steps.go
package navigator

import (
	"fmt"
	"time"

	"github.com/jmosier/campusnav/internal/config"
)

// Step sequences for the portal journeys. Primary selectors are the ids the
// portal renders today; fallbacks are structural or text-anchored so a UI
// refresh degrades to a slower lookup instead of a hard failure.

func portalEntryStep() Step {
	return Step{
		Description: "open the Workday login link",
		Selector:    "//a[contains(., 'Log in to Workday')]",
		Fallbacks: []string{
			"//button[contains(., 'Log in to Workday')]",
			"a[href*='workday']",
		},
		Action:   ActionClick,
		Critical: true,
	}
}

// academicsEntryStep opens the Academics dashboard. The advisor roster is
// scraped off that page before the flow moves on to the section search.
func academicsEntryStep() Step {
	return Step{
		Description: "open the academics dashboard",
		Selector:    "//button[.//text()='Academics']",
		Fallbacks: []string{
			"//*[text()='Academics']",
			"[aria-label='Academics']",
		},
		Action:     ActionClick,
		WaitBefore: 3 * time.Second,
		Critical:   true,
	}
}

func courseSectionSearchStep() Step {
	return Step{
		Description: "open the course section search",
		Selector:    "//*[text()='Find Course Sections']",
		Fallbacks: []string{
			"//a[contains(., 'Find Course Sections')]",
			"[data-automation-label='Find Course Sections']",
		},
		Action:     ActionClick,
		WaitBefore: 2 * time.Second,
		Critical:   true,
	}
}

// calendarSteps opens the start-date prompt and picks the semester calendar.
// The year option is virtualized and handled separately by scroll-to-reveal.
func calendarSteps(portal config.PortalConfig) []Step {
	return []Step{
		{
			Description: "open the academic calendar prompt",
			Selector:    "[data-uxi-element-id='selectinput-15$456818']",
			Fallbacks: []string{
				"//label[contains(., 'Start Date within')]/following::input[1]",
				"[data-automation-id='selectWidget'] input",
			},
			Action:     ActionClick,
			WaitBefore: 6 * time.Second,
			Critical:   true,
		},
		{
			Description: "choose the semester academic calendar",
			Selector:    "[data-automation-label='Semester Academic Calendar']",
			Fallbacks:   []string{"[data-automation-id='promptOption']"},
			TextHint:    "Semester Academic Calendar",
			Action:      ActionClick,
			WaitBefore:  500 * time.Millisecond,
			Critical:    true,
		},
	}
}

// semesterAndLevelSteps picks the semester and academic level, confirms the
// prompt dialog is still open, and submits the search.
func semesterAndLevelSteps(portal config.PortalConfig) []Step {
	return []Step{
		{
			Description: fmt.Sprintf("choose the %s semester", portal.AcademicSemester),
			Selector:    fmt.Sprintf("[data-automation-label='%s']", portal.AcademicSemester),
			Fallbacks:   []string{"[data-automation-id='promptOption']"},
			TextHint:    portal.AcademicSemester,
			Action:      ActionClick,
			WaitBefore:  time.Second,
			Critical:    true,
		},
		{
			Description: "search for the academic level",
			Selector:    "[data-uxi-element-id='selectinput-15$463917']",
			Fallbacks: []string{
				"//label[contains(., 'Academic Level')]/following::input[1]",
			},
			Action:     ActionType,
			Value:      portal.AcademicLevel,
			WaitBefore: time.Second,
			Critical:   true,
		},
		{
			Description: fmt.Sprintf("choose the %s level", portal.AcademicLevel),
			Selector:    fmt.Sprintf("[data-automation-label='%s']", portal.AcademicLevel),
			Fallbacks:   []string{"[data-automation-id='promptOption']"},
			TextHint:    portal.AcademicLevel,
			Action:      ActionClick,
			WaitBefore:  2 * time.Second,
			Critical:    true,
		},
		{
			Description: "confirm the search prompt is open",
			Selector:    "[data-automation-id='wd-popup']",
			Fallbacks:   []string{"[role='dialog']"},
			Action:      ActionVerifyDialog,
		},
		{
			Description: "submit the course section search",
			Selector:    "[data-automation-id='wd-CommandButton_uic_okButton']",
			Fallbacks: []string{
				"button[title='OK']",
				"//button[text()='OK']",
			},
			Action:   ActionClick,
			Critical: true,
		},
		{
			Description: "wait for the course section results",
			Selector:    "[data-automation-id='resultsContainer']",
			Fallbacks:   []string{"[data-automation-id='searchResults']"},
			Action:      ActionWaitVisible,
			Timeout:     30 * time.Second,
			Critical:    true,
		},
	}
}

func financesSteps() []Step {
	return []Step{
		{
			Description: "open the finances dashboard",
			Selector:    "//button[.//text()='Finances']",
			Fallbacks: []string{
				"//*[text()='Finances']",
				"[aria-label='Finances']",
			},
			Action:     ActionClick,
			WaitBefore: 3 * time.Second,
			Critical:   true,
		},
		{
			Description: "wait for the finances page to settle",
			Selector:    "[data-automation-id='pageHeader']",
			Fallbacks:   []string{"main"},
			Action:      ActionWaitVisible,
			WaitBefore:  2 * time.Second,
		},
	}
}
