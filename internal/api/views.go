package api

import (
	"time"

	"github.com/p-n-ai/pai-learn/internal/assessment"
	"github.com/p-n-ai/pai-learn/internal/catalog"
	"github.com/p-n-ai/pai-learn/internal/learner"
	"github.com/p-n-ai/pai-learn/internal/learning"
)

// Response shapes. Anything that would reveal answers or password hashes is
// left out.

type userView struct {
	Email           string                             `json:"email"`
	Name            string                             `json:"name"`
	CoursesEnrolled []string                           `json:"courses_enrolled"`
	CourseLevels    map[string]catalog.Level           `json:"course_levels"`
	Progress        map[string]*learner.ProgressRecord `json:"progress"`
	TopicsWeak      []string                           `json:"topics_weak"`
	CreatedAt       time.Time                          `json:"created_at"`
	UpdatedAt       time.Time                          `json:"updated_at"`
}

func newUserView(u *learner.User) userView {
	return userView{
		Email:           u.Email,
		Name:            u.Name,
		CoursesEnrolled: u.CoursesEnrolled,
		CourseLevels:    u.CourseLevels,
		Progress:        u.Progress,
		TopicsWeak:      u.TopicsWeak,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

type questionView struct {
	Number   int      `json:"number"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Topic    string   `json:"topic,omitempty"`
}

type moduleSummary struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Level       catalog.Level `json:"level"`
	Tags        []string      `json:"tags"`
	Questions   int           `json:"questions"`
}

func newModuleSummary(m catalog.Module) moduleSummary {
	return moduleSummary{
		Title:       m.Title,
		Description: m.Description,
		Level:       m.Level(),
		Tags:        nonNil(m.Tags),
		Questions:   len(m.Assessment),
	}
}

func moduleSummaries(ms []catalog.Module) []moduleSummary {
	out := make([]moduleSummary, 0, len(ms))
	for _, m := range ms {
		out = append(out, newModuleSummary(m))
	}
	return out
}

type moduleView struct {
	moduleSummary
	Content    string         `json:"content,omitempty"`
	Assessment []questionView `json:"assessment"`
}

func newModuleView(m catalog.Module) moduleView {
	qs := make([]questionView, 0, len(m.Assessment))
	for i, q := range m.Assessment {
		qs = append(qs, questionView{Number: i + 1, Question: q.Question, Options: nonNil(q.Options)})
	}
	return moduleView{moduleSummary: newModuleSummary(m), Content: m.Content, Assessment: qs}
}

type courseDetailView struct {
	Name            string                  `json:"name"`
	Description     string                  `json:"description,omitempty"`
	Modules         []moduleSummary         `json:"modules"`
	Enrolled        bool                    `json:"enrolled"`
	Level           catalog.Level           `json:"level"`
	NeedsAssessment bool                    `json:"needs_assessment"`
	Progress        *learner.ProgressRecord `json:"progress,omitempty"`
	Recommendations []moduleSummary         `json:"recommendations"`
}

func newCourseDetailView(d *learning.CourseDetail) courseDetailView {
	return courseDetailView{
		Name:            d.Course.Name,
		Description:     d.Course.Description,
		Modules:         moduleSummaries(d.Course.Submodules),
		Enrolled:        d.Enrolled,
		Level:           d.Level,
		NeedsAssessment: d.NeedsAssessment,
		Progress:        d.Progress,
		Recommendations: moduleSummaries(d.Recommendations),
	}
}

type attemptView struct {
	AttemptID string         `json:"attempt_id,omitempty"`
	Course    string         `json:"course"`
	Level     catalog.Level  `json:"level"`
	Questions []questionView `json:"questions"`
}

func newAttemptView(course string, a *assessment.Attempt) attemptView {
	qs := make([]questionView, 0, len(a.Questions))
	for i, q := range a.Questions {
		qs = append(qs, questionView{Number: i + 1, Question: q.Text, Options: nonNil(q.Options), Topic: q.Topic})
	}
	return attemptView{AttemptID: a.ID, Course: course, Level: a.Level, Questions: qs}
}

type placementResponse struct {
	*assessment.PlacementResult
	Warning string `json:"warning,omitempty"`
}

type moduleResultResponse struct {
	*assessment.ModuleResult
	Module  string `json:"module"`
	Warning string `json:"warning,omitempty"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
