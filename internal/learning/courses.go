package learning

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/p-n-ai/pai-learn/internal/catalog"
	"github.com/p-n-ai/pai-learn/internal/learner"
	"github.com/p-n-ai/pai-learn/internal/recommend"
)

// CourseSummary is one row of the course listing.
type CourseSummary struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Modules     int           `json:"modules"`
	Enrolled    bool          `json:"enrolled"`
	Level       catalog.Level `json:"level"`
}

// Courses lists the catalog from the learner's point of view.
func (s *Service) Courses(ctx context.Context, email string) ([]CourseSummary, error) {
	u, err := s.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}
	courses := s.catalog.Courses()
	out := make([]CourseSummary, 0, len(courses))
	for _, c := range courses {
		out = append(out, CourseSummary{
			Name:        c.Name,
			Description: c.Description,
			Modules:     len(c.Submodules),
			Enrolled:    u.IsEnrolled(c.Key),
			Level:       u.Level(c.Key),
		})
	}
	return out, nil
}

// CourseDetail is a course with the learner's standing in it.
type CourseDetail struct {
	Course          catalog.Course          `json:"course"`
	Enrolled        bool                    `json:"enrolled"`
	Level           catalog.Level           `json:"level"`
	NeedsAssessment bool                    `json:"needs_assessment"`
	Progress        *learner.ProgressRecord `json:"progress,omitempty"`
	Recommendations []catalog.Module        `json:"recommendations"`
}

// CourseDetail returns the course, the learner's level and whether a
// placement assessment is still due.
func (s *Service) CourseDetail(ctx context.Context, email, course string) (*CourseDetail, error) {
	c, err := s.course(course)
	if err != nil {
		return nil, err
	}
	u, err := s.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}
	level := u.Level(c.Key)
	return &CourseDetail{
		Course:          c,
		Enrolled:        u.IsEnrolled(c.Key),
		Level:           level,
		NeedsAssessment: !u.HasLevel(c.Key),
		Progress:        u.Progress[c.Key],
		Recommendations: recommend.Modules(c, level, u.WeakTopics(c.Key)),
	}, nil
}

// Module looks up a module by course name and title.
func (s *Service) Module(course, title string) (catalog.Module, error) {
	c, err := s.course(course)
	if err != nil {
		return catalog.Module{}, err
	}
	m, ok := c.Module(title)
	if !ok {
		return catalog.Module{}, notFound("module", title)
	}
	return m, nil
}

// Enroll adds the course to the learner's enrollments. It reports false
// without side effects when the learner is already enrolled.
func (s *Service) Enroll(ctx context.Context, email, course string) (bool, error) {
	c, err := s.course(course)
	if err != nil {
		return false, err
	}

	u, err := s.update(ctx, email, "enroll", func(u *learner.User) error {
		if !u.Enroll(c.Key) {
			return errUnchanged
		}
		return nil
	})
	switch {
	case errors.Is(err, errUnchanged):
		return false, nil
	case u == nil:
		return false, err
	}

	slog.Info("learner enrolled", "email", u.Email, "course", c.Key)
	s.metrics.ObserveEnrollment()
	s.logEvent(u.Email, c.Key, EventEnrolled, nil)
	return true, err
}

// Recommend returns up to three modules for the learner's level in the
// course, favouring the learner's weak topics.
func (s *Service) Recommend(ctx context.Context, email, course string) ([]catalog.Module, error) {
	c, err := s.course(course)
	if err != nil {
		return nil, err
	}
	u, err := s.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}
	return recommend.Modules(c, u.Level(c.Key), u.WeakTopics(c.Key)), nil
}

// CourseProgress is the learner's record in one course.
type CourseProgress struct {
	Course           string        `json:"course"`
	Enrolled         bool          `json:"enrolled"`
	Level            catalog.Level `json:"level"`
	Assessed         bool          `json:"assessed"`
	CompletedModules []string      `json:"completed_modules"`
	Scores           []int         `json:"scores"`
	WeakTopics       []string      `json:"weak_topics"`
}

// ProgressSummary aggregates a learner's progress across courses.
type ProgressSummary struct {
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	EnrolledCourses  int              `json:"enrolled_courses"`
	CompletedModules int              `json:"completed_modules"`
	WeakTopics       int              `json:"weak_topics"`
	TopicsWeak       []string         `json:"topics_weak"`
	Courses          []CourseProgress `json:"courses"`
}

// Progress summarizes the learner's progress. Courses appear in catalog
// order followed by any recorded course the catalog no longer lists.
func (s *Service) Progress(ctx context.Context, email string) (*ProgressSummary, error) {
	u, err := s.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}

	sum := &ProgressSummary{
		Name:            u.Name,
		Email:           u.Email,
		EnrolledCourses: len(u.CoursesEnrolled),
		WeakTopics:      len(u.TopicsWeak),
		TopicsWeak:      append([]string{}, u.TopicsWeak...),
		Courses:         []CourseProgress{},
	}
	for _, p := range u.Progress {
		if p != nil {
			sum.CompletedModules += len(p.CompletedModules)
		}
	}

	seen := map[string]bool{}
	add := func(key, name string) {
		if seen[key] {
			return
		}
		seen[key] = true
		p := u.Progress[key]
		if p == nil && !u.IsEnrolled(key) && !u.HasLevel(key) {
			return
		}
		cp := CourseProgress{
			Course:           name,
			Enrolled:         u.IsEnrolled(key),
			Level:            u.Level(key),
			Assessed:         u.HasLevel(key),
			CompletedModules: []string{},
			Scores:           []int{},
			WeakTopics:       []string{},
		}
		if p != nil {
			cp.CompletedModules = append(cp.CompletedModules, p.CompletedModules...)
			cp.Scores = append(cp.Scores, p.Scores...)
			cp.WeakTopics = append(cp.WeakTopics, p.WeakTopics...)
		}
		sum.Courses = append(sum.Courses, cp)
	}
	for _, c := range s.catalog.Courses() {
		add(c.Key, c.Name)
	}
	for _, key := range u.CoursesEnrolled {
		add(key, key)
	}
	rest := make([]string, 0, len(u.Progress))
	for key := range u.Progress {
		rest = append(rest, key)
	}
	sort.Strings(rest)
	for _, key := range rest {
		add(key, key)
	}
	return sum, nil
}
