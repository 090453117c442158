package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/pai-learn/internal/assessment"
	"github.com/p-n-ai/pai-learn/internal/learner"
)

// StartPreAssessment draws a placement quiz for the learner's current level
// in the course and pins it as an attempt. When the bank has no questions
// for that level the attempt is returned unsaved with no questions.
func (s *Service) StartPreAssessment(ctx context.Context, email, course string) (*assessment.Attempt, error) {
	c, err := s.course(course)
	if err != nil {
		return nil, err
	}
	u, err := s.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}

	level := u.Level(c.Key)
	a := &assessment.Attempt{
		Email:     u.Email,
		CourseKey: c.Key,
		Level:     level,
		Questions: s.sample(c.Name, level),
		CreatedAt: s.now(),
	}
	if len(a.Questions) == 0 {
		slog.Info("no placement questions available", "course", c.Key, "level", level)
		return a, nil
	}
	if err := s.attempts.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("saving attempt: %w", err)
	}
	return a, nil
}

// SubmitPreAssessment scores the answers against the pinned attempt and
// records the new level, score and weak topics. The attempt is consumed
// under the learner's lock, so it is scored at most once. On a failed save
// the result is returned with a *PersistenceError.
func (s *Service) SubmitPreAssessment(ctx context.Context, email, course, attemptID string, answers []string) (*assessment.PlacementResult, error) {
	c, err := s.course(course)
	if err != nil {
		return nil, err
	}
	email = learner.NormalizeEmail(email)

	a, err := s.attempts.Get(ctx, attemptID)
	if errors.Is(err, assessment.ErrAttemptNotFound) {
		return nil, notFound("attempt", attemptID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading attempt: %w", err)
	}
	if a.Email != email || a.CourseKey != c.Key {
		return nil, notFound("attempt", attemptID)
	}

	// Malformed answers leave the attempt open for another try.
	res, err := assessment.Score(a.Questions, answers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	topics := res.Topics()
	_, err = s.update(ctx, email, "pre_assessment", func(u *learner.User) error {
		_, err := s.attempts.Take(ctx, a.ID)
		if errors.Is(err, assessment.ErrAttemptNotFound) {
			return notFound("attempt", attemptID)
		}
		if err != nil {
			return fmt.Errorf("consuming attempt: %w", err)
		}

		u.SetLevel(c.Key, res.NewLevel)
		p := u.ProgressFor(c.Key)
		p.AddScore(res.Score)
		p.AddWeakTopics(topics...)
		u.AddWeakTopics(topics...)
		return nil
	})
	if err != nil && !IsPersistence(err) {
		return nil, err
	}

	slog.Info("pre-assessment scored",
		"email", email,
		"course", c.Key,
		"score", res.Score,
		"total", res.Total,
		"level", res.NewLevel,
	)
	s.metrics.ObservePlacement(string(res.NewLevel))
	s.logEvent(email, c.Key, EventPreAssessmentScored, map[string]any{
		"score":       res.Score,
		"total":       res.Total,
		"level":       res.NewLevel,
		"weak_topics": res.WeakTopics,
	})
	return &res, err
}

// EvaluateModule scores a module assessment, records the score and weak
// tags, and marks the module completed when passed. On a failed save the
// result is returned with a *PersistenceError.
func (s *Service) EvaluateModule(ctx context.Context, email, course, title string, answers []string) (*assessment.ModuleResult, error) {
	c, err := s.course(course)
	if err != nil {
		return nil, err
	}
	m, ok := c.Module(title)
	if !ok {
		return nil, notFound("module", title)
	}
	if !m.HasAssessment() {
		return nil, notFound("assessment for module", m.Title)
	}

	res, err := assessment.EvaluateModule(m, answers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	topics := res.Topics()
	u, err := s.update(ctx, email, "module_assessment", func(u *learner.User) error {
		p := u.ProgressFor(c.Key)
		if res.Passed {
			p.MarkCompleted(m.Title)
		}
		p.AddScore(res.Score)
		p.AddWeakTopics(topics...)
		return nil
	})
	if err != nil && !IsPersistence(err) {
		return nil, err
	}

	slog.Info("module assessment evaluated",
		"email", u.Email,
		"course", c.Key,
		"module", m.Title,
		"score", res.Score,
		"passed", res.Passed,
	)
	s.metrics.ObserveModuleResult(res.Passed)
	s.logEvent(u.Email, c.Key, EventModuleEvaluated, map[string]any{
		"module":     m.Title,
		"score":      res.Score,
		"total":      res.Total,
		"percentage": res.Percentage,
		"passed":     res.Passed,
	})
	return &res, err
}
