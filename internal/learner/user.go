// Package learner holds learner records and the repositories that persist them.
package learner

import (
	"slices"
	"strings"
	"time"

	"github.com/p-n-ai/pai-learn/internal/catalog"
)

// ProgressRecord tracks one learner's progress in one course.
type ProgressRecord struct {
	CompletedModules []string `json:"completed_modules"`
	Scores           []int    `json:"scores"`
	WeakTopics       []string `json:"weak_topics"`
}

// NewProgressRecord returns an empty record with non-nil collections.
func NewProgressRecord() *ProgressRecord {
	return &ProgressRecord{
		CompletedModules: []string{},
		Scores:           []int{},
		WeakTopics:       []string{},
	}
}

// MarkCompleted records a module title once. It reports whether the title was new.
func (p *ProgressRecord) MarkCompleted(title string) bool {
	if containsText(p.CompletedModules, title) {
		return false
	}
	p.CompletedModules = append(p.CompletedModules, title)
	return true
}

// AddScore appends to the score history.
func (p *ProgressRecord) AddScore(score int) {
	p.Scores = append(p.Scores, score)
}

// AddWeakTopics unions topics into the record's weak topic set.
func (p *ProgressRecord) AddWeakTopics(topics ...string) {
	p.WeakTopics = unionText(p.WeakTopics, topics...)
}

// User is a learner record. Email is the primary key.
type User struct {
	Email           string                     `json:"email"`
	Name            string                     `json:"name"`
	PasswordHash    string                     `json:"password_hash"`
	CoursesEnrolled []string                   `json:"courses_enrolled"`
	CourseLevels    map[string]catalog.Level   `json:"course_levels"`
	Progress        map[string]*ProgressRecord `json:"progress"`
	TopicsWeak      []string                   `json:"topics_weak"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

// NewUser creates a learner with empty enrollment and progress.
func NewUser(email, name, passwordHash string, now time.Time) *User {
	return &User{
		Email:           NormalizeEmail(email),
		Name:            strings.TrimSpace(name),
		PasswordHash:    passwordHash,
		CoursesEnrolled: []string{},
		CourseLevels:    map[string]catalog.Level{},
		Progress:        map[string]*ProgressRecord{},
		TopicsWeak:      []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// NormalizeEmail returns the canonical primary key form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Level returns the learner's level for a course, defaulting to beginner.
func (u *User) Level(courseKey string) catalog.Level {
	return u.CourseLevels[courseKey].OrDefault()
}

// HasLevel reports whether a placement has been recorded for the course.
func (u *User) HasLevel(courseKey string) bool {
	_, ok := u.CourseLevels[courseKey]
	return ok
}

// SetLevel overwrites the learner's level for a course.
func (u *User) SetLevel(courseKey string, level catalog.Level) {
	if u.CourseLevels == nil {
		u.CourseLevels = map[string]catalog.Level{}
	}
	u.CourseLevels[courseKey] = level
}

// IsEnrolled reports whether the learner is enrolled in the course.
func (u *User) IsEnrolled(courseKey string) bool {
	return slices.Contains(u.CoursesEnrolled, courseKey)
}

// Enroll adds the course and initializes its progress record. It reports false
// and changes nothing when the learner is already enrolled.
func (u *User) Enroll(courseKey string) bool {
	if u.IsEnrolled(courseKey) {
		return false
	}
	u.CoursesEnrolled = append(u.CoursesEnrolled, courseKey)
	u.ProgressFor(courseKey)
	return true
}

// ProgressFor returns the course progress record, creating it if absent.
func (u *User) ProgressFor(courseKey string) *ProgressRecord {
	if u.Progress == nil {
		u.Progress = map[string]*ProgressRecord{}
	}
	p, ok := u.Progress[courseKey]
	if !ok || p == nil {
		p = NewProgressRecord()
		u.Progress[courseKey] = p
	}
	return p
}

// WeakTopics returns the course weak topics, or nil if there is no progress yet.
func (u *User) WeakTopics(courseKey string) []string {
	if p, ok := u.Progress[courseKey]; ok && p != nil {
		return p.WeakTopics
	}
	return nil
}

// AddWeakTopics unions topics into the global weak topic set.
func (u *User) AddWeakTopics(topics ...string) {
	u.TopicsWeak = unionText(u.TopicsWeak, topics...)
}

// Clone returns a deep copy so stored records never alias caller state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.CoursesEnrolled = slices.Clone(u.CoursesEnrolled)
	c.TopicsWeak = slices.Clone(u.TopicsWeak)
	if u.CourseLevels != nil {
		c.CourseLevels = make(map[string]catalog.Level, len(u.CourseLevels))
		for k, v := range u.CourseLevels {
			c.CourseLevels[k] = v
		}
	}
	if u.Progress != nil {
		c.Progress = make(map[string]*ProgressRecord, len(u.Progress))
		for k, p := range u.Progress {
			if p == nil {
				continue
			}
			c.Progress[k] = &ProgressRecord{
				CompletedModules: slices.Clone(p.CompletedModules),
				Scores:           slices.Clone(p.Scores),
				WeakTopics:       slices.Clone(p.WeakTopics),
			}
		}
	}
	return &c
}

func containsText(set []string, s string) bool {
	return slices.ContainsFunc(set, func(v string) bool { return catalog.SameText(v, s) })
}

// unionText appends the entries of add missing from set, keeping first spellings.
func unionText(set []string, add ...string) []string {
	if set == nil {
		set = []string{}
	}
	for _, s := range add {
		if strings.TrimSpace(s) == "" || containsText(set, s) {
			continue
		}
		set = append(set, s)
	}
	return set
}
