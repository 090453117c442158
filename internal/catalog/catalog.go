// Package catalog holds the read-only course catalog and question bank.
package catalog

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the immutable course catalog plus question bank, indexed by
// canonical keys at load time.
type Catalog struct {
	courses []Course
	byKey   map[string]int
	bank    map[string][]Question
}

// Load reads and validates the courses and question bank documents.
func Load(coursesPath, questionBankPath string) (*Catalog, error) {
	coursesData, err := os.ReadFile(coursesPath)
	if err != nil {
		return nil, fmt.Errorf("reading courses: %w", err)
	}
	bankData, err := os.ReadFile(questionBankPath)
	if err != nil {
		return nil, fmt.Errorf("reading question bank: %w", err)
	}

	cat, err := Parse(coursesData, bankData)
	if err != nil {
		return nil, err
	}

	slog.Info("catalog loaded",
		"courses", len(cat.courses),
		"bank_topics", len(cat.bank),
	)
	return cat, nil
}

// Parse builds a catalog from raw JSON or YAML documents.
func Parse(coursesData, questionBankData []byte) (*Catalog, error) {
	if err := ValidateCourses(coursesData); err != nil {
		return nil, err
	}
	if err := ValidateQuestionBank(questionBankData); err != nil {
		return nil, err
	}

	var courses coursesDocument
	if err := yaml.Unmarshal(coursesData, &courses); err != nil {
		return nil, fmt.Errorf("decoding courses: %w", err)
	}
	var bank questionBankDocument
	if err := yaml.Unmarshal(questionBankData, &bank); err != nil {
		return nil, fmt.Errorf("decoding question bank: %w", err)
	}

	return New(courses.Courses, bank.QuestionBank)
}

// New indexes courses and question bank topics. Names are normalized with Key;
// duplicate course names or module titles are rejected.
func New(courses []Course, topics []Topic) (*Catalog, error) {
	c := &Catalog{
		courses: make([]Course, 0, len(courses)),
		byKey:   make(map[string]int, len(courses)),
		bank:    make(map[string][]Question),
	}

	for _, course := range courses {
		course.Key = Key(course.Name)
		if course.Key == "" {
			return nil, fmt.Errorf("course with empty name")
		}
		if _, dup := c.byKey[course.Key]; dup {
			return nil, fmt.Errorf("duplicate course %q", course.Name)
		}

		modules := make([]Module, 0, len(course.Submodules))
		seen := make(map[string]bool, len(course.Submodules))
		for _, m := range course.Submodules {
			m.Key = Key(m.Title)
			if seen[m.Key] {
				return nil, fmt.Errorf("course %q: duplicate module %q", course.Name, m.Title)
			}
			seen[m.Key] = true
			modules = append(modules, m)
		}
		course.Submodules = modules

		c.byKey[course.Key] = len(c.courses)
		c.courses = append(c.courses, course)
	}

	for _, t := range topics {
		key := Key(t.Topic)
		for i, q := range t.Questions {
			level, err := ParseLevel(string(q.Difficulty))
			if err != nil {
				slog.Warn("skipping question with invalid difficulty",
					"topic", t.Topic, "index", i, "error", err)
				continue
			}
			q.Difficulty = level
			if q.Topic == "" {
				q.Topic = t.Topic
			}
			c.bank[key] = append(c.bank[key], q)
		}
	}

	return c, nil
}

// Courses returns all courses in catalog order.
func (c *Catalog) Courses() []Course {
	out := make([]Course, len(c.courses))
	copy(out, c.courses)
	return out
}

// Course looks up a course by name, ignoring case and surrounding space.
func (c *Catalog) Course(name string) (Course, bool) {
	i, ok := c.byKey[Key(name)]
	if !ok {
		return Course{}, false
	}
	return c.courses[i], true
}

// Module looks up a module by course name and module title.
func (c *Catalog) Module(course, title string) (Module, bool) {
	co, ok := c.Course(course)
	if !ok {
		return Module{}, false
	}
	return co.Module(title)
}

// Questions returns the bank questions for a topic at the given difficulty,
// in declared order.
func (c *Catalog) Questions(topic string, level Level) []Question {
	level = level.OrDefault()
	var out []Question
	for _, q := range c.bank[Key(topic)] {
		if q.Difficulty == level {
			out = append(out, q)
		}
	}
	return out
}
