// Package assessment generates placement quizzes from the question bank and
// scores placement and module attempts.
package assessment

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"

	"github.com/p-n-ai/pai-learn/internal/catalog"
)

const (
	// PreAssessmentSize caps the number of questions in a placement quiz.
	PreAssessmentSize = 10
	// PassPercentage is the module assessment pass mark.
	PassPercentage = 70

	advancedRatio     = 0.8
	intermediateRatio = 0.5

	generalTopic  = "General"
	missingAnswer = "None"
)

var (
	// ErrAnswerCount means the answers do not line up with the questions.
	ErrAnswerCount = errors.New("answer count does not match question count")
	// ErrNoQuestions means there is nothing to score.
	ErrNoQuestions = errors.New("no questions to score")
)

// QuestionAnalysis describes the outcome of one question.
type QuestionAnalysis struct {
	Number        int    `json:"number"`
	Question      string `json:"question"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
	Topic         string `json:"topic,omitempty"`
}

// Result is the common part of placement and module results.
type Result struct {
	Score      int                `json:"score"`
	Total      int                `json:"total"`
	Percentage int                `json:"percentage"`
	WeakTopics map[string]int     `json:"weak_topics"`
	Analysis   []QuestionAnalysis `json:"question_analysis"`
}

// Topics returns the weak topic names in alphabetical order.
func (r Result) Topics() []string {
	out := make([]string, 0, len(r.WeakTopics))
	for t := range r.WeakTopics {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// PlacementResult is a scored pre-assessment.
type PlacementResult struct {
	Result
	Ratio    float64       `json:"ratio"`
	NewLevel catalog.Level `json:"new_level"`
}

// ModuleResult is a scored module assessment.
type ModuleResult struct {
	Result
	Passed bool `json:"passed"`
}

// LevelForRatio maps a score ratio in [0,1] to a placement level.
func LevelForRatio(ratio float64) catalog.Level {
	switch {
	case ratio >= advancedRatio:
		return catalog.Advanced
	case ratio >= intermediateRatio:
		return catalog.Intermediate
	default:
		return catalog.Beginner
	}
}

// Sample draws up to n questions uniformly without replacement and returns
// them in random order. A nil rng uses the shared source. The pool is not
// modified. An empty pool yields an empty, non-nil slice.
func Sample(pool []catalog.Question, n int, rng *rand.Rand) []catalog.Question {
	out := slices.Clone(pool)
	if out == nil {
		out = []catalog.Question{}
	}
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Generate builds a placement quiz for a course at the learner's level.
func Generate(cat *catalog.Catalog, course string, level catalog.Level, rng *rand.Rand) []catalog.Question {
	return Sample(cat.Questions(course, level), PreAssessmentSize, rng)
}

// Score grades a placement attempt. answers[i] answers questions[i]; a
// blank answer counts as wrong.
func Score(questions []catalog.Question, answers []string) (PlacementResult, error) {
	if err := checkAttempt(len(questions), answers); err != nil {
		return PlacementResult{}, err
	}

	res := Result{
		Total:      len(questions),
		WeakTopics: map[string]int{},
		Analysis:   make([]QuestionAnalysis, 0, len(questions)),
	}
	for i, q := range questions {
		topic := strings.TrimSpace(q.Topic)
		if topic == "" {
			topic = generalTopic
		}
		correct := matches(answers[i], q.CorrectAnswer)
		if correct {
			res.Score++
		} else {
			res.WeakTopics[topic]++
		}
		res.Analysis = append(res.Analysis, QuestionAnalysis{
			Number:        i + 1,
			Question:      q.Text,
			UserAnswer:    displayAnswer(answers[i]),
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     correct,
			Topic:         topic,
		})
	}
	res.Percentage = res.Score * 100 / res.Total

	ratio := float64(res.Score) / float64(res.Total)
	return PlacementResult{
		Result:   res,
		Ratio:    ratio,
		NewLevel: LevelForRatio(ratio),
	}, nil
}

// EvaluateModule grades a module's fixed assessment. Every wrong answer
// counts once against each of the module's tags.
func EvaluateModule(m catalog.Module, answers []string) (ModuleResult, error) {
	if err := checkAttempt(len(m.Assessment), answers); err != nil {
		return ModuleResult{}, err
	}

	res := Result{
		Total:      len(m.Assessment),
		WeakTopics: map[string]int{},
		Analysis:   make([]QuestionAnalysis, 0, len(m.Assessment)),
	}
	for i, q := range m.Assessment {
		correct := matches(answers[i], q.Answer)
		if correct {
			res.Score++
		} else {
			for _, tag := range m.Tags {
				res.WeakTopics[tag]++
			}
		}
		res.Analysis = append(res.Analysis, QuestionAnalysis{
			Number:        i + 1,
			Question:      q.Question,
			UserAnswer:    displayAnswer(answers[i]),
			CorrectAnswer: q.Answer,
			IsCorrect:     correct,
			Topic:         m.Title,
		})
	}
	res.Percentage = res.Score * 100 / res.Total

	return ModuleResult{
		Result: res,
		Passed: res.Score*100 >= PassPercentage*res.Total,
	}, nil
}

func checkAttempt(questions int, answers []string) error {
	if questions == 0 {
		return ErrNoQuestions
	}
	if len(answers) != questions {
		return fmt.Errorf("%w: got %d answers for %d questions", ErrAnswerCount, len(answers), questions)
	}
	return nil
}

func matches(answer, want string) bool {
	return strings.TrimSpace(answer) != "" && catalog.SameText(answer, want)
}

func displayAnswer(answer string) string {
	if strings.TrimSpace(answer) == "" {
		return missingAnswer
	}
	return answer
}
