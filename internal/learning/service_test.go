package learning_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/p-n-ai/pai-learn/internal/assessment"
	"github.com/p-n-ai/pai-learn/internal/catalog"
	"github.com/p-n-ai/pai-learn/internal/learner"
	"github.com/p-n-ai/pai-learn/internal/learning"
)

const (
	testEmail    = "ana@example.com"
	testPassword = "s3cret-pass"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	basics := catalog.Module{Title: "Python Basics", Tags: []string{"syntax"}}
	for i := range 10 {
		basics.Assessment = append(basics.Assessment, catalog.ModuleQuestion{
			Question: fmt.Sprintf("basics %d", i),
			Options:  []string{fmt.Sprintf("b%d", i), "x"},
			Answer:   fmt.Sprintf("b%d", i),
		})
	}

	var beginner []catalog.Question
	for i := range 12 {
		topic := "loops"
		if i%2 == 0 {
			topic = "syntax"
		}
		beginner = append(beginner, catalog.Question{
			Text:          fmt.Sprintf("py %d", i),
			Options:       []string{fmt.Sprintf("p%d", i), "x"},
			CorrectAnswer: fmt.Sprintf("p%d", i),
			Difficulty:    catalog.Beginner,
			Topic:         topic,
		})
	}

	cat, err := catalog.New(
		[]catalog.Course{
			{Name: "Python", Submodules: []catalog.Module{
				basics,
				{Title: "Loops 101", Tags: []string{"loops"}},
				{Title: "Intermediate Loops", Tags: []string{"loops"}},
				{Title: "Advanced Generators", Tags: []string{"generators"}},
			}},
			{Name: "Rust", Submodules: []catalog.Module{{Title: "Ownership", Tags: []string{"memory"}}}},
		},
		[]catalog.Topic{{Topic: "Python", Questions: beginner}},
	)
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	return cat
}

type fixture struct {
	svc    *learning.Service
	repo   *flakyRepository
	events *learning.MemoryEventLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:   &flakyRepository{MemoryRepository: learner.NewMemoryRepository()},
		events: learning.NewMemoryEventLogger(),
	}
	svc, err := learning.NewService(learning.ServiceConfig{
		Catalog:     testCatalog(t),
		Users:       f.repo,
		Credentials: learner.BcryptCredentials{Cost: 4},
		Events:      f.events,
		Rand:        rand.New(rand.NewPCG(7, 11)),
		Now:         func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) signup(t *testing.T) {
	t.Helper()
	if _, err := f.svc.Signup(context.Background(), "Ana", testEmail, testPassword); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
}

// flakyRepository fails writes while fail is set.
type flakyRepository struct {
	*learner.MemoryRepository
	mu   sync.Mutex
	fail bool
}

func (r *flakyRepository) setFail(v bool) {
	r.mu.Lock()
	r.fail = v
	r.mu.Unlock()
}

func (r *flakyRepository) Upsert(ctx context.Context, u *learner.User) error {
	r.mu.Lock()
	fail := r.fail
	r.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return r.MemoryRepository.Upsert(ctx, u)
}

func TestNewService_RequiresCatalog(t *testing.T) {
	if _, err := learning.NewService(learning.ServiceConfig{}); err == nil {
		t.Error("NewService() without catalog should fail")
	}
}

func TestSignup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	u, err := f.svc.Signup(ctx, " Ana ", " Ana@Example.com", testPassword)
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if u.Email != testEmail || u.Name != "Ana" {
		t.Errorf("Signup() = %s/%s", u.Email, u.Name)
	}
	if u.PasswordHash == "" || u.PasswordHash == testPassword {
		t.Error("password should be stored hashed")
	}
	if len(u.CoursesEnrolled) != 0 || len(u.Progress) != 0 {
		t.Error("new learner should start with empty enrollment and progress")
	}

	if _, err := f.svc.Signup(ctx, "Ana 2", "ANA@example.com", testPassword); !errors.Is(err, learning.ErrAlreadyExists) {
		t.Errorf("duplicate Signup() error = %v, want ErrAlreadyExists", err)
	}
}

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name, user, email, password string
	}{
		{"missing email", "Ana", "", testPassword},
		{"bad email", "Ana", "not-an-email", testPassword},
		{"missing name", " ", testEmail, testPassword},
		{"short password", "Ana", testEmail, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Signup(context.Background(), tt.user, tt.email, tt.password)
			if !errors.Is(err, learning.ErrValidation) {
				t.Errorf("Signup() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t)

	if _, err := f.svc.Authenticate(ctx, "ANA@example.com ", testPassword); err != nil {
		t.Errorf("Authenticate() error = %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, testEmail, "wrong-pass"); !errors.Is(err, learning.ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := f.svc.Authenticate(ctx, "bob@example.com", testPassword); !errors.Is(err, learning.ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, want ErrInvalidCredentials", err)
	}
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t)

	name, password := "Ana Maria", "new-password"
	u, err := f.svc.UpdateUser(ctx, testEmail, learning.UserPatch{Name: &name, Password: &password})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if u.Name != name {
		t.Errorf("Name = %q, want %q", u.Name, name)
	}
	if _, err := f.svc.Authenticate(ctx, testEmail, password); err != nil {
		t.Errorf("Authenticate() with new password error = %v", err)
	}

	stored, _ := f.svc.GetUser(ctx, testEmail)
	if stored.Name != name {
		t.Errorf("stored Name = %q, want %q", stored.Name, name)
	}

	if _, err := f.svc.UpdateUser(ctx, testEmail, learning.UserPatch{}); err != nil {
		t.Errorf("empty patch error = %v", err)
	}
	blank := " "
	if _, err := f.svc.UpdateUser(ctx, testEmail, learning.UserPatch{Name: &blank}); !errors.Is(err, learning.ErrValidation) {
		t.Errorf("blank name error = %v, want ErrValidation", err)
	}
	if _, err := f.svc.UpdateUser(ctx, "bob@example.com", learning.UserPatch{Name: &name}); !errors.Is(err, learning.ErrNotFound) {
		t.Errorf("unknown user error = %v, want ErrNotFound", err)
	}
}

func TestEnroll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t)

	ok, err := f.svc.Enroll(ctx, testEmail, "python")
	if err != nil || !ok {
		t.Fatalf("first Enroll() = %v, %v; want true, nil", ok, err)
	}
	ok, err = f.svc.Enroll(ctx, testEmail, " PYTHON")
	if err != nil || ok {
		t.Fatalf("second Enroll() = %v, %v; want false, nil", ok, err)
	}

	u, _ := f.svc.GetUser(ctx, testEmail)
	if len(u.CoursesEnrolled) != 1 {
		t.Errorf("CoursesEnrolled = %v, want one entry", u.CoursesEnrolled)
	}
	if u.Progress["python"] == nil {
		t.Error("Enroll() should initialize a progress record")
	}
	if n := len(f.events.Events()); n != 1 {
		t.Errorf("events = %d, want 1", n)
	}

	if _, err := f.svc.Enroll(ctx, testEmail, "Haskell"); !errors.Is(err, learning.ErrNotFound) {
		t.Errorf("unknown course error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.Enroll(ctx, "bob@example.com", "Python"); !errors.Is(err, learning.ErrNotFound) {
		t.Errorf("unknown user error = %v, want ErrNotFound", err)
	}
}

func TestPreAssessmentFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t)

	detail, err := f.svc.CourseDetail(ctx, testEmail, "Python")
	if err != nil {
		t.Fatalf("CourseDetail() error = %v", err)
	}
	if !detail.NeedsAssessment {
		t.Error("NeedsAssessment should be true before placement")
	}

	attempt, err := f.svc.StartPreAssessment(ctx, testEmail, "python")
	if err != nil {
		t.Fatalf("StartPreAssessment() error = %v", err)
	}
	if attempt.ID == "" || len(attempt.Questions) != 10 {
		t.Fatalf("attempt = %q with %d questions, want id and 10", attempt.ID, len(attempt.Questions))
	}
	for _, q := range attempt.Questions {
		if q.Difficulty != catalog.Beginner || !catalog.SameText(q.Topic, "loops") && !catalog.SameText(q.Topic, "syntax") {
			t.Errorf("unexpected question %+v", q)
		}
	}

	answers := make([]string, 10)
	for i, q := range attempt.Questions {
		if i < 8 {
			answers[i] = q.CorrectAnswer
		}
	}

	res, err := f.svc.SubmitPreAssessment(ctx, testEmail, "Python", attempt.ID, answers)
	if err != nil {
		t.Fatalf("SubmitPreAssessment() error = %v", err)
	}
	if res.Score != 8 || res.Percentage != 80 || res.NewLevel != catalog.Advanced {
		t.Errorf("result = %d (%d%%) %s, want 8 (80%%) advanced", res.Score, res.Percentage, res.NewLevel)
	}

	u, _ := f.svc.GetUser(ctx, testEmail)
	if u.Level("python") != catalog.Advanced {
		t.Errorf("stored level = %q, want advanced", u.Level("python"))
	}
	if got := u.Progress["python"].Scores; len(got) != 1 || got[0] != 8 {
		t.Errorf("Scores = %v, want [8]", got)
	}
	for _, topic := range res.Topics() {
		if !contains(u.Progress["python"].WeakTopics, topic) || !contains(u.TopicsWeak, topic) {
			t.Errorf("weak topic %q not recorded", topic)
		}
	}

	if _, err := f.svc.SubmitPreAssessment(ctx, testEmail, "Python", attempt.ID, answers); !errors.Is(err, learning.ErrNotFound) {
		t.Errorf("replayed attempt error = %v, want ErrNotFound", err)
	}

	detail, _ = f.svc.CourseDetail(ctx, testEmail, "Python")
	if detail.NeedsAssessment || detail.Level != catalog.Advanced {
		t.Errorf("detail after placement = needs %v level %q", detail.NeedsAssessment, detail.Level)
	}
	if len(detail.Recommendations) != 1 || detail.Recommendations[0].Title != "Advanced Generators" {
		t.Errorf("Recommendations = %+v, want Advanced Generators", detail.Recommendations)
	}
}

func TestSubmitPreAssessment_Rejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t)
	if _, err := f.svc.Signup(ctx, "Bob", "bob@example.com", testPassword); err != nil {
		t.Fatal(err)
	}

	attempt, err := f.svc.StartPreAssessment(ctx, testEmail, "Python")
	if err != nil {
		t.Fatalf("StartPreAssessment() error = %v", err)
	}

	if _, err := f.svc.SubmitPreAssessment(ctx, testEmail, "Python", attempt.ID, []string{"p1"}); !errors.Is(err, learning.ErrValidation) {
		t.Errorf("short answers error = %v, want ErrValidation", err)
	}
	if _, err := f.svc.SubmitPreAssessment(ctx, "bob@example.com", "Python", attempt.ID, make([]string, 10)); !errors.Is(err, learning.ErrNotFound) {
		t.Errorf("other learner's attempt error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.SubmitPreAssessment(ctx, testEmail, "Rust", attempt.ID, make([]string, 10)); !errors.Is(err, learning.ErrNotFound) {
		t.Errorf("wrong course error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.SubmitPreAssessment(ctx, testEmail, "Python", "missing", nil); !errors.Is(err, learning.ErrNotFound) {
		t.Errorf("unknown attempt error = %v, want ErrNotFound", err)
	}

	// The rejected submissions must leave the attempt usable.
	if _, err := f.svc.SubmitPreAssessment(ctx, testEmail, "Python", attempt.ID, make([]string, 10)); err != nil {
		t.Errorf("valid submission after rejects error = %v", err)
	}
}

func TestStartPreAssessment_EmptyPool(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t)

	attempt, err := f.svc.StartPreAssessment(ctx, testEmail, "Rust")
	if err != nil {
		t.Fatalf("StartPreAssessment() error = %v", err)
	}
	if attempt.ID != "" || len(attempt.Questions) != 0 {
		t.Errorf("empty pool attempt = %q with %d questions", attempt.ID, len(attempt.Questions))
	}
}

func TestEvaluateModule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t)

	answer := func(correct int) []string {
		out := make([]string, 10)
		for i := range correct {
			out[i] = fmt.Sprintf("B%d ", i)
		}
		return out
	}

	res, err := f.svc.EvaluateModule(ctx, testEmail, "python", "python basics", answer(6))
	if err != nil {
		t.Fatalf("EvaluateModule() error = %v", err)
	}
	if res.Passed || res.Percentage != 60 {
		t.Errorf("6/10 = passed %v %d%%, want fail 60%%", res.Passed, res.Percentage)
	}
	if res.WeakTopics["syntax"] != 4 {
		t.Errorf("WeakTopics[syntax] = %d, want 4", res.WeakTopics["syntax"])
	}

	for range 2 {
		res, err = f.svc.EvaluateModule(ctx, testEmail, "Python", "Python Basics", answer(7))
		if err != nil {
			t.Fatalf("EvaluateModule() error = %v", err)
		}
		if !res.Passed || res.Percentage != 70 {
			t.Errorf("7/10 = passed %v %d%%, want pass 70%%", res.Passed, res.Percentage)
		}
	}

	u, _ := f.svc.GetUser(ctx, testEmail)
	p := u.Progress["python"]
	if len(p.CompletedModules) != 1 || p.CompletedModules[0] != "Python Basics" {
		t.Errorf("CompletedModules = %v, want [Python Basics]", p.CompletedModules)
	}
	if len(p.Scores) != 3 || p.Scores[0] != 6 || p.Scores[2] != 7 {
		t.Errorf("Scores = %v, want [6 7 7]", p.Scores)
	}
	if !contains(p.WeakTopics, "syntax") {
		t.Errorf("WeakTopics = %v, want syntax", p.WeakTopics)
	}
	if len(u.TopicsWeak) != 0 {
		t.Errorf("module weak tags should stay per-course, got global %v", u.TopicsWeak)
	}

	if _, err := f.svc.EvaluateModule(ctx, testEmail, "Python", "Loops 101", nil); !errors.Is(err, learning.ErrNotFound) {
		t.Errorf("module without assessment error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.EvaluateModule(ctx, testEmail, "Python", "Closures", nil); !errors.Is(err, learning.ErrNotFound) {
		t.Errorf("unknown module error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.EvaluateModule(ctx, testEmail, "Python", "Python Basics", []string{"b0"}); !errors.Is(err, learning.ErrValidation) {
		t.Errorf("short answers error = %v, want ErrValidation", err)
	}
}

func TestPersistenceFailureKeepsResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t)
	f.repo.setFail(true)

	answers := make([]string, 10)
	for i := range answers {
		answers[i] = fmt.Sprintf("b%d", i)
	}
	res, err := f.svc.EvaluateModule(ctx, testEmail, "Python", "Python Basics", answers)

	var pe *learning.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *PersistenceError", err)
	}
	if pe.Op != "module_assessment" {
		t.Errorf("Op = %q, want module_assessment", pe.Op)
	}
	if res == nil || res.Score != 10 || !res.Passed {
		t.Errorf("result = %+v, want 10/10 passed", res)
	}

	ok, err := f.svc.Enroll(ctx, testEmail, "Python")
	if !ok || !learning.IsPersistence(err) {
		t.Errorf("Enroll() = %v, %v; want true with persistence error", ok, err)
	}

	f.repo.setFail(false)
	u, _ := f.svc.GetUser(ctx, testEmail)
	if len(u.CoursesEnrolled) != 0 {
		t.Error("failed write should not reach the repository")
	}
}

func TestRecommend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t)

	got, err := f.svc.Recommend(ctx, testEmail, "Python")
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(got) != 2 || got[0].Title != "Python Basics" || got[1].Title != "Loops 101" {
		t.Errorf("Recommend() = %+v, want beginner fallback", got)
	}

	if _, err := f.svc.Recommend(ctx, testEmail, "Cobol"); !errors.Is(err, learning.ErrNotFound) {
		t.Errorf("unknown course error = %v, want ErrNotFound", err)
	}
}

func TestCoursesAndProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t)

	if _, err := f.svc.Enroll(ctx, testEmail, "Rust"); err != nil {
		t.Fatal(err)
	}
	answers := make([]string, 10)
	for i := range answers {
		answers[i] = fmt.Sprintf("b%d", i)
	}
	if _, err := f.svc.EvaluateModule(ctx, testEmail, "Python", "Python Basics", answers); err != nil {
		t.Fatal(err)
	}

	courses, err := f.svc.Courses(ctx, testEmail)
	if err != nil {
		t.Fatalf("Courses() error = %v", err)
	}
	if len(courses) != 2 || courses[0].Name != "Python" || courses[0].Enrolled || !courses[1].Enrolled {
		t.Errorf("Courses() = %+v", courses)
	}

	sum, err := f.svc.Progress(ctx, testEmail)
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	if sum.EnrolledCourses != 1 || sum.CompletedModules != 1 || sum.WeakTopics != 0 {
		t.Errorf("summary = %d enrolled, %d completed, %d weak", sum.EnrolledCourses, sum.CompletedModules, sum.WeakTopics)
	}
	if len(sum.Courses) != 2 || sum.Courses[0].Course != "Python" || sum.Courses[1].Course != "Rust" {
		t.Errorf("Courses = %+v", sum.Courses)
	}
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t)

	const n = 20
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.EvaluateModule(ctx, testEmail, "Python", "Python Basics", make([]string, 10)); err != nil {
				t.Errorf("EvaluateModule() error = %v", err)
			}
		}()
	}
	wg.Wait()

	u, _ := f.svc.GetUser(ctx, testEmail)
	if got := len(u.Progress["python"].Scores); got != n {
		t.Errorf("Scores recorded = %d, want %d", got, n)
	}
}

// barrierAttempts holds every Get until all expected readers have loaded the
// attempt, so concurrent submissions all pass the pre-lock checks.
type barrierAttempts struct {
	*assessment.MemoryAttemptStore
	readers sync.WaitGroup
}

func (b *barrierAttempts) Get(ctx context.Context, id string) (*assessment.Attempt, error) {
	a, err := b.MemoryAttemptStore.Get(ctx, id)
	b.readers.Done()
	b.readers.Wait()
	return a, err
}

func TestSubmitPreAssessment_ConcurrentSubmitScoresOnce(t *testing.T) {
	ctx := context.Background()
	const submitters = 2

	attempts := &barrierAttempts{MemoryAttemptStore: assessment.NewMemoryAttemptStore(time.Minute)}
	users := learner.NewMemoryRepository()
	svc, err := learning.NewService(learning.ServiceConfig{
		Catalog:     testCatalog(t),
		Users:       users,
		Attempts:    attempts,
		Credentials: learner.BcryptCredentials{Cost: 4},
		Rand:        rand.New(rand.NewPCG(1, 2)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Signup(ctx, "Ana", testEmail, testPassword); err != nil {
		t.Fatal(err)
	}
	a, err := svc.StartPreAssessment(ctx, testEmail, "Python")
	if err != nil {
		t.Fatal(err)
	}
	answers := make([]string, len(a.Questions))

	attempts.readers.Add(submitters)
	errs := make([]error, submitters)
	var wg sync.WaitGroup
	for i := range submitters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.SubmitPreAssessment(ctx, testEmail, "Python", a.ID, answers)
		}()
	}
	wg.Wait()

	var ok, notFound int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, learning.ErrNotFound):
			notFound++
		default:
			t.Errorf("unexpected error = %v", err)
		}
	}
	if ok != 1 || notFound != 1 {
		t.Errorf("succeeded = %d, not found = %d; want 1 and 1", ok, notFound)
	}

	u, _ := svc.GetUser(ctx, testEmail)
	if got := u.Progress["python"].Scores; len(got) != 1 {
		t.Errorf("Scores = %v, want a single entry", got)
	}
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if catalog.SameText(v, s) {
			return true
		}
	}
	return false
}
