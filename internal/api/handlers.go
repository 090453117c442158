package api

import (
	"bytes"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/p-n-ai/pai-learn/internal/learning"
	"github.com/p-n-ai/pai-learn/internal/report"
)

func param(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.svc.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserView(u))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, exp, err := s.tokens.Issue(u.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: exp})
}

func (s *server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.GetUser(r.Context(), currentEmail(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(u))
}

type patchMeRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

func (s *server) handlePatchMe(w http.ResponseWriter, r *http.Request) {
	var req patchMeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.svc.UpdateUser(r.Context(), currentEmail(r), learning.UserPatch{
		Name:     req.Name,
		Password: req.Password,
	})
	if u == nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		userView
		Warning string `json:"warning,omitempty"`
	}{newUserView(u), warning(err)})
}

func (s *server) handleCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.svc.Courses(r.Context(), currentEmail(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": courses})
}

func (s *server) handleCourseDetail(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.CourseDetail(r.Context(), currentEmail(r), param(r, "course"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCourseDetailView(d))
}

func (s *server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	enrolled, err := s.svc.Enroll(r.Context(), currentEmail(r), param(r, "course"))
	if err != nil && !learning.IsPersistence(err) {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Enrolled bool   `json:"enrolled"`
		Warning  string `json:"warning,omitempty"`
	}{enrolled, warning(err)})
}

func (s *server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	course := param(r, "course")
	mods, err := s.svc.Recommend(r.Context(), currentEmail(r), course)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"modules": moduleSummaries(mods)})
}

func (s *server) handleStartPreAssessment(w http.ResponseWriter, r *http.Request) {
	course := param(r, "course")
	a, err := s.svc.StartPreAssessment(r.Context(), currentEmail(r), course)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, _ := s.svc.Catalog().Course(course)
	writeJSON(w, http.StatusOK, newAttemptView(c.Name, a))
}

type answersRequest struct {
	Answers []string `json:"answers"`
}

func (s *server) handleSubmitPreAssessment(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.SubmitPreAssessment(r.Context(), currentEmail(r), param(r, "course"), param(r, "attempt"), req.Answers)
	if res == nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, placementResponse{PlacementResult: res, Warning: warning(err)})
}

func (s *server) handleModule(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.Module(param(r, "course"), param(r, "module"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newModuleView(m))
}

func (s *server) handleModuleAssessment(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	module := param(r, "module")
	res, err := s.svc.EvaluateModule(r.Context(), currentEmail(r), param(r, "course"), module, req.Answers)
	if res == nil {
		writeError(w, r, err)
		return
	}
	m, _ := s.svc.Module(param(r, "course"), module)
	writeJSON(w, http.StatusOK, moduleResultResponse{ModuleResult: res, Module: m.Title, Warning: warning(err)})
}

func (s *server) handleProgress(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Progress(r.Context(), currentEmail(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *server) handleProgressExport(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Progress(r.Context(), currentEmail(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteProgress(&buf, sum); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="progress.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
