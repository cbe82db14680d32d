package services

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/praxis/interviewer/models"
	"github.com/krshsl/praxis/interviewer/repository"
)

type ResumeEndpoints struct {
	repo *repository.GORMRepository
}

type CreateResumeRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type GetResumesResponse struct {
	Resumes []models.Resume `json:"resumes"`
	Count   int             `json:"count"`
}

func NewResumeEndpoints(repo *repository.GORMRepository) *ResumeEndpoints {
	return &ResumeEndpoints{repo: repo}
}

func (e *ResumeEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/resumes", func(r chi.Router) {
		r.Post("/", e.CreateResumeHandler)
		r.Get("/", e.GetResumesHandler)
		r.Get("/{id}", e.GetResumeHandler)
	})
}

func (e *ResumeEndpoints) CreateResumeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req CreateResumeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "Resume content is required")
		return
	}
	if req.Title == "" {
		req.Title = "Untitled resume"
	}

	resume := models.Resume{UserID: user.ID, Title: req.Title, Content: req.Content}
	if err := e.repo.CreateResume(r.Context(), &resume); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create resume")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"resume":  resume,
		"message": "Resume created successfully",
	})
}

func (e *ResumeEndpoints) GetResumesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	resumes, err := e.repo.GetResumes(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get resumes")
		return
	}
	writeJSON(w, http.StatusOK, GetResumesResponse{Resumes: resumes, Count: len(resumes)})
}

func (e *ResumeEndpoints) GetResumeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	resumeID := chi.URLParam(r, "id")
	resume, err := e.repo.GetResumeForUser(r.Context(), resumeID, user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get resume")
		return
	}
	if resume == nil {
		writeError(w, http.StatusNotFound, "Resume not found")
		return
	}

	slog.Debug("Resume retrieved", "resume_id", resumeID, "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"resume": resume})
}
