package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/praxis/interviewer/metrics"
	"github.com/krshsl/praxis/interviewer/models"
	"github.com/krshsl/praxis/interviewer/repository"
)

const (
	maxRecordingSize        = 512 << 20
	defaultMaxTelemetrySize = 64 << 20
)

type InterviewEndpoints struct {
	repo       *repository.GORMRepository
	questions  *QuestionService
	reports    *ReportService
	video      *VideoService
	recordings *RecordingService

	maxTelemetry int64
}

type CreateInterviewRequest struct {
	ResumeID string `json:"resume_id"`
}

type CreateInterviewResponse struct {
	InterviewID string   `json:"interview_id"`
	Questions   []string `json:"questions"`
}

type GetInterviewsResponse struct {
	Interviews []models.Interview `json:"interviews"`
	Count      int                `json:"count"`
}

func NewInterviewEndpoints(repo *repository.GORMRepository, questions *QuestionService, reports *ReportService, video *VideoService, recordings *RecordingService, maxTelemetry int64) *InterviewEndpoints {
	if maxTelemetry <= 0 {
		maxTelemetry = defaultMaxTelemetrySize
	}
	return &InterviewEndpoints{
		repo:         repo,
		questions:    questions,
		reports:      reports,
		video:        video,
		recordings:   recordings,
		maxTelemetry: maxTelemetry,
	}
}

func (e *InterviewEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/interviews", func(r chi.Router) {
		r.Post("/", e.CreateInterviewHandler)
		r.Get("/", e.GetInterviewsHandler)
		r.Get("/{id}", e.GetInterviewHandler)
		r.Get("/{id}/report", e.GetReportHandler)
		r.Post("/{id}/video-analysis", e.SubmitVideoHandler)
		r.Post("/{id}/recording", e.UploadRecordingHandler)
	})
}

// serviceError maps service sentinels onto HTTP statuses.
func serviceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInterviewNotFound):
		writeError(w, http.StatusNotFound, "Interview not found")
	case errors.Is(err, ErrResumeNotFound):
		writeError(w, http.StatusNotFound, "Resume not found")
	case errors.Is(err, ErrNoAnswers):
		writeError(w, http.StatusConflict, "Interview has no answers yet")
	case errors.Is(err, ErrGenerationUnavailable), errors.Is(err, ErrStorageDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ErrNoQuestionsGenerated):
		writeError(w, http.StatusBadGateway, "Could not generate questions, please retry")
	default:
		slog.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func (e *InterviewEndpoints) CreateInterviewHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req CreateInterviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ResumeID) == "" {
		writeError(w, http.StatusBadRequest, "resume_id is required")
		return
	}

	interview, err := e.questions.CreateInterview(r.Context(), user.ID, req.ResumeID)
	if err != nil {
		serviceError(w, err, "Failed to create interview")
		return
	}

	texts := make([]string, len(interview.Questions))
	for i, q := range interview.Questions {
		texts[i] = q.QuestionText
	}
	writeJSON(w, http.StatusCreated, CreateInterviewResponse{InterviewID: interview.ID, Questions: texts})
}

func (e *InterviewEndpoints) GetInterviewsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	interviews, err := e.repo.GetInterviews(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get interviews")
		return
	}
	writeJSON(w, http.StatusOK, GetInterviewsResponse{Interviews: interviews, Count: len(interviews)})
}

func (e *InterviewEndpoints) GetInterviewHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	interview, err := e.repo.GetInterviewDetail(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get interview")
		return
	}
	if interview == nil {
		writeError(w, http.StatusNotFound, "Interview not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interview": interview})
}

func (e *InterviewEndpoints) GetReportHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	report, err := e.reports.FetchReport(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err, "Failed to generate report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// SubmitVideoHandler accepts a bare frame array or {"frames": [...]}.
func (e *InterviewEndpoints) SubmitVideoHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	// Full landmark lists run to tens of KB per frame.
	var body json.RawMessage
	if !decodeJSONLimit(w, r, &body, e.maxTelemetry) {
		return
	}
	frames, err := decodeFrames(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid landmark frames")
		return
	}

	stored, created, err := e.video.Submit(r.Context(), user.ID, chi.URLParam(r, "id"), frames)
	if err != nil {
		serviceError(w, err, "Failed to store video analysis")
		return
	}

	if !created {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":        "Video analysis already exists",
			"video_analysis": stored,
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":        "Video analysis saved",
		"video_analysis": stored,
	})
}

func decodeFrames(body json.RawMessage) ([]metrics.Frame, error) {
	var frames []metrics.Frame
	if err := json.Unmarshal(body, &frames); err == nil {
		return frames, nil
	}
	var wrapped struct {
		Frames []metrics.Frame `json:"frames"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Frames, nil
}

func (e *InterviewEndpoints) UploadRecordingHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if !e.recordings.Enabled() {
		writeError(w, http.StatusServiceUnavailable, ErrStorageDisabled.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRecordingSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		writeError(w, http.StatusBadRequest, "video file is required")
		return
	}
	defer file.Close()

	url, err := e.recordings.Upload(r.Context(), user.ID, chi.URLParam(r, "id"), file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		serviceError(w, err, "Failed to upload recording")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"video_url": url, "message": "Recording uploaded"})
}
