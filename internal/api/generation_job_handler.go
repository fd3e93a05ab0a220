package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/api/shared"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/platform/logger"
	"github.com/phrazzld/skillforge-api/internal/service"
)

// JobReader answers job queries. service.StatusService implements it.
type JobReader interface {
	GetStatus(ctx context.Context, jobID uuid.UUID) (*service.JobStatusReport, error)
	ListJobs(ctx context.Context, limit, offset int) ([]*domain.Job, error)
}

// GenerationJobHandler handles generation job HTTP requests
type GenerationJobHandler struct {
	creator service.JobCreator
	reader  JobReader
	logger  *slog.Logger
}

// NewGenerationJobHandler creates a new GenerationJobHandler
func NewGenerationJobHandler(creator service.JobCreator, reader JobReader, logger *slog.Logger) *GenerationJobHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationJobHandler{
		creator: creator,
		reader:  reader,
		logger:  logger.With(slog.String("component", "generation_job_handler")),
	}
}

// CreateJob handles POST /api/generation-jobs requests.
// It responds 202 Accepted once the job and its tasks are stored; generation
// continues in the background.
func (h *GenerationJobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateGenerationJobRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	operatorID, _ := shared.GetOperatorID(r.Context())
	createReq, err := req.toServiceRequest(operatorID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	result, err := h.creator.Create(r.Context(), createReq)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create generation job")
		return
	}

	log.Info("generation job accepted",
		slog.String("job_id", result.JobID.String()),
		slog.Int("total_employees", result.TotalEmployees))

	shared.RespondWithJSON(w, r, http.StatusAccepted, CreateGenerationJobResponse{
		Success:              true,
		JobID:                result.JobID.String(),
		TotalEmployees:       result.TotalEmployees,
		EstimatedTimeMinutes: result.EstimatedTimeMinutes,
	})
}

// GetJob handles GET /api/generation-jobs/{jobId} requests
func (h *GenerationJobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	jobID, ok := handlePathUUID(w, r, "jobId", log)
	if !ok {
		return
	}

	report, err := h.reader.GetStatus(r.Context(), jobID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get generation job")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, statusToResponse(report))
}

// ListJobs handles GET /api/generation-jobs requests
func (h *GenerationJobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	jobs, err := h.reader.ListJobs(r.Context(), limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list generation jobs")
		return
	}

	resp := JobListResponse{
		Success: true,
		Jobs:    make([]JobResponse, 0, len(jobs)),
		Limit:   limit,
		Offset:  offset,
	}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, jobToResponse(job))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
