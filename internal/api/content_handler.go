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

// ContentService serves generated content and regeneration requests.
// service.StatusService implements it.
type ContentService interface {
	RequestRegeneration(ctx context.Context, req service.RegenerationRequest) (*service.RegenerationResult, error)
	GetContent(ctx context.Context, contentID uuid.UUID) (*domain.GeneratedContent, error)
}

// ContentHandler handles generated content HTTP requests
type ContentHandler struct {
	contents ContentService
	logger   *slog.Logger
}

// NewContentHandler creates a new ContentHandler
func NewContentHandler(contents ContentService, logger *slog.Logger) *ContentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentHandler{
		contents: contents,
		logger:   logger.With(slog.String("component", "content_handler")),
	}
}

// RegenerateCourse handles POST /api/courses/regenerate requests.
// It responds 202 when generation was scheduled and 200 when the existing
// content was returned unchanged.
func (h *ContentHandler) RegenerateCourse(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req RegenerateCourseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	courseID, err := parseID("courseId", req.CourseID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	employeeID, err := parseID("employeeId", req.EmployeeID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	regenReq := service.RegenerationRequest{
		CourseID:        courseID,
		EmployeeID:      employeeID,
		ForceRegenerate: req.ForceRegenerate,
	}
	if operatorID, ok := shared.GetOperatorID(r.Context()); ok {
		regenReq.RequestedBy = &operatorID
	}

	result, err := h.contents.RequestRegeneration(r.Context(), regenReq)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to regenerate course")
		return
	}

	status := http.StatusOK
	if result.Accepted {
		status = http.StatusAccepted
		log.Info("course generation scheduled",
			slog.String("course_id", courseID.String()),
			slog.String("employee_id", employeeID.String()),
			slog.Bool("force", req.ForceRegenerate))
	}

	shared.RespondWithJSON(w, r, status, RegenerateCourseResponse{
		Success:  true,
		Accepted: result.Accepted,
		JobID:    optionalID(result.JobID),
		Course:   contentToResponse(result.Content),
	})
}

// GetContent handles GET /api/content/{contentId} requests
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	contentID, ok := handlePathUUID(w, r, "contentId", log)
	if !ok {
		return
	}

	content, err := h.contents.GetContent(r.Context(), contentID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get content")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ContentEnvelope{
		Success: true,
		Content: *contentToResponse(content),
	})
}
