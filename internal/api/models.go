package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/service"
)

// CreateGenerationJobRequest defines the payload for starting a bulk
// personalization job.
type CreateGenerationJobRequest struct {
	GroupType       string   `json:"groupType"                 validate:"required,oneof=department position"`
	GroupID         string   `json:"groupId"                   validate:"required,uuid"`
	Title           string   `json:"title"                     validate:"required,max=200"`
	Description     string   `json:"description,omitempty"     validate:"max=4000"`
	DifficultyLevel string   `json:"difficultyLevel,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
	EmployeeIDs     []string `json:"employeeIds,omitempty"     validate:"omitempty,max=1000,dive,uuid"`
	SkillGaps       []string `json:"skillGaps,omitempty"       validate:"omitempty,max=50,dive,required,max=200"`
	DocumentIDs     []string `json:"documentIds,omitempty"     validate:"omitempty,max=20,dive,uuid"`
}

// toServiceRequest converts the validated payload.
func (r CreateGenerationJobRequest) toServiceRequest(operatorID uuid.UUID) (service.CreateJobRequest, error) {
	groupID, err := parseID("groupId", r.GroupID)
	if err != nil {
		return service.CreateJobRequest{}, err
	}
	employeeIDs, err := parseIDs("employeeIds", r.EmployeeIDs)
	if err != nil {
		return service.CreateJobRequest{}, err
	}
	documentIDs, err := parseIDs("documentIds", r.DocumentIDs)
	if err != nil {
		return service.CreateJobRequest{}, err
	}

	req := service.CreateJobRequest{
		GroupType:       domain.GroupType(r.GroupType),
		GroupID:         groupID,
		Title:           r.Title,
		Description:     r.Description,
		DifficultyLevel: domain.DifficultyLevel(r.DifficultyLevel),
		EmployeeIDs:     employeeIDs,
		SkillGaps:       r.SkillGaps,
		DocumentIDs:     documentIDs,
	}
	if operatorID != uuid.Nil {
		req.CreatedBy = &operatorID
	}
	return req, nil
}

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(field, "has invalid format", domain.ErrInvalidID)
	}
	return id, nil
}

func parseIDs(field string, values []string) ([]uuid.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := parseID(field, v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CreateGenerationJobResponse is returned once a job has been accepted.
type CreateGenerationJobResponse struct {
	Success              bool    `json:"success"`
	JobID                string  `json:"jobId"`
	TotalEmployees       int     `json:"totalEmployees"`
	EstimatedTimeMinutes float64 `json:"estimatedTimeMinutes"`
}

// JobResponse is the client view of a generation job.
type JobResponse struct {
	ID                   string     `json:"id"`
	GroupType            string     `json:"groupType"`
	GroupID              string     `json:"groupId"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	DifficultyLevel      string     `json:"difficultyLevel"`
	TotalEmployees       int        `json:"totalEmployees"`
	Status               string     `json:"status"`
	CreatedBy            *string    `json:"createdBy,omitempty"`
	CourseID             *string    `json:"courseId,omitempty"`
	RegeneratesContentID *string    `json:"regeneratesContentId,omitempty"`
	SkillGaps            []string   `json:"skillGaps,omitempty"`
	DocumentIDs          []string   `json:"documentIds,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
}

// TaskResponse is the client view of one employee's task.
type TaskResponse struct {
	ID          string     `json:"id"`
	EmployeeID  string     `json:"employeeId"`
	Status      string     `json:"status"`
	ContentID   *string    `json:"contentId,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// JobStatusResponse answers a status poll.
type JobStatusResponse struct {
	Success                 bool           `json:"success"`
	Job                     JobResponse    `json:"job"`
	Tasks                   []TaskResponse `json:"tasks"`
	Progress                int            `json:"progress"`
	EstimatedCompletionTime *time.Time     `json:"estimatedCompletionTime,omitempty"`
	PollIntervalSeconds     int            `json:"pollIntervalSeconds"`
}

// JobListResponse lists recent jobs.
type JobListResponse struct {
	Success bool          `json:"success"`
	Jobs    []JobResponse `json:"jobs"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

// RegenerateCourseRequest asks for fresh content for one employee and course.
type RegenerateCourseRequest struct {
	CourseID        string `json:"courseId"                  validate:"required,uuid"`
	EmployeeID      string `json:"employeeId"                validate:"required,uuid"`
	ForceRegenerate bool   `json:"forceRegenerate,omitempty"`
}

// RegenerateCourseResponse reports whether generation was scheduled and the
// employee's current content.
type RegenerateCourseResponse struct {
	Success  bool             `json:"success"`
	Accepted bool             `json:"accepted"`
	JobID    *string          `json:"jobId,omitempty"`
	Course   *ContentResponse `json:"course"`
}

// ContentEnvelope wraps a single content record.
type ContentEnvelope struct {
	Success bool            `json:"success"`
	Content ContentResponse `json:"content"`
}

// ContentResponse is the client view of a generated course.
type ContentResponse struct {
	ID                     string           `json:"id"`
	EmployeeID             string           `json:"employeeId"`
	CourseID               *string          `json:"courseId,omitempty"`
	JobID                  *string          `json:"jobId,omitempty"`
	Title                  string           `json:"title"`
	Description            string           `json:"description"`
	LearningObjectives     []string         `json:"learningObjectives"`
	Modules                []ModuleResponse `json:"modules"`
	PersonalizationParams  json.RawMessage  `json:"personalizationParams,omitempty"`
	PersonalizationContext json.RawMessage  `json:"personalizationContext,omitempty"`
	IsActive               bool             `json:"isActive"`
	IsRegenerating         bool             `json:"isRegenerating"`
	CreatedAt              time.Time        `json:"createdAt"`
	UpdatedAt              time.Time        `json:"updatedAt"`
}

// ModuleResponse is one module of a course.
type ModuleResponse struct {
	ID          string            `json:"moduleId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	OrderIndex  int               `json:"orderIndex"`
	Sections    []SectionResponse `json:"sections"`
}

// SectionResponse is one section of a module.
type SectionResponse struct {
	ID                 string       `json:"sectionId"`
	Title              string       `json:"title"`
	Content            string       `json:"content"`
	CaseStudy          string       `json:"caseStudy,omitempty"`
	ActionableTakeaway string       `json:"actionableTakeaway,omitempty"`
	Quiz               QuizResponse `json:"quiz"`
	OrderIndex         int          `json:"orderIndex"`
}

// QuizResponse is a section's closing question.
type QuizResponse struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

func optionalID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func jobToResponse(job *domain.Job) JobResponse {
	resp := JobResponse{
		ID:                   job.ID.String(),
		GroupType:            string(job.GroupType),
		GroupID:              job.GroupID.String(),
		Title:                job.Title,
		Description:          job.Description,
		DifficultyLevel:      string(job.DifficultyLevel),
		TotalEmployees:       job.TotalEmployees,
		Status:               string(job.Status),
		CreatedBy:            optionalID(job.CreatedBy),
		CourseID:             optionalID(job.CourseID),
		RegeneratesContentID: optionalID(job.RegeneratesContentID),
		SkillGaps:            job.Params.SkillGaps,
		CreatedAt:            job.CreatedAt,
		UpdatedAt:            job.UpdatedAt,
		CompletedAt:          job.CompletedAt,
	}
	for _, id := range job.Params.DocumentIDs {
		resp.DocumentIDs = append(resp.DocumentIDs, id.String())
	}
	return resp
}

func taskToResponse(t *domain.GenerationTask) TaskResponse {
	return TaskResponse{
		ID:          t.ID.String(),
		EmployeeID:  t.EmployeeID.String(),
		Status:      string(t.Status),
		ContentID:   optionalID(t.ContentID),
		Error:       t.Error,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
	}
}

func statusToResponse(report *service.JobStatusReport) JobStatusResponse {
	tasks := make([]TaskResponse, 0, len(report.Tasks))
	for _, t := range report.Tasks {
		tasks = append(tasks, taskToResponse(t))
	}
	return JobStatusResponse{
		Success:                 true,
		Job:                     jobToResponse(report.Job),
		Tasks:                   tasks,
		Progress:                report.Progress,
		EstimatedCompletionTime: report.EstimatedCompletionTime,
		PollIntervalSeconds:     int(report.PollInterval.Seconds()),
	}
}

func contentToResponse(c *domain.GeneratedContent) *ContentResponse {
	if c == nil {
		return nil
	}

	resp := &ContentResponse{
		ID:                     c.ID.String(),
		EmployeeID:             c.EmployeeID.String(),
		CourseID:               optionalID(c.CourseID),
		JobID:                  optionalID(c.JobID),
		Title:                  c.Title,
		Description:            c.Description,
		LearningObjectives:     c.LearningObjectives,
		Modules:                make([]ModuleResponse, 0, len(c.Modules)),
		PersonalizationParams:  c.PersonalizationParams,
		PersonalizationContext: c.PersonalizationContext,
		IsActive:               c.IsActive,
		IsRegenerating:         c.IsRegenerating,
		CreatedAt:              c.CreatedAt,
		UpdatedAt:              c.UpdatedAt,
	}
	if resp.LearningObjectives == nil {
		resp.LearningObjectives = []string{}
	}

	for _, m := range c.Modules {
		module := ModuleResponse{
			ID:          m.ID.String(),
			Title:       m.Title,
			Description: m.Description,
			OrderIndex:  m.OrderIndex,
			Sections:    make([]SectionResponse, 0, len(m.Sections)),
		}
		for _, s := range m.Sections {
			module.Sections = append(module.Sections, SectionResponse{
				ID:                 s.ID.String(),
				Title:              s.Title,
				Content:            s.Content,
				CaseStudy:          s.CaseStudy,
				ActionableTakeaway: s.ActionableTakeaway,
				Quiz: QuizResponse{
					Question:      s.Quiz.Question,
					Options:       s.Quiz.Options,
					CorrectAnswer: s.Quiz.CorrectAnswer,
					Explanation:   s.Quiz.Explanation,
				},
				OrderIndex: s.OrderIndex,
			})
		}
		resp.Modules = append(resp.Modules, module)
	}
	return resp
}
