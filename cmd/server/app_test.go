package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/config"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/generation"
	"github.com/phrazzld/skillforge-api/internal/mocks"
	"github.com/phrazzld/skillforge-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, LogLevel: "debug", ShutdownTimeout: 5 * time.Second},
		Database: config.DatabaseConfig{
			URL:             "postgres://skillforge@localhost:5432/skillforge",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Auth: config.AuthConfig{
			JWTSecret:            strings.Repeat("k", 32),
			TokenLifetimeMinutes: 60,
		},
		LLM: config.LLMConfig{
			Provider:       config.ProviderOpenAI,
			OpenAIAPIKey:   "test-key",
			OpenAIBaseURL:  "http://127.0.0.1:1/v1",
			ModelName:      "llama-3.3-70b-versatile",
			RequestTimeout: time.Second,
		},
		Generation: config.GenerationConfig{
			WorkerCount:          2,
			QueueSize:            10,
			MaxAttempts:          2,
			MinutesPerEmployee:   2.5,
			PollInterval:         10 * time.Second,
			DocumentExcerptChars: 1000,
		},
	}
}

type testApp struct {
	*application
	jobs      *mocks.InMemoryJobStore
	contents  *mocks.InMemoryContentStore
	directory *mocks.InMemoryDirectory
	generator *mocks.MockGenerator
	server    *httptest.Server
	token     string
}

// newTestApp wires the application on in-memory stores, starts it and serves
// its router.
func newTestApp(t *testing.T, seed func(ta *testApp)) *testApp {
	t.Helper()
	_, log := logger.NewTestLogger(t)

	ta := &testApp{
		jobs:      mocks.NewInMemoryJobStore(),
		contents:  mocks.NewInMemoryContentStore(),
		directory: mocks.NewInMemoryDirectory(),
		generator: &mocks.MockGenerator{},
	}
	if seed != nil {
		seed(ta)
	}

	app, err := newApplication(testConfig(), log, nil, appStores{
		jobs:      ta.jobs,
		contents:  ta.contents,
		directory: ta.directory,
	}, ta.generator)
	require.NoError(t, err)
	ta.application = app

	require.NoError(t, app.start(context.Background()))
	t.Cleanup(app.cleanup)

	ta.server = httptest.NewServer(app.setupRouter())
	t.Cleanup(ta.server.Close)

	ta.token, err = app.jwtService.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)
	return ta
}

func (ta *testApp) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ta.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+ta.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ta.server.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func addEngineer(d *mocks.InMemoryDirectory, departmentID uuid.UUID, name, position string) uuid.UUID {
	id := uuid.New()
	d.AddEmployee(&domain.EmployeeProfile{
		Employee: domain.Employee{
			ID:             id,
			FullName:       name,
			DepartmentID:   departmentID,
			DepartmentName: "Engineering",
			PositionID:     uuid.New(),
			PositionName:   position,
			IsActive:       true,
		},
		SkillGaps: []string{"observability"},
	})
	return id
}

func TestApplication_GenerationJobLifecycle(t *testing.T) {
	engineering := uuid.New()
	ta := newTestApp(t, func(ta *testApp) {
		addEngineer(ta.directory, engineering, "Ada Okafor", "Backend Engineer")
		addEngineer(ta.directory, engineering, "Jonas Brandt", "Platform Engineer")
		addEngineer(ta.directory, engineering, "Marcus Webb", "")
	})

	resp, body := ta.do(t, http.MethodPost, "/api/generation-jobs", map[string]any{
		"groupType": "department",
		"groupId":   engineering.String(),
		"title":     "Production Readiness",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, body)
	assert.Equal(t, float64(3), body["totalEmployees"])
	assert.Equal(t, 7.5, body["estimatedTimeMinutes"])
	jobID := body["jobId"].(string)

	var status map[string]any
	require.Eventually(t, func() bool {
		resp, status = ta.do(t, http.MethodGet, "/api/generation-jobs/"+jobID, nil)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		job := status["job"].(map[string]any)
		return job["status"] != "queued" && job["status"] != "running"
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, "completed_with_errors", status["job"].(map[string]any)["status"])
	assert.Equal(t, float64(100), status["progress"])
	assert.Equal(t, float64(10), status["pollIntervalSeconds"])
	assert.Nil(t, status["estimatedCompletionTime"])

	var contentID string
	failed := 0
	for _, raw := range status["tasks"].([]any) {
		task := raw.(map[string]any)
		switch task["status"] {
		case "completed":
			contentID = task["contentId"].(string)
		case "failed":
			failed++
			assert.NotEmpty(t, task["error"])
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, ta.generator.Calls())

	resp, body = ta.do(t, http.MethodGet, "/api/content/"+contentID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	content := body["content"].(map[string]any)
	assert.Equal(t, true, content["isActive"])
	assert.Len(t, content["modules"], generation.MinModules)

	resp, body = ta.do(t, http.MethodGet, "/api/generation-jobs?limit=5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["jobs"], 1)
}

func TestApplication_EmptyGroup(t *testing.T) {
	ta := newTestApp(t, nil)

	resp, body := ta.do(t, http.MethodPost, "/api/generation-jobs", map[string]any{
		"groupType": "position",
		"groupId":   uuid.NewString(),
		"title":     "Production Readiness",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, 0, ta.jobs.JobCount())
}

func TestApplication_RejectsUnauthenticatedRequests(t *testing.T) {
	ta := newTestApp(t, nil)

	resp, err := ta.server.Client().Post(ta.server.URL+"/api/generation-jobs", "application/json",
		strings.NewReader(fmt.Sprintf(`{"groupType":"department","groupId":%q,"title":"x"}`, uuid.New())))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, ta.jobs.JobCount())

	health, err := ta.server.Client().Get(ta.server.URL + "/health")
	require.NoError(t, err)
	_ = health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestApplication_ResumesQueuedWork(t *testing.T) {
	department := uuid.New()
	var taskID uuid.UUID
	ta := newTestApp(t, func(ta *testApp) {
		employee := addEngineer(ta.directory, department, "Ada Okafor", "Backend Engineer")
		job, err := domain.NewJob(domain.GroupTypeDepartment, department, "Production Readiness", "", "", 1)
		require.NoError(t, err)
		record, err := domain.NewGenerationTask(job.ID, employee)
		require.NoError(t, err)
		require.NoError(t, ta.jobs.CreateWithTasks(context.Background(), job, []*domain.GenerationTask{record}))
		ta.jobs.SetTaskStatus(record.ID, domain.TaskStatusRunning)
		taskID = record.ID
	})

	require.Eventually(t, func() bool {
		record, err := ta.jobs.GetTask(context.Background(), taskID)
		return err == nil && record.Status == domain.TaskStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestApplication_ServeShutsDownOnCancel(t *testing.T) {
	ta := newTestApp(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	server := &http.Server{Addr: "127.0.0.1:0", Handler: ta.setupRouter()}

	done := make(chan error, 1)
	go func() { done <- ta.serve(ctx, server) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNewGenerator(t *testing.T) {
	_, log := logger.NewTestLogger(t)

	cfg := testConfig().LLM
	generator, err := newGenerator(context.Background(), cfg, log)
	require.NoError(t, err)
	assert.NotNil(t, generator)

	cfg.Provider = "anthropic"
	_, err = newGenerator(context.Background(), cfg, log)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	cfg = testConfig().LLM
	cfg.OpenAIAPIKey = ""
	_, err = newGenerator(context.Background(), cfg, log)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestNewApplication_InvalidAuthConfig(t *testing.T) {
	_, log := logger.NewTestLogger(t)
	cfg := testConfig()
	cfg.Auth.JWTSecret = "short"

	_, err := newApplication(cfg, log, nil, appStores{
		jobs:      mocks.NewInMemoryJobStore(),
		contents:  mocks.NewInMemoryContentStore(),
		directory: mocks.NewInMemoryDirectory(),
	}, &mocks.MockGenerator{})
	assert.ErrorContains(t, err, "JWT service")
}
