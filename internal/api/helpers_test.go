package api

import (
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/generation"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func generationTarget(employeeID, courseID uuid.UUID) generation.ContentTarget {
	return generation.ContentTarget{EmployeeID: employeeID, CourseID: &courseID}
}
