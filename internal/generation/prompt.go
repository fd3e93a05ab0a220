package generation

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"github.com/phrazzld/skillforge-api/internal/domain"
)

//go:embed prompt.tmpl
var defaultPromptTemplate string

// CourseBrief is the course the operator asked for.
type CourseBrief struct {
	Title           string
	Description     string
	DifficultyLevel domain.DifficultyLevel
}

// DocumentExcerpt is a reference document trimmed for the prompt.
type DocumentExcerpt struct {
	Title   string
	Excerpt string
}

// PromptData is everything a course prompt is rendered from.
type PromptData struct {
	Profile   *domain.EmployeeProfile
	Course    CourseBrief
	SkillGaps []string
	Documents []DocumentExcerpt

	MinModules  int
	MaxModules  int
	MinSections int
	MaxSections int
}

// PromptBuilder renders course prompts from a text template.
type PromptBuilder struct {
	tmpl *template.Template
}

// NewPromptBuilder parses the template at path, or the embedded default
// template when path is empty.
func NewPromptBuilder(path string) (*PromptBuilder, error) {
	source := defaultPromptTemplate
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
				ErrInvalidConfig, path, err)
		}
		source = string(content)
	}

	tmpl, err := template.New("course").Option("missingkey=error").Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", ErrInvalidConfig, err)
	}

	return &PromptBuilder{tmpl: tmpl}, nil
}

// Build renders the prompt. Shape bounds left at zero take the package
// defaults.
func (b *PromptBuilder) Build(data PromptData) (string, error) {
	if data.Profile == nil {
		return "", fmt.Errorf("%w: employee profile is required", domain.ErrMalformedProfile)
	}
	if data.MinModules == 0 {
		data.MinModules, data.MaxModules = MinModules, MaxModules
	}
	if data.MinSections == 0 {
		data.MinSections, data.MaxSections = MinSections, MaxSections
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
