package generation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON isolates the JSON object in a model reply. Models often wrap
// the object in a markdown fence or surround it with prose, so the fenced
// block is preferred when present and the outermost braces are taken from
// whatever remains.
func ExtractJSON(text string) (string, error) {
	body := strings.TrimSpace(text)

	if start := strings.Index(body, "```"); start >= 0 {
		rest := body[start+3:]
		// Skip the info string, e.g. ```json
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		body = rest
	}

	open := strings.IndexByte(body, '{')
	closing := strings.LastIndexByte(body, '}')
	if open < 0 || closing <= open {
		return "", fmt.Errorf("%w: no JSON object in model output", ErrInvalidResponse)
	}

	return body[open : closing+1], nil
}

// ParseCourseDraft extracts, decodes and validates a course from raw model
// output. All failures wrap ErrInvalidResponse.
func ParseCourseDraft(text string) (*CourseDraft, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var draft CourseDraft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", ErrInvalidResponse, err)
	}

	if err := draft.Validate(); err != nil {
		return nil, err
	}

	return &draft, nil
}
