// Package generation defines the boundary between the personalization
// pipeline and external LLM services. A Generator turns a rendered prompt
// into a validated CourseDraft; backends live under internal/platform
// (Gemini, OpenAI-compatible APIs) and share the prompt template, JSON
// extraction and schema checks implemented here.
package generation
