// Package openai implements generation.Generator against any
// OpenAI-compatible chat completions API (OpenAI, Groq and similar).
package openai
