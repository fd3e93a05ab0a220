// Package gemini implements generation.Generator on top of Google's Gemini
// API via the google.golang.org/genai client.
package gemini
