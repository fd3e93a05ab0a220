// Package mocks provides centralized mock implementations for testing.
//
// This package contains mock implementations of interfaces used throughout the application,
// facilitating consistent and DRY testing across the codebase. Instead of defining
// inline mocks in individual test files, these standardized mock implementations
// can be reused.
//
// The store fakes keep state in memory and apply the same status-transition
// guards as the PostgreSQL stores, so orchestration tests can run many
// workers against them concurrently.
//
// Usage:
//
// Import the mocks package in your test file and create the required mock:
//
//	import "github.com/phrazzld/skillforge-api/internal/mocks"
//
//	func TestSomething(t *testing.T) {
//	    jobs := mocks.NewInMemoryJobStore()
//	    generator := &mocks.MockGenerator{
//	        Err: generation.ErrTransientFailure,
//	    }
//
//	    // Use the fakes in your test...
//	}
//
// When adding a new mock to this package:
//  1. Create a new file named after the interface being mocked
//  2. Implement the mock struct with function fields for the methods tests override
//  3. Document any helper methods or special functionality
package mocks
