// Package domain holds the entities of course personalization: generation
// jobs and tasks with their status machines, generated content split into
// modules and sections, and the employee, document and course records read
// from the directory.
//
// Constructors validate their inputs and return ErrValidation-wrapped
// errors; nothing here touches storage or the network.
package domain
