// Package services holds the error taxonomy and context plumbing shared by
// the external-service clients and the generation pipeline.
//
// Errors raised inside pipeline stages are tagged with one of the exported
// sentinel markers so the stage runner can classify a failure (configuration
// mistake vs. collaborator outage) without string matching.
package services
