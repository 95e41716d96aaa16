// Package telemetry provides OpenTelemetry observability for Barkeep
package telemetry

// Semantic convention keys for Barkeep-specific attributes
const (
	// Agent run attributes
	KeyUserID        = "barkeep.user.id"
	KeyRunID         = "barkeep.run.id"
	KeyIteration     = "barkeep.run.iteration"
	KeyStopReason    = "barkeep.run.stop_reason"
	KeyToolsEnabled  = "barkeep.run.tools_enabled"
	KeyArtifactCount = "barkeep.run.artifact_count"

	// Tool attributes
	KeyToolName    = "barkeep.tool.name"
	KeyToolOutcome = "barkeep.tool.outcome"

	// POS API attributes
	KeyPosterMethod = "barkeep.poster.method"

	// Surface attributes
	KeySource = "barkeep.source"
)
