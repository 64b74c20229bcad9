package entity

import "time"

type ExecutionStatus string

const (
	ExecutionSuccess        ExecutionStatus = "success"
	ExecutionPartialSuccess ExecutionStatus = "partial_success"
	ExecutionFailure        ExecutionStatus = "failure"
	ExecutionTimeout        ExecutionStatus = "timeout"
	ExecutionError          ExecutionStatus = "error"
)

type ArtifactType string

const (
	ArtifactText       ArtifactType = "text"
	ArtifactImage      ArtifactType = "image"
	ArtifactPDF        ArtifactType = "pdf"
	ArtifactFile       ArtifactType = "file"
	ArtifactJSON       ArtifactType = "json"
	ArtifactScreenshot ArtifactType = "screenshot"
)

// Artifact metadata keys shared by the executor and its callers.
const (
	MetaIsFinalResult    = "is_final_result"
	MetaExtractionMethod = "extraction_method"
	MetaDescription      = "description"
	MetaValue            = "value"
	MetaValueType        = "value_type"
	MetaStructured       = "structured"
	MetaError            = "error"
	MetaStep             = "step"
)

type Artifact struct {
	ID       string         `json:"artifact_id"`
	Type     ArtifactType   `json:"type"`
	Name     string         `json:"name"`
	Content  string         `json:"content,omitempty"`
	FilePath string         `json:"file_path,omitempty"`
	Metadata map[string]any `json:"metadata"`
}

type ExecutionResult struct {
	ID              string          `json:"execution_id"`
	PlanID          string          `json:"plan_id"`
	Status          ExecutionStatus `json:"status"`
	Artifacts       []Artifact      `json:"artifacts"`
	StepsCompleted  int             `json:"steps_completed"`
	TotalSteps      int             `json:"total_steps"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
	StartedAt       time.Time       `json:"started_at"`
	Metadata        map[string]any  `json:"metadata"`
}

// FinalResult returns the artifact flagged as the plan's answer, if any.
func (r *ExecutionResult) FinalResult() (Artifact, bool) {
	for i := len(r.Artifacts) - 1; i >= 0; i-- {
		if final, _ := r.Artifacts[i].Metadata[MetaIsFinalResult].(bool); final {
			return r.Artifacts[i], true
		}
	}
	return Artifact{}, false
}
