package domain

type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageComplete   StageStatus = "complete"
	StageError      StageStatus = "error"
)

// ProcessingStage is one phase of the five-step extraction pipeline.
type ProcessingStage struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Status      StageStatus `json:"status"`
}

// StageCount is the fixed length of the pipeline stage sequence.
const StageCount = 5

// NewStages returns the stage sequence in initial (all pending) state.
func NewStages() []ProcessingStage {
	return []ProcessingStage{
		{Name: "Upload", Description: "Receiving and storing the source document", Status: StagePending},
		{Name: "Layout Analysis", Description: "Detecting regions, tables and reading order", Status: StagePending},
		{Name: "Text Recognition", Description: "Recognizing text in detected regions", Status: StagePending},
		{Name: "Content Analysis", Description: "Classifying recognized fragments into findings", Status: StagePending},
		{Name: "Data Integration", Description: "Reconciling findings and computing analytics", Status: StagePending},
	}
}
