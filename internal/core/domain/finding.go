package domain

// Category buckets a finding by the kind of quality issue it describes.
type Category string

const (
	CategoryMaterialDefect    Category = "material-defect"
	CategoryAssemblyIssue     Category = "assembly-issue"
	CategoryStandardViolation Category = "quality-standard-violation"
	CategoryProcessDeviation  Category = "process-deviation"
	CategoryUncategorized     Category = "uncategorized"
)

// DisplayName is the human-readable label used in analytics buckets.
func (c Category) DisplayName() string {
	switch c {
	case CategoryMaterialDefect:
		return "Material Defect"
	case CategoryAssemblyIssue:
		return "Assembly Issue"
	case CategoryStandardViolation:
		return "Quality Standard Violation"
	case CategoryProcessDeviation:
		return "Process Deviation"
	default:
		return "Uncategorized"
	}
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// InspectionType identifies the inspection context a document was scanned in.
type InspectionType string

const (
	InspectionInProcess       InspectionType = "in-process"
	InspectionFinalQC         InspectionType = "final-qc"
	InspectionExecutiveReview InspectionType = "executive-review"
	InspectionPDI             InspectionType = "pdi"
)

// Valid reports whether t is one of the accepted inspection types.
func (t InspectionType) Valid() bool {
	switch t {
	case InspectionInProcess, InspectionFinalQC, InspectionExecutiveReview, InspectionPDI:
		return true
	}
	return false
}

// DefaultDepartment returns the department a finding is attributed to when
// the recognized fragment does not name one.
func (t InspectionType) DefaultDepartment() string {
	switch t {
	case InspectionInProcess:
		return "Manufacturing"
	case InspectionExecutiveReview:
		return "Management"
	case InspectionPDI:
		return "PreDelivery"
	default:
		return "QualityControl"
	}
}

// TableCell is one recognized cell of a tabular fragment.
type TableCell struct {
	RowIndex    int     `json:"row_index"`
	ColumnIndex int     `json:"column_index"`
	Text        string  `json:"text"`
	Confidence  float64 `json:"confidence"`
}

// Finding is one recognized, classified unit of evidence extracted from a
// quality-control document.
//
// IsTable and IsStructuredRow are not mutually exclusive: a structured row
// is a derived view flattened out of a table fragment, and the raw table
// fragment it came from stays visible alongside it.
type Finding struct {
	Text        string    `json:"text"`
	Confidence  float64   `json:"confidence"`
	BoundingBox []float64 `json:"bounding_box,omitempty"` // 8 numbers, quadrilateral corners

	Category   Category `json:"category"`
	Severity   Severity `json:"severity"`
	Department string   `json:"department"`
	Location   string   `json:"location,omitempty"`

	IsTable         bool        `json:"is_table"`
	TableCells      []TableCell `json:"table_cells,omitempty"`
	IsStructuredRow bool        `json:"is_structured_row"`
}
