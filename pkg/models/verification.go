package models

// PassingScore is the minimum judge score for a passing verification.
const PassingScore = 0.7

// Severity classifies a verification issue.
type Severity string

const (
	// SeverityCritical blocks verification.
	SeverityCritical Severity = "CRITICAL"
	// SeverityWarning is reported but does not block.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo is informational.
	SeverityInfo Severity = "INFO"
)

// Valid returns true if the severity is a known value.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return true
	default:
		return false
	}
}

// Issue is a single verification finding.
type Issue struct {
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Location    string   `json:"location,omitempty"`
}

// VerificationResult is the combined outcome of all verification layers.
type VerificationResult struct {
	Score       float64  `json:"score"`
	Issues      []Issue  `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// Passed reports whether there is no critical issue and the score
// reaches PassingScore.
func (r VerificationResult) Passed() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityCritical {
			return false
		}
	}
	return r.Score >= PassingScore
}
