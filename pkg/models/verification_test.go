package models

import "testing"

func TestVerificationResult_Passed(t *testing.T) {
	tests := []struct {
		name   string
		result VerificationResult
		want   bool
	}{
		{"high score no issues", VerificationResult{Score: 0.9}, true},
		{"threshold score passes", VerificationResult{Score: 0.7}, true},
		{"low score fails", VerificationResult{Score: 0.69}, false},
		{"warning does not block", VerificationResult{Score: 0.8, Issues: []Issue{{Severity: SeverityWarning}}}, true},
		{"critical blocks high score", VerificationResult{Score: 1.0, Issues: []Issue{{Severity: SeverityCritical}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Passed(); got != tt.want {
				t.Errorf("Passed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResultText(t *testing.T) {
	if got := ResultText(Success{Output: "ok"}); got != "ok" {
		t.Errorf("ResultText(Success) = %q", got)
	}
	if got := ResultText(Failure{Error: "boom"}); got != "boom" {
		t.Errorf("ResultText(Failure) = %q", got)
	}
}
