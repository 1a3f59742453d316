package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAddCheck_FailedFlipsPassed(t *testing.T) {
	r := NewValidationReport()
	if !r.Passed {
		t.Fatal("new report should start passed")
	}

	r.AddCheck(CheckResult{Name: "language_ceiling", Status: CheckPassed})
	if !r.Passed {
		t.Error("passed check should not flip Passed")
	}

	r.AddCheck(CheckResult{Name: "audio_pacing", Status: CheckFailed, Message: "no [Pause] marker found"})
	if r.Passed {
		t.Error("failed check should flip Passed to false")
	}
	if len(r.Errors) != 1 {
		t.Fatalf("Errors = %d, want 1", len(r.Errors))
	}
	if r.Errors[0].Type != "audio_pacing" || r.Errors[0].Severity != "high" {
		t.Errorf("error entry = %+v, want type audio_pacing severity high", r.Errors[0])
	}
}

func TestAddCheck_WarningNeverFlipsPassed(t *testing.T) {
	r := NewValidationReport()
	r.AddCheck(CheckResult{Name: "definition_alignment", Status: CheckWarning, Message: "no reference definitions"})

	if !r.Passed {
		t.Error("warning should not flip Passed")
	}
	if len(r.Warnings) != 1 {
		t.Fatalf("Warnings = %d, want 1", len(r.Warnings))
	}
	if r.Warnings[0].Severity != "low" {
		t.Errorf("warning severity = %q, want low", r.Warnings[0].Severity)
	}
	if len(r.Errors) != 0 {
		t.Errorf("Errors = %d, want 0", len(r.Errors))
	}
}

func TestComputeScore(t *testing.T) {
	tests := []struct {
		name     string
		statuses []CheckStatus
		want     float64
	}{
		{"empty", nil, 0.0},
		{"all passed", []CheckStatus{CheckPassed, CheckPassed, CheckPassed}, 1.0},
		{"all failed", []CheckStatus{CheckFailed, CheckFailed}, 0.0},
		{
			"six passed one warning one failed",
			[]CheckStatus{
				CheckPassed, CheckPassed, CheckPassed, CheckPassed,
				CheckPassed, CheckPassed, CheckWarning, CheckFailed,
			},
			0.81,
		},
		{"half warnings", []CheckStatus{CheckWarning, CheckWarning}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewValidationReport()
			for _, st := range tt.statuses {
				r.AddCheck(CheckResult{Name: "check", Status: st})
			}
			r.ComputeScore()
			if r.OverallScore != tt.want {
				t.Errorf("OverallScore = %v, want %v", r.OverallScore, tt.want)
			}
		})
	}
}

func TestValidationReport_MarshalJSON_NilSlices(t *testing.T) {
	data, err := json.Marshal(*NewValidationReport())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	s := string(data)
	for _, field := range []string{`"checks":[]`, `"warnings":[]`, `"errors":[]`} {
		if !strings.Contains(s, field) {
			t.Errorf("marshaled report missing %s: %s", field, s)
		}
	}
	if strings.Contains(s, "null") {
		t.Errorf("marshaled report contains null: %s", s)
	}
}

func TestTopic_MarshalJSON_NilSlices(t *testing.T) {
	data, err := json.Marshal(Topic{ID: 1, Name: "Fractions", Grade: "3", Subject: "Mathematics"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"prerequisites":[]`) || !strings.Contains(s, `"exclusions":[]`) {
		t.Errorf("marshaled topic has null slices: %s", s)
	}
}

func TestVersionInfo_MarshalJSON_NilSlices(t *testing.T) {
	data, err := json.Marshal(VersionInfo{Version: "not_loaded"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"documents_loaded":[]`) {
		t.Errorf("marshaled version info has null documents: %s", data)
	}
}
