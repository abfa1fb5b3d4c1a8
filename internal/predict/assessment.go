// Package predict talks to the external depression-risk prediction service.
//
// The service accepts one Assessment as a JSON object and answers with a
// risk label and, optionally, a probability. Wire keys are fixed by the
// service, including the historical "succide" spelling.
package predict

import "strings"

// Assessment is the questionnaire submitted for one prediction.
type Assessment struct {
	Gender       string `json:"gender" form:"gender" binding:"required,oneof=Male Female"`
	Suicidal     string `json:"succide" form:"succide" binding:"required,oneof=No Yes"`
	Age          int    `json:"age" form:"age" binding:"min=10,max=100"`
	WorkHours    int    `json:"work_hours" form:"work_hours" binding:"min=0,max=12"`
	Profession   string `json:"profession" form:"profession" binding:"required,oneof='Working Professional' Student"`
	Sleep        int    `json:"sleep" form:"sleep" binding:"min=0,max=24"`
	Financial    int    `json:"financial" form:"financial" binding:"min=0,max=5"`
	Family       string `json:"family" form:"family" binding:"required,oneof=No Yes"`
	Pressure     int    `json:"pressure" form:"pressure" binding:"min=0,max=5"`
	Dietary      string `json:"dietary" form:"dietary" binding:"required,oneof=Healthy Moderate Unhealthy"`
	Satisfaction int    `json:"satisfaction" form:"satisfaction" binding:"min=0,max=5"`
}

// Choices for the categorical questions, in display order.
var (
	GenderChoices     = []string{"Male", "Female"}
	YesNoChoices      = []string{"No", "Yes"}
	ProfessionChoices = []string{"Working Professional", "Student"}
	DietaryChoices    = []string{"Healthy", "Moderate", "Unhealthy"}
)

// DefaultAssessment is the questionnaire as first shown to a user.
func DefaultAssessment() Assessment {
	return Assessment{
		Gender:       "Male",
		Suicidal:     "No",
		Age:          25,
		WorkHours:    6,
		Profession:   "Working Professional",
		Sleep:        7,
		Financial:    2,
		Family:       "No",
		Pressure:     2,
		Dietary:      "Healthy",
		Satisfaction: 3,
	}
}

// UnknownStatus is reported when the service omits risk_status.
const UnknownStatus = "Unknown"

// Result is the service's verdict for one Assessment.
type Result struct {
	RiskStatus string `json:"risk_status"`
	// DepressionProbability is nil when the service did not report one.
	DepressionProbability *float64 `json:"depression_probability,omitempty"`
}

// HighRisk reports whether the status label contains "High". The match is
// a case-sensitive substring test, so "Not High" also counts.
func (r Result) HighRisk() bool {
	return strings.Contains(r.RiskStatus, "High")
}
