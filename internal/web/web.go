// Package web renders the assessment form served at /assessment.
//
// Templates are embedded in the binary. The page walks through three
// states: idle (form only), success (verdict) and failed (backend error).
// Every state re-renders the form with the last submitted values.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"sync"

	"github.com/yuin/goldmark"

	"github.com/intelligentbasedhms/hms-gateway/internal/predict"
)

//go:embed templates/*.html templates/*.md
var files embed.FS

// State is the form's position in the submit cycle.
type State string

const (
	StateIdle    State = "idle"
	StateSuccess State = "success"
	StateFailed  State = "failed"
)

// Choices lists the options of the categorical questions.
type Choices struct {
	Gender     []string
	YesNo      []string
	Profession []string
	Dietary    []string
}

// Field is one column of the input summary table, keyed by wire name.
type Field struct {
	Key   string
	Value string
}

// Page is the view model of assessment.html.
type Page struct {
	Action  string
	State   State
	Form    predict.Assessment
	Choices Choices
	Invalid string
	Summary []Field

	Status      string
	HighRisk    bool
	Probability string

	Error      string
	Disclaimer template.HTML
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.ParseFS(files, "templates/*.html")
}

// MustTemplates is Templates that panics on error.
func MustTemplates() *template.Template {
	return template.Must(Templates())
}

var (
	disclaimerOnce sync.Once
	disclaimerHTML template.HTML
	disclaimerErr  error
)

// Disclaimer returns the markdown disclaimer rendered to HTML.
func Disclaimer() (template.HTML, error) {
	disclaimerOnce.Do(func() {
		src, err := files.ReadFile("templates/disclaimer.md")
		if err != nil {
			disclaimerErr = err
			return
		}
		var buf bytes.Buffer
		if err := goldmark.Convert(src, &buf); err != nil {
			disclaimerErr = fmt.Errorf("render disclaimer: %w", err)
			return
		}
		disclaimerHTML = template.HTML(buf.String())
	})
	return disclaimerHTML, disclaimerErr
}

func newPage(action string, a predict.Assessment) Page {
	return Page{
		Action: action,
		State:  StateIdle,
		Form:   a,
		Choices: Choices{
			Gender:     predict.GenderChoices,
			YesNo:      predict.YesNoChoices,
			Profession: predict.ProfessionChoices,
			Dietary:    predict.DietaryChoices,
		},
	}
}

// IdlePage shows the form with the default answers.
func IdlePage(action string) Page {
	return newPage(action, predict.DefaultAssessment())
}

// InvalidPage re-shows the submitted form with a validation message.
func InvalidPage(action string, a predict.Assessment, msg string) Page {
	p := newPage(action, a)
	p.Invalid = msg
	return p
}

// SuccessPage shows the verdict for a.
func SuccessPage(action string, a predict.Assessment, res *predict.Result) Page {
	p := newPage(action, a)
	p.State = StateSuccess
	p.Summary = Summary(a)
	p.Status = res.RiskStatus
	p.HighRisk = res.HighRisk()
	if res.DepressionProbability != nil {
		p.Probability = fmt.Sprintf("%.2f", *res.DepressionProbability)
	}
	p.Disclaimer, _ = Disclaimer()
	return p
}

// FailedPage shows the generic failure notice and the error detail.
func FailedPage(action string, a predict.Assessment, err error) Page {
	p := newPage(action, a)
	p.State = StateFailed
	p.Summary = Summary(a)
	if err != nil {
		p.Error = err.Error()
	}
	return p
}

// Summary lists the submitted answers in wire order.
func Summary(a predict.Assessment) []Field {
	return []Field{
		{"gender", a.Gender},
		{"succide", a.Suicidal},
		{"age", strconv.Itoa(a.Age)},
		{"work_hours", strconv.Itoa(a.WorkHours)},
		{"profession", a.Profession},
		{"sleep", strconv.Itoa(a.Sleep)},
		{"financial", strconv.Itoa(a.Financial)},
		{"family", a.Family},
		{"pressure", strconv.Itoa(a.Pressure)},
		{"dietary", a.Dietary},
		{"satisfaction", strconv.Itoa(a.Satisfaction)},
	}
}
