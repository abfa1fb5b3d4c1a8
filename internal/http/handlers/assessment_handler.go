package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/intelligentbasedhms/hms-gateway/internal/http/middleware"
	"github.com/intelligentbasedhms/hms-gateway/internal/predict"
	"github.com/intelligentbasedhms/hms-gateway/internal/web"
)

const assessmentTemplate = "assessment.html"

// AssessmentForm renders the questionnaire with its default answers.
func (h *Handlers) AssessmentForm(c *gin.Context) {
	c.HTML(http.StatusOK, assessmentTemplate, web.IdlePage(c.FullPath()))
}

// SubmitAssessment validates the posted questionnaire, asks the prediction
// service for a verdict once and renders the outcome below the form.
func (h *Handlers) SubmitAssessment(c *gin.Context) {
	action := c.FullPath()

	var a predict.Assessment
	err := c.ShouldBind(&a)
	if missing := missingNumeric(c); len(missing) > 0 {
		err = errors.Join(err, missing)
	}
	if err != nil {
		c.HTML(http.StatusBadRequest, assessmentTemplate, web.InvalidPage(action, a, invalidMessage(err)))
		return
	}

	res, err := h.predictor.Predict(c.Request.Context(), a)
	if err == nil && res == nil {
		err = errors.New("empty prediction result")
	}
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("prediction failed")
		c.HTML(http.StatusOK, assessmentTemplate, web.FailedPage(action, a, err))
		return
	}
	c.HTML(http.StatusOK, assessmentTemplate, web.SuccessPage(action, a, res))
}

// numericFields are the number inputs. Form binding turns an absent or
// blank number into 0, which can pass range checks, so presence is checked
// on the raw form.
var numericFields = []struct{ key, name string }{
	{"age", "Age"},
	{"work_hours", "WorkHours"},
	{"sleep", "Sleep"},
	{"financial", "Financial"},
	{"pressure", "Pressure"},
	{"satisfaction", "Satisfaction"},
}

type missingFieldsError []string

func (m missingFieldsError) Error() string {
	return "missing fields: " + strings.Join(m, ", ")
}

func missingNumeric(c *gin.Context) missingFieldsError {
	var missing missingFieldsError
	for _, f := range numericFields {
		if v, ok := c.GetPostForm(f.key); !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// invalidMessage names the form fields that failed validation.
func invalidMessage(err error) string {
	var fields []string
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			fields = append(fields, name)
		}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			add(fe.Field())
		}
	}
	var missing missingFieldsError
	if errors.As(err, &missing) {
		for _, name := range missing {
			add(name)
		}
	}
	if len(fields) == 0 {
		return "Please check your answers and try again."
	}
	return "Please check these answers: " + strings.Join(fields, ", ") + "."
}
