package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/intelligentbasedhms/hms-gateway/internal/observability"
)

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("prediction service returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("prediction service returned %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// Client posts assessments to the prediction endpoint.
type Client struct {
	url string
	hc  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.hc.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// NewClient returns a Client for the endpoint at url (15s timeout by default).
func NewClient(url string, opts ...Option) *Client {
	c := &Client{url: url, hc: &http.Client{Timeout: 15 * time.Second}}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Predict sends a single request for a and decodes the verdict. It never
// retries. Transport failures, non-2xx answers and bodies that are not a
// JSON object are errors.
func (c *Client) Predict(ctx context.Context, a Assessment) (*Result, error) {
	tr := otel.Tracer("predict/Client")
	ctx, span := tr.Start(ctx, "Predict", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url", c.url)))
	defer span.End()

	res, err := c.do(ctx, a)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "predict")
		observability.ObservePrediction(observability.OutcomeError)
		return nil, err
	}
	span.SetAttributes(attribute.String("risk.status", res.RiskStatus))
	observability.ObservePrediction(observability.OutcomeOK)
	return res, nil
}

func (c *Client) do(ctx context.Context, a Assessment) (*Result, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshaling assessment: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return decodeResult(raw)
}

func decodeResult(raw []byte) (*Result, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if keys == nil {
		return nil, errors.New("decoding response: not a JSON object")
	}
	var wire struct {
		RiskStatus            *string  `json:"risk_status"`
		DepressionProbability *float64 `json:"depression_probability"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	// A status may only be omitted together with the probability.
	res := &Result{RiskStatus: UnknownStatus, DepressionProbability: wire.DepressionProbability}
	switch _, hasProb := keys["depression_probability"]; {
	case wire.RiskStatus != nil:
		res.RiskStatus = *wire.RiskStatus
	case hasProb:
		return nil, errors.New("decoding response: risk_status missing alongside depression_probability")
	}
	return res, nil
}
