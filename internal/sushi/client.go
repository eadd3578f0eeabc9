package sushi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/consortial/counterharvest/internal/domain"
	"github.com/go-resty/resty/v2"
)

// Outcome classifies one SUSHI request. Every fetch yields exactly one of
// the three values.
type Outcome string

const (
	// OutcomeSuccess means a report payload was returned; it may still
	// carry non-fatal provider warnings.
	OutcomeSuccess Outcome = "Success"

	// OutcomePending means the provider queued the report for
	// asynchronous processing and should be polled again later.
	OutcomePending Outcome = "Pending"

	// OutcomeFail covers transport errors and fatal provider exceptions.
	OutcomeFail Outcome = "Fail"
)

// Result carries the classified outcome of one fetch plus the response
// metadata the worker persists on failure. Message and Detail are set
// even on Success when the provider attached warnings.
type Result struct {
	Outcome   Outcome
	ErrorCode int
	Severity  string
	Message   string
	Detail    string
	Step      string
	Raw       []byte
}

// Client is the request surface the queue worker consumes.
type Client interface {
	// BuildRequestURI assembles the report request URL from the setting's
	// endpoint and credentials, the report definition, and the period.
	BuildRequestURI(setting *domain.SushiSetting, report *domain.Report, begin, end string) string

	// Fetch performs the request and classifies the response. Transport
	// failures are folded into a Fail result, not returned as errors.
	Fetch(ctx context.Context, uri string) *Result
}

// exception is the COUNTER_SUSHI error body. Providers return it either
// standalone, as an array, or embedded in the report header.
type exception struct {
	Code     int    `json:"Code"`
	Severity string `json:"Severity"`
	Message  string `json:"Message"`
	Data     string `json:"Data"`
	HelpURL  string `json:"Help_URL"`
}

// reportEnvelope is the minimal view of a report needed to detect one and
// surface header exceptions.
type reportEnvelope struct {
	ReportHeader *struct {
		ReportID   string      `json:"Report_ID"`
		Exceptions []exception `json:"Exceptions"`
	} `json:"Report_Header"`
}

// Per-report attributes_to_show values appended to the request.
var reportAttributes = map[string]string{
	domain.ReportTR: "Data_Type|Access_Method|Access_Type|Section_Type|YOP",
	domain.ReportPR: "Data_Type|Access_Method",
}

// codeQueued is the SUSHI exception signalling the report is still being
// prepared on the provider side.
const codeQueued = 1011

// HTTPClient fetches reports over HTTP with resty.
type HTTPClient struct {
	client *resty.Client
}

// NewHTTPClient creates a SUSHI client with the given request timeout.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	client := resty.New()
	client.SetHeader("Accept", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &HTTPClient{client: client}
}

// BuildRequestURI assembles the Release 5 request URL. The endpoint is
// slash-normalized before the report path is appended.
func (c *HTTPClient) BuildRequestURI(setting *domain.SushiSetting, report *domain.Report, begin, end string) string {
	base := strings.TrimRight(setting.Provider.ServerURL, "/")

	params := url.Values{}
	params.Set("begin_date", begin)
	params.Set("end_date", end)
	params.Set("customer_id", setting.CustomerID)
	if setting.RequestorID != "" {
		params.Set("requestor_id", setting.RequestorID)
	}
	if setting.APIKey != "" {
		params.Set("api_key", setting.APIKey)
	}
	if atts, ok := reportAttributes[report.Name]; ok {
		params.Set("attributes_to_show", atts)
	}

	return fmt.Sprintf("%s/%s?%s", base, strings.ToLower(report.Name), params.Encode())
}

// Fetch performs the request and classifies the outcome.
func (c *HTTPClient) Fetch(ctx context.Context, uri string) *Result {
	resp, err := c.client.R().SetContext(ctx).Get(uri)
	if err != nil {
		return &Result{
			Outcome:   OutcomeFail,
			ErrorCode: domain.ErrorHTTP,
			Severity:  "Fatal",
			Message:   "SUSHI request failed",
			Detail:    err.Error(),
			Step:      domain.StepHTTP,
		}
	}

	body := resp.Body()

	// Exceptions take precedence regardless of HTTP status; several
	// providers pair a 200 with a standalone exception body, others use
	// the status code the exception prescribes.
	if exc, ok := decodeException(body); ok {
		return classifyException(exc)
	}

	var envelope reportEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.ReportHeader != nil {
		res := &Result{Outcome: OutcomeSuccess, Raw: body}
		// Header exceptions are non-fatal by construction: a report came
		// back. Surface the first one as the result message.
		if len(envelope.ReportHeader.Exceptions) > 0 {
			exc := envelope.ReportHeader.Exceptions[0]
			res.ErrorCode = exc.Code
			res.Severity = exc.Severity
			res.Message = exc.Message
			res.Detail = exc.Data
		}
		return res
	}

	if resp.IsError() {
		return &Result{
			Outcome:   OutcomeFail,
			ErrorCode: domain.ErrorHTTP,
			Severity:  "Fatal",
			Message:   fmt.Sprintf("unexpected HTTP status %d", resp.StatusCode()),
			Detail:    resp.Status(),
			Step:      domain.StepHTTP,
		}
	}

	return &Result{
		Outcome:   OutcomeFail,
		ErrorCode: domain.ErrorBadPayload,
		Severity:  "Fatal",
		Message:   "response is neither a report nor a SUSHI exception",
		Step:      domain.StepHTTP,
	}
}

// decodeException tries the standalone exception shapes: a single object
// or an array with at least one entry.
func decodeException(body []byte) (exception, bool) {
	trimmed := strings.TrimSpace(string(body))

	if strings.HasPrefix(trimmed, "[") {
		var excs []exception
		if err := json.Unmarshal(body, &excs); err == nil && len(excs) > 0 && excs[0].Code != 0 {
			return excs[0], true
		}
		return exception{}, false
	}

	var exc exception
	if err := json.Unmarshal(body, &exc); err == nil && exc.Code != 0 && exc.Severity != "" {
		return exc, true
	}
	return exception{}, false
}

func classifyException(exc exception) *Result {
	res := &Result{
		ErrorCode: exc.Code,
		Severity:  exc.Severity,
		Message:   exc.Message,
		Detail:    exc.Data,
		Step:      domain.StepSUSHI,
	}
	if exc.Code == codeQueued {
		res.Outcome = OutcomePending
	} else {
		res.Outcome = OutcomeFail
	}
	return res
}
