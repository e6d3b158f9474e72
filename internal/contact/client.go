package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	defaultTimeout = 8 * time.Second
	maxErrorBody   = 64 << 10
)

// Submission is a validated form ready to be delivered.
type Submission struct {
	ID          string    `json:"id"`
	Form        Form      `json:"form"`
	Locale      string    `json:"locale,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// NewSubmission stamps form with a fresh ULID and the current time.
func NewSubmission(form Form, locale string, now time.Time) Submission {
	return Submission{
		ID:          ulid.Make().String(),
		Form:        form.Normalize(),
		Locale:      locale,
		SubmittedAt: now.UTC(),
	}
}

// Receipt acknowledges a delivered submission.
type Receipt struct {
	ID        string
	MessageID string
	Status    string
}

// Submitter delivers contact submissions.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) (Receipt, error)
}

// ValidationResponse is the structured body of a 422 reply, kept as the upstream sent it.
type ValidationResponse struct {
	Status int
	Body   json.RawMessage
	Fields FieldErrors
}

func (v *ValidationResponse) Error() string {
	return fmt.Sprintf("contact: submission rejected with status %d", v.Status)
}

// SubmitError reports a non-2xx, non-422 reply. Message comes from the body's "message" field and may be empty.
type SubmitError struct {
	Status  int
	Message string
}

func (e *SubmitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if text := http.StatusText(e.Status); text != "" {
		return text
	}
	return fmt.Sprintf("contact: status %d", e.Status)
}

// ErrNotConfigured is returned by Submitters used without their required collaborators.
var ErrNotConfigured = errors.New("contact: submitter not configured")

// Client posts submissions as multipart form data to <base>/contact.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client. When baseURL is empty, submissions are acknowledged locally.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// WithHTTPClient returns a copy of c using hc.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	cp := *c
	if hc != nil {
		cp.http = hc
	}
	return &cp
}

func (c *Client) Submit(ctx context.Context, sub Submission) (Receipt, error) {
	if c == nil || c.baseURL == "" {
		return fakeReceipt(sub), nil
	}

	endpoint, err := url.JoinPath(c.baseURL, "contact")
	if err != nil {
		return Receipt{}, err
	}
	body, contentType, err := encodeMultipart(sub)
	if err != nil {
		return Receipt{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return Receipt{}, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("contact: post: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		receipt := Receipt{ID: sub.ID, Status: "accepted"}
		var payload struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		if json.Unmarshal(raw, &payload) == nil {
			if payload.ID != "" {
				receipt.MessageID = payload.ID
			}
			if payload.Status != "" {
				receipt.Status = payload.Status
			}
		}
		return receipt, nil
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return Receipt{}, newValidationResponse(resp.StatusCode, raw)
	default:
		return Receipt{}, &SubmitError{Status: resp.StatusCode, Message: messageFrom(raw)}
	}
}

func encodeMultipart(sub Submission) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"id", sub.ID},
		{FieldName, sub.Form.Name},
		{FieldEmail, sub.Form.Email},
		{FieldPhone, sub.Form.Phone},
		{FieldCity, sub.Form.City},
		{FieldMessage, sub.Form.Message},
	}
	if sub.Locale != "" {
		fields = append(fields, [2]string{"locale", sub.Locale})
	}
	for _, kv := range fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func newValidationResponse(status int, raw []byte) *ValidationResponse {
	v := &ValidationResponse{Status: status, Fields: FieldErrors{}}
	if json.Valid(raw) {
		v.Body = json.RawMessage(raw)
	} else if len(bytes.TrimSpace(raw)) > 0 {
		quoted, _ := json.Marshal(string(raw))
		v.Body = quoted
	}

	var payload struct {
		Errors map[string]json.RawMessage `json:"errors"`
	}
	if json.Unmarshal(raw, &payload) != nil {
		return v
	}
	for field, msg := range payload.Errors {
		var list []string
		if json.Unmarshal(msg, &list) == nil {
			v.Fields[field] = list
			continue
		}
		var single string
		if json.Unmarshal(msg, &single) == nil && single != "" {
			v.Fields[field] = []string{single}
		}
	}
	return v
}

// messageFrom reads body.message, tolerating empty, non-JSON and null bodies.
func messageFrom(raw []byte) string {
	var payload struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Message == nil {
		return ""
	}
	return strings.TrimSpace(*payload.Message)
}

func fakeReceipt(sub Submission) Receipt {
	return Receipt{ID: sub.ID, MessageID: "local-" + sub.ID, Status: "accepted"}
}
