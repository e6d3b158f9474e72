package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSubmission() Submission {
	return NewSubmission(validForm(), "es", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestClientPostsMultipart(t *testing.T) {
	sub := testSubmission()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/contact", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, sub.Form.Email, r.FormValue("email"))
		assert.Equal(t, sub.Form.Name, r.FormValue("name"))
		assert.Equal(t, sub.ID, r.FormValue("id"))
		assert.Equal(t, "es", r.FormValue("locale"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg-1"}`))
	}))
	defer srv.Close()

	receipt, err := NewClient(srv.URL + "/v1").Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, receipt.ID)
	assert.Equal(t, "msg-1", receipt.MessageID)
	assert.Equal(t, "accepted", receipt.Status)
}

func TestClient422KeepsStructuredBody(t *testing.T) {
	body := `{"message":"invalid","errors":{"email":["taken"],"phone":"bad"}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Submit(context.Background(), testSubmission())
	var vr *ValidationResponse
	require.True(t, errors.As(err, &vr), "expected ValidationResponse, got %T", err)
	assert.Equal(t, http.StatusUnprocessableEntity, vr.Status)
	assert.JSONEq(t, body, string(vr.Body))
	assert.Equal(t, []string{"taken"}, vr.Fields["email"])
	assert.Equal(t, []string{"bad"}, vr.Fields["phone"])
}

func TestClientOtherStatusesGuardMessage(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
		errText string
	}{
		{"with message", http.StatusInternalServerError, `{"message":"mail relay down"}`, "mail relay down", "mail relay down"},
		{"null message", http.StatusBadGateway, `{"message":null}`, "", "Bad Gateway"},
		{"no body", http.StatusServiceUnavailable, ``, "", "Service Unavailable"},
		{"not json", http.StatusBadRequest, `<html>oops</html>`, "", "Bad Request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL).Submit(context.Background(), testSubmission())
			var se *SubmitError
			require.True(t, errors.As(err, &se), "expected SubmitError, got %T", err)
			assert.Equal(t, tc.status, se.Status)
			assert.Equal(t, tc.message, se.Message)
			assert.Equal(t, tc.errText, se.Error())
		})
	}
}

func TestClientWithoutBaseURLAcknowledgesLocally(t *testing.T) {
	sub := testSubmission()
	receipt, err := NewClient("").Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, receipt.ID)
	assert.Equal(t, "accepted", receipt.Status)
}

func TestNewSubmissionAssignsULID(t *testing.T) {
	a, b := testSubmission(), testSubmission()
	assert.Len(t, a.ID, 26)
	assert.NotEqual(t, a.ID, b.ID)

	raw, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"submittedAt":"2025-03-01T12:00:00Z"`)
}
