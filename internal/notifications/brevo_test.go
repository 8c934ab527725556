package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"contractor-backend/internal/intake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLead() intake.Lead {
	return intake.Lead{
		ID:              "66a1f0c2e4b0a1b2c3d4e5f6",
		Name:            "Jane <Doe>",
		Email:           "jane@example.com",
		Phone:           "(619) 555-0123",
		ProjectType:     "Microcement Finishes",
		Budget:          "$50,000",
		Timeline:        "3-6 months",
		EstimatedBudget: 49500,
		Source:          "Website Contact Form",
		SubmittedAt:     time.Date(2026, 5, 4, 17, 0, 0, 0, time.UTC),
		Attachment:      &intake.AttachmentRef{ID: "f1", Name: "floor.jpg", Size: 10},
	}
}

func TestNewBrevoClientRequiresKeyAndSender(t *testing.T) {
	assert.Nil(t, NewBrevoClient("", "hello@example.com", "", "", false))
	assert.Nil(t, NewBrevoClient("key", " ", "", "", false))

	c := NewBrevoClient("key", "hello@example.com", "", "", false)
	require.NotNil(t, c)
	assert.Equal(t, "hello@example.com", c.senderName)
	assert.Equal(t, "hello@example.com", c.inboxEmail)
}

func TestLeadNotificationHTMLEscapesInput(t *testing.T) {
	html, err := buildLeadNotificationHTML(sampleLead())
	require.NoError(t, err)
	assert.Contains(t, html, "Jane &lt;Doe&gt;")
	assert.Contains(t, html, "$49,500")
	assert.Contains(t, html, "floor.jpg")
	assert.Contains(t, html, "May 4, 2026 5:00 PM UTC")
}

func TestSendLeadNotification(t *testing.T) {
	var got brevoSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<abc@smtp>"}`))
	}))
	defer srv.Close()

	c := NewBrevoClient("key", "hello@example.com", "Builders", "leads@example.com", true)
	c.endpoint = srv.URL

	id, err := c.SendLeadNotification(context.Background(), sampleLead())
	require.NoError(t, err)
	assert.Equal(t, "<abc@smtp>", id)
	require.Len(t, got.To, 1)
	assert.Equal(t, "leads@example.com", got.To[0].Email)
	assert.True(t, strings.HasPrefix(got.Subject, "New lead: Microcement Finishes"))
	assert.Equal(t, "drop", got.Headers["X-Sib-Sandbox"])
}

func TestSendLeadConfirmationReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"unauthorized"}`))
	}))
	defer srv.Close()

	c := NewBrevoClient("key", "hello@example.com", "", "", false)
	c.endpoint = srv.URL

	_, err := c.SendLeadConfirmation(context.Background(), sampleLead())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=401")

	var nilClient *BrevoClient
	_, err = nilClient.SendLeadConfirmation(context.Background(), sampleLead())
	assert.Error(t, err)
}
