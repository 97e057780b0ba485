package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel-worker-go/internal/config"
	"sentinel-worker-go/internal/models"
)

func testReport() models.AgentReport {
	return models.AgentReport{
		Confidence:   0.91,
		Severity:     models.SeveritySevere,
		VehicleCount: 3,
		Location:     "Pune_Main_Road",
		Timestamp:    time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC),
	}
}

func newTokenServer(t *testing.T, token string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ibm:params:oauth:grant-type:apikey", r.PostForm.Get("grant_type"))
		assert.Equal(t, "test-key", r.PostForm.Get("apikey"))
		json.NewEncoder(w).Encode(map[string]string{"access_token": token})
	}))
}

func TestTrigger(t *testing.T) {
	t.Parallel()

	tokenSrv := newTokenServer(t, "tok-123")
	defer tokenSrv.Close()

	var gotMessage string
	agentSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/assistants/int-1/message", r.URL.Path)
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		var req struct {
			Input struct {
				Text string `json:"text"`
			} `json:"input"`
			Context struct {
				Integrations struct {
					ServiceInstanceID string `json:"service_instance_id"`
				} `json:"integrations"`
			} `json:"context"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotMessage = req.Input.Text
		assert.Equal(t, "svc-1", req.Context.Integrations.ServiceInstanceID)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"output": map[string]interface{}{
				"generic": []map[string]string{{"text": "Dispatch underway"}},
			},
		})
	}))
	defer agentSrv.Close()

	svc := NewService(&config.Config{
		AgentTokenURL:        tokenSrv.URL,
		AgentURL:             agentSrv.URL,
		AgentAPIKey:          "test-key",
		AgentIntegrationID:   "int-1",
		AgentServiceInstance: "svc-1",
		DispatchTimeout:      2 * time.Second,
	})

	require.NoError(t, svc.Trigger(context.Background(), testReport()))
	assert.Contains(t, gotMessage, "REPORT ACCIDENT")
	assert.Contains(t, gotMessage, "Severity: SEVERE")
	assert.Contains(t, gotMessage, "Vehicles Involved: 3")
}

func TestTriggerAuthFailure(t *testing.T) {
	t.Parallel()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer tokenSrv.Close()

	svc := NewService(&config.Config{
		AgentTokenURL:   tokenSrv.URL,
		AgentURL:        "http://127.0.0.1:1",
		AgentAPIKey:     "bad-key",
		DispatchTimeout: 2 * time.Second,
	})

	err := svc.Trigger(context.Background(), testReport())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDispatchAuth)
}

func TestTriggerEmptyToken(t *testing.T) {
	t.Parallel()

	tokenSrv := newTokenServer(t, "")
	defer tokenSrv.Close()

	svc := NewService(&config.Config{
		AgentTokenURL:   tokenSrv.URL,
		AgentURL:        "http://127.0.0.1:1",
		AgentAPIKey:     "test-key",
		DispatchTimeout: 2 * time.Second,
	})

	err := svc.Trigger(context.Background(), testReport())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDispatchAuth)
}

func TestTriggerTransportFailure(t *testing.T) {
	t.Parallel()

	tokenSrv := newTokenServer(t, "tok-123")
	defer tokenSrv.Close()

	agentSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer agentSrv.Close()

	svc := NewService(&config.Config{
		AgentTokenURL:      tokenSrv.URL,
		AgentURL:           agentSrv.URL,
		AgentAPIKey:        "test-key",
		AgentIntegrationID: "int-1",
		DispatchTimeout:    2 * time.Second,
	})

	err := svc.Trigger(context.Background(), testReport())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDispatchTransport)
	assert.NotErrorIs(t, err, models.ErrDispatchAuth)
}
