package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"sentinel-worker-go/internal/config"
	"sentinel-worker-go/internal/models"
)

// Service triggers the downstream conversational-agent workflow. Dispatch is a
// two-step flow: exchange the API key for a bearer token, then post the
// structured incident message to the assistant endpoint. The service never
// retries on its own; throttling is owned by the dispatch gate.
type Service struct {
	cfg    *config.Config
	client *http.Client
}

type agentMessageRequest struct {
	Input   agentInput   `json:"input"`
	Context agentContext `json:"context"`
}

type agentInput struct {
	MessageType string `json:"message_type"`
	Text        string `json:"text"`
}

type agentContext struct {
	Integrations agentIntegrations `json:"integrations"`
}

type agentIntegrations struct {
	ServiceInstanceID string `json:"service_instance_id"`
}

type agentMessageResponse struct {
	Output struct {
		Generic []struct {
			Text string `json:"text"`
		} `json:"generic"`
	} `json:"output"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// NewService creates the agent dispatch transport
func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.DispatchTimeout},
	}
}

// Trigger sends one incident report to the agent. Authentication failures map
// to models.ErrDispatchAuth and transport failures to
// models.ErrDispatchTransport; neither consumes the dispatch cooldown.
func (s *Service) Trigger(ctx context.Context, report models.AgentReport) error {
	token, err := s.fetchToken(ctx)
	if err != nil {
		return err
	}

	message := fmt.Sprintf(
		"REPORT ACCIDENT: I have detected a vehicle crash. "+
			"Severity: %s. Vehicles Involved: %d. Confidence: %.0f%%. "+
			"Location: %s. Time: %s. Dispatching emergency services required.",
		report.Severity,
		report.VehicleCount,
		report.Confidence*100,
		report.Location,
		report.Timestamp.Format("2006-01-02 15:04:05"),
	)

	body, err := json.Marshal(agentMessageRequest{
		Input: agentInput{MessageType: "text", Text: message},
		Context: agentContext{
			Integrations: agentIntegrations{ServiceInstanceID: s.cfg.AgentServiceInstance},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: encode message: %v", models.ErrDispatchTransport, err)
	}

	endpoint := fmt.Sprintf("%s/v2/assistants/%s/message",
		strings.TrimRight(s.cfg.AgentURL, "/"), s.cfg.AgentIntegrationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", models.ErrDispatchTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrDispatchTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: agent returned status %d", models.ErrDispatchTransport, resp.StatusCode)
	}

	var out agentMessageResponse
	agentText := "Alert Processed"
	if err := json.NewDecoder(resp.Body).Decode(&out); err == nil && len(out.Output.Generic) > 0 {
		agentText = out.Output.Generic[0].Text
	}

	log.Info().
		Str("severity", string(report.Severity)).
		Int("vehicle_count", report.VehicleCount).
		Str("agent_response", agentText).
		Msg("🚀 Agent workflow triggered")

	return nil
}

// fetchToken exchanges the API key for a bearer token
func (s *Service) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "urn:ibm:params:oauth:grant-type:apikey")
	form.Set("apikey", s.cfg.AgentAPIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.AgentTokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build token request: %v", models.ErrDispatchAuth, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrDispatchAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned status %d", models.ErrDispatchAuth, resp.StatusCode)
	}

	var out tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode token: %v", models.ErrDispatchAuth, err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", models.ErrDispatchAuth)
	}

	return out.AccessToken, nil
}
