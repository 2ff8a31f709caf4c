package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient resolves stage classifications against a Kommo-style CRM API.
// Raw pipeline status ids are mapped to classifications via configuration.
type HTTPClient struct {
	BaseURL string
	Token   string
	Client  *http.Client

	stages map[int]StageClassification
}

var _ Client = &HTTPClient{}

func NewHTTPClient(baseURL, token string, humanAttention, notInterested, meetingLocked []int) *HTTPClient {
	stages := make(map[int]StageClassification)
	for _, id := range humanAttention {
		stages[id] = StageHumanAttention
	}
	for _, id := range notInterested {
		stages[id] = StageNotInterested
	}
	for _, id := range meetingLocked {
		stages[id] = StageMeetingLocked
	}

	return &HTTPClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 15 * time.Second,
		},
		stages: stages,
	}
}

type leadSearchResponse struct {
	Embedded struct {
		Leads []struct {
			StatusID int `json:"status_id"`
		} `json:"leads"`
	} `json:"_embedded"`
}

func (c *HTTPClient) StageOf(ctx context.Context, conversationKey string) (StageClassification, error) {
	endpoint := fmt.Sprintf("%s/api/v4/leads?query=%s", c.BaseURL, url.QueryEscape(conversationKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return StageOpen, fmt.Errorf("build crm request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return StageOpen, fmt.Errorf("crm request failed: %w", err)
	}
	defer resp.Body.Close()

	// The CRM answers 204 when the search matches nothing.
	if resp.StatusCode == http.StatusNoContent {
		return StageOpen, nil
	}
	if resp.StatusCode != http.StatusOK {
		return StageOpen, fmt.Errorf("crm returned status %d", resp.StatusCode)
	}

	var res leadSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return StageOpen, fmt.Errorf("decode crm response: %w", err)
	}
	if len(res.Embedded.Leads) == 0 {
		return StageOpen, nil
	}

	if stage, ok := c.stages[res.Embedded.Leads[0].StatusID]; ok {
		return stage, nil
	}
	return StageOpen, nil
}
