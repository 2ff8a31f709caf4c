package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

// Simulates a lead sending a bursty message sequence through the webhook,
// then polls the buffer status so the consolidation window is visible.

var (
	baseURL  = envOr("SIM_BASE_URL", "http://localhost:3000/api")
	apiToken = envOr("SIM_API_TOKEN", "dev-secret")
	phone    = envOr("SIM_PHONE", "5511999990001")
)

type inboundMessage struct {
	Phone    string `json:"phone"`
	Kind     string `json:"kind"`
	Text     string `json:"text,omitempty"`
	LeadName string `json:"lead_name,omitempty"`
}

func main() {
	color.Cyan("🚀 Conversation Orchestration Simulation (%s)\n", phone)

	burst := []string{
		"hi",
		"i saw your ad about the crm plans",
		"how much is the pro one",
		"and does it integrate with whatsapp?",
	}

	for i, text := range burst {
		color.Yellow("[LEAD] %s", text)
		if err := sendFragment(text, i == 0); err != nil {
			color.Red("Failed: %v", err)
			return
		}
		// Typing-burst gaps well inside the quiet period
		time.Sleep(1500 * time.Millisecond)
		showBuffer()
	}

	color.Cyan("\nWaiting for the quiet period to elapse...")
	time.Sleep(10 * time.Second)
	showBuffer()

	color.Green("\nDone. Check the server log for the consolidated turn and paced reply.")
}

func sendFragment(text string, first bool) error {
	msg := inboundMessage{Phone: phone, Kind: "text", Text: text}
	if first {
		msg.LeadName = "Simulated Lead"
	}
	body, _ := json.Marshal(msg)

	req, _ := http.NewRequest("POST", baseURL+"/webhook/v1/message", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Token", apiToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

func showBuffer() {
	req, _ := http.NewRequest("GET", baseURL+"/ops/v1/conversations/"+phone+"/buffer", nil)
	req.Header.Set("X-Api-Token", apiToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		color.Red("Buffer status failed: %v", err)
		return
	}
	defer resp.Body.Close()

	var envelope struct {
		Data struct {
			Open          bool  `json:"open"`
			FragmentCount int   `json:"fragment_count"`
			AgeMs         int64 `json:"age_ms"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		color.Red("Buffer status decode failed: %v", err)
		return
	}
	if envelope.Data.Open {
		color.Green("       buffer open: %d fragment(s), %dms old", envelope.Data.FragmentCount, envelope.Data.AgeMs)
	} else {
		color.Green("       buffer closed (flushed)")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
