package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SlackNotifier posts a copy of user notifications to an ops Slack webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, n Notification) error {
	color := "#ff9900" // orange
	title := "Initial credits: threshold reached"
	if n.Kind == KindExhaustion {
		color = "#cc0000" // dark red
		title = "Initial credits: exhausted"
	}

	fields := []slackField{
		{Title: "User", Value: fmt.Sprintf("%s (%d)", n.Username, n.UserID), Short: true},
		{Title: "Limit", Value: fmt.Sprintf("$%.2f", n.LimitUSD), Short: true},
		{Title: "Current Spend", Value: fmt.Sprintf("$%.2f", n.CurrentCost), Short: true},
		{Title: "Remaining", Value: fmt.Sprintf("$%.2f", n.RemainingBalance), Short: true},
	}
	if n.Kind == KindThreshold {
		fields = append(fields, slackField{Title: "Threshold", Value: fmt.Sprintf("%.0f%%", n.Threshold*100), Short: true})
	}
	if n.LimitUSD > 0 {
		fields = append(fields, slackField{Title: "Usage", Value: fmt.Sprintf("%.1f%%", (n.CurrentCost/n.LimitUSD)*100), Short: true})
	}

	payload := slackPayload{
		Channel: s.channel,
		Attachments: []slackAttachment{
			{
				Color:  color,
				Title:  title,
				Fields: fields,
				Footer: "Credit Guardian",
				Ts:     time.Now().Unix(),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
