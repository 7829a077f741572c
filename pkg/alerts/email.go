package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"

	"github.com/ogulcanaydogan/credit-guardian/pkg/upstream"
)

const defaultMailAPIBase = "https://api.sendgrid.com"

// ErrNoRecipient is returned when a user has no contact address.
var ErrNoRecipient = errors.New("user has no contact email")

// EmailConfig configures an EmailNotifier.
type EmailConfig struct {
	APIKey      string
	BaseURL     string // defaults to the SendGrid API
	FromAddress string
	FromName    string
}

// EmailNotifier sends user notifications through a SendGrid v3 compatible
// mail API. Delivery is attempted once; failures are returned to the caller.
type EmailNotifier struct {
	client  *upstream.Client
	cfg     EmailConfig
	baseURL string
}

// NewEmailNotifier creates an email notifier that sends through client.
func NewEmailNotifier(client *upstream.Client, cfg EmailConfig) *EmailNotifier {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultMailAPIBase
	}
	return &EmailNotifier{
		client:  client,
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Send(ctx context.Context, n Notification) error {
	if n.ContactEmail == "" {
		return fmt.Errorf("email user %d: %w", n.UserID, ErrNoRecipient)
	}

	subject, body, err := renderEmail(n)
	if err != nil {
		return err
	}

	payload := mailPayload{
		Personalizations: []mailPersonalization{
			{To: []mailAddress{{Email: n.ContactEmail, Name: n.Username}}},
		},
		From:    mailAddress{Email: e.cfg.FromAddress, Name: e.cfg.FromName},
		Subject: subject,
		Content: []mailContent{{Type: "text/plain", Value: body}},
		CustomArgs: map[string]string{
			"notification_id": n.ID,
			"kind":            string(n.Kind),
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v3/mail/send", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

var (
	thresholdSubject = template.Must(template.New("threshold_subject").Funcs(templateFuncs).Parse(
		`You have used {{ pct .Threshold }} of your initial credits`))
	thresholdBody = template.Must(template.New("threshold_body").Funcs(templateFuncs).Parse(
		`Hello {{ .Username }},

Your workspaces have used {{ usd .CurrentCost }} of your {{ usd .LimitUSD }} initial credits,
passing {{ pct .Threshold }} of your limit. You have {{ usd .RemainingBalance }} remaining.

When your credits run out, workspaces funded by them will be deactivated.
`))
	exhaustionSubject = template.Must(template.New("exhaustion_subject").Parse(
		`Your initial credits have run out`))
	exhaustionBody = template.Must(template.New("exhaustion_body").Funcs(templateFuncs).Parse(
		`Hello {{ .Username }},

Your workspaces have used {{ usd .CurrentCost }}, exceeding your {{ usd .LimitUSD }} initial credits.
Workspaces funded by your initial credits have been deactivated and their running
compute resources deleted. Attach your own billing account to continue working.
`))
)

var templateFuncs = template.FuncMap{
	"usd": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"pct": func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
}

func renderEmail(n Notification) (subject, body string, err error) {
	subjectTmpl, bodyTmpl := thresholdSubject, thresholdBody
	if n.Kind == KindExhaustion {
		subjectTmpl, bodyTmpl = exhaustionSubject, exhaustionBody
	}

	var sb, bb strings.Builder
	if err := subjectTmpl.Execute(&sb, n); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", n.Kind, err)
	}
	if err := bodyTmpl.Execute(&bb, n); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", n.Kind, err)
	}
	return sb.String(), bb.String(), nil
}

type mailPayload struct {
	Personalizations []mailPersonalization `json:"personalizations"`
	From             mailAddress           `json:"from"`
	Subject          string                `json:"subject"`
	Content          []mailContent         `json:"content"`
	CustomArgs       map[string]string     `json:"custom_args,omitempty"`
}

type mailPersonalization struct {
	To []mailAddress `json:"to"`
}

type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}
