package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"jobmate/harvester-service/internal/model"
)

// SlackWebhookPrefix is the required prefix of incoming-webhook URLs.
const SlackWebhookPrefix = "https://hooks.slack.com"

const maxSkillsShown = 5

// ErrBadWebhook is returned by NewSlackNotifier for a malformed URL.
var ErrBadWebhook = errors.New("delivery: slack webhook must start with " + SlackWebhookPrefix)

// SlackNotifier posts one Block Kit message per listing to an incoming
// webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier validates webhookURL. A nil client gets a 10s timeout.
func NewSlackNotifier(webhookURL string, client *http.Client) (*SlackNotifier, error) {
	if !strings.HasPrefix(webhookURL, SlackWebhookPrefix) {
		return nil, ErrBadWebhook
	}
	return newSlackNotifier(webhookURL, client), nil
}

func newSlackNotifier(webhookURL string, client *http.Client) *SlackNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SlackNotifier{webhookURL: webhookURL, client: client}
}

// Notify sends l. Any status other than 200 is a failure; slack-go reports
// it as slack.StatusCodeError, or slack.RateLimitedError for 429.
func (n *SlackNotifier) Notify(ctx context.Context, l model.Listing) error {
	if err := slack.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.client, SlackMessage(l)); err != nil {
		return fmt.Errorf("slack: post: %w", err)
	}
	return nil
}

// SlackMessage renders l as a webhook payload.
func SlackMessage(l model.Listing) *slack.WebhookMessage {
	title := deref(l.Title)
	if title == "" {
		title = "Untitled listing"
	}

	head := "*" + title + "*"
	var badges []string
	if l.IsFeatured {
		badges = append(badges, "⭐ Featured")
	}
	if l.IsHighlighted {
		badges = append(badges, "🏆 Max project")
	}
	if len(badges) > 0 {
		head += "  " + strings.Join(badges, " · ")
	}

	var client []string
	if v := deref(l.ClientName); v != "" {
		client = append(client, "👤 *Client:* "+v)
	}
	if v := deref(l.ClientCountry); v != "" {
		client = append(client, "🌍 *Country:* "+v)
	}
	if l.ClientPaymentVerified {
		client = append(client, "✅ *Payment Verified*")
	} else {
		client = append(client, "❌ *Payment Not Verified*")
	}

	var info []string
	if v := deref(l.PostedRelative); v != "" {
		info = append(info, "*Posted:* "+v)
	}
	if v := deref(l.BudgetRaw); v != "" {
		info = append(info, "*Budget:* "+v)
	}
	if l.BidsCount != nil {
		info = append(info, "*Bids:* "+strconv.Itoa(*l.BidsCount))
	}
	if l.ClientRating != nil {
		info = append(info, "*Client Rating:* "+strconv.FormatFloat(*l.ClientRating, 'f', 2, 64)+"/5.0")
	}

	parts := []string{head, strings.Join(client, "\n")}
	if len(info) > 0 {
		parts = append(parts, strings.Join(info, " • "))
	}
	if s := skillsLine(l.Skills); s != "" {
		parts = append(parts, s)
	}

	var accessory *slack.Accessory
	if l.URL != "" {
		btn := slack.NewButtonBlockElement("view_job", "", plainText("View Job"))
		btn.URL = l.URL
		accessory = slack.NewAccessory(btn)
	}

	blocks := []slack.Block{slack.NewSectionBlock(mrkdwn(strings.Join(parts, "\n\n")), nil, accessory)}
	if sum := Summarize(deref(l.Description)); sum.Text != "" {
		blocks = append(blocks, slack.NewSectionBlock(mrkdwn(sum.Markdown()), nil, nil))
	}
	blocks = append(blocks, slack.NewDividerBlock())

	return &slack.WebhookMessage{
		Text:   "New job: " + title,
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
}

func mrkdwn(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

func plainText(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, false, false)
}

func skillsLine(skills []string) string {
	if len(skills) == 0 {
		return ""
	}
	shown := skills
	if len(shown) > maxSkillsShown {
		shown = shown[:maxSkillsShown]
	}
	line := "*Skills:* " + strings.Join(shown, ", ")
	if extra := len(skills) - len(shown); extra > 0 {
		line += fmt.Sprintf(" (+%d more)", extra)
	}
	return line
}
