// Package gemini wraps the Gemini API as a best-effort negotiation
// decision suggester. Anything that goes wrong inside the client --
// network, quota, malformed output -- surfaces as "no suggestion",
// never as an error the orchestrator has to handle.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const suggestTimeout = 20 * time.Second

// SuggestRequest is the negotiation context handed to the model.
type SuggestRequest struct {
	BrokerMessage string
	DetectedPrice float64
	LoadRef       string
	MinCPM        float64
	MinFlatRate   float64
}

// Suggestion is the model's proposed move. All fields are untrusted free
// text; the guardrail enforcer owns validation.
type Suggestion struct {
	Action    string
	Price     string
	Template  string
	EmailBody string
}

// Suggester produces an optional decision suggestion. A nil return means
// no usable suggestion; callers fall back to the baseline decision.
type Suggester interface {
	SuggestDecision(ctx context.Context, req SuggestRequest) *Suggestion
}

// NoopSuggester is used when no API key is configured.
type NoopSuggester struct{}

func (NoopSuggester) SuggestDecision(context.Context, SuggestRequest) *Suggestion { return nil }

type Client struct {
	model *genai.GenerativeModel
	log   *slog.Logger
}

func NewClient(ctx context.Context, apiKey string, log *slog.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	model := client.GenerativeModel("gemini-2.0-flash-001")
	model.ResponseMIMEType = "application/json"
	return &Client{model: model, log: log}, nil
}

// suggestionPayload is the wire shape. Price is decoded as `any` because
// the model sometimes returns a bare number and sometimes "$2,600".
type suggestionPayload struct {
	Action    string `json:"action"`
	Price     any    `json:"price"`
	Template  string `json:"template"`
	EmailBody string `json:"email_body"`
}

var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

func (c *Client) SuggestDecision(ctx context.Context, req SuggestRequest) *Suggestion {
	ctx, cancel := context.WithTimeout(ctx, suggestTimeout)
	defer cancel()

	prompt := fmt.Sprintf(`You are the Lead Dispatcher for Green Candle Dispatch.
Style: professional, brief, firm.
Hard rules: never go below the provided floor constraints, always include the load reference in the email body, format currency as $X,XXX.
Return only valid JSON with keys: action, price, template, email_body.

Broker message: %s
Detected broker price: %.0f
Load reference: %s
Driver min_cpm: %.2f
Driver min_flat_rate: %.0f

Choose action from SEND_COUNTER, WALK_AWAY, FINALIZE.
Choose template from close_the_deal, standard_negotiation, polite_decline.`,
		req.BrokerMessage, req.DetectedPrice, req.LoadRef, req.MinCPM, req.MinFlatRate)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		c.log.Debug("gemini call failed", "err", err)
		return nil
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		c.log.Debug("gemini returned no candidates")
		return nil
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		c.log.Debug("gemini returned a non-text part")
		return nil
	}

	payload := extractJSONObject(string(text))
	if payload == nil {
		c.log.Debug("gemini response carried no JSON object")
		return nil
	}

	suggestion := &Suggestion{
		Action:    payload.Action,
		Template:  payload.Template,
		EmailBody: payload.EmailBody,
	}
	if payload.Price != nil {
		suggestion.Price = fmt.Sprint(payload.Price)
	}
	return suggestion
}

// extractJSONObject decodes payload text that is either a bare JSON
// object or prose with an object embedded in it.
func extractJSONObject(text string) *suggestionPayload {
	var payload suggestionPayload
	if err := json.Unmarshal([]byte(text), &payload); err == nil {
		return &payload
	}
	match := jsonObjectRe.FindString(text)
	if match == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(match), &payload); err != nil {
		return nil
	}
	return &payload
}
