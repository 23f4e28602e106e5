package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/papercomputeco/frames/pkg/digest"
	"github.com/papercomputeco/frames/pkg/frame"
	"github.com/papercomputeco/frames/pkg/utils"
)

const (
	// DefaultMaxTokens bounds the completion when a request carries no budget.
	DefaultMaxTokens = 512

	maxEventExcerpt = 40
	maxPromptChars  = 30000
	maxPayloadChars = 400
)

// Completion is a raw model response.
type Completion struct {
	Text       string
	Model      string
	TokensUsed int
}

// LLMCallFunc is the signature for an LLM inference call.
type LLMCallFunc func(ctx context.Context, prompt string, maxTokens int) (*Completion, error)

// LLMSummarizer builds a prompt from the deterministic digest and asks a
// model for a JSON summary.
type LLMSummarizer struct {
	call LLMCallFunc
}

// NewLLMSummarizer creates a summarizer over an LLM call.
func NewLLMSummarizer(call LLMCallFunc) *LLMSummarizer {
	return &LLMSummarizer{call: call}
}

func (s *LLMSummarizer) Summarize(ctx context.Context, req Request) (*Result, error) {
	if req.Frame == nil || req.Digest == nil {
		return nil, errors.New("summarize: frame and digest are required")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	completion, err := s.call(ctx, buildPrompt(req), maxTokens)
	if err != nil {
		return nil, fmt.Errorf("llm call: %w", err)
	}

	result, err := parseResponse(completion.Text)
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	result.Model = completion.Model
	result.TokensUsed = completion.TokensUsed
	return result, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("You are reviewing one completed unit of work from an AI coding session.\n")
	b.WriteString("Return ONLY valid JSON with these fields:\n\n")
	b.WriteString("{\n")
	b.WriteString("  \"summary\": \"2-3 sentences on what was done and the outcome\",\n")
	b.WriteString("  \"insight\": \"one non-obvious lesson worth carrying forward, or empty\",\n")
	b.WriteString("  \"flagged_issue\": \"one concrete problem a reviewer should look at, or empty\"\n")
	b.WriteString("}\n\n")

	b.WriteString("Facts extracted from the frame:\n")
	b.WriteString(digest.Render(req.Frame, req.Digest))
	b.WriteString("\n")

	if len(req.Anchors) > 0 {
		b.WriteString("\nAnchors:\n")
		for _, a := range req.Anchors {
			fmt.Fprintf(&b, "- [%s p%d] %s\n", a.Type, a.Priority, a.Text)
		}
	}

	if len(req.Events) > 0 {
		b.WriteString("\nEvents:\n")
		events := req.Events
		if len(events) > maxEventExcerpt {
			fmt.Fprintf(&b, "(%d earlier events omitted)\n", len(events)-maxEventExcerpt)
			events = events[len(events)-maxEventExcerpt:]
		}
		for _, e := range events {
			fmt.Fprintf(&b, "%d. %s %s\n", e.Seq, e.Kind, payloadExcerpt(e.Payload))
		}
	}

	return utils.TruncateBytes(b.String(), maxPromptChars)
}

func payloadExcerpt(v frame.Value) string {
	data, err := frame.MarshalValue(v)
	if err != nil {
		return "{}"
	}
	return utils.Truncate(string(data), maxPayloadChars)
}

type llmResponse struct {
	Summary      string `json:"summary"`
	Insight      string `json:"insight"`
	FlaggedIssue string `json:"flagged_issue"`
}

func parseResponse(response string) (*Result, error) {
	// Extract JSON from the response (may be wrapped in markdown code blocks)
	jsonStr := response
	if idx := strings.Index(response, "{"); idx >= 0 {
		if end := strings.LastIndex(response, "}"); end > idx {
			jsonStr = response[idx : end+1]
		}
	}

	var parsed llmResponse
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return nil, errors.New("response has no summary")
	}

	return &Result{
		Summary:      strings.TrimSpace(parsed.Summary),
		Insight:      strings.TrimSpace(parsed.Insight),
		FlaggedIssue: strings.TrimSpace(parsed.FlaggedIssue),
	}, nil
}
