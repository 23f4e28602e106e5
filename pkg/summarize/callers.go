package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/frames/pkg/credentials"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"

	// DefaultTimeout bounds one model call.
	DefaultTimeout = 30 * time.Second
)

// CallerConfig holds configuration for creating an LLM caller.
type CallerConfig struct {
	Provider string               // "openai", "anthropic", or "ollama"
	Model    string               // e.g. "gpt-4o-mini", "claude-haiku-4-5-20251001"
	APIKey   string               // explicit API key (highest priority)
	BaseURL  string               // override base URL
	Timeout  time.Duration        // per-call timeout, DefaultTimeout when zero
	CredMgr  *credentials.Manager // credentials from frames auth
	Logger   *slog.Logger
}

// HasCredentials checks whether an API key can be resolved from the config
// without creating a caller.
func HasCredentials(cfg CallerConfig) bool {
	if cfg.APIKey != "" {
		return true
	}
	provider := strings.ToLower(cfg.Provider)
	if provider == ProviderOllama {
		return true
	}
	return resolveAPIKey(cfg.CredMgr, provider, nil) != ""
}

// NewCaller creates a LLMCallFunc based on the provided configuration.
// Resolution order for API key:
//  1. Explicit APIKey in config
//  2. credentials.Manager (from frames auth)
//  3. Environment variables (OPENAI_API_KEY / ANTHROPIC_API_KEY)
//  4. Fall back to Ollama at localhost:11434
func NewCaller(cfg CallerConfig) (LLMCallFunc, error) {
	provider := strings.ToLower(cfg.Provider)
	model := cfg.Model

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = resolveAPIKey(cfg.CredMgr, provider, cfg.Logger)
	}

	// If no key found and provider is not explicitly ollama, fall back to ollama
	if apiKey == "" && provider != ProviderOllama {
		if cfg.Logger != nil {
			cfg.Logger.Warn("no API key found, falling back to ollama", "provider", provider)
		}
		provider = ProviderOllama
		model = ""
	}

	switch provider {
	case ProviderOpenAI, "":
		if model == "" {
			model = "gpt-4o-mini"
		}
		return newOpenAICaller(apiKey, model, baseURLOr(cfg.BaseURL, "https://api.openai.com"), timeout), nil

	case ProviderAnthropic:
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		return newAnthropicCaller(apiKey, model, baseURLOr(cfg.BaseURL, "https://api.anthropic.com"), timeout), nil

	case ProviderOllama:
		if model == "" {
			model = "llama3.2"
		}
		return newOllamaCaller(model, baseURLOr(cfg.BaseURL, "http://localhost:11434"), timeout), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func baseURLOr(override, fallback string) string {
	if override != "" {
		return strings.TrimRight(override, "/")
	}
	return fallback
}

func resolveAPIKey(mgr *credentials.Manager, provider string, log *slog.Logger) string {
	if provider == "" {
		provider = ProviderOpenAI
	}
	key, _, err := mgr.Resolve(provider)
	if err != nil && log != nil {
		log.Warn("reading stored credentials", "provider", provider, "error", err)
	}
	return key
}

// postJSON sends body to url and returns the response body on HTTP 200.
func postJSON(ctx context.Context, timeout time.Duration, url string, headers map[string]string, body any, provider string) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API error (status %d): %s", provider, resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// --- OpenAI caller ---

type openAIRequest struct {
	Model          string            `json:"model"`
	Messages       []openAIMessage   `json:"messages"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat *openAIRespFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRespFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func newOpenAICaller(apiKey, model, baseURL string, timeout time.Duration) LLMCallFunc {
	return func(ctx context.Context, prompt string, maxTokens int) (*Completion, error) {
		reqBody := openAIRequest{
			Model: model,
			Messages: []openAIMessage{
				{Role: "user", Content: prompt},
			},
			MaxTokens:      maxTokens,
			ResponseFormat: &openAIRespFormat{Type: "json_object"},
		}

		body, err := postJSON(ctx, timeout, baseURL+"/v1/chat/completions",
			map[string]string{"Authorization": "Bearer " + apiKey}, reqBody, ProviderOpenAI)
		if err != nil {
			return nil, err
		}

		var result openAIResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}

		if result.Error != nil {
			return nil, fmt.Errorf("openai error: %s", result.Error.Message)
		}

		if len(result.Choices) == 0 {
			return nil, errors.New("openai returned no choices")
		}

		return &Completion{
			Text:       result.Choices[0].Message.Content,
			Model:      modelOr(result.Model, model),
			TokensUsed: result.Usage.TotalTokens,
		}, nil
	}
}

// --- Anthropic caller ---

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func newAnthropicCaller(apiKey, model, baseURL string, timeout time.Duration) LLMCallFunc {
	return func(ctx context.Context, prompt string, maxTokens int) (*Completion, error) {
		reqBody := anthropicRequest{
			Model:     model,
			MaxTokens: maxTokens,
			Messages: []anthropicMessage{
				{Role: "user", Content: prompt + "\n\nReturn ONLY valid JSON, no markdown or extra text."},
			},
		}

		body, err := postJSON(ctx, timeout, baseURL+"/v1/messages", map[string]string{
			"x-api-key":         apiKey,
			"anthropic-version": "2023-06-01",
		}, reqBody, ProviderAnthropic)
		if err != nil {
			return nil, err
		}

		var result anthropicResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}

		if result.Error != nil {
			return nil, fmt.Errorf("anthropic error: %s", result.Error.Message)
		}

		if len(result.Content) == 0 {
			return nil, errors.New("anthropic returned no content")
		}

		return &Completion{
			Text:       result.Content[0].Text,
			Model:      modelOr(result.Model, model),
			TokensUsed: result.Usage.InputTokens + result.Usage.OutputTokens,
		}, nil
	}
}

// --- Ollama caller ---

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Format   string              `json:"format"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done            bool `json:"done"`
	PromptEvalCount int  `json:"prompt_eval_count"`
	EvalCount       int  `json:"eval_count"`
}

func newOllamaCaller(model, baseURL string, timeout time.Duration) LLMCallFunc {
	return func(ctx context.Context, prompt string, maxTokens int) (*Completion, error) {
		reqBody := ollamaChatRequest{
			Model: model,
			Messages: []ollamaChatMessage{
				{Role: "user", Content: prompt},
			},
			Stream:  false,
			Format:  "json",
			Options: map[string]any{"num_predict": maxTokens},
		}

		body, err := postJSON(ctx, timeout, baseURL+"/api/chat", nil, reqBody, ProviderOllama)
		if err != nil {
			return nil, err
		}

		var result ollamaChatResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}

		return &Completion{
			Text:       result.Message.Content,
			Model:      modelOr(result.Model, model),
			TokensUsed: result.PromptEvalCount + result.EvalCount,
		}, nil
	}
}

func modelOr(reported, requested string) string {
	if reported != "" {
		return reported
	}
	return requested
}
