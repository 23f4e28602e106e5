package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/frames/pkg/credentials"
)

// recordingServer answers every request with body and records the last request.
type recordingServer struct {
	*httptest.Server
	path    string
	headers http.Header
	body    map[string]any
}

func newRecordingServer(status int, body string) *recordingServer {
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.path = r.URL.Path
		rs.headers = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&rs.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	return rs
}

var _ = Describe("NewCaller", func() {
	BeforeEach(func() {
		GinkgoT().Setenv("OPENAI_API_KEY", "")
		GinkgoT().Setenv("ANTHROPIC_API_KEY", "")
	})

	It("falls back to ollama when no key is available", func() {
		server := newRecordingServer(http.StatusOK, `{"model":"llama3.2","message":{"content":"{}"},"done":true}`)
		defer server.Close()

		caller, err := NewCaller(CallerConfig{Provider: "openai", BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		completion, err := caller(context.Background(), "prompt", 64)
		Expect(err).NotTo(HaveOccurred())
		Expect(server.path).To(Equal("/api/chat"))
		Expect(completion.Model).To(Equal("llama3.2"))
	})

	It("returns an error for unsupported provider", func() {
		_, err := NewCaller(CallerConfig{Provider: "unsupported", APIKey: "key"})
		Expect(err).To(MatchError(ContainSubstring("unsupported provider")))
	})

	It("reads keys from the environment", func() {
		GinkgoT().Setenv("ANTHROPIC_API_KEY", "env-key")
		Expect(HasCredentials(CallerConfig{Provider: "anthropic"})).To(BeTrue())
		Expect(HasCredentials(CallerConfig{Provider: "openai"})).To(BeFalse())
	})

	It("reads keys from the credentials manager", func() {
		mgr, err := credentials.NewManager(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		Expect(mgr.SetKey("openai", "stored-key")).To(Succeed())

		server := newRecordingServer(http.StatusOK, `{"choices":[{"message":{"content":"{}"}}]}`)
		defer server.Close()

		caller, err := NewCaller(CallerConfig{Provider: "openai", BaseURL: server.URL, CredMgr: mgr})
		Expect(err).NotTo(HaveOccurred())
		_, err = caller(context.Background(), "prompt", 64)
		Expect(err).NotTo(HaveOccurred())
		Expect(server.headers.Get("Authorization")).To(Equal("Bearer stored-key"))
	})
})

var _ = Describe("OpenAI caller", func() {
	It("sends the prompt and reports model and usage", func() {
		server := newRecordingServer(http.StatusOK, `{
			"model": "gpt-4o-mini-2024",
			"choices": [{"message": {"content": "{\"summary\":\"ok\"}"}}],
			"usage": {"total_tokens": 321}
		}`)
		defer server.Close()

		caller := newOpenAICaller("test-key", "gpt-4o-mini", server.URL, time.Second)
		completion, err := caller(context.Background(), "test prompt", 128)
		Expect(err).NotTo(HaveOccurred())

		Expect(server.path).To(Equal("/v1/chat/completions"))
		Expect(server.headers.Get("Authorization")).To(Equal("Bearer test-key"))
		Expect(server.body["model"]).To(Equal("gpt-4o-mini"))
		Expect(server.body["max_tokens"]).To(BeNumerically("==", 128))
		Expect(completion.Text).To(ContainSubstring("summary"))
		Expect(completion.Model).To(Equal("gpt-4o-mini-2024"))
		Expect(completion.TokensUsed).To(Equal(321))
	})

	It("returns error on non-200 status", func() {
		server := newRecordingServer(http.StatusUnauthorized, `{"error":{"message":"invalid key"}}`)
		defer server.Close()

		caller := newOpenAICaller("bad-key", "gpt-4o-mini", server.URL, time.Second)
		_, err := caller(context.Background(), "test prompt", 128)
		Expect(err).To(MatchError(ContainSubstring("status 401")))
	})

	It("returns error when there are no choices", func() {
		server := newRecordingServer(http.StatusOK, `{"choices":[]}`)
		defer server.Close()

		caller := newOpenAICaller("key", "gpt-4o-mini", server.URL, time.Second)
		_, err := caller(context.Background(), "test prompt", 128)
		Expect(err).To(MatchError(ContainSubstring("no choices")))
	})
})

var _ = Describe("Anthropic caller", func() {
	It("sends version headers and sums token usage", func() {
		server := newRecordingServer(http.StatusOK, `{
			"content": [{"type": "text", "text": "{\"summary\":\"done\"}"}],
			"usage": {"input_tokens": 100, "output_tokens": 20}
		}`)
		defer server.Close()

		caller := newAnthropicCaller("test-key", "claude-haiku-4-5-20251001", server.URL, time.Second)
		completion, err := caller(context.Background(), "test prompt", 256)
		Expect(err).NotTo(HaveOccurred())

		Expect(server.path).To(Equal("/v1/messages"))
		Expect(server.headers.Get("x-api-key")).To(Equal("test-key"))
		Expect(server.headers.Get("anthropic-version")).To(Equal("2023-06-01"))
		Expect(server.body["max_tokens"]).To(BeNumerically("==", 256))
		Expect(completion.Model).To(Equal("claude-haiku-4-5-20251001"))
		Expect(completion.TokensUsed).To(Equal(120))
	})
})

var _ = Describe("Ollama caller", func() {
	It("requests JSON output without streaming", func() {
		server := newRecordingServer(http.StatusOK, `{
			"message": {"content": "{\"summary\":\"refactored\"}"},
			"done": true,
			"prompt_eval_count": 40,
			"eval_count": 2
		}`)
		defer server.Close()

		caller := newOllamaCaller("llama3.2", server.URL, time.Second)
		completion, err := caller(context.Background(), "test prompt", 64)
		Expect(err).NotTo(HaveOccurred())

		Expect(server.path).To(Equal("/api/chat"))
		Expect(server.body["stream"]).To(BeFalse())
		Expect(server.body["format"]).To(Equal("json"))
		Expect(completion.Text).To(ContainSubstring("refactored"))
		Expect(completion.TokensUsed).To(Equal(42))
	})

	It("times out slow servers", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		caller := newOllamaCaller("llama3.2", server.URL, 50*time.Millisecond)
		_, err := caller(context.Background(), "test prompt", 64)
		Expect(err).To(HaveOccurred())
	})
})
