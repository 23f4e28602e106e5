package authcmder_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	authcmder "github.com/papercomputeco/frames/cmd/frames/auth"
	"github.com/papercomputeco/frames/pkg/credentials"
)

var _ = Describe("auth command", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		GinkgoT().Setenv("OPENAI_API_KEY", "")
		GinkgoT().Setenv("ANTHROPIC_API_KEY", "")
	})

	execute := func(stdin string, args ...string) (string, error) {
		cmd := authcmder.NewAuthCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override path to .frames/ directory")
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetArgs(append(args, "--config-dir", tmpDir))
		err := cmd.Execute()
		return out.String(), err
	}

	storedKey := func(provider string) string {
		mgr, err := credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		key, err := mgr.GetKey(provider)
		Expect(err).NotTo(HaveOccurred())
		return key
	}

	Describe("set", func() {
		It("stores a piped key", func() {
			out, err := execute("sk-ant-test\n", "set", "anthropic")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("ANTHROPIC_API_KEY"))
			Expect(storedKey("anthropic")).To(Equal("sk-ant-test"))
		})

		It("normalizes the provider name", func() {
			_, err := execute("sk-test\n", "set", "  OpenAI ")
			Expect(err).NotTo(HaveOccurred())
			Expect(storedKey("openai")).To(Equal("sk-test"))
		})

		It("rejects an empty key", func() {
			_, err := execute("   \n", "set", "openai")
			Expect(err).To(MatchError("API key cannot be empty"))
		})

		It("fails when stdin is empty", func() {
			_, err := execute("", "set", "openai")
			Expect(err).To(MatchError(ContainSubstring("no input")))
		})

		It("rejects providers that take no key", func() {
			_, err := execute("key\n", "set", "ollama")
			Expect(err).To(MatchError(ContainSubstring("unsupported provider")))
		})

		It("requires a provider", func() {
			_, err := execute("", "set")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("status", func() {
		It("shows stored, environment and missing keys", func() {
			GinkgoT().Setenv("ANTHROPIC_API_KEY", "sk-env")
			_, err := execute("sk-test\n", "set", "openai")
			Expect(err).NotTo(HaveOccurred())

			out, err := execute("", "status")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(SatisfyAll(
				ContainSubstring("stored in"),
				ContainSubstring("from $ANTHROPIC_API_KEY"),
				ContainSubstring("no key needed"),
			))
		})

		It("reports providers with no key", func() {
			out, err := execute("", "status")
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Count(out, "not set")).To(Equal(2))
		})
	})

	Describe("remove", func() {
		It("forgets a stored key", func() {
			_, err := execute("sk-test\n", "set", "openai")
			Expect(err).NotTo(HaveOccurred())

			_, err = execute("", "remove", "openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(storedKey("openai")).To(BeEmpty())
		})
	})
})
