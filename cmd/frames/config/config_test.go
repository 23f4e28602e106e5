package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/frames/cmd/frames/config"
	"github.com/papercomputeco/frames/pkg/config"
)

var _ = Describe("config command", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	execute := func(args ...string) (string, error) {
		root := &cobra.Command{Use: "frames", SilenceUsage: true, SilenceErrors: true}
		root.PersistentFlags().String("config-dir", tmpDir, "")
		root.AddCommand(configcmder.NewConfigCmd())

		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(append([]string{"config"}, args...))
		err := root.Execute()
		return out.String(), err
	}

	Describe("set", func() {
		It("writes config.toml", func() {
			out, err := execute("set", "llm.provider", "anthropic")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("llm.provider"))
			Expect(filepath.Join(tmpDir, "config.toml")).To(BeARegularFile())

			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfger.GetConfigValue("llm.provider")).To(Equal("anthropic"))
		})

		It("rejects unknown keys", func() {
			_, err := execute("set", "proxy.listen", ":8080")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("rejects invalid values without writing", func() {
			_, err := execute("set", "digest.max_retries", "lots")
			Expect(err).To(HaveOccurred())

			_, statErr := os.Stat(filepath.Join(tmpDir, "config.toml"))
			Expect(os.IsNotExist(statErr)).To(BeTrue())
		})

		It("requires exactly two arguments", func() {
			_, err := execute("set", "llm.provider")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("get", func() {
		It("prints a previously set value", func() {
			_, err := execute("set", "session.project", "acme")
			Expect(err).NotTo(HaveOccurred())

			out, err := execute("get", "session.project")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("acme"))
		})

		It("marks unset keys", func() {
			out, err := execute("get", "llm.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("<not set>"))
		})

		It("rejects unknown keys", func() {
			_, err := execute("get", "nope")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("list", func() {
		It("prints every key under its section", func() {
			out, err := execute("list")
			Expect(err).NotTo(HaveOccurred())
			for _, key := range config.ValidConfigKeys() {
				section, field, _ := strings.Cut(key, ".")
				Expect(out).To(ContainSubstring("[" + section + "]"))
				Expect(out).To(MatchRegexp(`(?m)^  ` + regexp.QuoteMeta(field) + ` +=`))
			}
			Expect(out).To(ContainSubstring(`"sqlite"`))
		})

		It("filters to one section", func() {
			out, err := execute("list", "--section", "digest")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("[digest]"))
			Expect(out).NotTo(ContainSubstring("[storage]"))
		})

		It("rejects an unknown section", func() {
			_, err := execute("list", "--section", "proxy")
			Expect(err).To(MatchError(ContainSubstring("unknown config section")))
		})

		It("rejects arguments", func() {
			_, err := execute("list", "extra")
			Expect(err).To(HaveOccurred())
		})
	})
})
