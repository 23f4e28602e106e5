package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/frames/pkg/config"
)

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("returns defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("storage.driver")).To(Equal("sqlite"))
		Expect(v.GetInt("digest.max_retries")).To(Equal(3))
		Expect(v.GetBool("digest.enabled")).To(BeTrue())
		Expect(v.GetString("digest.retry_delay")).To(Equal("30s"))
	})

	It("reads config file values over defaults", func() {
		data := `[llm]
provider = "anthropic"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("llm.provider")).To(Equal("anthropic"))
		Expect(v.GetString("llm.timeout")).To(Equal("30s"))
	})

	It("lets FRAMES_ environment variables win over the file", func() {
		data := `[digest]
max_retries = 5
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
		GinkgoT().Setenv("FRAMES_DIGEST_MAX_RETRIES", "9")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetInt("digest.max_retries")).To(Equal(9))
	})

	Describe("FromViper", func() {
		It("builds a config from every layer", func() {
			data := `[storage]
driver = "memory"

[digest]
enabled = false
`
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
			GinkgoT().Setenv("FRAMES_EVENTSTREAM_PROVIDER", "redis")

			v, err := config.InitViper(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := config.FromViper(v)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Storage.Driver).To(Equal("memory"))
			Expect(cfg.Digest.Enabled).To(BeFalse())
			Expect(cfg.EventStream.Provider).To(Equal("redis"))
			Expect(cfg.Digest.MaxRetries).To(Equal(3))
		})

		It("reports an invalid environment value", func() {
			GinkgoT().Setenv("FRAMES_DIGEST_TOOL_IDLE", "later")

			v, err := config.InitViper(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = config.FromViper(v)
			Expect(err).To(MatchError(ContainSubstring("digest.tool_idle")))
		})
	})
})

var _ = Describe("BindRegisteredFlags", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("registers flags with defaults from the registry", func() {
		cmd := &cobra.Command{Use: "test"}
		var driver string
		var retries int
		config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &driver)
		config.AddIntFlag(cmd, config.Flags, config.FlagMaxRetries, &retries)

		Expect(cmd.Flags().Lookup("storage-driver").DefValue).To(Equal("sqlite"))
		Expect(cmd.Flags().Lookup("max-retries").DefValue).To(Equal("3"))
	})

	It("skips keys missing from the registry", func() {
		cmd := &cobra.Command{Use: "test"}
		var s string
		config.AddStringFlag(cmd, config.FlagSet{}, config.FlagProject, &s)
		Expect(cmd.Flags().Lookup("project")).To(BeNil())
	})

	It("lets a set flag win over env and file", func() {
		GinkgoT().Setenv("FRAMES_SESSION_PROJECT", "from-env")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var project string
		config.AddStringFlag(cmd, config.Flags, config.FlagProject, &project)
		Expect(cmd.Flags().Set("project", "from-flag")).To(Succeed())

		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagProject})
		Expect(v.GetString("session.project")).To(Equal("from-flag"))
	})

	It("leaves env in charge when the flag is unset", func() {
		GinkgoT().Setenv("FRAMES_SESSION_PROJECT", "from-env")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var project string
		config.AddStringFlag(cmd, config.Flags, config.FlagProject, &project)

		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagProject})
		Expect(v.GetString("session.project")).To(Equal("from-env"))
	})
})
