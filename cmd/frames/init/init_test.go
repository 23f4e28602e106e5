package initcmder_test

import (
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/frames/cmd/frames/init"
	"github.com/papercomputeco/frames/pkg/config"
)

func loadConfig(dir string) *config.Config {
	data, err := os.ReadFile(filepath.Join(dir, ".frames", "config.toml"))
	Expect(err).NotTo(HaveOccurred())

	cfg := &config.Config{}
	Expect(toml.Unmarshal(data, cfg)).To(Succeed())
	return cfg
}

var _ = Describe("NewInitCmd", func() {
	It("rejects arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("has a --preset flag", func() {
		f := initcmder.NewInitCmd().Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		tmpDir = GinkgoT().TempDir()
		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
	})

	run := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetOut(io.Discard)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	It("creates .frames with a default config", func() {
		Expect(run()).To(Succeed())
		Expect(filepath.Join(tmpDir, ".frames")).To(BeADirectory())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Storage.Driver).To(Equal("sqlite"))
		Expect(cfg.Digest.Enabled).To(BeTrue())
		Expect(cfg.LLM.Provider).To(Equal("ollama"))
	})

	It("leaves an existing config alone", func() {
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".frames"), 0o755)).To(Succeed())
		existing := "[session]\nproject = \"keep\"\n"
		Expect(os.WriteFile(filepath.Join(tmpDir, ".frames", "config.toml"), []byte(existing), 0o600)).To(Succeed())

		Expect(run()).To(Succeed())

		data, err := os.ReadFile(filepath.Join(tmpDir, ".frames", "config.toml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(existing))
	})

	It("applies a preset to an existing config without losing other sections", func() {
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".frames"), 0o755)).To(Succeed())
		existing := "[session]\nproject = \"keep\"\n"
		Expect(os.WriteFile(filepath.Join(tmpDir, ".frames", "config.toml"), []byte(existing), 0o600)).To(Succeed())

		Expect(run("--preset", "openai")).To(Succeed())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Session.Project).To(Equal("keep"))
		Expect(cfg.LLM.Provider).To(Equal("openai"))
		Expect(cfg.LLM.Model).To(Equal("gpt-4o-mini"))
	})

	DescribeTable("presets",
		func(name, provider string) {
			Expect(run("--preset", name)).To(Succeed())
			Expect(loadConfig(tmpDir).LLM.Provider).To(Equal(provider))
		},
		Entry("openai", "openai", "openai"),
		Entry("anthropic", "anthropic", "anthropic"),
		Entry("ollama", "ollama", "ollama"),
	)

	It("rejects unknown presets before touching the filesystem", func() {
		err := run("--preset", "invalid-provider")
		Expect(err).To(MatchError(ContainSubstring("unknown preset")))
		_, statErr := os.Stat(filepath.Join(tmpDir, ".frames"))
		Expect(os.IsNotExist(statErr)).To(BeTrue())
	})
})
