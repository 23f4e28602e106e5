package sqlitepath

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ResolveSQLitePath", func() {
	var (
		origCwd string
		workDir string
	)

	BeforeEach(func() {
		var err error
		origCwd, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		workDir = GinkgoT().TempDir()
		Expect(os.Chdir(workDir)).To(Succeed())
		GinkgoT().Setenv(EnvVar, "")
	})

	AfterEach(func() {
		Expect(os.Chdir(origCwd)).To(Succeed())
	})

	It("returns an explicit override untouched", func() {
		GinkgoT().Setenv(EnvVar, "/tmp/env.db")
		Expect(ResolveSQLitePath("/tmp/explicit.db", "")).To(Equal("/tmp/explicit.db"))
	})

	It("prefers FRAMES_DB over discovered files", func() {
		GinkgoT().Setenv(EnvVar, "/tmp/env.db")
		Expect(ResolveSQLitePath("", "")).To(Equal("/tmp/env.db"))
	})

	It("uses frames.db in the working directory when present", func() {
		Expect(os.WriteFile("frames.db", nil, 0o600)).To(Succeed())

		path, err := ResolveSQLitePath("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Base(path)).To(Equal("frames.db"))
		Expect(filepath.IsAbs(path)).To(BeTrue())
	})

	It("falls back to the configured .frames directory", func() {
		dir := filepath.Join(workDir, "custom")

		path, err := ResolveSQLitePath("", dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(dir, "frames.db")))
		Expect(dir).To(BeADirectory())
	})
})
