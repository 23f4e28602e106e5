package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/frames/pkg/dotdir"
)

var _ = Describe("dotdir", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())

		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	chdir := func(dir string) {
		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(dir)).To(Succeed())
		DeferCleanup(func() { _ = os.Chdir(origDir) })
	}

	Describe("Target", func() {
		It("creates the override directory if it doesn't exist", func() {
			dir := filepath.Join(tmpDir, "newdir")
			result, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("prefers the override over a local .frames dir", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, ".frames"), 0o755)).To(Succeed())
			chdir(tmpDir)

			overrideDir := filepath.Join(tmpDir, "override")
			result, err := m.Target(overrideDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(overrideDir))
		})

		It("returns the local .frames dir when no override is provided", func() {
			local := filepath.Join(tmpDir, ".frames")
			Expect(os.Mkdir(local, 0o755)).To(Succeed())
			chdir(tmpDir)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(local))
		})

		It("finds .frames in a parent directory", func() {
			local := filepath.Join(tmpDir, ".frames")
			nested := filepath.Join(tmpDir, "services", "billing")
			Expect(os.Mkdir(local, 0o755)).To(Succeed())
			Expect(os.MkdirAll(nested, 0o755)).To(Succeed())
			chdir(nested)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(local))
		})

		It("does not walk past the home directory", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, ".frames"), 0o755)).To(Succeed())
			home := filepath.Join(tmpDir, "home")
			project := filepath.Join(home, "project")
			Expect(os.MkdirAll(project, 0o755)).To(Succeed())
			chdir(project)
			GinkgoT().Setenv("HOME", home)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(home, ".frames")))
		})

		It("creates new directories private to the user", func() {
			dir := filepath.Join(tmpDir, "private")
			_, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o700)))
		})

		It("falls back to ~/.frames", func() {
			emptyDir := filepath.Join(tmpDir, "empty")
			Expect(os.Mkdir(emptyDir, 0o755)).To(Succeed())
			chdir(emptyDir)
			GinkgoT().Setenv("HOME", tmpDir)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(tmpDir, ".frames")))
		})
	})

	Describe("Path", func() {
		It("joins a file name onto the target", func() {
			p, err := m.Path(tmpDir, dotdir.ConfigFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(filepath.Join(tmpDir, "config.toml")))
		})
	})

	Describe("InitLocal", func() {
		It("creates the directory once", func() {
			dir, created, err := m.InitLocal(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeTrue())
			Expect(dir).To(Equal(filepath.Join(tmpDir, ".frames")))

			_, created, err = m.InitLocal(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeFalse())
		})
	})
})
