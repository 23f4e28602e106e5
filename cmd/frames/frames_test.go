package framescmder_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	framescmder "github.com/papercomputeco/frames/cmd/frames"
)

var _ = Describe("NewFramesCmd", func() {
	It("registers every subcommand", func() {
		cmd := framescmder.NewFramesCmd()

		var names []string
		for _, c := range cmd.Commands() {
			names = append(names, c.Name())
		}
		Expect(names).To(ContainElements("init", "config", "auth", "session", "frame", "digest", "version"))
	})

	It("exposes the global flags", func() {
		cmd := framescmder.NewFramesCmd()

		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
		debug := cmd.PersistentFlags().Lookup("debug")
		Expect(debug).NotTo(BeNil())
		Expect(debug.Shorthand).To(Equal("d"))
	})

	It("prints the version", func() {
		cmd := framescmder.NewFramesCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"version"})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Version: "))
	})

	It("runs a frame through the whole tree", func() {
		tmpDir := GinkgoT().TempDir()
		GinkgoT().Setenv("FRAMES_DB", "")
		GinkgoT().Setenv("FRAMES_DIGEST_ENABLED", "false")

		run := func(args ...string) string {
			cmd := framescmder.NewFramesCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(io.Discard)
			cmd.SetArgs(append(args, "--config-dir", tmpDir))
			Expect(cmd.Execute()).To(Succeed())
			return strings.TrimSpace(out.String())
		}

		id := run("frame", "create", "task", "Fix flaky test")
		Expect(run("frame", "stack")).To(ContainSubstring("Fix flaky test"))
		Expect(run("frame", "close")).To(ContainSubstring("Closed Fix flaky test"))
		Expect(run("frame", "show", id)).To(ContainSubstring("closed"))

		_, err := os.Stat(filepath.Join(tmpDir, "frames.db"))
		Expect(err).NotTo(HaveOccurred())
	})
})
