package sessioncmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	sessioncmder "github.com/papercomputeco/frames/cmd/frames/session"
	"github.com/papercomputeco/frames/pkg/dotdir"
)

var _ = Describe("session command", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	execute := func(args ...string) (string, error) {
		root := &cobra.Command{Use: "frames", SilenceUsage: true, SilenceErrors: true}
		root.PersistentFlags().String("config-dir", tmpDir, "")
		root.AddCommand(sessioncmder.NewSessionCmd())

		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs(append([]string{"session"}, args...))
		err := root.Execute()
		return out.String(), err
	}

	It("starts, shows and ends a session", func() {
		out, err := execute("new", "--project", "api")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("api"))

		state, err := dotdir.NewManager().LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.ProjectID).To(Equal("api"))

		out, err = execute("show")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring(state.RunID))

		_, err = execute("end")
		Expect(err).NotTo(HaveOccurred())

		out, err = execute("show")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("No active session"))
	})

	It("replaces the run on every new", func() {
		_, err := execute("new")
		Expect(err).NotTo(HaveOccurred())
		first, err := dotdir.NewManager().LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		_, err = execute("new")
		Expect(err).NotTo(HaveOccurred())
		second, err := dotdir.NewManager().LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(second.RunID).NotTo(Equal(first.RunID))
	})
})
