package dotdir_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/frames/pkg/dotdir"
)

var _ = Describe("dotdir.Manager session", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		m = dotdir.NewManager()
	})

	It("returns nil when no session exists", func() {
		state, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("saves and loads a session", func() {
		started := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
		Expect(m.SaveSession(&dotdir.SessionState{RunID: "run-1", ProjectID: "proj", StartedAt: started}, tmpDir)).To(Succeed())

		state, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.RunID).To(Equal("run-1"))
		Expect(state.ProjectID).To(Equal("proj"))
		Expect(state.StartedAt.Equal(started)).To(BeTrue())
	})

	It("rejects sessions without a run id", func() {
		Expect(m.SaveSession(&dotdir.SessionState{}, tmpDir)).NotTo(Succeed())
		Expect(m.SaveSession(nil, tmpDir)).NotTo(Succeed())
	})

	It("clears the session", func() {
		Expect(m.SaveSession(&dotdir.SessionState{RunID: "run-1"}, tmpDir)).To(Succeed())
		Expect(m.ClearSession(tmpDir)).To(Succeed())

		_, err := os.Stat(filepath.Join(tmpDir, "session.json"))
		Expect(os.IsNotExist(err)).To(BeTrue())

		// clearing twice is fine
		Expect(m.ClearSession(tmpDir)).To(Succeed())
	})

	It("reports corrupt session files", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte("{nope"), 0o600)).To(Succeed())
		_, err := m.LoadSession(tmpDir)
		Expect(err).To(MatchError(ContainSubstring("parsing session state")))
	})
})
