package framecmder_test

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	framecmder "github.com/papercomputeco/frames/cmd/frames/frame"
	"github.com/papercomputeco/frames/pkg/engine"
)

var _ = Describe("frame command", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		GinkgoT().Setenv("FRAMES_DB", "")
		GinkgoT().Setenv("FRAMES_DIGEST_ENABLED", "false")
	})

	execute := func(args ...string) (string, error) {
		root := &cobra.Command{Use: "frames", SilenceUsage: true, SilenceErrors: true}
		root.PersistentFlags().String("config-dir", tmpDir, "")
		root.PersistentFlags().Bool("debug", false, "")
		root.AddCommand(framecmder.NewFrameCmd())

		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(io.Discard)
		root.SetArgs(append([]string{"frame"}, args...))
		err := root.Execute()
		return strings.TrimSpace(out.String()), err
	}

	mustRun := func(args ...string) string {
		out, err := execute(args...)
		Expect(err).NotTo(HaveOccurred())
		return out
	}

	type shown struct {
		Frame struct {
			ID         string         `json:"frame_id"`
			ParentID   *string        `json:"parent_frame_id"`
			State      string         `json:"state"`
			Inputs     map[string]any `json:"inputs"`
			Outputs    map[string]any `json:"outputs"`
			DigestText *string        `json:"digest_text"`
		} `json:"frame"`
		Events []struct {
			Seq     int `json:"seq"`
			Payload any `json:"payload"`
		} `json:"events"`
		Anchors []struct {
			Type     string `json:"type"`
			Priority int    `json:"priority"`
		} `json:"anchors"`
	}

	show := func(id string) shown {
		var v shown
		Expect(json.Unmarshal([]byte(mustRun("show", id, "--json")), &v)).To(Succeed())
		return v
	}

	It("nests frames across invocations", func() {
		parent := mustRun("create", "task", "Add login endpoint", "--set", "ticket=42")
		child := mustRun("create", "subtask", "Write handler")

		Expect(mustRun("stack")).To(SatisfyAll(
			ContainSubstring("Add login endpoint"),
			ContainSubstring("Write handler"),
		))

		v := show(child)
		Expect(*v.Frame.ParentID).To(Equal(parent))
		Expect(show(parent).Frame.Inputs).To(HaveKeyWithValue("ticket", BeNumerically("==", 42)))
	})

	It("records events and anchors on the current frame", func() {
		id := mustRun("create", "write", "Edit config")
		mustRun("event", "tool_call", "--set", "tool=write_file", "--set", "path=config.yaml")
		mustRun("event", "tool_result", "--json", `{"ok":true}`)
		mustRun("anchor", "decision", "Keep", "YAML", "--priority", "8")

		v := show(id)
		Expect(v.Events).To(HaveLen(2))
		Expect(v.Events[0].Seq).To(Equal(1))
		Expect(v.Events[1].Seq).To(Equal(2))
		Expect(v.Events[0].Payload).To(HaveKeyWithValue("path", "config.yaml"))
		Expect(v.Anchors).To(HaveLen(1))
		Expect(v.Anchors[0].Type).To(Equal("DECISION"))
		Expect(v.Anchors[0].Priority).To(Equal(8))
	})

	It("accepts a non-object event payload", func() {
		id := mustRun("create", "task", "Batch edit")
		mustRun("event", "observation", "--json", `["a.go", 9007199254740993]`)

		out := mustRun("show", id, "--json")
		Expect(out).To(ContainSubstring("9007199254740993"))
		v := show(id)
		Expect(v.Events).To(HaveLen(1))
		Expect(v.Events[0].Payload).To(HaveLen(2))
	})

	It("closes the current frame with its descendants", func() {
		parent := mustRun("create", "task", "Parent")
		child := mustRun("create", "subtask", "Child")

		out := mustRun("close", parent, "--status", "partial")
		Expect(out).To(ContainSubstring("Parent"))

		Expect(mustRun("stack")).To(ContainSubstring("No active frames"))
		Expect(show(child).Frame.State).To(Equal("closed"))

		v := show(parent)
		Expect(v.Frame.State).To(Equal("closed"))
		Expect(*v.Frame.DigestText).To(ContainSubstring("Status: partial"))
		Expect(v.Frame.Outputs).To(HaveKey("digest"))
	})

	It("renders the digest of a closed frame", func() {
		id := mustRun("create", "task", "Render me")
		mustRun("close")

		out := mustRun("show", id, "--render")
		Expect(out).To(ContainSubstring("Render me"))
	})

	It("reports a consistent stack", func() {
		mustRun("create", "task", "Only")
		Expect(mustRun("validate")).To(ContainSubstring("consistent"))
	})

	DescribeTable("rejects bad input",
		func(matcher OmegaMatcher, args ...string) {
			_, err := execute(args...)
			Expect(err).To(matcher)
		},
		Entry("unknown kind", BeAssignableToTypeOf(&engine.ValidationError{}), "create", "banana", "x"),
		Entry("close with nothing open", MatchError(engine.ErrNoActiveFrame), "close"),
		Entry("bad status", MatchError(ContainSubstring("invalid --status")), "close", "--status", "failure"),
		Entry("bad set", MatchError(ContainSubstring("expected key=value")), "create", "task", "x", "--set", "novalue"),
		Entry("set on a non-object", MatchError(ContainSubstring("--set needs a JSON object")), "create", "task", "x", "--json", "[1]", "--set", "k=v"),
		Entry("event with nothing open", MatchError(engine.ErrNoActiveFrame), "event", "tool_call"),
	)
})
