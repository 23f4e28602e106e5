package versioncmder_test

import (
	"bytes"
	"encoding/json"
	"runtime"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	versioncmder "github.com/papercomputeco/frames/cmd/version"
	"github.com/papercomputeco/frames/pkg/utils"
)

var _ = Describe("version command", func() {
	run := func(args ...string) string {
		cmd := versioncmder.NewVersionCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		Expect(cmd.Execute()).To(Succeed())
		return out.String()
	}

	It("prints build fields as text", func() {
		out := run()
		Expect(out).To(SatisfyAll(
			ContainSubstring("Sha: "+utils.Sha),
			ContainSubstring("Go: "+runtime.Version()),
		))
	})

	It("prints JSON", func() {
		var got map[string]string
		Expect(json.Unmarshal([]byte(run("--json")), &got)).To(Succeed())
		Expect(got).To(HaveKeyWithValue("sha", utils.Sha))
		Expect(got).To(HaveKey("version"))
		Expect(got).To(HaveKeyWithValue("go_version", runtime.Version()))
	})

	It("rejects arguments", func() {
		cmd := versioncmder.NewVersionCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"extra"})
		Expect(cmd.Execute()).NotTo(Succeed())
	})
})
