package logger_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/frames/pkg/logger"
)

var _ = Describe("New", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	It("writes key=value text at info by default", func() {
		logger.New(logger.WithWriter(buf)).Info("frame created", "frame_id", "f-1")

		Expect(buf.String()).To(SatisfyAll(
			ContainSubstring("frame created"),
			ContainSubstring("frame_id=f-1"),
		))
	})

	It("drops debug records unless debug is on", func() {
		logger.New(logger.WithWriter(buf)).Debug("quiet")
		Expect(buf.String()).To(BeEmpty())

		logger.New(logger.WithWriter(buf), logger.WithDebug(true)).Debug("loud")
		Expect(buf.String()).To(ContainSubstring("loud"))
	})

	It("keeps an explicit level when debug is off", func() {
		l := logger.New(logger.WithWriter(buf), logger.WithLevel(slog.LevelWarn), logger.WithDebug(false))
		l.Info("skipped")
		l.Warn("kept")

		Expect(buf.String()).NotTo(ContainSubstring("skipped"))
		Expect(buf.String()).To(ContainSubstring("kept"))
	})

	It("emits one JSON object per record", func() {
		logger.New(logger.WithWriter(buf), logger.WithFormat(logger.FormatJSON)).
			Info("digest enriched", "attempts", 2)

		var rec map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &rec)).To(Succeed())
		Expect(rec).To(HaveKeyWithValue("msg", "digest enriched"))
		Expect(rec).To(HaveKeyWithValue("attempts", BeNumerically("==", 2)))
	})

	It("renders pretty output", func() {
		logger.New(logger.WithWriter(buf), logger.WithFormat(logger.FormatPretty)).Info("stack rebuilt")
		Expect(buf.String()).To(ContainSubstring("stack rebuilt"))
	})

	It("ignores a nil writer", func() {
		Expect(logger.New(logger.WithWriter(nil)).Handler()).NotTo(BeNil())
	})
})

var _ = Describe("OpenFile", func() {
	It("appends debug JSON lines to a private file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "frames.log")

		for _, msg := range []string{"first", "second"} {
			l, f, err := logger.OpenFile(path)
			Expect(err).NotTo(HaveOccurred())
			l.Debug(msg)
			Expect(f.Close()).To(Succeed())
		}

		info, err := os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

		f, err := os.Open(path)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		var msgs []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var rec map[string]any
			Expect(json.Unmarshal(scanner.Bytes(), &rec)).To(Succeed())
			msgs = append(msgs, rec["msg"].(string))
		}
		Expect(msgs).To(Equal([]string{"first", "second"}))
	})

	It("fails for an unwritable location", func() {
		_, _, err := logger.OpenFile(filepath.Join(GinkgoT().TempDir(), "missing", "frames.log"))
		Expect(err).To(MatchError(ContainSubstring("opening log file")))
	})
})

var _ = Describe("Tee", func() {
	It("sends records to every logger that accepts the level", func() {
		var human, machine bytes.Buffer
		l := logger.Tee(
			logger.New(logger.WithWriter(&human)),
			logger.New(logger.WithWriter(&machine), logger.WithFormat(logger.FormatJSON), logger.WithDebug(true)),
		)

		l.Debug("only machine")
		l.Info("both")

		Expect(human.String()).NotTo(ContainSubstring("only machine"))
		Expect(human.String()).To(ContainSubstring("both"))
		Expect(machine.String()).To(SatisfyAll(ContainSubstring("only machine"), ContainSubstring("both")))
	})

	It("carries attrs and groups to each handler", func() {
		var a, b bytes.Buffer
		l := logger.Tee(logger.New(logger.WithWriter(&a)), logger.New(logger.WithWriter(&b))).
			With("run_id", "r-1").
			WithGroup("digest")

		l.Info("queued", "priority", "high")

		for _, out := range []string{a.String(), b.String()} {
			Expect(out).To(SatisfyAll(
				ContainSubstring("run_id=r-1"),
				ContainSubstring("digest.priority=high"),
			))
		}
	})

	It("skips nil loggers", func() {
		var buf bytes.Buffer
		logger.Tee(nil, logger.New(logger.WithWriter(&buf))).Info("ok")
		Expect(buf.String()).To(ContainSubstring("ok"))
	})
})

var _ = Describe("Nop", func() {
	It("is disabled at every level", func() {
		Expect(logger.Nop().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
	})
})
