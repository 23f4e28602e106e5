package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/frames/pkg/digest"
	"github.com/papercomputeco/frames/pkg/eventstream"
	"github.com/papercomputeco/frames/pkg/frame"
)

var _ = Describe("DigestEvent", func() {
	var (
		f   *frame.Frame
		now time.Time
	)

	BeforeEach(func() {
		now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
		f = &frame.Frame{ID: "f-1", RunID: "run-1", Name: "Fix auth", Kind: frame.KindTask}
	})

	It("describes a completed enrichment", func() {
		d := &digest.Digest{
			Status:   digest.StatusComplete,
			Attempts: 1,
			AI:       &digest.AI{Summary: "Fixed the token refresh path."},
		}

		ev := eventstream.NewDigestEvent(f, d, "proj", now)
		Expect(ev.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(ev.EventType).To(Equal(eventstream.EventTypeDigestCompleted))
		Expect(ev.EventID).NotTo(BeEmpty())
		Expect(ev.EmittedAt.Location()).To(Equal(time.UTC))
		Expect(ev.FrameID).To(Equal("f-1"))
		Expect(ev.ProjectID).To(Equal("proj"))
		Expect(ev.Summary).To(Equal("Fixed the token refresh path."))
		Expect(ev.Error).To(BeEmpty())
	})

	It("describes a failed enrichment", func() {
		d := &digest.Digest{Status: digest.StatusFailed, Attempts: 3, LastError: "model unavailable"}

		ev := eventstream.NewDigestEvent(f, d, "", now)
		Expect(ev.EventType).To(Equal(eventstream.EventTypeDigestFailed))
		Expect(ev.Attempts).To(Equal(3))
		Expect(ev.Error).To(Equal("model unavailable"))
		Expect(ev.Summary).To(BeEmpty())
	})

	It("marshals with snake_case top-level keys", func() {
		ev := eventstream.NewDigestEvent(f, &digest.Digest{Status: digest.StatusComplete}, "", now)

		payload, err := ev.Encode()
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())
		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("frame_id"))
		Expect(got).To(HaveKeyWithValue("status", "complete"))
		Expect(got).NotTo(HaveKey("project_id"))
	})

	DescribeTable("Validate",
		func(ev *eventstream.DigestEvent, want error) {
			if want == nil {
				Expect(ev.Validate()).To(Succeed())
				return
			}
			Expect(ev.Validate()).To(MatchError(want))
		},
		Entry("nil", nil, eventstream.ErrNilDigestEvent),
		Entry("missing frame id",
			&eventstream.DigestEvent{EventType: eventstream.EventTypeDigestCompleted},
			eventstream.ErrInvalidDigestEvent),
		Entry("unknown type",
			&eventstream.DigestEvent{FrameID: "f-1", EventType: "frames.digest.queued"},
			eventstream.ErrInvalidDigestEvent),
		Entry("failed event", &eventstream.DigestEvent{FrameID: "f-1", EventType: eventstream.EventTypeDigestFailed}, nil),
	)

	It("refuses to encode an invalid event", func() {
		payload, err := (&eventstream.DigestEvent{}).Encode()
		Expect(err).To(MatchError(eventstream.ErrInvalidDigestEvent))
		Expect(payload).To(BeNil())
	})
})
