// Package storagetest holds the behaviour every storage.Driver must satisfy,
// expressed as shared ginkgo specs.
package storagetest

import (
	"context"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/frames/pkg/frame"
	"github.com/papercomputeco/frames/pkg/storage"
)

var base = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// NewFrame builds an active root-or-child frame for driver tests.
func NewFrame(id string, parent *frame.Frame, offset time.Duration) *frame.Frame {
	f := &frame.Frame{
		ID:         id,
		RunID:      "run-1",
		ProjectID:  "proj",
		Kind:       frame.KindTask,
		Name:       id,
		State:      frame.StateActive,
		Inputs:     frame.Payload{},
		Outputs:    frame.Payload{},
		DigestData: frame.Payload{},
		CreatedAt:  base.Add(offset),
	}
	if parent != nil {
		pid := parent.ID
		f.ParentID = &pid
		f.Depth = parent.Depth + 1
		f.Kind = frame.KindSubtask
	}
	return f
}

// DescribeDriver registers the shared driver specs. newDriver is called
// before each test; the returned driver is closed afterwards.
func DescribeDriver(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
			driver = nil
		}
	})

	Describe("frames", func() {
		It("round-trips a frame with nested inputs", func() {
			root := NewFrame("root", nil, 0)
			root.Inputs = frame.Payload{
				"goal":   "ship it",
				"nested": map[string]any{"list": []any{"a", json.Number("2"), true, nil}},
				"n":      json.Number("1.5"),
				"ticket": json.Number("9007199254740993"),
			}
			Expect(driver.CreateFrame(ctx, root)).To(Succeed())

			got, err := driver.GetFrame(ctx, "root")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Inputs).To(Equal(root.Inputs))
			Expect(got.ParentID).To(BeNil())
			Expect(got.State).To(Equal(frame.StateActive))
			Expect(got.ClosedAt).To(BeNil())
			Expect(got.DigestText).To(BeNil())
			Expect(got.CreatedAt.Equal(root.CreatedAt)).To(BeTrue())
		})

		It("returns NotFoundError for unknown frames", func() {
			_, err := driver.GetFrame(ctx, "missing")
			var nf storage.NotFoundError
			Expect(err).To(BeAssignableToTypeOf(nf))
		})

		It("filters frames by run, state and parent in creation order", func() {
			root := NewFrame("root", nil, 0)
			child := NewFrame("child", root, time.Second)
			other := NewFrame("other", nil, 2*time.Second)
			other.RunID = "run-2"
			Expect(driver.CreateFrame(ctx, root)).To(Succeed())
			Expect(driver.CreateFrame(ctx, child)).To(Succeed())
			Expect(driver.CreateFrame(ctx, other)).To(Succeed())

			frames, err := driver.ListFrames(ctx, storage.FrameQuery{RunID: "run-1", State: frame.StateActive})
			Expect(err).NotTo(HaveOccurred())
			Expect(frames).To(HaveLen(2))
			Expect(frames[0].ID).To(Equal("root"))
			Expect(frames[1].ID).To(Equal("child"))
			Expect(*frames[1].ParentID).To(Equal("root"))

			children, err := driver.ListFrames(ctx, storage.FrameQuery{ParentID: "root"})
			Expect(err).NotTo(HaveOccurred())
			Expect(children).To(HaveLen(1))
			Expect(children[0].Depth).To(Equal(1))
		})

		It("closes an active frame exactly once", func() {
			root := NewFrame("root", nil, 0)
			Expect(driver.CreateFrame(ctx, root)).To(Succeed())

			closedAt := base.Add(time.Minute)
			rec := storage.CloseRecord{
				Outputs:    frame.Payload{"result": "ok"},
				DigestText: "## root (task)",
				DigestData: frame.Payload{"status": "deterministic_only"},
				ClosedAt:   closedAt,
			}
			ok, err := driver.CloseFrame(ctx, "root", rec)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			rec.DigestText = "overwritten"
			ok, err = driver.CloseFrame(ctx, "root", rec)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			got, err := driver.GetFrame(ctx, "root")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.State).To(Equal(frame.StateClosed))
			Expect(*got.DigestText).To(Equal("## root (task)"))
			Expect(got.Outputs).To(HaveKeyWithValue("result", "ok"))
			Expect(got.DigestData).To(HaveKeyWithValue("status", "deterministic_only"))
			Expect(got.ClosedAt.Equal(closedAt)).To(BeTrue())
		})

		It("reports missing frames on close", func() {
			_, err := driver.CloseFrame(ctx, "missing", storage.CloseRecord{ClosedAt: base})
			var nf storage.NotFoundError
			Expect(err).To(BeAssignableToTypeOf(nf))
		})

		It("updates the digest column and the outputs digest key", func() {
			root := NewFrame("root", nil, 0)
			Expect(driver.CreateFrame(ctx, root)).To(Succeed())
			_, err := driver.CloseFrame(ctx, "root", storage.CloseRecord{
				Outputs:    frame.Payload{"keep": "me", "digest": map[string]any{"status": "ai_pending"}},
				DigestData: frame.Payload{"status": "ai_pending"},
				ClosedAt:   base.Add(time.Second),
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.UpdateDigest(ctx, "root", frame.Payload{"status": "complete"})).To(Succeed())

			got, err := driver.GetFrame(ctx, "root")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.DigestData).To(HaveKeyWithValue("status", "complete"))
			Expect(got.Outputs).To(HaveKeyWithValue("keep", "me"))
			Expect(got.Outputs["digest"]).To(HaveKeyWithValue("status", "complete"))
		})
	})

	Describe("events", func() {
		BeforeEach(func() {
			Expect(driver.CreateFrame(ctx, NewFrame("root", nil, 0))).To(Succeed())
		})

		It("starts max seq at zero", func() {
			seq, err := driver.MaxEventSeq(ctx, "root")
			Expect(err).NotTo(HaveOccurred())
			Expect(seq).To(Equal(0))
		})

		It("lists events by seq and round-trips payloads", func() {
			for i, seq := range []int{2, 1, 3} {
				Expect(driver.AppendEvent(ctx, &frame.Event{
					ID:        "evt-" + string(rune('a'+i)),
					FrameID:   "root",
					RunID:     "run-1",
					Seq:       seq,
					Kind:      frame.EventToolCall,
					Payload:   frame.Payload{"seq": seq, "args": map[string]any{"path": "/x"}},
					Timestamp: base.Add(time.Duration(i) * time.Second),
				})).To(Succeed())
			}

			events, err := driver.ListEvents(ctx, "root")
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(3))
			for i, e := range events {
				Expect(e.Seq).To(Equal(i + 1))
				p, ok := frame.AsObject(e.Payload)
				Expect(ok).To(BeTrue())
				n, ok := p.Int("seq")
				Expect(ok).To(BeTrue())
				Expect(n).To(Equal(i + 1))
				Expect(p["args"]).To(Equal(map[string]any{"path": "/x"}))
			}

			seq, err := driver.MaxEventSeq(ctx, "root")
			Expect(err).NotTo(HaveOccurred())
			Expect(seq).To(Equal(3))
		})

		It("round-trips non-object payloads without losing integer precision", func() {
			payloads := []frame.Value{
				[]any{json.Number("9007199254740993"), "x"},
				"plain text",
				json.Number("-12"),
				true,
			}
			for i, p := range payloads {
				Expect(driver.AppendEvent(ctx, &frame.Event{
					ID:        "val-" + string(rune('a'+i)),
					FrameID:   "root",
					RunID:     "run-1",
					Seq:       i + 1,
					Kind:      frame.EventToolResult,
					Payload:   p,
					Timestamp: base.Add(time.Duration(i) * time.Second),
				})).To(Succeed())
			}

			events, err := driver.ListEvents(ctx, "root")
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(len(payloads)))
			for i, e := range events {
				Expect(e.Payload).To(Equal(payloads[i]))
			}
		})

		It("rejects a duplicate seq for the same frame", func() {
			e := &frame.Event{ID: "e1", FrameID: "root", RunID: "run-1", Seq: 1, Kind: frame.EventObservation, Timestamp: base}
			Expect(driver.AppendEvent(ctx, e)).To(Succeed())

			dup := *e
			dup.ID = "e2"
			Expect(driver.AppendEvent(ctx, &dup)).NotTo(Succeed())
		})
	})

	Describe("anchors", func() {
		BeforeEach(func() {
			Expect(driver.CreateFrame(ctx, NewFrame("root", nil, 0))).To(Succeed())
		})

		It("lists anchors by priority desc then creation asc", func() {
			add := func(id string, priority int, offset time.Duration) {
				Expect(driver.AddAnchor(ctx, &frame.Anchor{
					ID:        id,
					FrameID:   "root",
					Type:      frame.AnchorDecision,
					Text:      id,
					Priority:  priority,
					Metadata:  frame.Payload{"source": id},
					CreatedAt: base.Add(offset),
				})).To(Succeed())
			}
			add("low", 1, 0)
			add("high-late", 9, 2*time.Second)
			add("high-early", 9, time.Second)

			anchors, err := driver.ListAnchors(ctx, "root")
			Expect(err).NotTo(HaveOccurred())
			Expect(anchors).To(HaveLen(3))
			Expect(anchors[0].ID).To(Equal("high-early"))
			Expect(anchors[1].ID).To(Equal("high-late"))
			Expect(anchors[2].ID).To(Equal("low"))
			Expect(anchors[2].Metadata).To(Equal(frame.Payload{"source": "low"}))
		})

		It("returns an empty list for frames without anchors", func() {
			anchors, err := driver.ListAnchors(ctx, "root")
			Expect(err).NotTo(HaveOccurred())
			Expect(anchors).To(BeEmpty())
		})
	})
}
