package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/frames/pkg/frame"
	"github.com/papercomputeco/frames/pkg/storage"
	"github.com/papercomputeco/frames/pkg/storage/sqlite"
	"github.com/papercomputeco/frames/pkg/storage/storagetest"
)

var _ = Describe("Driver", func() {
	storagetest.DescribeDriver(func() storage.Driver {
		d, err := sqlite.NewDriver(context.Background(), sqlite.MemoryPath)
		Expect(err).NotTo(HaveOccurred())
		return d
	})

	Describe("NewDriver", func() {
		It("creates a driver with file database", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "frames.db")

			d, err := sqlite.NewDriver(context.Background(), dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer d.Close()

			// Verify file was created
			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})

		It("persists records across reopen", func() {
			ctx := context.Background()
			dbPath := filepath.Join(GinkgoT().TempDir(), "frames.db")

			d, err := sqlite.NewDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			f := storagetest.NewFrame("root", nil, 0)
			f.Inputs = frame.Payload{"ticket": "FR-1"}
			Expect(d.CreateFrame(ctx, f)).To(Succeed())
			Expect(d.Close()).To(Succeed())

			reopened, err := sqlite.NewDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer reopened.Close()

			got, err := reopened.GetFrame(ctx, "root")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Inputs).To(Equal(frame.Payload{"ticket": "FR-1"}))
		})

		It("enforces foreign keys on events", func() {
			ctx := context.Background()
			d, err := sqlite.NewDriver(ctx, sqlite.MemoryPath)
			Expect(err).NotTo(HaveOccurred())
			defer d.Close()

			err = d.AppendEvent(ctx, &frame.Event{ID: "e", FrameID: "ghost", RunID: "r", Seq: 1, Kind: frame.EventObservation})
			Expect(err).To(HaveOccurred())
		})
	})
})
