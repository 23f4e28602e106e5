package sqldriver

import (
	"entgo.io/ent/dialect"
)

const (
	framesTable  = "frames"
	eventsTable  = "events"
	anchorsTable = "anchors"
)

var frameColumns = []string{
	"frame_id",
	"run_id",
	"project_id",
	"parent_frame_id",
	"depth",
	"kind",
	"name",
	"state",
	"inputs_json",
	"outputs_json",
	"digest_text",
	"digest_json",
	"created_at",
	"closed_at",
}

var eventColumns = []string{
	"event_id",
	"frame_id",
	"run_id",
	"seq",
	"event_type",
	"payload_json",
	"ts",
}

var anchorColumns = []string{
	"anchor_id",
	"frame_id",
	"type",
	"text",
	"priority",
	"metadata_json",
	"created_at",
}

// schema returns the DDL statements for a dialect. Every statement is
// idempotent so it is safe to run on each open.
func schema(d string) []string {
	ts := "DATETIME"
	if d == dialect.Postgres {
		ts = "TIMESTAMPTZ"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS frames (
	frame_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	project_id TEXT NOT NULL DEFAULT '',
	parent_frame_id TEXT REFERENCES frames(frame_id),
	depth INTEGER NOT NULL,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	state TEXT NOT NULL,
	inputs_json TEXT NOT NULL DEFAULT '{}',
	outputs_json TEXT NOT NULL DEFAULT '{}',
	digest_text TEXT,
	digest_json TEXT NOT NULL DEFAULT '{}',
	created_at ` + ts + ` NOT NULL,
	closed_at ` + ts + `
)`,
		`CREATE INDEX IF NOT EXISTS idx_frames_run_state ON frames(run_id, state)`,
		`CREATE INDEX IF NOT EXISTS idx_frames_parent ON frames(parent_frame_id)`,
		`CREATE TABLE IF NOT EXISTS events (
	event_id TEXT PRIMARY KEY,
	frame_id TEXT NOT NULL REFERENCES frames(frame_id),
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	event_type TEXT NOT NULL,
	payload_json TEXT NOT NULL DEFAULT '{}',
	ts ` + ts + ` NOT NULL,
	UNIQUE (frame_id, seq)
)`,
		`CREATE TABLE IF NOT EXISTS anchors (
	anchor_id TEXT PRIMARY KEY,
	frame_id TEXT NOT NULL REFERENCES frames(frame_id),
	type TEXT NOT NULL,
	text TEXT NOT NULL,
	priority INTEGER NOT NULL,
	metadata_json TEXT NOT NULL DEFAULT '{}',
	created_at ` + ts + ` NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_anchors_frame ON anchors(frame_id)`,
	}
}
