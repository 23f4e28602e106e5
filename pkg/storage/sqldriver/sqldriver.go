// Package sqldriver implements storage.Driver over database/sql. Queries are
// built with ent's dialect-aware SQL builder so the same code serves SQLite
// and PostgreSQL.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/frames/pkg/frame"
	"github.com/papercomputeco/frames/pkg/storage"
)

// Driver implements storage.Driver on a *sql.DB.
type Driver struct {
	db      *sql.DB
	dialect string
}

// New wraps an open database and applies the schema. d is an ent dialect
// name (dialect.SQLite or dialect.Postgres).
func New(ctx context.Context, db *sql.DB, d string) (*Driver, error) {
	for _, stmt := range schema(d) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Driver{db: db, dialect: d}, nil
}

// DB exposes the underlying connection pool.
func (d *Driver) DB() *sql.DB {
	return d.db
}

func (d *Driver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.dialect)
}

func (d *Driver) CreateFrame(ctx context.Context, f *frame.Frame) error {
	if f == nil {
		return errors.New("cannot store nil frame")
	}

	inputs, err := frame.MarshalValue(f.Inputs)
	if err != nil {
		return err
	}
	outputs, err := f.Outputs.Marshal()
	if err != nil {
		return err
	}
	digestData, err := f.DigestData.Marshal()
	if err != nil {
		return err
	}

	query, args := d.builder().Insert(framesTable).
		Columns(frameColumns...).
		Values(
			f.ID,
			f.RunID,
			f.ProjectID,
			nullString(f.ParentID),
			f.Depth,
			string(f.Kind),
			f.Name,
			string(f.State),
			string(inputs),
			string(outputs),
			nullString(f.DigestText),
			string(digestData),
			f.CreatedAt.UTC(),
			nullTime(f.ClosedAt),
		).
		Query()

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting frame %s: %w", f.ID, err)
	}
	return nil
}

func (d *Driver) GetFrame(ctx context.Context, id string) (*frame.Frame, error) {
	query, args := d.builder().
		Select(frameColumns...).
		From(d.builder().Table(framesTable)).
		Where(entsql.EQ("frame_id", id)).
		Query()

	f, err := scanFrame(d.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Kind: "frame", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying frame %s: %w", id, err)
	}
	return f, nil
}

func (d *Driver) ListFrames(ctx context.Context, q storage.FrameQuery) ([]*frame.Frame, error) {
	sel := d.builder().
		Select(frameColumns...).
		From(d.builder().Table(framesTable))

	var preds []*entsql.Predicate
	if q.RunID != "" {
		preds = append(preds, entsql.EQ("run_id", q.RunID))
	}
	if q.State != "" {
		preds = append(preds, entsql.EQ("state", string(q.State)))
	}
	if q.ParentID != "" {
		preds = append(preds, entsql.EQ("parent_frame_id", q.ParentID))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Asc("created_at"), entsql.Asc("frame_id"))

	query, args := sel.Query()
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing frames: %w", err)
	}
	defer rows.Close()

	var result []*frame.Frame
	for rows.Next() {
		f, err := scanFrame(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning frame: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (d *Driver) CloseFrame(ctx context.Context, id string, rec storage.CloseRecord) (bool, error) {
	outputs, err := rec.Outputs.Marshal()
	if err != nil {
		return false, err
	}
	digestData, err := rec.DigestData.Marshal()
	if err != nil {
		return false, err
	}

	query, args := d.builder().Update(framesTable).
		Set("state", string(frame.StateClosed)).
		Set("outputs_json", string(outputs)).
		Set("digest_text", rec.DigestText).
		Set("digest_json", string(digestData)).
		Set("closed_at", rec.ClosedAt.UTC()).
		Where(entsql.And(
			entsql.EQ("frame_id", id),
			entsql.EQ("state", string(frame.StateActive)),
		)).
		Query()

	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("closing frame %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("closing frame %s: %w", id, err)
	}
	if n > 0 {
		return true, nil
	}

	// Nothing updated: either the frame is missing or already closed.
	if _, err := d.GetFrame(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (d *Driver) UpdateDigest(ctx context.Context, id string, digest frame.Payload) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning digest update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args := d.builder().
		Select("outputs_json").
		From(d.builder().Table(framesTable)).
		Where(entsql.EQ("frame_id", id)).
		Query()

	var raw string
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.NotFoundError{Kind: "frame", ID: id}
		}
		return fmt.Errorf("reading outputs for %s: %w", id, err)
	}

	outputs, err := frame.DecodePayload([]byte(raw))
	if err != nil {
		return err
	}
	outputs[storage.DigestOutputKey] = map[string]any(digest)

	encodedOutputs, err := outputs.Marshal()
	if err != nil {
		return err
	}
	encodedDigest, err := digest.Marshal()
	if err != nil {
		return err
	}

	query, args = d.builder().Update(framesTable).
		Set("outputs_json", string(encodedOutputs)).
		Set("digest_json", string(encodedDigest)).
		Where(entsql.EQ("frame_id", id)).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("updating digest for %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing digest update: %w", err)
	}
	return nil
}

func (d *Driver) AppendEvent(ctx context.Context, e *frame.Event) error {
	if e == nil {
		return errors.New("cannot store nil event")
	}
	payload, err := frame.MarshalValue(e.Payload)
	if err != nil {
		return err
	}

	query, args := d.builder().Insert(eventsTable).
		Columns(eventColumns...).
		Values(e.ID, e.FrameID, e.RunID, e.Seq, string(e.Kind), string(payload), e.Timestamp.UTC()).
		Query()

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting event %d for frame %s: %w", e.Seq, e.FrameID, err)
	}
	return nil
}

func (d *Driver) MaxEventSeq(ctx context.Context, frameID string) (int, error) {
	query, args := d.builder().
		Select("seq").
		From(d.builder().Table(eventsTable)).
		Where(entsql.EQ("frame_id", frameID)).
		OrderBy(entsql.Desc("seq")).
		Limit(1).
		Query()

	var seq int
	err := d.db.QueryRowContext(ctx, query, args...).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading max seq for %s: %w", frameID, err)
	}
	return seq, nil
}

func (d *Driver) ListEvents(ctx context.Context, frameID string) ([]*frame.Event, error) {
	query, args := d.builder().
		Select(eventColumns...).
		From(d.builder().Table(eventsTable)).
		Where(entsql.EQ("frame_id", frameID)).
		OrderBy(entsql.Asc("seq")).
		Query()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events for %s: %w", frameID, err)
	}
	defer rows.Close()

	result := []*frame.Event{}
	for rows.Next() {
		var (
			e       frame.Event
			kind    string
			payload string
		)
		if err := rows.Scan(&e.ID, &e.FrameID, &e.RunID, &e.Seq, &kind, &payload, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Kind = frame.EventKind(kind)
		e.Timestamp = e.Timestamp.UTC()
		if e.Payload, err = frame.DecodeValue([]byte(payload)); err != nil {
			return nil, fmt.Errorf("event %s: %w", e.ID, err)
		}
		result = append(result, &e)
	}
	return result, rows.Err()
}

func (d *Driver) AddAnchor(ctx context.Context, a *frame.Anchor) error {
	if a == nil {
		return errors.New("cannot store nil anchor")
	}
	metadata, err := frame.MarshalValue(a.Metadata)
	if err != nil {
		return err
	}

	query, args := d.builder().Insert(anchorsTable).
		Columns(anchorColumns...).
		Values(a.ID, a.FrameID, string(a.Type), a.Text, a.Priority, string(metadata), a.CreatedAt.UTC()).
		Query()

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting anchor for frame %s: %w", a.FrameID, err)
	}
	return nil
}

func (d *Driver) ListAnchors(ctx context.Context, frameID string) ([]*frame.Anchor, error) {
	query, args := d.builder().
		Select(anchorColumns...).
		From(d.builder().Table(anchorsTable)).
		Where(entsql.EQ("frame_id", frameID)).
		OrderBy(entsql.Desc("priority"), entsql.Asc("created_at"), entsql.Asc("anchor_id")).
		Query()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing anchors for %s: %w", frameID, err)
	}
	defer rows.Close()

	result := []*frame.Anchor{}
	for rows.Next() {
		var (
			a        frame.Anchor
			typ      string
			metadata string
		)
		if err := rows.Scan(&a.ID, &a.FrameID, &typ, &a.Text, &a.Priority, &metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning anchor: %w", err)
		}
		a.Type = frame.AnchorType(typ)
		a.CreatedAt = a.CreatedAt.UTC()
		if a.Metadata, err = frame.DecodeValue([]byte(metadata)); err != nil {
			return nil, fmt.Errorf("anchor %s: %w", a.ID, err)
		}
		result = append(result, &a)
	}
	return result, rows.Err()
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFrame(row rowScanner) (*frame.Frame, error) {
	var (
		f          frame.Frame
		parent     sql.NullString
		kind       string
		state      string
		inputs     string
		outputs    string
		digestText sql.NullString
		digestData string
		closedAt   sql.NullTime
	)

	err := row.Scan(
		&f.ID,
		&f.RunID,
		&f.ProjectID,
		&parent,
		&f.Depth,
		&kind,
		&f.Name,
		&state,
		&inputs,
		&outputs,
		&digestText,
		&digestData,
		&f.CreatedAt,
		&closedAt,
	)
	if err != nil {
		return nil, err
	}

	f.Kind = frame.Kind(kind)
	f.State = frame.State(state)
	f.CreatedAt = f.CreatedAt.UTC()
	if parent.Valid {
		f.ParentID = &parent.String
	}
	if digestText.Valid {
		f.DigestText = &digestText.String
	}
	if closedAt.Valid {
		t := closedAt.Time.UTC()
		f.ClosedAt = &t
	}
	if f.Inputs, err = frame.DecodeValue([]byte(inputs)); err != nil {
		return nil, err
	}
	if f.Outputs, err = frame.DecodePayload([]byte(outputs)); err != nil {
		return nil, err
	}
	if f.DigestData, err = frame.DecodePayload([]byte(digestData)); err != nil {
		return nil, err
	}
	return &f, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

var _ storage.Driver = (*Driver)(nil)
