package digest

import (
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/papercomputeco/frames/pkg/frame"
)

var (
	toolNameKeys     = []string{"tool_name", "toolName", "tool", "name"}
	filePathKeys     = []string{"file_path", "filePath", "path"}
	linesChangedKeys = []string{"lines_changed", "linesChanged"}
	testNameKeys     = []string{"test_name", "testName", "test"}
	testStatusKeys   = []string{"status", "result"}
	testOutputKeys   = []string{"output", "result", "stdout"}

	// nested argument objects a tool call may carry its file path in
	argumentKeys = []string{"input", "arguments", "args", "params", "parameters"}

	testSummaryPattern = regexp.MustCompile(`(\d+)\s+(passed|failed|skipped)`)
)

// Extractor builds the deterministic section of a digest. It never calls out
// of process and never fails: malformed fields are skipped and logged.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an Extractor. A nil logger discards.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{logger: logger}
}

// Extract compiles the deterministic digest of f from its events and anchors.
// f.ClosedAt should already be set so the duration is known.
func (x *Extractor) Extract(f *frame.Frame, events []*frame.Event, anchors []*frame.Anchor) Deterministic {
	d := Deterministic{
		FilesModified:     []FileChange{},
		TestsRun:          []TestRun{},
		ErrorsEncountered: []ErrorEntry{},
		ToolCallsByType:   map[string]int{},
		Decisions:         []string{},
		Constraints:       []string{},
		Risks:             []string{},
		AnchorsByType:     map[string]int{},
		ExitStatus:        ExitSuccess,
		DurationSeconds:   f.Duration().Seconds(),
		EventCount:        len(events),
	}

	errIndex := make(map[[2]string]int)
	for _, e := range events {
		if e == nil || e.Payload == nil {
			continue
		}
		log := x.logger.With("frame_id", f.ID, "seq", e.Seq)

		p, ok := frame.AsObject(e.Payload)
		if !ok {
			log.Debug("event payload is not an object, counting it only")
			p = frame.Payload{}
		}

		if e.Kind == frame.EventToolCall {
			name, ok := p.FirstString(toolNameKeys...)
			if !ok {
				name = "unknown"
			}
			d.ToolCallCount++
			d.ToolCallsByType[name]++

			if change, ok := fileChange(name, p, log); ok {
				d.FilesModified = append(d.FilesModified, change)
			}
		}

		if e.Kind == frame.EventToolCall || e.Kind == frame.EventToolResult {
			d.TestsRun = append(d.TestsRun, testRuns(p, log)...)
		}

		if entry, ok := eventError(p, log); ok {
			key := [2]string{entry.Type, entry.Message}
			if idx, seen := errIndex[key]; seen {
				d.ErrorsEncountered[idx].Count++
			} else {
				errIndex[key] = len(d.ErrorsEncountered)
				d.ErrorsEncountered = append(d.ErrorsEncountered, entry)
			}
		}
	}

	sorted := slices.Clone(anchors)
	frame.SortAnchors(sorted)
	for _, a := range sorted {
		if a == nil {
			continue
		}
		d.AnchorsByType[string(a.Type)]++
		switch a.Type {
		case frame.AnchorDecision:
			d.Decisions = append(d.Decisions, a.Text)
		case frame.AnchorConstraint:
			d.Constraints = append(d.Constraints, a.Text)
		case frame.AnchorRisk:
			d.Risks = append(d.Risks, a.Text)
		}
	}

	if len(d.ErrorsEncountered) > 0 {
		d.ExitStatus = ExitFailure
	}
	return d
}

func fileChange(toolName string, p frame.Payload, log *slog.Logger) (FileChange, bool) {
	path, ok := p.FirstString(filePathKeys...)
	src := p
	if !ok {
		for _, key := range argumentKeys {
			nested, isObj := p.Object(key)
			if !isObj {
				continue
			}
			if path, ok = nested.FirstString(filePathKeys...); ok {
				src = nested
				break
			}
		}
	}
	if !ok {
		return FileChange{}, false
	}

	change := FileChange{Path: path, Operation: operation(toolName)}
	for _, key := range linesChangedKeys {
		if _, present := src[key]; !present {
			continue
		}
		n, isNum := src.Int(key)
		if !isNum {
			log.Debug("skipping non-numeric lines changed", "key", key)
			break
		}
		change.LinesChanged = &n
		break
	}
	return change, true
}

func operation(toolName string) string {
	name := strings.ToLower(toolName)
	switch {
	case strings.HasPrefix(name, "write"):
		return "modify"
	case strings.HasPrefix(name, "create"):
		return "create"
	case strings.HasPrefix(name, "delete"):
		return "delete"
	case strings.HasPrefix(name, "read"):
		return "read"
	}
	return "modify"
}

func testRuns(p frame.Payload, log *slog.Logger) []TestRun {
	if name, ok := p.FirstString(testNameKeys...); ok {
		status, _ := p.FirstString(testStatusKeys...)
		status = normalizeTestStatus(status)
		if status == "" {
			log.Debug("skipping test without a recognised status", "test", name)
			return nil
		}
		return []TestRun{{Name: name, Status: status, Count: 1}}
	}

	label, ok := p.FirstString(toolNameKeys...)
	if !ok {
		label = "tests"
	}

	var runs []TestRun
	for _, key := range testOutputKeys {
		out, ok := p.String(key)
		if !ok {
			continue
		}
		for _, m := range testSummaryPattern.FindAllStringSubmatch(out, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				log.Debug("skipping unparsable test count", "value", m[1])
				continue
			}
			runs = append(runs, TestRun{Name: label, Status: m[2], Count: n})
		}
		if len(runs) > 0 {
			break
		}
	}
	return runs
}

func normalizeTestStatus(s string) string {
	switch strings.ToLower(s) {
	case "passed", "pass", "ok", "success":
		return "passed"
	case "failed", "fail", "failure", "error":
		return "failed"
	case "skipped", "skip":
		return "skipped"
	}
	return ""
}

func eventError(p frame.Payload, log *slog.Logger) (ErrorEntry, bool) {
	if _, present := p["error"]; present {
		return errorValue(p["error"], log)
	}
	for _, key := range slices.Sorted(maps.Keys(p)) {
		nested, ok := p[key].(map[string]any)
		if !ok {
			continue
		}
		if _, present := nested["error"]; !present {
			continue
		}
		if entry, ok := errorValue(nested["error"], log.With("field", key)); ok {
			return entry, true
		}
	}
	return ErrorEntry{}, false
}

func errorValue(v any, log *slog.Logger) (ErrorEntry, bool) {
	switch e := v.(type) {
	case nil:
		return ErrorEntry{}, false
	case bool:
		// error: false is a success marker
		return ErrorEntry{}, false
	case string:
		if e == "" {
			return ErrorEntry{}, false
		}
		return ErrorEntry{Type: "error", Message: e, Count: 1}, true
	case map[string]any:
		obj := frame.Payload(e)
		msg, _ := obj.FirstString("message", "msg", "error")
		typ, ok := obj.FirstString("type", "name", "code")
		if !ok {
			typ = "error"
		}
		if msg == "" && !ok {
			log.Debug("skipping error object without type or message")
			return ErrorEntry{}, false
		}
		return ErrorEntry{Type: typ, Message: msg, Count: 1}, true
	}
	log.Debug("skipping malformed error field")
	return ErrorEntry{}, false
}
