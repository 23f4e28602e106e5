package frame

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// AnchorType classifies an anchor.
type AnchorType string

const (
	AnchorFact              AnchorType = "FACT"
	AnchorDecision          AnchorType = "DECISION"
	AnchorConstraint        AnchorType = "CONSTRAINT"
	AnchorInterfaceContract AnchorType = "INTERFACE_CONTRACT"
	AnchorTodo              AnchorType = "TODO"
	AnchorRisk              AnchorType = "RISK"
)

// AnchorTypes lists every valid anchor type.
var AnchorTypes = []AnchorType{
	AnchorFact,
	AnchorDecision,
	AnchorConstraint,
	AnchorInterfaceContract,
	AnchorTodo,
	AnchorRisk,
}

const (
	MinPriority     = 0
	MaxPriority     = 10
	DefaultPriority = 5
)

// ParseAnchorType validates an anchor type, case-insensitively.
func ParseAnchorType(s string) (AnchorType, error) {
	upper := strings.ToUpper(s)
	for _, t := range AnchorTypes {
		if string(t) == upper {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown anchor type %q", s)
}

// Anchor is a prioritized annotation attached to a frame. Anchors are never
// mutated after creation.
type Anchor struct {
	ID        string     `json:"anchor_id"`
	FrameID   string     `json:"frame_id"`
	Type      AnchorType `json:"type"`
	Text      string     `json:"text"`
	Priority  int        `json:"priority"`
	Metadata  Value      `json:"metadata"`
	CreatedAt time.Time  `json:"created_at"`
}

// SortAnchors orders anchors by priority descending, then creation time ascending.
func SortAnchors(anchors []*Anchor) {
	sort.SliceStable(anchors, func(i, j int) bool {
		if anchors[i].Priority != anchors[j].Priority {
			return anchors[i].Priority > anchors[j].Priority
		}
		return anchors[i].CreatedAt.Before(anchors[j].CreatedAt)
	})
}
