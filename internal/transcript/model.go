package transcript

import (
	"fmt"
	"strings"
)

// Speaker is one diarized voice in the conversation. Speakers start out
// anonymous ("Speaker 1", "Speaker 2", ...) and may be upgraded with an
// inferred name or role during merge.
type Speaker struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	// Ordinal is the 1-based first-appearance rank used for stable
	// color/identity assignment in presentation.
	Ordinal int `json:"ordinal"`
}

// Segment is one utterance with millisecond timestamps. Index ordering is
// contiguous and gapless from 0; segments are immutable after merge except for
// user corrections, which never renumber.
type Segment struct {
	Index      int     `json:"index"`
	SpeakerID  string  `json:"speakerId"`
	StartMs    int64   `json:"startMs"`
	EndMs      int64   `json:"endMs"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Term is a deduplicated vocabulary entry.
type Term struct {
	ID         string   `json:"id"`
	Key        string   `json:"key"`
	Display    string   `json:"display"`
	Definition string   `json:"definition,omitempty"`
	Aliases    []string `json:"aliases,omitempty"`
}

// TermOccurrence binds one character range inside one segment to a term.
// Occurrences are derived, never authored: they are recomputed in full from
// (Terms, Segments) on every merge.
type TermOccurrence struct {
	TermID       string `json:"termId"`
	SegmentIndex int    `json:"segmentIndex"`
	StartChar    int    `json:"startChar"`
	EndChar      int    `json:"endChar"`
}

// TopicKind classifies a topic as central or digressive.
type TopicKind string

const (
	TopicMain    TopicKind = "main"
	TopicTangent TopicKind = "tangent"
)

// Topic is a contiguous range of segment indices. Tangents may carry the id
// of the main topic they digress from.
type Topic struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	StartSegment int       `json:"startSegmentIndex"`
	EndSegment   int       `json:"endSegmentIndex"`
	Kind         TopicKind `json:"type"`
	ParentID     string    `json:"parentTopicId,omitempty"`
}

// Person is a mentioned (not necessarily speaking) individual. People are a
// distinct entity set from speakers; overlap is possible and not deduplicated.
type Person struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	Note        string `json:"note,omitempty"`
}

// Document is the canonical merged payload persisted for a job.
type Document struct {
	Title       string           `json:"title,omitempty"`
	Speakers    []Speaker        `json:"speakers"`
	Segments    []Segment        `json:"segments"`
	Terms       []Term           `json:"terms,omitempty"`
	Occurrences []TermOccurrence `json:"termOccurrences,omitempty"`
	Topics      []Topic          `json:"topics,omitempty"`
	People      []Person         `json:"people,omitempty"`
	// DurationMs is the pipeline-reported duration: the end timestamp of the
	// last segment. The playback sync engine reconciles it against the
	// decoded audio duration.
	DurationMs int64 `json:"durationMs"`
}

// Validate checks the structural invariants the merge engine guarantees.
func (d *Document) Validate() error {
	speakerIDs := make(map[string]struct{}, len(d.Speakers))
	for _, sp := range d.Speakers {
		if strings.TrimSpace(sp.ID) == "" {
			return fmt.Errorf("speaker %q has empty id", sp.DisplayName)
		}
		speakerIDs[sp.ID] = struct{}{}
	}

	for i, seg := range d.Segments {
		if seg.Index != i {
			return fmt.Errorf("segment index %d at position %d: indices must be contiguous from 0", seg.Index, i)
		}
		if seg.EndMs < seg.StartMs {
			return fmt.Errorf("segment %d: end %dms before start %dms", seg.Index, seg.EndMs, seg.StartMs)
		}
		if _, ok := speakerIDs[seg.SpeakerID]; !ok {
			return fmt.Errorf("segment %d references unknown speaker %q", seg.Index, seg.SpeakerID)
		}
	}

	for _, occ := range d.Occurrences {
		if occ.SegmentIndex < 0 || occ.SegmentIndex >= len(d.Segments) {
			return fmt.Errorf("term occurrence references segment %d outside 0..%d", occ.SegmentIndex, len(d.Segments)-1)
		}
		text := d.Segments[occ.SegmentIndex].Text
		if occ.StartChar < 0 || occ.EndChar > len(text) || occ.StartChar >= occ.EndChar {
			return fmt.Errorf("term occurrence [%d,%d) out of bounds for segment %d text length %d",
				occ.StartChar, occ.EndChar, occ.SegmentIndex, len(text))
		}
	}

	for _, topic := range d.Topics {
		if err := validateTopicRange(topic, len(d.Segments)); err != nil {
			return err
		}
	}

	return nil
}

func validateTopicRange(topic Topic, segmentCount int) error {
	if topic.StartSegment < 0 || topic.StartSegment >= segmentCount {
		return fmt.Errorf("topic %q start index %d outside 0..%d", topic.Title, topic.StartSegment, segmentCount-1)
	}
	if topic.EndSegment < topic.StartSegment || topic.EndSegment >= segmentCount {
		return fmt.Errorf("topic %q end index %d invalid for %d segments", topic.Title, topic.EndSegment, segmentCount)
	}
	switch topic.Kind {
	case TopicMain, TopicTangent:
	default:
		return fmt.Errorf("topic %q has unknown type %q", topic.Title, topic.Kind)
	}
	return nil
}
