package transcript

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AnalysisResult is the structured output of the content-analysis service,
// already validated at the deserialization boundary.
type AnalysisResult struct {
	Title        string
	Topics       []TopicRange
	Terms        []TermInput
	People       []PersonInput
	SpeakerNotes []SpeakerNote
}

// Empty reports whether the result carries no enrichment at all, which is the
// degraded shape used when the analysis service fails.
func (r AnalysisResult) Empty() bool {
	return r.Title == "" && len(r.Topics) == 0 && len(r.Terms) == 0 &&
		len(r.People) == 0 && len(r.SpeakerNotes) == 0
}

// TopicRange is an analysis-reported contiguous range of segment indices.
type TopicRange struct {
	Title        string
	StartSegment int
	EndSegment   int
	Kind         TopicKind
}

// TermInput is an analysis-reported vocabulary entry.
type TermInput struct {
	Term       string
	Definition string
	Aliases    []string
}

// PersonInput is an analysis-reported mentioned person.
type PersonInput struct {
	Name        string
	Affiliation string
}

// SpeakerNote is an analysis-reported identity hint for one speaker. Confidence
// is binary: the analysis stage either asserts a name or it doesn't.
type SpeakerNote struct {
	SpeakerID string
	Name      string
	Role      string
	Confident bool
}

// Merge combines the segment builder's output with an analysis result into
// the canonical document. It is deterministic: running it twice on identical
// inputs yields identical occurrence sets (ids excepted).
func Merge(segments []Segment, speakers []Speaker, analysis AnalysisResult) (Document, error) {
	if len(segments) == 0 {
		return Document{}, fmt.Errorf("merge requires at least one segment")
	}

	doc := Document{
		Title:    strings.TrimSpace(analysis.Title),
		Speakers: upgradeSpeakers(speakers, analysis.SpeakerNotes),
		Segments: segments,
	}

	terms := make([]Term, 0, len(analysis.Terms))
	for _, input := range analysis.Terms {
		display := strings.TrimSpace(input.Term)
		if display == "" {
			continue
		}
		terms = append(terms, Term{
			ID:         uuid.NewString(),
			Key:        strings.ToLower(display),
			Display:    display,
			Definition: strings.TrimSpace(input.Definition),
			Aliases:    input.Aliases,
		})
	}
	doc.Terms = terms
	doc.Occurrences = ComputeOccurrences(terms, segments)

	topics, err := mapTopics(analysis.Topics, len(segments))
	if err != nil {
		return Document{}, err
	}
	doc.Topics = topics

	for _, input := range analysis.People {
		name := strings.TrimSpace(input.Name)
		if name == "" {
			continue
		}
		doc.People = append(doc.People, Person{
			ID:          uuid.NewString(),
			Name:        name,
			Affiliation: strings.TrimSpace(input.Affiliation),
		})
	}

	doc.DurationMs = segments[len(segments)-1].EndMs
	return doc, nil
}

// upgradeSpeakers applies identity hints: a confidently asserted name replaces
// the default display name; a bare role renders as "Speaker N (role)"; with
// neither, the default name stands.
func upgradeSpeakers(speakers []Speaker, notes []SpeakerNote) []Speaker {
	byID := make(map[string]SpeakerNote, len(notes))
	for _, note := range notes {
		byID[note.SpeakerID] = note
	}

	upgraded := make([]Speaker, len(speakers))
	copy(upgraded, speakers)
	for i := range upgraded {
		note, ok := byID[upgraded[i].ID]
		if !ok {
			continue
		}
		name := strings.TrimSpace(note.Name)
		role := strings.TrimSpace(note.Role)
		switch {
		case note.Confident && name != "":
			upgraded[i].DisplayName = name
		case role != "":
			upgraded[i].DisplayName = fmt.Sprintf("%s (%s)", upgraded[i].DisplayName, role)
		}
	}
	return upgraded
}

// mapTopics converts analysis topic ranges to topic records. An out-of-range
// topic is a contract violation from the analysis service and is surfaced,
// not clamped. Tangents nested inside a main topic's range pick up that
// topic's id as their parent.
func mapTopics(ranges []TopicRange, segmentCount int) ([]Topic, error) {
	if len(ranges) == 0 {
		return nil, nil
	}

	topics := make([]Topic, 0, len(ranges))
	for _, tr := range ranges {
		topic := Topic{
			ID:           uuid.NewString(),
			Title:        strings.TrimSpace(tr.Title),
			StartSegment: tr.StartSegment,
			EndSegment:   tr.EndSegment,
			Kind:         tr.Kind,
		}
		if err := validateTopicRange(topic, segmentCount); err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}

	for i := range topics {
		if topics[i].Kind != TopicTangent {
			continue
		}
		for j := range topics {
			if topics[j].Kind != TopicMain {
				continue
			}
			if topics[j].StartSegment <= topics[i].StartSegment && topics[i].EndSegment <= topics[j].EndSegment {
				topics[i].ParentID = topics[j].ID
				break
			}
		}
	}

	return topics, nil
}
