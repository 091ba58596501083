package transcript_test

import (
	"testing"

	"recap/internal/transcript"
)

func buildTwoSpeakerTranscript(t *testing.T) ([]transcript.Segment, []transcript.Speaker) {
	t.Helper()
	segments, speakers, err := transcript.BuildSegments([]transcript.AlignedUtterance{
		{Start: 0, End: 5, Text: "Hello there", Speaker: "A"},
		{Start: 5, End: 9, Text: "Hi back", Speaker: "B"},
	})
	if err != nil {
		t.Fatalf("BuildSegments: %v", err)
	}
	return segments, speakers
}

func TestMergeEndToEndScenario(t *testing.T) {
	segments, speakers := buildTwoSpeakerTranscript(t)

	doc, err := transcript.Merge(segments, speakers, transcript.AnalysisResult{
		Title: "Greeting",
		Topics: []transcript.TopicRange{
			{Title: "Intro", StartSegment: 0, EndSegment: 1, Kind: transcript.TopicMain},
		},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if doc.Title != "Greeting" {
		t.Errorf("Title = %q", doc.Title)
	}
	if len(doc.Speakers) != 2 || doc.Speakers[0].DisplayName != "Speaker 1" || doc.Speakers[1].DisplayName != "Speaker 2" {
		t.Errorf("speakers = %+v", doc.Speakers)
	}
	if len(doc.Segments) != 2 {
		t.Fatalf("segments = %d", len(doc.Segments))
	}
	if doc.Segments[0].StartMs != 0 || doc.Segments[0].EndMs != 5000 {
		t.Errorf("segment 0 = [%d,%d]", doc.Segments[0].StartMs, doc.Segments[0].EndMs)
	}
	if doc.Segments[1].StartMs != 5000 || doc.Segments[1].EndMs != 9000 {
		t.Errorf("segment 1 = [%d,%d]", doc.Segments[1].StartMs, doc.Segments[1].EndMs)
	}
	if len(doc.Topics) != 1 || doc.Topics[0].StartSegment != 0 || doc.Topics[0].EndSegment != 1 {
		t.Errorf("topics = %+v", doc.Topics)
	}
	if len(doc.Terms) != 0 || len(doc.People) != 0 || len(doc.Occurrences) != 0 {
		t.Errorf("unexpected enrichment: %d terms, %d people, %d occurrences",
			len(doc.Terms), len(doc.People), len(doc.Occurrences))
	}
	if doc.DurationMs != 9000 {
		t.Errorf("DurationMs = %d, want 9000", doc.DurationMs)
	}
}

func TestMergeSpeakerIdentityUpgrade(t *testing.T) {
	segments, speakers, err := transcript.BuildSegments([]transcript.AlignedUtterance{
		{Start: 0, End: 1, Text: "a", Speaker: "A"},
		{Start: 1, End: 2, Text: "b", Speaker: "B"},
		{Start: 2, End: 3, Text: "c", Speaker: "C"},
	})
	if err != nil {
		t.Fatalf("BuildSegments: %v", err)
	}

	doc, err := transcript.Merge(segments, speakers, transcript.AnalysisResult{
		SpeakerNotes: []transcript.SpeakerNote{
			{SpeakerID: speakers[0].ID, Name: "Ada Lovelace", Confident: true},
			{SpeakerID: speakers[1].ID, Role: "host"},
			{SpeakerID: speakers[2].ID, Name: "Maybe Someone", Confident: false},
		},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if got := doc.Speakers[0].DisplayName; got != "Ada Lovelace" {
		t.Errorf("confident name: %q", got)
	}
	if got := doc.Speakers[1].DisplayName; got != "Speaker 2 (host)" {
		t.Errorf("role only: %q", got)
	}
	if got := doc.Speakers[2].DisplayName; got != "Speaker 3" {
		t.Errorf("unconfident name should keep default: %q", got)
	}
}

func TestMergeRejectsOutOfRangeTopic(t *testing.T) {
	segments, speakers := buildTwoSpeakerTranscript(t)

	_, err := transcript.Merge(segments, speakers, transcript.AnalysisResult{
		Topics: []transcript.TopicRange{
			{Title: "Bad", StartSegment: 0, EndSegment: 5, Kind: transcript.TopicMain},
		},
	})
	if err == nil {
		t.Fatal("out-of-range topic accepted")
	}
}

func TestMergeAssignsTangentParent(t *testing.T) {
	utterances := make([]transcript.AlignedUtterance, 6)
	for i := range utterances {
		utterances[i] = transcript.AlignedUtterance{Start: float64(i), End: float64(i + 1), Text: "x", Speaker: "A"}
	}
	segments, speakers, err := transcript.BuildSegments(utterances)
	if err != nil {
		t.Fatalf("BuildSegments: %v", err)
	}

	doc, err := transcript.Merge(segments, speakers, transcript.AnalysisResult{
		Topics: []transcript.TopicRange{
			{Title: "Main", StartSegment: 0, EndSegment: 5, Kind: transcript.TopicMain},
			{Title: "Aside", StartSegment: 2, EndSegment: 3, Kind: transcript.TopicTangent},
		},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(doc.Topics) != 2 {
		t.Fatalf("topics = %d", len(doc.Topics))
	}
	if doc.Topics[1].ParentID != doc.Topics[0].ID {
		t.Errorf("tangent parent = %q, want %q", doc.Topics[1].ParentID, doc.Topics[0].ID)
	}
}

func TestMergeOccurrencesWithinBoundsAndReproducible(t *testing.T) {
	segments, speakers, err := transcript.BuildSegments([]transcript.AlignedUtterance{
		{Start: 0, End: 5, Text: "Kubernetes runs pods. kubernetes scales.", Speaker: "A"},
		{Start: 5, End: 9, Text: "I like Kubernetes-based stacks", Speaker: "B"},
	})
	if err != nil {
		t.Fatalf("BuildSegments: %v", err)
	}
	analysis := transcript.AnalysisResult{
		Terms: []transcript.TermInput{{Term: "Kubernetes", Definition: "container orchestrator"}},
	}

	doc, err := transcript.Merge(segments, speakers, analysis)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(doc.Occurrences) != 3 {
		t.Fatalf("occurrences = %d, want 3 (two in segment 0, one hyphen-bounded in segment 1)", len(doc.Occurrences))
	}
	for _, occ := range doc.Occurrences {
		text := doc.Segments[occ.SegmentIndex].Text
		if occ.StartChar < 0 || occ.EndChar > len(text) || occ.StartChar >= occ.EndChar {
			t.Errorf("occurrence out of bounds: %+v against %q", occ, text)
		}
	}

	again, err := transcript.Merge(segments, speakers, analysis)
	if err != nil {
		t.Fatalf("second Merge: %v", err)
	}
	if len(again.Occurrences) != len(doc.Occurrences) {
		t.Fatalf("occurrence count changed: %d vs %d", len(again.Occurrences), len(doc.Occurrences))
	}
	for i := range doc.Occurrences {
		a, b := doc.Occurrences[i], again.Occurrences[i]
		if a.SegmentIndex != b.SegmentIndex || a.StartChar != b.StartChar || a.EndChar != b.EndChar {
			t.Errorf("occurrence %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestComputeOccurrencesWholeWordOnly(t *testing.T) {
	segments := []transcript.Segment{
		{Index: 0, SpeakerID: "speaker-1", StartMs: 0, EndMs: 1000, Text: "cat concatenate catalog cat"},
	}
	terms := []transcript.Term{{ID: "t1", Key: "cat", Display: "cat"}}

	occurrences := transcript.ComputeOccurrences(terms, segments)
	if len(occurrences) != 2 {
		t.Fatalf("occurrences = %d, want 2 whole-word matches", len(occurrences))
	}
	if occurrences[0].StartChar != 0 || occurrences[0].EndChar != 3 {
		t.Errorf("first match = [%d,%d)", occurrences[0].StartChar, occurrences[0].EndChar)
	}
	if occurrences[1].StartChar != 24 || occurrences[1].EndChar != 27 {
		t.Errorf("second match = [%d,%d)", occurrences[1].StartChar, occurrences[1].EndChar)
	}
}

func TestComputeOccurrencesAliasFallback(t *testing.T) {
	segments := []transcript.Segment{
		{Index: 0, SpeakerID: "speaker-1", StartMs: 0, EndMs: 1000, Text: "we use k8s in prod"},
	}
	terms := []transcript.Term{{ID: "t1", Key: "kubernetes", Aliases: []string{"k8s"}}}

	occurrences := transcript.ComputeOccurrences(terms, segments)
	if len(occurrences) != 1 {
		t.Fatalf("occurrences = %d, want 1 alias match", len(occurrences))
	}
	if occurrences[0].TermID != "t1" {
		t.Errorf("TermID = %q", occurrences[0].TermID)
	}
}
