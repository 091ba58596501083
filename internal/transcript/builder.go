package transcript

import (
	"fmt"
	"math"
	"strings"
)

// AlignedUtterance is one raw utterance from the alignment service: seconds
// timestamps and an opaque speaker label that may be empty.
type AlignedUtterance struct {
	Start      float64
	End        float64
	Text       string
	Speaker    string
	Confidence float64
}

// BuildSegments normalizes aligned utterances into segments with millisecond
// timestamps and a stable 0-based index, plus the deduplicated speaker list
// ordered by first appearance. Utterances with no speaker label share a single
// synthesized default speaker: the system never produces a segment with an
// undefined speaker.
func BuildSegments(utterances []AlignedUtterance) ([]Segment, []Speaker, error) {
	if len(utterances) == 0 {
		return nil, nil, fmt.Errorf("no utterances to build segments from")
	}

	speakerIDs := make(map[string]string)
	var speakers []Speaker

	speakerFor := func(label string) string {
		key := strings.TrimSpace(label)
		if id, ok := speakerIDs[key]; ok {
			return id
		}
		ordinal := len(speakers) + 1
		id := fmt.Sprintf("speaker-%d", ordinal)
		speakerIDs[key] = id
		speakers = append(speakers, Speaker{
			ID:          id,
			DisplayName: fmt.Sprintf("Speaker %d", ordinal),
			Ordinal:     ordinal,
		})
		return id
	}

	segments := make([]Segment, 0, len(utterances))
	for i, utt := range utterances {
		if utt.End < utt.Start {
			return nil, nil, fmt.Errorf("utterance %d: end %.3fs before start %.3fs", i, utt.End, utt.Start)
		}
		segments = append(segments, Segment{
			Index:      i,
			SpeakerID:  speakerFor(utt.Speaker),
			StartMs:    secondsToMs(utt.Start),
			EndMs:      secondsToMs(utt.End),
			Text:       strings.TrimSpace(utt.Text),
			Confidence: utt.Confidence,
		})
	}

	return segments, speakers, nil
}

func secondsToMs(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}
