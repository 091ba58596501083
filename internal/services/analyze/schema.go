package analyze

import (
	"encoding/json"
	"fmt"
	"strings"

	"recap/internal/transcript"
)

const analysisSystemPrompt = `You analyze a timestamped, speaker-attributed conversation transcript.
Respond with JSON only, matching exactly this schema:
{
  "title": "short conversation title",
  "topics": [{"title": "...", "startSegmentIndex": 0, "endSegmentIndex": 3, "type": "main"}],
  "terms": [{"term": "...", "definition": "...", "aliases": ["..."]}],
  "people": [{"name": "...", "affiliation": "..."}],
  "speakerNotes": [{"speaker": "speaker-1", "name": "...", "role": "...", "confident": true}]
}
Topic type is "main" or "tangent". Only assert a speaker name in speakerNotes
when a self-introduction makes it unambiguous; set "confident" accordingly.
All arrays may be empty. Do not invent segment indices.`

// analysisPayload is the fixed wire schema expected from the analysis service.
// Pointer fields distinguish "absent" from "empty" so shape violations are
// detected rather than papered over.
type analysisPayload struct {
	Title  *string `json:"title"`
	Topics []struct {
		Title        string `json:"title"`
		StartSegment *int   `json:"startSegmentIndex"`
		EndSegment   *int   `json:"endSegmentIndex"`
		Type         string `json:"type"`
	} `json:"topics"`
	Terms []struct {
		Term       string   `json:"term"`
		Definition string   `json:"definition"`
		Aliases    []string `json:"aliases"`
	} `json:"terms"`
	People []struct {
		Name        string `json:"name"`
		Affiliation string `json:"affiliation"`
	} `json:"people"`
	SpeakerNotes []struct {
		Speaker   string `json:"speaker"`
		Name      string `json:"name"`
		Role      string `json:"role"`
		Confident bool   `json:"confident"`
	} `json:"speakerNotes"`
}

// decodeAnalysisPayload validates the raw completion content against the
// fixed schema. Any mismatch is a hard failure for the call; the orchestrator
// decides whether to degrade.
func decodeAnalysisPayload(content string, segmentCount int, speakers []transcript.Speaker) (transcript.AnalysisResult, error) {
	var empty transcript.AnalysisResult

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return empty, fmt.Errorf("empty payload")
	}

	var payload analysisPayload
	decoder := json.NewDecoder(strings.NewReader(trimmed))
	if err := decoder.Decode(&payload); err != nil {
		return empty, fmt.Errorf("malformed payload: %w", err)
	}

	if payload.Title == nil {
		return empty, fmt.Errorf("schema violation: title missing")
	}

	knownSpeakers := make(map[string]struct{}, len(speakers))
	for _, sp := range speakers {
		knownSpeakers[sp.ID] = struct{}{}
	}

	result := transcript.AnalysisResult{Title: strings.TrimSpace(*payload.Title)}

	for i, topic := range payload.Topics {
		if topic.StartSegment == nil || topic.EndSegment == nil {
			return empty, fmt.Errorf("schema violation: topic %d missing segment range", i)
		}
		kind := transcript.TopicKind(strings.ToLower(strings.TrimSpace(topic.Type)))
		if kind != transcript.TopicMain && kind != transcript.TopicTangent {
			return empty, fmt.Errorf("schema violation: topic %d has type %q", i, topic.Type)
		}
		if *topic.StartSegment < 0 || *topic.EndSegment >= segmentCount || *topic.EndSegment < *topic.StartSegment {
			return empty, fmt.Errorf("schema violation: topic %d range [%d,%d] invalid for %d segments",
				i, *topic.StartSegment, *topic.EndSegment, segmentCount)
		}
		result.Topics = append(result.Topics, transcript.TopicRange{
			Title:        strings.TrimSpace(topic.Title),
			StartSegment: *topic.StartSegment,
			EndSegment:   *topic.EndSegment,
			Kind:         kind,
		})
	}

	for _, term := range payload.Terms {
		if strings.TrimSpace(term.Term) == "" {
			continue
		}
		result.Terms = append(result.Terms, transcript.TermInput{
			Term:       term.Term,
			Definition: term.Definition,
			Aliases:    term.Aliases,
		})
	}

	for _, person := range payload.People {
		if strings.TrimSpace(person.Name) == "" {
			continue
		}
		result.People = append(result.People, transcript.PersonInput{
			Name:        person.Name,
			Affiliation: person.Affiliation,
		})
	}

	for i, note := range payload.SpeakerNotes {
		speaker := strings.TrimSpace(note.Speaker)
		if speaker == "" {
			return empty, fmt.Errorf("schema violation: speaker note %d missing speaker id", i)
		}
		if _, ok := knownSpeakers[speaker]; !ok {
			return empty, fmt.Errorf("schema violation: speaker note %d references unknown speaker %q", i, speaker)
		}
		result.SpeakerNotes = append(result.SpeakerNotes, transcript.SpeakerNote{
			SpeakerID: speaker,
			Name:      note.Name,
			Role:      note.Role,
			Confident: note.Confident,
		})
	}

	return result, nil
}
