// Package transcript holds the canonical conversation data model and the two
// deterministic algorithms that produce it: the segment builder, which
// normalizes raw aligned utterances into indexed millisecond segments with a
// deduplicated speaker roster, and the merge engine, which folds the analysis
// service's enrichment (title, topics, terms, people, speaker identities)
// into the final document.
package transcript
