// Package analyze invokes the content-analysis service over the
// already-aligned transcript text and validates its enrichment output
// (title, topics, terms, people, speaker identity hints) against a fixed
// schema at the deserialization boundary.
package analyze
