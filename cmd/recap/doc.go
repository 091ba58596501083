// Command recap queues audio artifacts, runs them through the alignment and
// analysis pipeline, and inspects the resulting transcripts.
package main
