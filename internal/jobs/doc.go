// Package jobs persists processing jobs and their merged transcript documents
// in SQLite. A job row carries the lifecycle status, the alignment-status
// flag, the persisted progress marker, and the whole-document JSON payload:
// user edits are applied as whole-document updates, so last-writer-wins is
// the intended concurrency model.
package jobs
