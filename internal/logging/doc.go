// Package logging builds the process logger and standardizes structured
// attribute keys. Console output renders "ts LEVEL component: msg k=v" lines;
// JSON output is meant for log shipping. Job id, stage, and correlation id
// ride on the context and are folded into every record via WithContext.
package logging
