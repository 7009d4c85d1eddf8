// Package services contains the business logic layer.
//
// CompareService orchestrates the comparison pipeline end to end:
// uploaded files are parsed concurrently, validated against the
// requested operation column, compared pairwise against the first
// validated file, and rendered into an Excel report. Per-file
// failures are collected as diagnostics so one bad file never aborts
// the run, and uploads are removed once the pipeline finishes.
package services
