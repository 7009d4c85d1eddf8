// Package exporter renders comparison results into the spreadsheet
// report artifact: a Summary sheet describing the request plus one
// sheet per validated table, with rows whose difference exceeded the
// threshold filled row-wide.
//
// The highlight set is computed once as a plain value and the renderer
// consumes it read-only, so highlight logic and rendering cannot drift
// apart.
package exporter
