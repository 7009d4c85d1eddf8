// Package dataprocessing normalizes heterogeneous delimited-text
// files into typed tables and compares them column by column.
//
// # Architecture
//
// The package is organized into three main components:
//
// 1. Parser: decodes raw bytes, infers the delimiter and builds a typed table
// 2. Validator: confirms the operation column is numeric and join-ready
// 3. Comparator: joins tables on the operation column and computes differences
//
// # Usage
//
// Basic parsing example:
//
//	table, diag := dataprocessing.ParseFile("prices.csv", data)
//	if diag != nil {
//	    log.Fatal(diag.Message)
//	}
//
// Validation and comparison:
//
//	validated, diag := dataprocessing.ValidateTable(table, "id")
//	results, warnings := dataprocessing.CompareTables(tables, "id")
//
// # Data Flow
//
// The typical data flow through this package:
//
//	Raw Bytes → Parser → ParsedTable → Validator → ValidatedTable → Comparator → DifferenceSeries
//
// # Error Handling
//
// Per-file failures surface as ParseDiagnostic values attributed to
// their source file; comparison issues surface as Warnings that never
// remove already-computed results. Both are accumulated by callers
// rather than aborting the pipeline.
package dataprocessing
