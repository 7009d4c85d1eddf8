// Package files manages the two writable areas of the service: the
// transient upload directory, where delimited-text files live only for
// the duration of one comparison request, and the reports directory,
// where generated spreadsheet artifacts are stored under unique names
// until downloaded.
package files
