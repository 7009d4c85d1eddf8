// Package http contains the HTTP transport layer: upload, process and
// download handlers for the comparison pipeline, plus the Prometheus
// metrics endpoint. Handlers translate between wire formats and the
// services layer and render failures through the shared error handler.
package http
