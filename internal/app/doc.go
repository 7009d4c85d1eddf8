// Package app assembles the application: configuration, logging,
// filesystem layout, the comparison service and the HTTP server with
// its middleware chain.
package app
