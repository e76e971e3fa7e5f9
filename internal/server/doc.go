// Package server hosts tailortalk's MCP server infrastructure.
//
// ServerContext carries the conversation service and the instrumentation
// shared by all tool handlers. HTTPServer exposes the MCP streamable-http
// transport at /mcp together with Kubernetes health endpoints, per-IP rate
// limiting and request metrics. MetricsServer serves Prometheus metrics on a
// dedicated port so that operational data stays off the public listener.
package server
