// Package tracing holds the process tracer. The otel global provider is a
// no-op unless an SDK is installed by the deployment, so spans are free in
// development and real when an exporter is wired.
package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "blockship"

// Tracer returns the shared tracer for gateway spans.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
