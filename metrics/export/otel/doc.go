// Package otel exports the engine's lifecycle counters through the
// OpenTelemetry metric API as observable counters. Values are pulled from
// Engine.MetricsSnapshot inside the meter's collection callback, so the hot
// path never pays for export.
package otel
