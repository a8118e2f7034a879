// Package metrics defines the sinks that observe assimilation runs. A sink
// records every filter step; optional interfaces cover finished runs and
// calibration evaluations. Sinks are instantiated by name through a factory
// registry, and NewMetricsSink wraps several configured sinks in a
// MultiSink.
package metrics
