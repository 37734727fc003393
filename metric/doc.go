// Package metric provides Prometheus-based metrics collection and an HTTP
// server for monitoring the pipeline.
//
// A MetricsRegistry owns the Prometheus registry, pre-registers core
// process metrics (application status, errors, operation durations,
// telemetry link health) and lets components register their own collectors
// through the MetricsRegistrar interface. Server exposes the registry in
// Prometheus format together with a health endpoint.
//
// Basic usage:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("metrics server error: %v", err)
//	    }
//	}()
//	defer server.Stop()
//
// Registration methods reject duplicate metric names per component and
// surface Prometheus-level conflicts as classified errors.
package metric
