// Package mce is a media composition engine: it assembles dynamic video
// inference pipelines from declarative graph descriptions, attaches a
// variable number of stream sources to a batched inference graph, and
// drives the result through its lifecycle until end of stream or failure.
//
// # Architecture
//
// The module is layered around one contract:
//
//   - media: the framework contract. Interfaces for nodes, ports,
//     composites, pipelines, buses and event loops; everything above
//     works only against these.
//   - pipeline: graph construction (declarative descriptions, classified
//     link errors, ghost-port management), the fixed inference topology,
//     dynamic source attachment, lifecycle control and bus event routing.
//   - gstreamer: the production media.Framework implementation on
//     GStreamer via go-gst.
//   - testutil: an in-memory media.Framework for tests, modeling linking
//     rules, hierarchy, ghost ports and asynchronous state transitions.
//   - overlay: per-frame detection summaries rendered on the output.
//   - config, metric, telemetry, errors: schema-validated configuration,
//     Prometheus metrics, NATS event publishing, and classified error
//     handling shared by all of the above.
//
// The cmd/mce binary wires the layers together.
package mce
