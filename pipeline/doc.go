// Package pipeline builds and orchestrates dynamic media-inference
// dataflow graphs on top of the media framework contract.
//
// The layers compose bottom-up: BuildNodes turns declarative
// GraphDescriptions into live nodes, Linker connects them with classified
// failure reporting, Composite adds ghost-port management so sub-graphs
// link like primitive nodes, and InferenceGraph fixes the batched
// inference topology. SourceManager attaches decode sources whose internal
// topology is discovered at runtime, Controller drives lifecycle states
// with bounded waits, and Router maps bus messages to control actions.
// App wires all of it into a runnable unit.
package pipeline
