// Package services implements the driving port interfaces.
// Services contain the core retrieval pipeline - query decomposition,
// concurrent source fan-out, aggregation, corpus indexing, and context
// assembly - and orchestrate calls to driven ports (adapters).
//
// Services are pure Go with no CGO and no network dependencies.
package services
