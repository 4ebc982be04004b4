// Package sources groups the remote source adapters. Each subpackage
// implements the SourceAdapter port for one external knowledge source
// and normalises its responses into evidence items.
//
// Adapters never return errors from Search; failures are reported
// through the adapter status so one broken source cannot abort an
// aggregation.
package sources
