// Package pipeline runs the holography processing chain, fanning
// independent (antenna, scan, frequency) units across a bounded worker pool
// and merging per-unit results into one keyed report.
//
// This package is the composition root: it imports the stage packages
// (holo, geometry, panelfit) and none of them import pipeline.
//
// Units share no mutable state. The only data structure visible to more
// than one concurrent unit is the PanelGeometryProvider, which is immutable
// after construction, so the pipeline needs no locks of its own.
package pipeline
