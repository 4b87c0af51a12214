// Package main hosts the animap CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, wires the catalog
// gateways into a resolver, and exposes single-subject resolution, stored
// entity inspection, and the background crawler. Heavy lifting lives in the
// internal packages; commands here only parse flags, choose between table and
// JSON output, and report errors.
package main
