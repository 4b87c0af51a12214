// Package services defines shared utilities consumed by the resolver and the
// catalog gateways.
//
// Key responsibilities:
//   - Context helpers that stamp subject ids, catalog names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can tell a fatal
//     primary-source failure from a degraded catalog.
//
// Use these helpers when wiring new gateways so error handling and
// observability stay uniform across catalogs.
package services
