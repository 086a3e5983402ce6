// Package identity normalizes the identifiers used to deduplicate graph
// entities: DOIs, author names and journal ISSNs.
package identity
