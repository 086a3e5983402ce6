// Package ingestion turns upstream bibliographic records into citation graph
// entities.
//
// The Coordinator is the single entry point used by Temporal activities. It
// resolves DOIs, fetches Crossref metadata through the shared rate-limited
// client, and writes papers, authors, journals, publications and citation
// edges through the repository Store. Every write is a get-or-create backed
// by a unique constraint, so repeating an ingestion (for example on an
// activity retry) converges on the same graph.
//
// Citation edges are keyed by the (citing, cited) DOI pair and may name
// papers that have not been ingested yet. When a paper row is created, the
// edges that mention its DOI are linked to it.
//
// Journals are resolved by ISSN. When more than one journal claims the same
// ISSN, the JournalMerger folds them into the oldest one inside a single
// transaction.
package ingestion
