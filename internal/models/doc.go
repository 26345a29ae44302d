// Package models defines the entities that flow through the content aggregation pipeline.
//
// The package contains two categories of types:
//
// 1. Pipeline values: immutable data passed between stages
//   - [CatalogItem] : a source-native playlist or album returned by a catalog search
//   - [ContentRecord] : the normalized record with provenance-prefixed ID, themes, benefits and scores
//   - [Tags] : sorted, duplicate-free label set used for themes and benefits
//
// 2. Persistent entities: run summaries written to the ledger
//   - [FetchRun] : counts and status for one aggregation run
//
// Record IDs are built with [Source.RecordID] so that the prefix alone determines provenance
// and IDs never collide across catalogs.
package models
