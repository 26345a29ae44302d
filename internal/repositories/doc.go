// Package repositories implements the SQLite run ledger.
//
// The ledger stores one [models.FetchRun] summary per aggregation run together with per-source
// counts. Content records themselves are never persisted; every fetch is computed fresh.
//
// Key Implementations:
//   - [FetchRunRepository] : run summaries with per-source stats, newest first
//
// Sequence numbers provide stable, human-readable ordering (run #42) independent of UUIDs and
// start times. [NextSequence] atomically increments the counter in fetch_runs_sequence.
package repositories
