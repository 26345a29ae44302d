// Package tasks runs the content aggregation pipeline with real-time progress reporting.
//
// # Pipeline
//
// [Aggregator.Run] drives every configured [services.SourceClient]:
//
//  1. Fetch each source in its own goroutine, writing into an isolated slot
//     - A failing source contributes an empty list and is logged at error level
//     - The run fails only when no source produced a result
//  2. Merge the lists in source order and drop repeated IDs
//  3. Collapse cross-source duplicates with a [dedupe.Resolver]
//  4. Apply the final validity [classifier.Gate]
//
// Cancellation is checked at the join point: a canceled run returns no records.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for
// advanced UI rendering. Updates use select with default to prevent blocking.
//
// # Run Ledger
//
// When a [RunRecorder] is configured, every run, including failed ones, is summarized as a
// [models.FetchRun]. Recorder failures are logged and never fail the run.
package tasks
