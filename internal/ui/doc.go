// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a three-view workflow over one aggregation run:
//  1. [FetchView] : spinner with the current pipeline phase while sources are fetched
//  2. [ListView] : browse and filter the ranked records
//  3. [DetailView] : scores, themes, benefits and link for one record
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the Aggregator, providing non-blocking status reporting during fetches.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
