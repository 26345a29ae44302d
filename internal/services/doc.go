// Package services defines the [SourceClient] interface for external music catalogs and implements it
// for Apple Music and Spotify.
//
// # SourceClient Interface
//
// Both catalogs implement a common abstraction so the aggregation pipeline treats them uniformly:
// search a fixed query budget, filter for relevance, score, de-duplicate by ID, sort.
//
// # Apple Music Implementation
//
// [AppleMusicClient] authenticates with an ES256 developer token minted by [auth.DeveloperTokenProvider]
// and searches playlists and albums in one storefront. When an affiliate token is configured,
// records carry links built by [AppleMusicLinks].
//
// # Spotify Implementation
//
// [SpotifyClient] authenticates with an app-only token from [auth.ClientCredentialsProvider] and
// searches playlists. Null entries in search results are skipped.
//
// # Request Path
//
// Every request acquires a token from its provider. A 401 forces one refresh and one retry of the
// identical request. Queries are separated by a [pacing.Pacer] so catalogs are not burst.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.AuthError] : 401 persisted after the single refresh and retry; only that query is abandoned
//   - [shared.QueryError] : transport failure, other non-2xx status or malformed body for one query
//   - [shared.SourceError] : the token provider cannot issue any token, or every query failed
//
// FetchContent returns no records when the context is canceled, never partial results.
package services
