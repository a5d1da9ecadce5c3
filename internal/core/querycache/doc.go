// Package querycache is the storefront's server-state cache.
//
// Reads go through Query/Refresh, keyed by a Key (resource plus identifying
// parameters). Concurrent reads of one key share a single backend call.
// Writes go through Mutate: the write is issued first and, once the backend
// confirms it, every key declared for that mutation kind is invalidated and
// a success notification is raised. Nothing is updated optimistically.
//
// A fetch that was in flight while an invalidation happened still answers its
// callers but is not stored, so a confirmed write is never followed by a read
// of data fetched before it.
package querycache
