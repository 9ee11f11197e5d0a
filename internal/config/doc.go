// Package config is the authoritative in-process store for the agent's
// declarative configuration: metric definitions, resource type
// definitions, managed server endpoints, and subsystem toggles, held as
// a nested YAML-backed tree.
//
// Top-level pieces:
//   - Configuration and its section types — the immutable-by-convention
//     value tree with explicit deep Copy
//   - Validate — recursive walk collecting every domain-rule violation
//     into one aggregated error
//   - Marshal / Unmarshal / Decode — lossless, order-preserving,
//     presence-aware YAML round trip
//   - Manager — RWMutex-guarded owner of the cached tree and the backing
//     file; Load, Configuration, Update, and Overlay
//   - (*Manager).Watch — fsnotify-driven forced reload on file change
//
// Readers always receive deep copies and must re-fetch to observe
// updates; the manager's internal tree never leaks. Commits validate
// and persist before swapping the cache, under the write lock, so the
// file and the cache never disagree from a reader's point of view.
// Updates can first copy the existing file to a ".bak" sibling; that
// backup is best effort and its failure never blocks the write.
package config
