// Package config loads the workflow YAML that drives status progression:
// per-container-type flows, tag-to-flow mappings, terminal and emergency
// status sets, role overrides, and the auto-cascade toggles.
//
// The loader is fail-open. A missing workflow.yaml yields the embedded
// default configuration; a malformed or invalid one is logged and replaced
// by the default until the file is fixed. Parsed configs are cached for
// DefaultCacheTTL and re-read after expiry, after Reload, or after the
// optional filesystem watcher sees a settled change.
//
// All status strings are canonicalized on read: lowercased, underscores
// folded to hyphens. Consumers compare statuses via CanonicalStatus and
// never see raw user spellings.
package config
