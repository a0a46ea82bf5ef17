// Package docstore defines the narrow document-store contract the lease
// manager and orchestrator depend on: per-document get, merge-write, and a
// per-document transaction. Backends live in the sqlitedoc and mongodoc
// subpackages.
package docstore
