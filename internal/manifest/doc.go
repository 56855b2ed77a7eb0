// Package manifest defines the declarative book description: pages, covers,
// typography, text layers, and output geometry.
//
// Manifests are JSON documents stored in the blob store under
// manifests/<slug>.json. They are loaded read-only per generation run and
// validated on decode; a manifest that refers to a nonexistent grid position
// or carries duplicate page numbers never reaches the pipeline.
package manifest
