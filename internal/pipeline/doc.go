// Package pipeline orchestrates book page generation.
//
// A stage run happens in two halves. Background building resolves the
// stage's page set, submits every face-swap page to the external service
// up front, handles swap-free pages while those render remotely, then
// collects results in submission order. Page composition takes the stored
// backgrounds and rasterizes the text layers on top, producing the final
// page artifacts and moving the job to its stage-terminal status.
//
// Both halves are idempotent against the blob store: re-running a phase
// overwrites artifacts under the same deterministic keys and appends new
// artifact records, where the latest row per page wins.
package pipeline
