// Package faceswap talks to the external face-transformation service.
//
// The contract is submit/collect: Submit uploads the identity photo and the
// target illustration and returns a token without waiting; Collect polls that
// token until the rendered result is ready or a bounded timeout expires. The
// split lets callers submit a whole stage's worth of work before blocking on
// the first result.
package faceswap
