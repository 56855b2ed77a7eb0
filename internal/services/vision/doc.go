// Package vision calls the external vision-analysis service that infers
// facial attributes from a child's photo. The pipeline consumes only the
// resulting prompt strings; analysis itself is a black box.
package vision
