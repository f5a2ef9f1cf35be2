// Package remote talks to the object store through the rclone command line.
//
// Objects are addressed as "{endpoint}:{bucket}/{key}", where endpoint is the
// name of a remote configured with `rclone config`.
package remote
