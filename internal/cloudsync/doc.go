// Package cloudsync replicates clip audio to object storage.
//
// Coordinator uploads every clip of a video on a bounded pool, retrying
// transient failures with capped exponential backoff. Only clips that come
// back with a storage reference count as confirmed; the rest carry an
// upload_error and are retried by the next save.
package cloudsync
