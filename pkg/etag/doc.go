// Package etag computes the content-derived version tokens mgs uses for
// optimistic concurrency: base64(sha256("{lastModifiedMs}_{canonicalJSON}")).
package etag
