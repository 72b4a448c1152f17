// Package transport moves encrypted chunks between the split/reconstruct
// pipeline and a refile.Store.
//
// Uploads are retried with exponential backoff until they succeed, fail
// with an error wrapping refile.ErrPermanent, or exhaust the RetryPolicy.
// UploadAll runs a bounded number of uploads at once and reports every
// result in the slot of the blob it belongs to, so callers never depend on
// completion order. Downloads are a single request each; DownloadAll keeps
// results in request order and stops at the first failure.
package transport
