// Package s3 reads remote Terraform state from S3 or any S3-compatible
// object store.
//
// Stage outputs live in the state object written by the stage's remote
// backend. The client only reads: it checks that the state bucket is
// reachable, lists state objects under a prefix and fetches a single state
// document. A missing object is reported as ErrObjectNotFound so callers
// can treat "never applied" as an empty output set.
package s3
