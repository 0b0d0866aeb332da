// Package s3 implements blobstore.Store on Amazon S3.
//
// Archived recording segments are immutable, so the store maps cleanly onto
// object storage: Put uploads with CRC32C validation (multipart above the
// configured part size), reads use ranged GETs, and List paginates.
//
// DDBCommitStore layers a DynamoDB commit log on top for the one mutable
// name a recording stream has, its LATEST manifest pointer, since S3 alone
// cannot compare-and-swap.
package s3
