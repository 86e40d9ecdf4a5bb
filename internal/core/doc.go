// Package core provides the business logic of the CSV repair service.
//
// This package sits between the transport layer and the repair pipeline.
// It can be used by web handlers, the CLI, or tests without modification.
//
// # Architecture
//
// The package is organized around a few concepts:
//
//   - Service: the entry point for submitting files, reading results, and
//     gating downloads behind payment.
//   - Jobs: every successful repair is persisted as a [store.Job] with the
//     original and cleaned bytes kept in a [store.BlobStore].
//   - Limiter: [UploadLimiter] caps how many repairs run at once.
//   - Retention: [RetentionSweeper] evicts jobs older than the configured TTL.
//
// # Submit Flow
//
//  1. Client calls [Service.Submit] with the file name and bytes
//  2. The upload is checked for an accepted extension and binary content
//  3. The original bytes are stored under a new job ID
//  4. [repair.Run] produces the canonical table and change log
//  5. The cleaned file and the job record are stored
//
// A fatal repair error removes the stored original; no job is written.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - REP001-REP004: Repair errors (decode, empty, row and column limits)
//   - FILE001-FILE007: File errors (size, extension, binary content)
//   - PAY001-PAY004: Payment errors
//   - JOB001: Job not found or expired
//   - UPL002-UPL005: Upload slot and request errors
package core
