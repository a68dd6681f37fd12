// Package core validates, normalizes and stores uploaded contact records.
//
// It is independent of any transport: the web server, the CLI and tests
// all drive it through [Service.StoreBatch].
//
// # Pipeline
//
// Each CSV line carries a name, a phone number and an email address:
//
//  1. The stream is tokenized into rows ([TokenizeFunc], default csvio).
//  2. [RecordProcessor.Process] checks the name ([ValidateName]),
//     normalizes the phone number ([NormalizePhone]) and validates it
//     ([PhoneValidator]), then checks the email ([EmailValidator]).
//  3. A row whose three fields all pass is upserted through
//     [ContactStore]; a row with any bad field is reported and skipped.
//  4. [Service.StoreBatch] counts rows seen and rows stored and collects
//     every field error in row-then-field order into a [BatchResult].
//
// # Errors
//
// Field problems are data, not errors: they end up in BatchResult.Errors
// as messages like "Invalid Email: no". A malformed stream or internal
// fault stops the batch and is reported as a single diagnostic with
// BatchResult.Fault set. Store failures follow [PersistFailureMode].
//
// Transport errors (missing file, busy server) are mapped to
// user-facing messages with support codes by [MapError].
package core
