// Package core holds the directory's business logic, independent of any
// transport. The HTTP handlers, the seed command and the tests all go
// through it.
//
// # Listings
//
// An [Agency] is one directory entry. Listings arrive three ways and each
// has its own id scheme:
//
//   - CSV import ([Service.ImportCSV]): [StableID], a hash of the normalized
//     website and name, so re-importing the same file updates in place.
//   - Offline seed (package seed): a slug of the name, made unique per file
//     by [SlugAllocator].
//   - Approval ([Service.Approve]): the submission's UUID.
//
// # Import pipeline
//
// Uploaded bytes pass through [ReadText] (BOM and invalid UTF-8 handling),
// [ParseCSV] (a small quote-aware state machine), [NewHeaderIndex] (header
// lookup that tolerates column order and case) and [NormalizeRow]. The
// [Importer] then upserts rows in input order. Rows without a name or a
// usable website are skipped; store failures are reported per row and never
// stop the batch. Concurrent imports are bounded by [ImportLimiter].
//
// # Submissions
//
// [Service.Submit] records a public claim after the captcha check, storing
// an optional evidence file through [EvidenceStore]. [Service.Approve]
// publishes it as a listing with a fixed score; an earlier score is kept as
// score_prev, which feeds [Service.Movers].
//
// # Errors
//
// Service methods return wrapped sentinel or typed errors.
// [MapError] turns any of them into a [UserMessage] with a stable code.
package core
