// Package password implements peppered Argon2id password hashing and verification.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Salt and digest use unpadded standard base64. The deployment pepper is mixed
// in as HMAC-SHA256(pepper, password) before key derivation and never appears
// in the encoded string.
//
// # Failure policy
//
// [Argon2.Verify] fails closed: a malformed or out-of-bounds hash is reported as
// a mismatch plus an error, never as a match. [Argon2.VerifyDummy] lets callers
// spend the same work when no stored hash exists.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other goSession package.
//   - Log plaintext passwords, the pepper, or hash parameters at runtime.
package password
