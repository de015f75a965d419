// Package cookie manages HTTP cookies with AES-256-GCM encryption and
// HMAC signing, supporting multiple secrets for key rotation.
//
// Encrypted cookies carry both confidentiality and an integrity tag, which
// makes them suitable carriers for session tokens: any tampering fails
// decryption rather than producing a partial value.
package cookie
