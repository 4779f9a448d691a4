// Package secrets seals small pieces of persisted state, such as OAuth tokens,
// with AES-256-GCM.
//
// Keys are derived with HKDF-SHA256 from an application secret and a salt, so
// callers never manage raw key material:
//
//	sealer, err := secrets.NewSealer([]byte(apiToken), []byte(clientID))
//	if err != nil {
//		return err
//	}
//	blob, err := sealer.Seal("user_token", tokenJSON)
//	// ...
//	tokenJSON, err = sealer.Open("user_token", blob)
//
// The label passed to Seal is bound to the ciphertext as associated data. A
// blob sealed under one label fails to open under another, which prevents
// swapping persisted values between keys.
//
// Tampered, truncated or foreign ciphertext returns ErrDecryptionFailed or
// ErrInvalidCiphertext.
package secrets
