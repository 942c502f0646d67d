package models

// CredentialRequest identifies one secret lookup. Constructed per lookup,
// never persisted.
type CredentialRequest struct {
	// Key is the logical secret name, e.g. RESTIC_PASSWORD.
	Key string
	// Namespace prevents collisions between independent configurations
	// sharing one secret store.
	Namespace string
}

// ResolvedCredential is the outcome of one lookup. Absence is a valid
// outcome, not an error; Found distinguishes it from an empty value.
// The value lives only in process memory for the duration of a single
// engine invocation and is never logged.
type ResolvedCredential struct {
	Value string
	Found bool
	// Source names the backend that actually satisfied the request. It may
	// differ from the configured primary source when the .env fallback hit.
	Source CredentialSource
}
