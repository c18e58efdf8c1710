// Package common contains shared constants and sentinel errors used across
// taskdesk components.
package common

// CredentialKey is the metadata key under which the bearer credential is
// persisted in the local store.
const CredentialKey = "authToken"

// CredentialSavedAtKey records when CredentialKey was last written
// (RFC 3339, UTC).
const CredentialSavedAtKey = "authTokenSavedAt"

// AuthorizationHeaderName carries the bearer credential on outbound requests.
const AuthorizationHeaderName = "Authorization"

// RequestIDHeaderName carries a per-request correlation id.
const RequestIDHeaderName = "X-Request-ID"
