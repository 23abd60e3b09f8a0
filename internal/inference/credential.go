package inference

import "net/http"

type credentialKind int

const (
	credentialNone credentialKind = iota
	credentialToken
	credentialCookie
)

// Credential is the closed authentication variant for the inference service:
// bearer token, cookie, or none. Token and cookie presentation are mutually
// exclusive; the variant is resolved once per client.
type Credential struct {
	kind  credentialKind
	value string
}

// TokenCredential authenticates with an Authorization bearer header.
func TokenCredential(token string) Credential {
	if token == "" {
		return Credential{}
	}
	return Credential{kind: credentialToken, value: token}
}

// CookieCredential authenticates with a raw Cookie header.
func CookieCredential(cookie string) Credential {
	if cookie == "" {
		return Credential{}
	}
	return Credential{kind: credentialCookie, value: cookie}
}

// ResolveCredential picks the token when both values are set, matching the
// header-construction precedence of the service.
func ResolveCredential(token, cookie string) Credential {
	if token != "" {
		return TokenCredential(token)
	}
	return CookieCredential(cookie)
}

// IsZero reports whether no credential is configured.
func (c Credential) IsZero() bool { return c.kind == credentialNone }

func (c Credential) apply(h http.Header) {
	switch c.kind {
	case credentialToken:
		h.Set("Authorization", "Bearer "+c.value)
	case credentialCookie:
		h.Set("Cookie", c.value)
	}
}
