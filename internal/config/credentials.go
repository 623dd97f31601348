package config

import "fmt"

// redacted is what a Secret renders as in logs, errors and traces
const redacted = "[redacted]"

// Secret is a credential value that never renders itself in formatted output.
// Use Reveal to obtain the raw value when it must be typed into a page.
type Secret string

// String implements fmt.Stringer
func (s Secret) String() string {
	return redacted
}

// GoString implements fmt.GoStringer so %#v stays redacted too
func (s Secret) GoString() string {
	return redacted
}

// MarshalText keeps secrets out of JSON/YAML/logfmt encoders
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Reveal returns the raw secret value
func (s Secret) Reveal() string {
	return string(s)
}

// IsZero reports whether the secret is empty
func (s Secret) IsZero() bool {
	return s == ""
}

// Credentials is an identifier/secret pair used to log into the storefront
type Credentials struct {
	Identifier string
	Secret     Secret
}

// String implements fmt.Stringer
func (c Credentials) String() string {
	return fmt.Sprintf("%s/%s", c.Identifier, redacted)
}

// loadCredentials reads a credential pair from two environment variables
func loadCredentials(getenv func(string) string, identifierKey, secretKey string) (Credentials, error) {
	creds := Credentials{
		Identifier: getenv(identifierKey),
		Secret:     Secret(getenv(secretKey)),
	}

	if creds.Identifier == "" {
		return Credentials{}, fmt.Errorf("%s is required", identifierKey)
	}
	if creds.Secret.IsZero() {
		return Credentials{}, fmt.Errorf("%s is required", secretKey)
	}

	return creds, nil
}
