package textsource

import (
	"os"

	"google.golang.org/api/option"
)

// credentialOptions returns client options for the credentials found in the environment.
// GOOGLE_CREDENTIALS (inline JSON) wins over GOOGLE_APPLICATION_CREDENTIALS (file path).
// An empty result means application default credentials.
func credentialOptions() []option.ClientOption {
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credFile)}
	}
	return nil
}

// HasCredentials reports whether explicit Google Cloud credentials are configured.
func HasCredentials() bool {
	return os.Getenv("GOOGLE_CREDENTIALS") != "" || os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != ""
}
