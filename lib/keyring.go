package lib

import (
	"os"

	"github.com/99designs/keyring"
)

// changing any of these will break keyring compatibility
const (
	keyringServiceName             = "aws-session-handler"
	keyringLibSecretCollectionName = "awsvault"
	keyringFileDir                 = "~/.aws-session-handler/"
)

func keyringPrompt(prompt string) (string, error) {
	return PromptWithOutput(prompt, true, os.Stderr)
}

// OpenKeyring opens the keyring backing the --backend session cache
func OpenKeyring(allowedBackends []keyring.BackendType) (keyring.Keyring, error) {
	return keyring.Open(keyring.Config{
		AllowedBackends:          allowedBackends,
		KeychainTrustApplication: true,
		ServiceName:              keyringServiceName,
		LibSecretCollectionName:  keyringLibSecretCollectionName,
		FileDir:                  keyringFileDir,
		FilePasswordFunc:         keyringPrompt,
	})
}
