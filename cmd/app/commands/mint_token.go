package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/allisson/registry/internal/app"
	"github.com/allisson/registry/internal/config"
)

// tokenSigner is the slice of the signer used by the mint-token command.
type tokenSigner interface {
	MintServiceToken() (string, error)
	MintTokenFor(audience string) (string, error)
	MintSharedSecretToken() (string, error)
}

// MintTokenOptions holds the flag values for the mint-token command.
type MintTokenOptions struct {
	Audience     string
	SharedSecret bool
}

// RunMintToken mints a service token with the configured signing key, or with
// the shared secret when requested. The token is printed to stdout.
func RunMintToken(opts MintTokenOptions) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get signer from container
	signer, err := container.Signer()
	if err != nil {
		return fmt.Errorf("failed to initialize signer: %w", err)
	}

	return mintToken(signer, os.Stdout, opts)
}

// mintToken mints the token against the provided signer.
func mintToken(signer tokenSigner, out io.Writer, opts MintTokenOptions) error {
	var token string
	var err error

	switch {
	case opts.SharedSecret:
		token, err = signer.MintSharedSecretToken()
	case opts.Audience != "":
		token, err = signer.MintTokenFor(opts.Audience)
	default:
		token, err = signer.MintServiceToken()
	}
	if err != nil {
		return fmt.Errorf("failed to mint token: %w", err)
	}

	fmt.Fprintln(out, token)
	return nil
}
