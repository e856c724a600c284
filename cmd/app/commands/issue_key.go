package commands

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/allisson/registry/internal/app"
	auditDomain "github.com/allisson/registry/internal/audit/domain"
	auditUseCase "github.com/allisson/registry/internal/audit/usecase"
	"github.com/allisson/registry/internal/config"
	keysDomain "github.com/allisson/registry/internal/keys/domain"
	keysUseCase "github.com/allisson/registry/internal/keys/usecase"
)

// IssueKeyOptions holds the flag values for the issue-key command.
type IssueKeyOptions struct {
	KeyID         string
	PublicKeyFile string
	Namespaces    string
	Methods       string
	TTL           time.Duration
	Format        string
}

// RunIssueKey registers a new capability key. When no public key file is given
// a fresh RSA key pair is generated and the private key is printed once.
//
// Requirements: Database must be migrated and accessible.
func RunIssueKey(ctx context.Context, opts IssueKeyOptions) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get key use case from container
	keyUseCase, err := container.KeyUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize key use case: %w", err)
	}

	// Get audit log use case from container
	auditLogUseCase, err := container.AuditLogUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize audit log use case: %w", err)
	}

	return issueKey(ctx, keyUseCase, auditLogUseCase, logger, os.Stdout, opts)
}

// issueKey performs key issuance against the provided dependencies.
func issueKey(
	ctx context.Context,
	keyUseCase keysUseCase.UseCase,
	auditLogUseCase auditUseCase.UseCase,
	logger *slog.Logger,
	out io.Writer,
	opts IssueKeyOptions,
) error {
	publicPEM, privatePEM, err := resolveKeyMaterial(opts.PublicKeyFile)
	if err != nil {
		return err
	}

	input := keysDomain.IssueKeyInput{
		KeyID:               opts.KeyID,
		PublicKeyPEM:        publicPEM,
		PermittedNamespaces: splitList(opts.Namespaces),
		PermittedMethods:    splitList(opts.Methods),
	}
	if opts.TTL > 0 {
		expiry := time.Now().UTC().Add(opts.TTL)
		input.TTL = &expiry
	}

	record, err := keyUseCase.Issue(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to issue key: %w", err)
	}

	// The command is the subject; no token is involved at issuance time.
	entry := auditDomain.AuditLog{
		Action:  auditDomain.ActionIssueKey,
		Subject: "cli",
		Details: map[string]string{"key_id": record.KeyID},
	}
	if _, err := auditLogUseCase.Append(ctx, entry); err != nil {
		logger.Warn("failed to append audit entry", slog.Any("error", err))
	}

	logger.Info("capability key issued", slog.String("key_id", record.KeyID))

	if opts.Format == "json" {
		return outputIssueKeyJSON(out, record, privatePEM)
	}
	outputIssueKeyText(out, record, privatePEM)
	return nil
}

// resolveKeyMaterial loads the public key PEM from a file when given,
// otherwise generates a fresh RSA key pair.
func resolveKeyMaterial(publicKeyFile string) (publicPEM string, privatePEM string, err error) {
	if publicKeyFile != "" {
		data, err := os.ReadFile(publicKeyFile)
		if err != nil {
			return "", "", fmt.Errorf("failed to read public key file: %w", err)
		}
		return string(data), "", nil
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate key pair: %w", err)
	}

	publicDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	privateDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal private key: %w", err)
	}

	publicPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER}))
	privatePEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateDER}))
	return publicPEM, privatePEM, nil
}

// outputIssueKeyText outputs the result in human-readable text format.
func outputIssueKeyText(out io.Writer, record *keysDomain.KeyRecord, privatePEM string) {
	fmt.Fprintf(out, "Key ID: %s\n", record.KeyID)
	fmt.Fprintf(out, "Namespaces: %v\n", record.PermittedNamespaces)
	fmt.Fprintf(out, "Methods: %v\n", record.PermittedMethods)
	if record.TTL != nil {
		fmt.Fprintf(out, "Expires: %s\n", record.TTL.Format(time.RFC3339))
	} else {
		fmt.Fprintln(out, "Expires: never")
	}
	if privatePEM != "" {
		fmt.Fprintln(out, "\nGenerated private key (store it now, it is not persisted):")
		fmt.Fprint(out, privatePEM)
	}
}

// outputIssueKeyJSON outputs the result in JSON format for machine consumption.
func outputIssueKeyJSON(out io.Writer, record *keysDomain.KeyRecord, privatePEM string) error {
	result := map[string]interface{}{
		"key_id":     record.KeyID,
		"namespaces": record.PermittedNamespaces,
		"methods":    record.PermittedMethods,
	}
	if record.TTL != nil {
		result["expires_at"] = record.TTL.Format(time.RFC3339)
	}
	if privatePEM != "" {
		result["private_key_pem"] = privatePEM
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
