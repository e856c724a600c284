package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/allisson/registry/internal/app"
	auditUseCase "github.com/allisson/registry/internal/audit/usecase"
	"github.com/allisson/registry/internal/config"
	keysUseCase "github.com/allisson/registry/internal/keys/usecase"
)

// RunCleanAuditLogs deletes audit logs past the configured retention window
// and purges expired capability keys. Supports text and JSON output formats.
//
// Requirements: Database must be migrated and accessible.
func RunCleanAuditLogs(ctx context.Context, format string) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get audit log use case from container
	auditLogUseCase, err := container.AuditLogUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize audit log use case: %w", err)
	}

	// Get key use case from container
	keyUseCase, err := container.KeyUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize key use case: %w", err)
	}

	return cleanAuditLogs(ctx, auditLogUseCase, keyUseCase, logger, os.Stdout, format)
}

// cleanAuditLogs performs the cleanup against the provided dependencies.
func cleanAuditLogs(
	ctx context.Context,
	auditLogUseCase auditUseCase.UseCase,
	keyUseCase keysUseCase.UseCase,
	logger *slog.Logger,
	out io.Writer,
	format string,
) error {
	entries, err := auditLogUseCase.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete audit logs: %w", err)
	}

	keys, err := keyUseCase.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge expired keys: %w", err)
	}

	if format == "json" {
		if err := outputCleanJSON(out, entries, keys); err != nil {
			return err
		}
	} else {
		outputCleanText(out, entries, keys)
	}

	logger.Info("cleanup completed",
		slog.Int64("audit_entries", entries),
		slog.Int64("expired_keys", keys),
	)

	return nil
}

// outputCleanText outputs the result in human-readable text format.
func outputCleanText(out io.Writer, entries, keys int64) {
	fmt.Fprintf(out, "Deleted %d audit log entrie(s) past retention\n", entries)
	fmt.Fprintf(out, "Purged %d expired capability key(s)\n", keys)
}

// outputCleanJSON outputs the result in JSON format for machine consumption.
func outputCleanJSON(out io.Writer, entries, keys int64) error {
	result := map[string]interface{}{
		"audit_entries": entries,
		"expired_keys":  keys,
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
