// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/registry/cmd/app/commands"
)

func main() {
	cmd := &cli.Command{
		Name:    "app",
		Usage:   "Namespaced object registry with capability token auth",
		Version: "1.0.0",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, cmd.Root().Version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "issue-key",
				Usage: "Register a capability key, generating a key pair when none is supplied",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "id",
						Aliases: []string{"i"},
						Value:   "",
						Usage:   "Key ID (generated when omitted)",
					},
					&cli.StringFlag{
						Name:    "public-key-file",
						Aliases: []string{"k"},
						Value:   "",
						Usage:   "Path to a PEM encoded RSA public key (a key pair is generated when omitted)",
					},
					&cli.StringFlag{
						Name:    "namespaces",
						Aliases: []string{"n"},
						Value:   "*",
						Usage:   "Comma-separated list of permitted namespaces ('*' for all)",
					},
					&cli.StringFlag{
						Name:    "methods",
						Aliases: []string{"m"},
						Value:   "*",
						Usage:   "Comma-separated list of permitted methods ('*' for all)",
					},
					&cli.DurationFlag{
						Name:    "ttl",
						Aliases: []string{"t"},
						Value:   0,
						Usage:   "Key lifetime (e.g. 720h, 0 for no expiry)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunIssueKey(ctx, commands.IssueKeyOptions{
						KeyID:         cmd.String("id"),
						PublicKeyFile: cmd.String("public-key-file"),
						Namespaces:    cmd.String("namespaces"),
						Methods:       cmd.String("methods"),
						TTL:           cmd.Duration("ttl"),
						Format:        cmd.String("format"),
					})
				},
			},
			{
				Name:  "mint-token",
				Usage: "Mint a service token with the configured signing key",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "audience",
						Aliases: []string{"a"},
						Value:   "",
						Usage:   "Token audience (defaults to the configured service audience)",
					},
					&cli.BoolFlag{
						Name:    "shared-secret",
						Aliases: []string{"s"},
						Value:   false,
						Usage:   "Sign with the configured shared secret instead of the signing key",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMintToken(commands.MintTokenOptions{
						Audience:     cmd.String("audience"),
						SharedSecret: cmd.Bool("shared-secret"),
					})
				},
			},
			{
				Name:  "clean-audit-logs",
				Usage: "Delete audit logs past retention and purge expired capability keys",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCleanAuditLogs(ctx, cmd.String("format"))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
