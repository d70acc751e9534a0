package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/ResumeDrop/internal/auth"
	"github.com/dharsanguruparan/ResumeDrop/internal/config"
	"github.com/dharsanguruparan/ResumeDrop/internal/extract"
	"github.com/dharsanguruparan/ResumeDrop/internal/parsing"
	"github.com/dharsanguruparan/ResumeDrop/internal/redact"
	"github.com/dharsanguruparan/ResumeDrop/internal/security"
)

// cliLogger keeps library logging off stdout so command output stays pipeable.
func cliLogger(cmd *cobra.Command) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()
}

func newValidateCmd() *cobra.Command {
	var declaredMIME string
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Run the upload validation pipeline against a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			verdict := security.NewValidator(cliLogger(cmd)).Validate(security.Candidate{
				Content:      f,
				Filename:     filepath.Base(args[0]),
				DeclaredMIME: declaredMIME,
				UserID:       "cli",
			})
			if err := writeJSON(cmd.OutOrStdout(), verdict); err != nil {
				return err
			}
			if !verdict.Accepted {
				return fmt.Errorf("rejected at %s: %s", verdict.FailedStage, verdict.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&declaredMIME, "mime", "", "Content type the client would declare")
	return cmd
}

func newParseCmd() *cobra.Command {
	var removePII, asJSON bool
	var root string
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Extract text from a PDF, DOCX or DOC file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if root == "" {
				root = filepath.Dir(path)
			}
			logger := cliLogger(cmd)
			parser := parsing.New(root, extract.New(logger), redact.Redactor{}, logger)
			doc, err := parser.Parse(cmd.Context(), path, removePII)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), doc)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), doc.Text)
			return err
		},
	}
	cmd.Flags().BoolVar(&removePII, "remove-pii", false, "Replace contact details and street addresses with placeholders")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the extracted document as JSON")
	cmd.Flags().StringVar(&root, "root", "", "Directory the file must live under (defaults to the file's directory)")
	return cmd
}

func newRedactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redact",
		Short: "Redact PII from text read on stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), redact.Clean(string(raw)))
			return err
		},
	}
}

func newTokenCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an access token signed with the configured secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.EphemeralSecret {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: RESUMEDROP_JWT_SECRET is not set, the token will not verify against a running api")
			}
			token, expires, err := auth.NewManager(cfg.JWTSecret, cfg.JWTExpiry).Issue(args[0], email)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"token":      token,
				"expires_at": expires,
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email claim to embed")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
