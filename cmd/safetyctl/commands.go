package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/indiasafety/safetyindex/internal/auth"
	"github.com/indiasafety/safetyindex/internal/export"
	"github.com/indiasafety/safetyindex/internal/ingest"
	"github.com/indiasafety/safetyindex/internal/safety"
	"github.com/indiasafety/safetyindex/internal/sampledata"
	"github.com/indiasafety/safetyindex/internal/storage"
)

func seedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo dataset",
		Long:  `Create the 36 states and union territories and upsert their snapshot and history records. Existing states keep their IDs.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := sampledata.Seed(cmd.Context(), a.backend.States, a.backend.Safety, sampledata.Options{
				Snapshot: a.config.SnapshotDate,
				NewID:    uuid.NewString,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "states created: %d, existing: %d, records upserted: %d\n",
				res.StatesCreated, res.StatesExisting, res.Records)
			return nil
		},
	}
}

func statesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "states",
		Short: "List states with their snapshot safety percentage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := a.safety.List(cmd.Context(), safety.ListOptions{Sort: safety.SortByName})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tNAME\tSAFETY %")
			for _, d := range data {
				fmt.Fprintf(tw, "%s\t%s\t%.1f\n", d.StateCode, d.StateName, d.SafetyPercentage)
			}
			return tw.Flush()
		},
	}
}

func importCommand(a *app) *cobra.Command {
	var sourceURL string

	cmd := &cobra.Command{
		Use:   "import [file.csv]",
		Short: "Import safety records from a CSV file",
		Long:  `Import a CSV with state_code and safety_percentage columns. The run is logged as an upload.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			objects, err := storage.Open(cmd.Context(), storage.ConfigFromEnv())
			if err != nil {
				return fmt.Errorf("open object storage: %w", err)
			}
			if closer, ok := objects.(io.Closer); ok {
				defer closer.Close()
			}

			var src *string
			if sourceURL != "" {
				src = &sourceURL
			}

			result, err := a.importer(objects).Submit(cmd.Context(), filepath.Base(args[0]), src, data)
			if err != nil {
				if ingest.IsInputError(err) {
					return fmt.Errorf("invalid file: %w", err)
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (upload %s)\n", result.Message, result.UploadID)
			for _, e := range result.Errors {
				fmt.Fprintln(out, "  "+e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sourceURL, "source-url", "", "Default data_source_url for rows without one")

	return cmd
}

func exportCommand(a *app) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the snapshot listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			data, err := a.safety.List(cmd.Context(), safety.ListOptions{})
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := export.Write(&buf, f, data); err != nil {
				return err
			}

			if output == "" {
				output = export.Filename(f, time.Now())
			}
			if output == "-" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d states to %s\n", len(data), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format: csv, json, xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path, - for stdout (default: safety-data-<date>.<ext>)")

	return cmd
}

func tokenCommand() *cobra.Command {
	var (
		subject string
		role    string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token signed with AUTH_JWT_SECRET",
		Long:  `Mint a short-lived bearer token for calling the admin API from scripts and local development.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := auth.NewJWTService(auth.ConfigFromEnv())
			token, expiresAt, err := svc.GenerateAccessToken(subject, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "safetyctl", "Token subject")
	cmd.Flags().StringVar(&role, "role", auth.RoleAdmin, "Role claim")

	return cmd
}
