package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"resume-analyzer/internal/analysis"
	"resume-analyzer/internal/extract"
)

type extractOutput struct {
	File           string       `json:"file"`
	Kind           extract.Kind `json:"kind"`
	PagesProcessed int          `json:"pagesProcessed"`
	PagesTotal     int          `json:"pagesTotal"`
	Text           string       `json:"text"`
}

type analyzeOutput struct {
	extractOutput
	Analysis analysis.Result `json:"analysis"`
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file.pdf>",
		Short: "Extract text from a PDF the way uploads do",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := extractFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newAnalyzeCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file.pdf>",
		Short: "Extract and analyze a PDF, printing the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out, err := extractFile(ctx, args[0])
			if err != nil {
				return err
			}
			analyzer, err := d.analyzer(ctx)
			if err != nil {
				return err
			}
			result, err := analyzer.Analyze(ctx, out.Text)
			if err != nil {
				return errors.New(analysis.UserMessage(err))
			}
			return writeJSON(cmd.OutOrStdout(), analyzeOutput{extractOutput: out, Analysis: result})
		},
	}
}

func newPingCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the configured model provider answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			analyzer, err := d.analyzer(cmd.Context())
			if err != nil {
				return err
			}
			if err := analyzer.TestConnection(cmd.Context()); err != nil {
				return fmt.Errorf("model connection failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func newFilesCmd(d *deps, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List stored resume files for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user := strings.TrimSpace(v.GetString("user"))
			if user == "" {
				return errors.New("--user is required")
			}
			store, err := d.store(cmd.Context())
			if err != nil {
				return err
			}
			files, err := store.List(cmd.Context(), user)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), files)
		},
	}
	cmd.Flags().StringP("user", "u", "", "owner id, e.g. local:<uuid> or guest:<id>")
	cmd.Flags().String("store", "", "object store (local|s3|simulated)")
	cmd.Flags().String("dir", "", "local store directory")
	_ = v.BindPFlag("user", cmd.Flags().Lookup("user"))
	_ = v.BindPFlag("store.type", cmd.Flags().Lookup("store"))
	_ = v.BindPFlag("store.local-dir", cmd.Flags().Lookup("dir"))
	return cmd
}

func extractFile(ctx context.Context, path string) (extractOutput, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return extractOutput{}, err
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return extractOutput{}, extract.ErrNotPDF
	}
	if err := extract.ValidatePDF(extract.MimePDF, int64(len(data))); err != nil {
		return extractOutput{}, err
	}
	outcome, err := extract.NewExtractor(extract.PDFLoader{}).Extract(ctx, data)
	if err != nil {
		return extractOutput{}, err
	}
	return extractOutput{
		File:           filepath.Base(path),
		Kind:           outcome.Kind,
		PagesProcessed: outcome.PagesProcessed,
		PagesTotal:     outcome.PagesTotal,
		Text:           outcome.Text(),
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
