package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aigrader/internal/encoder"
	"aigrader/internal/extractor"
	"aigrader/internal/scorer"
)

var scoreCmd = &cobra.Command{
	Use:   "score --answer-key KEY [submissions...]",
	Short: "Score submissions against an answer key without touching the database",
	Long: `Score extracts the answer key and every submission, then prints the cosine
similarity of each submission to the key using the configured encoder.
Nothing is stored.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyPath, _ := cmd.Flags().GetString("answer-key")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		cfg := loadConfig()
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		enc, err := encoder.New(cfg.Encoder, log)
		if err != nil {
			return err
		}
		sc := scorer.New(enc, scorer.WithTimeout(cfg.Encoder.Timeout()), scorer.WithLogger(log))
		ext := extractor.New()

		keyData, err := os.ReadFile(keyPath)
		if err != nil {
			return fmt.Errorf("read answer key: %w", err)
		}
		keyText, err := ext.Extract(keyData, filepath.Base(keyPath))
		if err != nil {
			return fmt.Errorf("answer key: %w", err)
		}

		texts, err := extractFiles(cmd.Context(), ext, args, concurrency)
		if err != nil {
			return err
		}

		scores := make([]float64, len(texts))
		errs := make([]error, len(texts))
		eg, gctx := errgroup.WithContext(cmd.Context())
		if concurrency > 0 {
			eg.SetLimit(concurrency)
		}
		for i, t := range texts {
			if t.Err != nil {
				errs[i] = t.Err
				continue
			}
			eg.Go(func() error {
				scores[i], errs[i] = sc.Score(gctx, t.Text, keyText)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FILE\tSIMILARITY")
		failed := 0
		for i, t := range texts {
			if errs[i] != nil {
				failed++
				log.Warn("submission not scored", zap.String("file", t.Path), zap.Error(errs[i]))
				fmt.Fprintf(tw, "%s\terror: %v\n", t.Path, errs[i])
				continue
			}
			fmt.Fprintf(tw, "%s\t%.4f\n", t.Path, scores[i])
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d submissions failed", failed, len(texts))
		}
		return nil
	},
}

func init() {
	scoreCmd.Flags().String("answer-key", "", "answer key document (.docx or .pdf)")
	scoreCmd.Flags().Int("concurrency", 4, "maximum number of submissions processed in parallel")
	_ = scoreCmd.MarkFlagRequired("answer-key")

	rootCmd.AddCommand(scoreCmd)
}
