package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/newsdigest/internal/pipeline"
	"github.com/hyperifyio/newsdigest/internal/store"
)

func newURLCmd(o *options) *cobra.Command {
	var listing string
	cmd := &cobra.Command{
		Use:   "url --url <listing page>",
		Short: "Summarize the headlines of a news listing page",
		Example: `  newsdigest url --url https://news.example/
  newsdigest url --url https://news.example/ --format pdf --summarizer openai --llm.model gpt-4o-mini`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := o.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.RunListing(cmd.Context(), listing)
			if err != nil {
				return err
			}
			printDigest(cmd.OutOrStdout(), out.Result)
			log.Info().Str("headlines", out.HeadlinesFile).Str("digest", out.DigestFile).Msg("results saved")
			return nil
		},
	}
	cmd.Flags().StringVar(&listing, "url", "", "Listing page URL")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func printDigest(w io.Writer, res *pipeline.HeadlineResult) {
	fmt.Fprintf(w, "Source: %s\nHeadlines: %d\n\nOverall summary:\n%s\n", res.URL, res.TotalHeadlines, res.OverallSummary)
	if res.OverallSummaryError != "" {
		fmt.Fprintf(w, "(summary unavailable: %s)\n", res.OverallSummaryError)
	}
	for i, s := range res.IndividualSummaries {
		fmt.Fprintf(w, "\n%d. %s\n   %s\n   %s\n", i+1, s.Headline, s.Summary, s.Link)
	}
}

func newArticlesCmd(o *options) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "articles <url>...",
		Short: "Scrape and summarize article URLs",
		Long: `Scrape title, content, author, publish date and description from each URL
and summarize the content. Every URL yields one record; failures are reported
inside the record. Records are printed as JSON.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := o.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			results, path, err := a.RunArticles(cmd.Context(), args, save)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}
			stats := pipeline.ComputeStats(results)
			log.Info().Int("successful", stats.Successful).Int("failed", stats.Failed).Str("file", path).Msg("articles processed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", true, "Save the records into the data directory")
	return cmd
}

func newServeCmd(o *options) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipelines over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, _, err := o.open(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := &http.Server{
				Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
				Handler:           a.APIServer().Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				log.Info().Str("addr", srv.Addr).Str("summarizer", a.Backend()).Msg("listening")
				errc <- srv.ListenAndServe()
			}()
			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			log.Info().Msg("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "Listen host")
	cmd.Flags().IntVar(&port, "port", 8000, "Listen port")
	return cmd
}

func newWatchCmd(o *options) *cobra.Command {
	var (
		listing  string
		schedule string
	)
	cmd := &cobra.Command{
		Use:   "watch --url <listing page>",
		Short: "Re-run the listing pipeline on a cron schedule",
		Example: `  newsdigest watch --url https://news.example/ --schedule "*/30 * * * *"
  newsdigest watch --url https://news.example/ --schedule "@every 1h" --history data/history.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := o.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Watch(cmd.Context(), listing, schedule)
		},
	}
	cmd.Flags().StringVar(&listing, "url", "", "Listing page URL")
	cmd.Flags().StringVar(&schedule, "schedule", "@every 1h", "Cron spec (5 fields or @every/@hourly descriptors)")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newConfigCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.config(cmd)
			if err != nil {
				return err
			}
			if cfg.LLMAPIKey != "" {
				cfg.LLMAPIKey = "***"
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func newHistoryCmd(o *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "history",
		Short:   "List recent runs from the history database",
		Example: `  newsdigest history --history data/history.db --limit 5`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := o.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}

func printRuns(w io.Writer, runs []store.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tKIND\tSTATUS\tITEMS\tSOURCE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", r.ID, r.CreatedAt.Format(time.RFC3339), r.Kind, r.Status, r.Items, r.SourceURL)
	}
	return tw.Flush()
}
