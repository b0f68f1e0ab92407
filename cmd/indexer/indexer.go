package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"secureshield-assistant/internal/app"
	"secureshield-assistant/internal/config"
	"secureshield-assistant/internal/models"
	"secureshield-assistant/internal/processor"
	"secureshield-assistant/internal/scraper"

	"github.com/spf13/cobra"
)

const scrapeTimeout = 30 * time.Second

func main() {
	var flags config.Flags

	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Scrape the site and build the assistant's vector index",
		SilenceUsage: true,
	}
	flags.Register(root)
	root.AddCommand(scrapeCmd(&flags), buildCmd(&flags), statsCmd(&flags))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func scrapeCmd(flags *config.Flags) *cobra.Command {
	var url string
	var sample bool
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch the site and write scraped.txt and scraped.json",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := flags.Load()
			if err != nil {
				return err
			}
			if url == "" {
				url = cfg.Site.ScrapeURL
			}

			docs := scraper.SampleDocuments()
			if !sample {
				docs = scraper.New(log, scrapeTimeout).Scrape(cmd.Context(), url)
				if len(docs) == 0 {
					return fmt.Errorf("no content scraped from %s", url)
				}
			}
			if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
				return fmt.Errorf("failed to create data dir: %w", err)
			}
			if err := scraper.Save(cfg.Data.ScrapedText, cfg.Data.ScrapedJSON, docs); err != nil {
				return err
			}
			log.Info("scraped content saved", "documents", len(docs), "text", cfg.Data.ScrapedText, "json", cfg.Data.ScrapedJSON)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "page to scrape (default site.scrape_url)")
	cmd.Flags().BoolVar(&sample, "sample", false, "write the built-in sample content instead of scraping")
	return cmd
}

func buildCmd(flags *config.Flags) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Chunk, embed and persist the index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := flags.Load()
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			start := time.Now()
			meta, err := a.Service.Build(cmd.Context(), source)
			if err != nil {
				return fmt.Errorf("failed to build index: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Built index: %d chunks, dimension %d, in %v\n",
				meta.Count, meta.Dimension, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "text, .json or .pdf source (default data.scraped_text)")
	return cmd
}

func statsCmd(flags *config.Flags) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print chunk and document statistics without embedding",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := flags.Load()
			if err != nil {
				return err
			}
			if source == "" {
				source = cfg.Data.ScrapedText
			}
			chunks, err := processor.ChunkFile(source, processor.MaxChunkSize)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			s := processor.Stats(chunks, processor.MaxChunkSize)
			fmt.Fprintln(out, "Chunk Statistics:")
			fmt.Fprintf(out, "  Total chunks: %d\n", s.Chunks)
			fmt.Fprintf(out, "  Average chunk length: %.1f characters\n", s.AvgLength)
			fmt.Fprintf(out, "  Longest chunk: %d characters\n", s.MaxLength)
			fmt.Fprintf(out, "  Oversized chunks (> %d): %d\n", processor.MaxChunkSize, s.Oversized)

			docs, err := processor.LoadDocuments(cfg.Data.ScrapedJSON)
			if err != nil {
				if errors.Is(err, models.ErrSourceNotFound) {
					log.Warn("no scraped documents to summarize", "path", cfg.Data.ScrapedJSON)
				} else {
					log.Warn("failed to read scraped documents", "err", err)
				}
				return nil
			}
			fmt.Fprintf(out, "Documents: %d\n", len(docs))
			for _, sc := range processor.CountSources(docs) {
				fmt.Fprintf(out, "  %s: %d\n", sc.Source, sc.Count)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "source to chunk (default data.scraped_text)")
	return cmd
}
