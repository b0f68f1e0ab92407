package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"secureshield-assistant/internal/client"
	"secureshield-assistant/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	var flags config.Flags
	var query, serverURL string
	var k int

	root := &cobra.Command{
		Use:   "siteqa",
		Short: "Ask the SecureShield assistant a question",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := flags.Load()
			if err != nil {
				return err
			}
			opts := client.Options{
				ServerURL: cfg.Client.ServerURL,
				K:         cfg.Client.K,
				LocalK:    cfg.Client.LocalK,
				Timeout:   cfg.Client.Timeout,
			}
			if serverURL != "" {
				opts.ServerURL = serverURL
			}
			if k > 0 {
				opts.K = k
			}
			c := client.New(opts, log)
			c.Seed(cmd.Context())

			out := cmd.OutOrStdout()
			if query != "" {
				printMessage(out, c.Ask(cmd.Context(), query, streamPrinter(out)))
				return nil
			}
			return interactive(cmd.Context(), c, cmd.InOrStdin(), out)
		},
		SilenceUsage: true,
	}
	flags.Register(root)
	root.Flags().StringVarP(&query, "query", "q", "", "question to answer (interactive mode when empty)")
	root.Flags().StringVar(&serverURL, "server", "", "assistant server URL (default client.server_url)")
	root.Flags().IntVarP(&k, "k", "k", 0, "chunks to retrieve (default client.k)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// streamPrinter echoes streamed text as it grows.
func streamPrinter(out io.Writer) func(*client.StreamingMessage) {
	printed := 0
	return func(m *client.StreamingMessage) {
		if m.Origin != "" || len(m.RawText) < printed {
			return
		}
		fmt.Fprint(out, m.RawText[printed:])
		printed = len(m.RawText)
	}
}

func printMessage(out io.Writer, m *client.StreamingMessage) {
	if m.Origin == client.OriginStream {
		fmt.Fprintln(out)
	} else {
		if m.StreamFailed {
			fmt.Fprintln(out, "\n(streaming failed; type /retry to try streaming again)")
		}
		fmt.Fprintln(out, m.Text())
	}
	if m.UsingServer {
		fmt.Fprintln(out, "[using server context]")
	} else {
		fmt.Fprintln(out, "[answered locally]")
	}
	for _, c := range m.Citations {
		title := c.Title
		if title == "" {
			title = "Section"
		}
		if c.Link != "" {
			fmt.Fprintf(out, "  [#%d] %s (%.3f) %s\n", c.Index, title, c.Score, c.Link)
		} else {
			fmt.Fprintf(out, "  [#%d] %s (%.3f)\n", c.Index, title, c.Score)
		}
	}
}

func interactive(ctx context.Context, c *client.Client, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "SecureShield Assistant - ask about our insurance services (/retry to re-stream, 'exit' to quit)")

	var last *client.StreamingMessage
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/retry":
			if last == nil {
				fmt.Fprintln(out, "Nothing to retry yet.")
				continue
			}
			last = c.RetryStream(ctx, last, streamPrinter(out))
		default:
			last = c.Ask(ctx, input, streamPrinter(out))
		}
		printMessage(out, last)
	}
}
