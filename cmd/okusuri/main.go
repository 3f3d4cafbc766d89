// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	okusuri "github.com/ts1979s-commits/okusuri-tuuhanbu-recommend"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/config"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/ingestion"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/search"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/server"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "okusuri",
		Usage:   "Product search and recommendation for the online pharmacy catalog",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (default: okusuri.yaml in ., ./config or $HOME/.okusuri)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Build the vector index from the product catalog",
				Action: indexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "catalog",
						Usage: "Catalog file (CSV, JSON or NDJSON); defaults to data.catalog",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Rebuild even when the catalog is unchanged",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search the catalog",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results (default: search.top_k)",
					},
					&cli.BoolFlag{
						Name:  "explain",
						Usage: "Trace every search stage to stderr",
					},
				},
			},
			{
				Name:      "recommend",
				Usage:     "Recommend products for a query",
				ArgsUsage: "<query>",
				Action:    recommendCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "max",
						Aliases: []string{"n"},
						Usage:   "Maximum number of recommendations",
						Value:   search.DefaultTopK,
					},
					&cli.BoolFlag{
						Name:  "llm",
						Usage: "Re-rank candidates with the chat model",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the recommendation as JSON",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show index and configuration status",
				Action: statusCommand,
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "Port to listen on (default: server.port)",
					},
				},
			},
		},
	}
}

// openSystem loads the configuration named by --config and opens the system.
func openSystem(c *cli.Context, adjust func(*config.Config)) (*okusuri.System, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if adjust != nil {
		adjust(cfg)
	}
	sys, err := okusuri.Open(cfg, okusuri.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to open system: %w", err)
	}
	return sys, nil
}

func queryArg(c *cli.Context) (string, error) {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return "", fmt.Errorf("query is required")
	}
	return query, nil
}

func indexCommand(c *cli.Context) error {
	sys, err := openSystem(c, nil)
	if err != nil {
		return err
	}
	defer sys.Close()

	cfg := sys.Config()
	catalogPath := c.String("catalog")
	if catalogPath == "" {
		catalogPath = cfg.Data.Catalog
	}

	fmt.Fprintf(os.Stderr, "Catalog: %s\n", catalogPath)
	fmt.Fprintf(os.Stderr, "Index: %s\n", cfg.Data.IndexDir)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	result, err := sys.Reindex(c.Context, catalogPath, c.Bool("force"),
		ingestion.WithProgress(os.Stderr, ingestion.DefaultReportInterval))
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	if result.Unchanged {
		fmt.Printf("Catalog unchanged, using stored index (%d products)\n", result.Snapshot.Len())
		return nil
	}
	s := result.Stats
	fmt.Printf("Indexed %d of %d products (%d cached, %d embedded, %d skipped) in %s\n",
		s.Indexed, s.Products, s.Cached, s.Embedded, s.Skipped, s.Elapsed.Round(time.Millisecond))
	return nil
}

func searchCommand(c *cli.Context) error {
	query, err := queryArg(c)
	if err != nil {
		return err
	}
	sys, err := openSystem(c, nil)
	if err != nil {
		return err
	}
	defer sys.Close()

	var monitor search.SearchMonitor
	if c.Bool("explain") {
		monitor = search.NewTraceMonitor(os.Stderr, 10)
	}
	report, err := sys.Searcher().SearchDetailed(c.Context, query, c.Int("top-k"), monitor)
	if err != nil {
		slog.Warn("search degraded", "err", err)
	}
	printResults(os.Stdout, report.Results, nil)
	return nil
}

func recommendCommand(c *cli.Context) error {
	query, err := queryArg(c)
	if err != nil {
		return err
	}
	sys, err := openSystem(c, func(cfg *config.Config) {
		if c.IsSet("llm") {
			cfg.Search.LLMRerank = c.Bool("llm")
		}
	})
	if err != nil {
		return err
	}
	defer sys.Close()

	rec, err := sys.Recommend(c.Context, query, c.Int("max"))
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return writeJSON(os.Stdout, server.NewRecommendResponse(rec))
	}
	fmt.Printf("Query type: %s\n", rec.Query.Type)
	if len(rec.Query.Keywords) > 0 {
		fmt.Printf("Keywords: %s\n", strings.Join(rec.Query.Keywords, ", "))
	}
	fmt.Println()
	printResults(os.Stdout, rec.Results, rec.Reasons)
	if rec.Commentary != "" {
		fmt.Printf("\n%s\n", rec.Commentary)
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	sys, err := openSystem(c, nil)
	if err != nil {
		return err
	}
	defer sys.Close()

	return writeJSON(os.Stdout, sys.Status())
}

func serveCommand(c *cli.Context) error {
	sys, err := openSystem(c, func(cfg *config.Config) {
		if port := c.String("port"); port != "" {
			cfg.Server.Port = port
		}
	})
	if err != nil {
		return err
	}
	defer sys.Close()

	cfg := sys.Config()
	handler, err := server.NewHandler(sys, server.WithLogger(slog.Default()), server.WithVersion(version))
	if err != nil {
		return err
	}
	srv := server.NewHTTPServer(cfg.Server.Port, server.SetupRouter(cfg.Server, handler))

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Serve(ctx, srv, ln, slog.Default())
}

func printResults(w io.Writer, results []*core.SearchResult, reasons map[string]string) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No matching products.")
		return
	}
	for i, r := range results {
		p := r.Product
		fmt.Fprintf(w, "%d. %s (%.3f, %s)\n", i+1, p.Name, r.Score, r.Strategy)
		if p.Category != "" {
			fmt.Fprintf(w, "   %s", p.Category)
			if p.Price != "" {
				fmt.Fprintf(w, " / %s円", p.Price)
			}
			fmt.Fprintln(w)
		}
		if p.URL != "" {
			fmt.Fprintf(w, "   %s\n", p.URL)
		}
		if reason := reasons[p.Name]; reason != "" {
			fmt.Fprintf(w, "   %s\n", reason)
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func setupLogger(c *cli.Context) error {
	level, err := config.ParseLevel(c.String("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.String("log-level"))
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
