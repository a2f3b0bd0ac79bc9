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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "splitembed",
		Usage: "Split text into overlapping chunks and embed them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (default: splitembed.yaml or ~/.config/splitembed/config.yaml)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "split",
				Usage:     "Print the chunks a document splits into without embedding",
				ArgsUsage: "[file]",
				Action:    splitCommand,
				Flags:     append(chunkFlags(), documentFlags()...),
			},
			{
				Name:      "embed",
				Usage:     "Split a document and embed every chunk",
				ArgsUsage: "[file]",
				Action:    embedCommand,
				Flags:     append(append(chunkFlags(), documentFlags()...), embedFlags()...),
			},
		},
	}
}

func chunkFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Maximum chunk length in the selected unit",
		},
		&cli.IntFlag{
			Name:  "chunk-overlap",
			Usage: "Maximum length carried over from the previous chunk",
		},
		&cli.StringFlag{
			Name:  "unit",
			Usage: "Length unit (chars, tokens)",
		},
		&cli.StringFlag{
			Name:  "encoding",
			Usage: "tiktoken encoding used when unit is tokens",
		},
		&cli.StringSliceFlag{
			Name:  "abbreviation",
			Usage: "Extra word whose trailing period does not end a sentence (repeatable)",
		},
	}
}

func documentFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "metadata",
			Aliases: []string{"m"},
			Usage:   "Document metadata as key=value (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-metadata",
			Usage: "Metadata key left out of the embedded text (repeatable)",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (json, yaml)",
			Value:   formatJSON,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write output to this file instead of stdout",
		},
	}
}

func embedFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Embedding backend (openai, azure, ollama)",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL (Azure: resource endpoint)",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name (Azure: deployment name)",
		},
		&cli.StringFlag{
			Name:  "api-key",
			Usage: "API key (default from OPENAI_API_KEY or AZURE_OPENAI_API_KEY)",
		},
		&cli.StringFlag{
			Name:  "api-version",
			Usage: "Azure OpenAI API version",
		},
		&cli.IntFlag{
			Name:  "dimensions",
			Usage: "Requested and expected embedding dimensions (0: model default)",
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Number of chunks sent per request",
		},
		&cli.IntFlag{
			Name:  "concurrency",
			Usage: "Number of requests in flight at once",
		},
		&cli.Float64Flag{
			Name:  "requests-per-second",
			Usage: "Client-side request rate limit (0: unlimited)",
		},
		&cli.IntFlag{
			Name:  "max-attempts",
			Usage: "Attempts per document for retryable failures (1: no retry)",
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Deadline for the whole embedding call (0: none)",
			Value: 5 * time.Minute,
		},
		&cli.BoolFlag{
			Name:  "normalize",
			Usage: "Scale embeddings to unit length",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Disable the progress bar and summary",
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	errWriter := c.App.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(errWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
