package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/poiesic/splitembed"
	"github.com/poiesic/splitembed/ai"
	"github.com/poiesic/splitembed/config"
	"github.com/poiesic/splitembed/core"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// chunkView is the printed form of a chunk.
type chunkView struct {
	Index     int    `json:"index" yaml:"index"`
	ID        string `json:"id" yaml:"id"`
	Start     int    `json:"start" yaml:"start"`
	End       int    `json:"end" yaml:"end"`
	Overlap   int    `json:"overlap" yaml:"overlap"`
	Size      int    `json:"size" yaml:"size"`
	Text      string `json:"text" yaml:"text"`
	EmbedText string `json:"embed_text,omitempty" yaml:"embed_text,omitempty"`
}

func splitCommand(c *cli.Context) error {
	if err := checkFormat(c); err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	doc, err := readDocument(c)
	if err != nil {
		return err
	}

	opts, err := serviceOptions(cfg)
	if err != nil {
		return err
	}
	svc, err := splitembed.New(append(opts, splitembed.WithEmbedder(noEmbedder{}))...)
	if err != nil {
		return err
	}
	defer svc.Close()

	length, err := cfg.LengthFunc()
	if err != nil {
		return err
	}

	chunks := svc.Chunks(doc)
	views := make([]chunkView, len(chunks))
	for i, ch := range chunks {
		views[i] = chunkView{
			Index:   ch.Index,
			ID:      ch.ID.String(),
			Start:   ch.Start,
			End:     ch.End,
			Overlap: ch.Overlap,
			Size:    length(ch.StoreView),
			Text:    ch.StoreView,
		}
		if ch.EmbedView != ch.StoreView {
			views[i].EmbedText = ch.EmbedView
		}
	}

	return writeOutput(c, views)
}

func embedCommand(c *cli.Context) error {
	if err := checkFormat(c); err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	doc, err := readDocument(c)
	if err != nil {
		return err
	}

	opts, err := serviceOptions(cfg)
	if err != nil {
		return err
	}
	progress := newProgress(c.App.ErrWriter, c.Bool("quiet"))
	opts = append(opts, splitembed.WithProgress(progress.update))
	if c.Bool("normalize") {
		opts = append(opts, splitembed.WithNormalizedVectors())
	}

	svc, err := splitembed.New(opts...)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	if timeout := c.Duration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	started := time.Now()
	records, err := svc.SplitAndEmbedDocument(ctx, doc)
	progress.finish(err == nil)
	if err != nil {
		var serviceErr *ai.EmbeddingServiceError
		if errors.As(err, &serviceErr) && serviceErr.Retryable() && cfg.Embedding.MaxAttempts <= 1 {
			return fmt.Errorf("%w (retryable; consider --max-attempts)", err)
		}
		return err
	}

	if err := writeOutput(c, records); err != nil {
		return err
	}

	if !c.Bool("quiet") {
		dims := 0
		if len(records) > 0 {
			dims = len(records[0].Embedding)
		}
		color.New(color.FgGreen).Fprintf(c.App.ErrWriter, "✓ Embedded %d chunks (%d dimensions) in %s\n",
			len(records), dims, time.Since(started).Round(time.Millisecond))
	}
	return nil
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	e := &cfg.Embedding
	if c.IsSet("backend") {
		e.Backend = c.String("backend")
	}
	if c.IsSet("embedding-host") {
		e.Host = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		e.Model = c.String("embedding-model")
	}
	if c.IsSet("api-key") {
		e.APIKey = c.String("api-key")
	}
	if c.IsSet("api-version") {
		e.APIVersion = c.String("api-version")
	}
	if c.IsSet("dimensions") {
		e.Dimensions = c.Int("dimensions")
	}
	if c.IsSet("batch-size") {
		e.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("concurrency") {
		e.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("requests-per-second") {
		e.RequestsPerSecond = c.Float64("requests-per-second")
	}
	if c.IsSet("max-attempts") {
		e.MaxAttempts = c.Int("max-attempts")
	}
	if c.IsSet("retry-delay") {
		e.RetryDelay = c.Duration("retry-delay")
	}

	ch := &cfg.Chunking
	if c.IsSet("chunk-size") {
		ch.ChunkSize = c.Int("chunk-size")
	}
	if c.IsSet("chunk-overlap") {
		ch.ChunkOverlap = c.Int("chunk-overlap")
	}
	if c.IsSet("unit") {
		ch.Unit = c.String("unit")
	}
	if c.IsSet("encoding") {
		ch.Encoding = c.String("encoding")
	}
	ch.Abbreviations = append(ch.Abbreviations, c.StringSlice("abbreviation")...)

	if verrs := cfg.Validate(); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, verr := range verrs {
			errs[i] = verr
		}
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidConfig, errors.Join(errs...))
	}
	return cfg, nil
}

func serviceOptions(cfg *config.Config) ([]splitembed.Option, error) {
	length, err := cfg.LengthFunc()
	if err != nil {
		return nil, err
	}
	opts := []splitembed.Option{
		splitembed.WithAIConfig(cfg.AIConfig()),
		splitembed.WithChunkSettings(cfg.ChunkSettings()),
		splitembed.WithLengthFunc(length),
	}
	if len(cfg.Chunking.Abbreviations) > 0 {
		opts = append(opts, splitembed.WithAbbreviations(cfg.Chunking.Abbreviations...))
	}
	return opts, nil
}

// readDocument reads the file argument, or stdin when there is none.
func readDocument(c *cli.Context) (*core.Document, error) {
	var (
		data []byte
		err  error
	)
	switch c.NArg() {
	case 0:
		in := c.App.Reader
		if in == nil {
			in = os.Stdin
		}
		data, err = io.ReadAll(in)
	case 1:
		data, err = os.ReadFile(c.Args().First())
	default:
		return nil, fmt.Errorf("expected at most one input file, got %d", c.NArg())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	doc := core.NewDocument(string(data))
	for _, pair := range c.StringSlice("metadata") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid metadata %q: want key=value", pair)
		}
		if doc.Metadata == nil {
			doc.Metadata = map[string]string{}
		}
		doc.Metadata[strings.TrimSpace(key)] = value
	}
	doc.ExcludedEmbedMetadataKeys = c.StringSlice("exclude-metadata")

	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func checkFormat(c *cli.Context) error {
	switch strings.ToLower(c.String("format")) {
	case formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q: must be json or yaml", c.String("format"))
}

func writeOutput(c *cli.Context, v any) error {
	out := c.App.Writer
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	if out == nil {
		out = os.Stdout
	}

	switch strings.ToLower(c.String("format")) {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return checkFormat(c)
}

// noEmbedder backs the split command, which never embeds.
type noEmbedder struct{}

func (noEmbedder) EmbedTexts(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("split does not embed")
}
