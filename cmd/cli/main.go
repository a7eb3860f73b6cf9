package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/app"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/config"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/core/domain"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/core/services"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/logger"
)

const usage = "expected 'export', 'import' or 'migrate' subcommands"

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportFile := exportCmd.String("file", "", "write JSON to this file instead of stdout")
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file to import")
	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	cfg := config.Load()
	// logs go to stderr so export output stays clean
	l := logger.New(cfg.AppEnv, cfg.LogLevel).Output(zerolog.ConsoleWriter{Out: os.Stderr})
	log.Logger = l

	ctx := context.Background()
	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
	case "migrate":
		migrateCmd.Parse(os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	// opening the store applies pending migrations
	store, err := app.OpenStore(ctx, cfg.DatabaseURL, l)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open link store")
	}
	defer store.Close()

	switch os.Args[1] {
	case "export":
		out := io.Writer(os.Stdout)
		if *exportFile != "" {
			f, err := os.Create(*exportFile)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to create export file")
			}
			defer f.Close()
			out = f
		}
		n, err := doExport(ctx, store, out)
		if err != nil {
			log.Fatal().Err(err).Msg("export failed")
		}
		l.Info().Int("links", n).Msg("export finished")
	case "import":
		f, err := os.Open(*importFile)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open import file")
		}
		defer f.Close()
		res, err := doImport(ctx, store, f, l)
		if err != nil {
			log.Fatal().Err(err).Msg("import failed")
		}
		l.Info().Int("imported", res.Imported).Int("skipped", res.Skipped).Int("failed", res.Failed).Msg("import finished")
	case "migrate":
		l.Info().Msg("schema is up to date")
	}
}

func doExport(ctx context.Context, store app.Store, w io.Writer) (int, error) {
	links, err := store.Dump(ctx)
	if err != nil {
		return 0, err
	}
	if links == nil {
		links = []domain.Link{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(links); err != nil {
		return 0, errors.Wrap(err, "encode links")
	}
	return len(links), nil
}

type importResult struct {
	Imported int
	Skipped  int
	Failed   int
}

// doImport inserts every valid record whose slug is not already stored.
// Records keep their id, counter, expiry and creation time; a missing id or
// creation time is filled in.
func doImport(ctx context.Context, store app.Store, r io.Reader, l zerolog.Logger) (importResult, error) {
	var links []domain.Link
	if err := json.NewDecoder(r).Decode(&links); err != nil {
		return importResult{}, errors.Wrap(err, "decode links")
	}

	var res importResult
	for i := range links {
		link := &links[i]
		if err := services.ValidateLink(link); err != nil {
			l.Warn().Err(err).Str("slug", link.Slug).Str("original_url", link.OriginalURL).Msg("rejecting invalid link")
			res.Failed++
			continue
		}
		if link.ID == "" {
			link.ID = uuid.NewString()
		}
		if link.CreatedAt.IsZero() {
			link.CreatedAt = time.Now().UTC()
		}
		link.UTMParams = domain.NewUTMParams(link.UTMParams)

		err := store.Insert(ctx, link)
		switch {
		case err == nil:
			res.Imported++
		case errors.Is(err, domain.ErrDuplicateSlug):
			l.Debug().Str("slug", link.Slug).Msg("skipping existing slug")
			res.Skipped++
		default:
			l.Warn().Err(err).Str("slug", link.Slug).Msg("failed to import link")
			res.Failed++
		}
	}
	return res, nil
}
