package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/dgallion1/chaptermap/internal/block"
	"github.com/dgallion1/chaptermap/internal/chapter"
	"github.com/dgallion1/chaptermap/internal/content"
	"github.com/dgallion1/chaptermap/internal/logger"
	"github.com/dgallion1/chaptermap/internal/mapping"
	"github.com/dgallion1/chaptermap/internal/parser"
	"github.com/dgallion1/chaptermap/internal/render"
)

// env is filled by the root Before hook once flags are parsed.
type env struct {
	log      *slog.Logger
	loaders  chapter.Chain
	repo     *chapter.Cache
	resolver *mapping.Resolver
	store    *content.Store
	opts     parser.Options
	out      io.Writer
}

func (e *env) prepare(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error
	if e.log, err = logger.New(cmd.String("log-level"), "console", os.Stderr); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	e.loaders = chapter.Layered(cmd.String("config-dir"))
	e.repo = chapter.NewCache(e.loaders, chapter.CacheOptions{}, e.log)
	e.resolver = mapping.NewResolver(e.repo, nil, e.log)
	if dir := cmd.String("content-dir"); dir != "" {
		e.store = content.NewStore(os.DirFS(dir))
	}
	e.opts = parser.Options{PDFFallbackPdftotext: cmd.Bool("pdftotext")}
	return ctx, nil
}

func (e *env) writeJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// readBlocks parses FILE, or stdin as markdown when FILE is "-".
func (e *env) readBlocks(name string) ([]block.Block, error) {
	if name == "" {
		return nil, errors.New("no input file has been specified")
	}
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(os.Stdin)
		name = "stdin.md"
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, err
	}

	p, err := parser.ForFile(name, e.opts)
	if err != nil {
		return nil, err
	}
	return p.Parse(bytes.NewReader(data), name)
}

// chapterBlocks reads FILE when given, otherwise the chapter's source from
// the content directory.
func (e *env) chapterBlocks(id, name string) ([]block.Block, error) {
	if name != "" {
		return e.readBlocks(name)
	}
	if e.store == nil {
		return nil, errors.New("no input file and no --content-dir to look the chapter up in")
	}
	ch, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	return (&parser.ChapterParser{}).ParseText(ch.Content), nil
}

func (e *env) runParse(ctx context.Context, cmd *cli.Command) error {
	blocks, err := e.readBlocks(cmd.Args().First())
	if err != nil {
		return err
	}
	return e.writeJSON(map[string]any{"blocks": blocks})
}

func (e *env) runMap(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("chapter")
	blocks, err := e.chapterBlocks(id, cmd.Args().First())
	if err != nil {
		return err
	}
	out := map[string]any{
		"chapterId": id,
		"blocks":    blocks,
		"result":    e.resolver.Resolve(ctx, id, blocks),
	}
	if cmd.Bool("debug") {
		out["matches"] = e.resolver.Matches(ctx, id, blocks)
	}
	return e.writeJSON(out)
}

func (e *env) runConfig(ctx context.Context, cmd *cli.Command) error {
	id, err := chapter.NormalizeID(cmd.Args().First())
	if err != nil {
		return err
	}
	return e.writeJSON(map[string]any{"id": id, "config": e.repo.Get(ctx, id)})
}

func (e *env) runChapters(ctx context.Context, cmd *cli.Command) error {
	ids, err := e.loaders.IDs()
	if err != nil {
		return err
	}
	out := map[string]any{"configs": ids}
	if e.store != nil {
		slugs, err := e.store.List()
		if err != nil {
			return err
		}
		out["sources"] = slugs
		out["order"] = e.store.Order()
	}
	return e.writeJSON(out)
}

func (e *env) runRender(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("chapter")
	blocks, err := e.chapterBlocks(id, cmd.Args().First())
	if err != nil {
		return err
	}
	return render.New().Render(e.out, blocks, e.resolver.Resolve(ctx, id, blocks))
}

func chapterFlag() cli.Flag {
	return &cli.StringFlag{Name: "chapter", Aliases: []string{"c"}, Required: true, Usage: "chapter `ID` whose mapping rules apply, e.g. part1/ch2"}
}

func newApp(out io.Writer) *cli.Command {
	e := &env{out: out}

	return &cli.Command{
		Name:            "chaptermap",
		Usage:           "parse chapter text and map its blocks to UI components",
		HideHelpCommand: true,
		Before:          e.prepare,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Sources: cli.EnvVars("CHAPTER_CONFIG_DIR"), Usage: "load chapter configs from `DIR` before the built-in ones"},
			&cli.StringFlag{Name: "content-dir", Sources: cli.EnvVars("CONTENT_DIR"), Usage: "chapter sources `DIR` used when no input file is given"},
			&cli.StringFlag{Name: "log-level", Value: "warn", Sources: cli.EnvVars("LOG_LEVEL"), Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "pdftotext", Value: true, Sources: cli.EnvVars("PDF_FALLBACK_PDFTOTEXT"), Usage: "fall back to pdftotext for PDFs the built-in reader cannot handle"},
		},
		Commands: []*cli.Command{
			{
				Name:      "parse",
				Usage:     "Splits a chapter document into typed blocks (JSON)",
				ArgsUsage: "FILE",
				Action:    e.runParse,
			},
			{
				Name:      "map",
				Usage:     "Resolves component assignments for a chapter document (JSON)",
				ArgsUsage: "[FILE]",
				Flags: []cli.Flag{
					chapterFlag(),
					&cli.BoolFlag{Name: "debug", Usage: "include every matching rule with its score"},
				},
				Action: e.runMap,
			},
			{
				Name:      "config",
				Usage:     "Prints the merged configuration of a chapter (JSON)",
				ArgsUsage: "ID",
				Action:    e.runConfig,
			},
			{
				Name:   "chapters",
				Usage:  "Lists configured chapters and, with --content-dir, chapter sources",
				Action: e.runChapters,
			},
			{
				Name:      "render",
				Usage:     "Renders a chapter document to an HTML fragment",
				ArgsUsage: "[FILE]",
				Flags:     []cli.Flag{chapterFlag()},
				Action:    e.runRender,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "chaptermap:", err)
		stop()
		os.Exit(1)
	}
}
