package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/chaptermap/internal/mapping"
	"github.com/dgallion1/chaptermap/internal/parser"
)

// Worker processes a single chapter job.
type Worker struct {
	resolver *mapping.Resolver
	opts     parser.Options
	log      *slog.Logger
}

func NewWorker(resolver *mapping.Resolver, opts parser.Options, log *slog.Logger) *Worker {
	return &Worker{
		resolver: resolver,
		opts:     opts,
		log:      log,
	}
}

// Process parses the uploaded file and resolves its blocks against the
// chapter's mapping rules.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "chapter", job.ChapterID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename, w.opts)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	blocks, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.SetFileData(nil)
	job.SetBlocks(len(blocks))
	log.Info("parsed chapter", "blocks", len(blocks))

	if err := ctx.Err(); err != nil {
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "cancelled")
		return
	}

	// Phase 2: Map
	job.SetStatus(StatusMapping, "mapping")
	res := w.resolver.Resolve(ctx, job.ChapterID, blocks)
	job.Complete(&Result{Blocks: blocks, Mapping: res})
	log.Info("chapter mapped", "assigned", len(res.Assignments))
}
