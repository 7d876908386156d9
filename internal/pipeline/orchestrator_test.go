package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/chaptermap/internal/chapter"
	"github.com/dgallion1/chaptermap/internal/config"
	"github.com/dgallion1/chaptermap/internal/logger"
	"github.com/dgallion1/chaptermap/internal/mapping"
)

func testConfig(workers, queue int) config.Config {
	return config.Config{
		WorkerCount:  workers,
		MaxQueueSize: queue,
		JobTTL:       time.Hour,
	}
}

func newTestOrchestrator(cfg config.Config) *Orchestrator {
	repo := chapter.NewCache(chapter.Builtin(), chapter.CacheOptions{}, logger.Nop())
	return NewOrchestrator(cfg, mapping.NewResolver(repo, nil, logger.Nop()), logger.Nop())
}

func waitDone(t *testing.T, job *Job) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if snap := job.Snapshot(); snap.Status.Done() {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", job.ID)
	return JobSnapshot{}
}

func TestOrchestrator_ProcessesMarkdown(t *testing.T) {
	o := newTestOrchestrator(testConfig(2, 10))
	o.Start(context.Background())
	defer o.Stop()

	src := "# 超越摩尔定律\n\n正文段落。\n\n- 一\n- 二\n"
	job, err := o.Submit(NewJob("part0/ch0-demo", "demo.md", []byte(src)))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap := waitDone(t, job)
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (errors %v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.Blocks != 3 {
		t.Errorf("expected 3 blocks, got %d", snap.Progress.Blocks)
	}

	res := o.GetJob(job.ID).Result()
	if res == nil || res.Mapping == nil {
		t.Fatal("expected a stored result")
	}
	if got := res.Mapping.Assignments[res.Blocks[0].ID].Component; got != "PostMooreEraModule" {
		t.Errorf("heading assigned %q", got)
	}
	if job.FileData() != nil {
		t.Error("expected upload bytes to be released after parsing")
	}
}

func TestOrchestrator_DuplicateUploadReusesJob(t *testing.T) {
	o := newTestOrchestrator(testConfig(1, 10))
	o.Start(context.Background())
	defer o.Stop()

	first, err := o.Submit(NewJob("part1/ch2", "a.md", []byte("text")))
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, first)

	second, err := o.Submit(NewJob("part1/ch2", "b.md", []byte("text")))
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Error("expected the completed job to be reused")
	}
}

func TestOrchestrator_UnsupportedFormatFails(t *testing.T) {
	o := newTestOrchestrator(testConfig(1, 10))
	o.Start(context.Background())
	defer o.Stop()

	job, err := o.Submit(NewJob("part1/ch2", "sheet.xlsx", []byte("x")))
	if err != nil {
		t.Fatal(err)
	}
	snap := waitDone(t, job)
	if snap.Status != StatusFailed || snap.Phase != "parsing" {
		t.Errorf("expected failed/parsing, got %q/%q", snap.Status, snap.Phase)
	}
	if len(snap.Progress.Errors) != 1 {
		t.Errorf("expected one error, got %v", snap.Progress.Errors)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	// Not started: nothing drains the queue.
	o := newTestOrchestrator(testConfig(1, 1))
	defer o.Stop()

	if _, err := o.Submit(NewJob("c", "a.md", []byte("1"))); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	job, err := o.Submit(NewJob("c", "b.md", []byte("2")))
	if err == nil {
		t.Fatal("expected queue full error")
	}
	if snap := job.Snapshot(); snap.Status != StatusFailed || snap.Phase != "queue_full" {
		t.Errorf("unexpected state %q/%q", snap.Status, snap.Phase)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected depth 1, got %d", o.QueueDepth())
	}
}

func TestOrchestrator_SubmitAfterStop(t *testing.T) {
	o := newTestOrchestrator(testConfig(1, 1))
	o.Start(context.Background())
	o.Stop()
	o.Stop()

	if _, err := o.Submit(NewJob("c", "a.md", []byte("1"))); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}
