package bfasm

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// CompileJob is one source file to translate into one assembly file.
type CompileJob struct {
	Src string
	Out string
}

// CompileResult reports how a job went. Entry is the history record for it.
type CompileResult struct {
	Job   CompileJob
	Asm   *Assembly
	Entry *Compilation
	Err   error
}

// BatchCompiler translates many files with a fixed number of workers sharing
// one Translator.
type BatchCompiler struct {
	Translator *Translator
	Workers    int
	Log        logrus.FieldLogger
}

func NewBatchCompiler(translator *Translator, workers int, log logrus.FieldLogger) *BatchCompiler {
	if workers < 1 {
		workers = 1
	}
	return &BatchCompiler{
		Translator: translator,
		Workers:    workers,
		Log:        log,
	}
}

// Run compiles every job and returns the results in job order. Jobs not
// started before ctx is done fail with the context's error.
func (bc *BatchCompiler) Run(ctx context.Context, jobs []CompileJob) []*CompileResult {
	results := make([]*CompileResult, len(jobs))
	input := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < bc.Workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			bc.work(ctx, id, input, jobs, results)
		}(w)
	}

FOR:
	for i := range jobs {
		select {
		case input <- i:
		case <-ctx.Done():
			break FOR
		}
	}
	close(input)
	wg.Wait()

	for i, r := range results {
		if r == nil {
			results[i] = &CompileResult{Job: jobs[i], Entry: NewCompilation("compile", ""), Err: ctx.Err()}
			results[i].Entry.Fail(StatusRejected, ctx.Err())
		}
	}
	return results
}

func (bc *BatchCompiler) work(ctx context.Context, id int, input <-chan int, jobs []CompileJob, results []*CompileResult) {
	for {
		select {
		case i, ok := <-input:
			if !ok {
				bc.Log.WithField("worker", id).Debug("Closing compile worker")
				return
			}
			results[i] = bc.compile(jobs[i])
		case <-ctx.Done():
			return
		}
	}
}

func (bc *BatchCompiler) compile(job CompileJob) *CompileResult {
	result := &CompileResult{Job: job}

	src, err := os.ReadFile(job.Src)
	if err != nil {
		result.Entry = NewCompilation("compile", "")
		result.Err = fmt.Errorf("Unable to read source [%s]: %w", job.Src, err)
		result.Entry.Fail(StatusRejected, result.Err)
		return result
	}

	result.Entry = NewCompilation("compile", string(src))
	result.Asm, err = bc.Translator.Translate(string(src))
	result.Entry.Translated(result.Asm, err)
	if err != nil {
		result.Err = fmt.Errorf("%s: %w", job.Src, err)
		return result
	}

	if err := result.Asm.Save(job.Out); err != nil {
		result.Err = err
		result.Entry.Fail(StatusRejected, err)
		return result
	}

	bc.Log.WithFields(logrus.Fields{
		"src":          job.Src,
		"out":          job.Out,
		"instructions": result.Asm.Instructions,
		"labels":       result.Asm.Labels,
	}).Info("Compiled")
	return result
}
