//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

package local

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/hashicorp/go-multierror"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/loaddriver"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/payload"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/process"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/record"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/service"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/status"
	"trpc.group/trpc-go/trpc-evalbench-go/log"
)

// processRun is the per-process orchestration state. rec is guarded by mu:
// evaluate mode updates model statuses from pool workers.
type processRun struct {
	svc  *local
	proc *process.Process
	set  payload.Set
	mode service.Mode

	mu  sync.Mutex
	rec *process.StatusRecord
}

// execute drives the process to a terminal status. It runs in its own
// goroutine; the context is the process's cancellable run context.
func (r *processRun) execute(ctx context.Context) {
	defer r.svc.running.Done()
	if r.mode == service.ModeBenchmark {
		r.runSequential(ctx)
	} else {
		r.runConcurrent(ctx)
	}
	r.finalize(ctx)
}

// runSequential processes the models strictly in order. The first model
// failure stops the run; remaining models stay Not Started.
func (r *processRun) runSequential(ctx context.Context) {
	for _, model := range r.proc.Models {
		if ctx.Err() != nil {
			return
		}
		if err := r.setModelStatus(ctx, model.ModelID, status.StatusInProgress); err != nil {
			return
		}
		groups, _, err := r.svc.driver.Run(ctx, r.set, loaddriver.RunParams{
			Target:        r.svc.resolver(model),
			Service:       r.proc.ConfigType,
			TotalRequests: r.proc.TotalRequests,
			ClientAPIKey:  r.proc.ClientAPIKey,
			DeployID:      model.ModelID,
			UserID:        r.proc.UserID,
			SessionID:     r.proc.SessionID,
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Errorf("process %s: model %s benchmark failed: %v", r.proc.ProcessID, model.ModelID, err)
			r.setModelStatus(ctx, model.ModelID, status.StatusFailed)
			return
		}
		if err := r.svc.resultMgr.AppendModelResult(ctx, r.proc.ProcessID, record.ModelResult{
			ModelID:   model.ModelID,
			ModelName: model.ModelName,
			Groups:    groups,
		}); err != nil {
			log.Errorf("process %s: append model %s result: %v", r.proc.ProcessID, model.ModelID, err)
			r.setModelStatus(ctx, model.ModelID, status.StatusFailed)
			return
		}
		if err := r.setModelStatus(ctx, model.ModelID, status.StatusCompleted); err != nil {
			return
		}
	}
}

// runConcurrent evaluates every model through the shared model pool. One
// model's failure never aborts the others.
func (r *processRun) runConcurrent(ctx context.Context) {
	var wg sync.WaitGroup
	errs := make([]error, len(r.proc.Models))
	for i, model := range r.proc.Models {
		wg.Add(1)
		p := modelRunParamPool.Get().(*modelRunParam)
		p.ctx = ctx
		p.run = r
		p.model = model
		p.wg = &wg
		p.err = &errs[i]
		if err := r.svc.modelPool.Invoke(p); err != nil {
			errs[i] = fmt.Errorf("submit model %s: %w", model.ModelID, err)
			r.setModelStatus(ctx, model.ModelID, status.StatusFailed)
			wg.Done()
			*p = modelRunParam{}
			modelRunParamPool.Put(p)
		}
	}
	wg.Wait()

	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		log.Errorf("process %s: %v", r.proc.ProcessID, err)
	}
}

// runEvalModel evaluates one model over every payload item and records its
// terminal status. Any failed item marks the model Failed; its rows are still
// persisted so partial responses remain inspectable.
func (r *processRun) runEvalModel(ctx context.Context, model process.ModelRef) error {
	if err := r.setModelStatus(ctx, model.ModelID, status.StatusInProgress); err != nil {
		return err
	}
	target := r.svc.resolver(model)
	groups := make([]record.GroupResult, 0, len(r.set))
	failedItems := 0
	for _, group := range r.set {
		result := r.evaluateGroup(ctx, target, model.ModelID, group)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		for _, row := range result.Rows {
			if row.StatusCode != http.StatusOK {
				failedItems++
			}
		}
		groups = append(groups, result)
	}
	if err := r.svc.resultMgr.AppendModelResult(ctx, r.proc.ProcessID, record.ModelResult{
		ModelID:   model.ModelID,
		ModelName: model.ModelName,
		Groups:    groups,
	}); err != nil {
		r.setModelStatus(ctx, model.ModelID, status.StatusFailed)
		return fmt.Errorf("append model %s result: %w", model.ModelID, err)
	}
	if failedItems > 0 {
		r.setModelStatus(ctx, model.ModelID, status.StatusFailed)
		return fmt.Errorf("model %s: %d of its items failed", model.ModelID, failedItems)
	}
	return r.setModelStatus(ctx, model.ModelID, status.StatusCompleted)
}

// finalize derives the overall terminal status, persists it, and generates the
// spreadsheet artifact. Persistence uses a fresh context: the run context is
// already gone when the process was cancelled.
func (r *processRun) finalize(ctx context.Context) {
	persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	r.mu.Lock()
	if ctx.Err() != nil {
		r.rec.CancelRemaining()
	} else {
		r.rec.Finalize()
	}
	clone := r.rec.Clone()
	err := r.svc.persistStatus(persistCtx, clone)
	r.mu.Unlock()
	if err != nil {
		log.Errorf("process %s: persist terminal status: %v", r.proc.ProcessID, err)
	}
	if clone.OverallStatus == status.StatusCancelled {
		log.Infof("process %s cancelled", r.proc.ProcessID)
		return
	}

	full, err := r.svc.resultMgr.Get(persistCtx, r.proc.ProcessID)
	if err != nil {
		log.Errorf("process %s: load result record: %v", r.proc.ProcessID, err)
		return
	}
	path, err := r.svc.reporter.Generate(full, r.mode == service.ModeEvaluate)
	if err != nil {
		log.Errorf("process %s: generate report: %v", r.proc.ProcessID, err)
		return
	}
	if err := r.svc.resultMgr.SetResultsPath(persistCtx, r.proc.ProcessID, path); err != nil {
		log.Errorf("process %s: store report path: %v", r.proc.ProcessID, err)
		return
	}
	log.Infof("process %s finished %s, report at %s", r.proc.ProcessID, clone.OverallStatus, path)
}

// setModelStatus updates one model's status, durable store first, then the
// registry cache. The persist happens under the same mutex as the mutation so
// a stale snapshot from one pool worker can never land after a newer one.
func (r *processRun) setModelStatus(ctx context.Context, modelID string, st status.ProcessStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rec.SetModelStatus(modelID, st)
	if err := r.svc.persistStatus(ctx, r.rec.Clone()); err != nil {
		log.Errorf("process %s: persist model %s status %s: %v", r.proc.ProcessID, modelID, st, err)
		return err
	}
	return nil
}

// persistStatus writes the record durably before refreshing the registry, so
// the cache never runs ahead of the system of record.
func (s *local) persistStatus(ctx context.Context, rec *process.StatusRecord) error {
	if err := s.statusMgr.Save(ctx, rec); err != nil {
		return fmt.Errorf("save status record: %w", err)
	}
	s.registry.SetStatus(rec)
	return nil
}
