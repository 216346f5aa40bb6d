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
	"sync"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/process"
)

// modelRunParam carries one model evaluation job through the shared pool.
type modelRunParam struct {
	ctx   context.Context
	run   *processRun
	model process.ModelRef
	wg    *sync.WaitGroup
	err   *error
}

// modelRunParamPool recycles job params to avoid per-invoke allocations.
var modelRunParamPool = sync.Pool{
	New: func() any { return &modelRunParam{} },
}

// createModelRunPool builds the shared worker pool that bounds how many models
// are evaluated concurrently across all running processes.
func createModelRunPool(size int) (*ants.PoolWithFunc, error) {
	return ants.NewPoolWithFunc(size, func(arg any) {
		p, ok := arg.(*modelRunParam)
		if !ok {
			return
		}
		defer func() {
			p.wg.Done()
			*p = modelRunParam{}
			modelRunParamPool.Put(p)
		}()
		*p.err = p.run.runEvalModel(p.ctx, p.model)
	})
}
