// Package parallel 提供有界工作池
package parallel

import (
	"context"
	"sync"

	"github.com/easyops/contextpipe-go/pkg/core/errors"
)

// Run 用有界工作池并发执行 n 个独立任务
//
// 所有任务完成后才返回（阶段间的严格屏障）。任务按下标
// 标识，结果由调用方按下标回填，完成顺序不影响输出顺序。
//
// 上下文取消时停止派发新任务并等待在途任务结束，返回
// ErrContextCanceled；调用方据此把已完成的前缀标记为
// 部分结果。任务自身的第一个错误同样会被返回。
func Run(ctx context.Context, workers, n int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	if workers <= 0 {
		workers = 4
	}
	if workers > n {
		workers = n
	}

	tasks := make(chan int)
	errOnce := sync.Once{}
	var firstErr error

	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range tasks {
				if err := fn(i); err != nil {
					errOnce.Do(func() { firstErr = err })
				}
			}
		}()
	}

	canceled := false

dispatch:
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			canceled = true
			break dispatch
		case tasks <- i:
		}
	}
	close(tasks)

	wg.Wait()

	if canceled {
		return errors.ErrContextCanceled
	}
	return firstErr
}
