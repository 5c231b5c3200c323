package pipeline

import "context"

// Outcome 后台运行的最终结果
type Outcome struct {
	Result *Result
	Err    error
}

// Start 在独立 goroutine 上跑一次管线，进度走通道、最终结果走单值通道。
// 消费方持续 drain 事件通道即可；事件顺序与阶段执行顺序一致。
func (p *Pipeline) Start(ctx context.Context, opts Options) (<-chan Event, <-chan Outcome) {
	events := make(chan Event, 256)
	done := make(chan Outcome, 1)

	prev := opts.OnProgress
	opts.OnProgress = func(e Event) {
		events <- e
		if prev != nil {
			prev(e)
		}
	}

	go func() {
		result, err := p.Run(ctx, opts)
		close(events)
		done <- Outcome{Result: result, Err: err}
		close(done)
	}()

	return events, done
}
