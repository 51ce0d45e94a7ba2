package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aimafia/internal/agent"
	"aimafia/internal/game"
	"aimafia/internal/logging"
	"aimafia/internal/narration"
	"aimafia/internal/perception"
	"aimafia/internal/turnparse"

	"golang.org/x/sync/errgroup"
)

// turnResult is what a worker hands back. Workers never touch the state.
type turnResult struct {
	name  string
	phase game.Phase
	resp  agent.Response
	err   error
}

// future is a turn being generated in the background.
type future struct {
	done chan struct{}
	res  turnResult
}

func (f *future) await() turnResult {
	<-f.done
	return f.res
}

func (e *Engine) produce(ctx context.Context, name string, req agent.Request) turnResult {
	start := time.Now()
	resp, err := e.players[name].ProduceTurn(ctx, req)
	logging.EngineDebug("%s %s turn took %s (failures=%d)", name, req.Phase, time.Since(start), len(resp.Failures))
	return turnResult{name: name, phase: req.Phase, resp: resp, err: err}
}

// launch starts a turn. Interactive players run synchronously on the
// calling goroutine because they own the console.
func (e *Engine) launch(ctx context.Context, name string, req agent.Request) *future {
	f := &future{done: make(chan struct{})}
	if e.players[name].Interactive() {
		f.res = e.produce(ctx, name, req)
		close(f.done)
		return f
	}
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		f.res = e.produce(ctx, name, req)
		close(f.done)
	}()
	return f
}

// sequence runs turns one after another. While turn i is narrated, turn i+1
// is already being generated from a snapshot that includes turn i. prepare
// runs on the engine goroutine and builds the request; handle merges the
// result and returns the playback to overlap with.
func (e *Engine) sequence(ctx context.Context, names []string,
	prepare func(name string) agent.Request,
	handle func(res turnResult) *narration.Playback,
) error {
	var pending *future
	for i, name := range names {
		if err := e.opts.Gate.Wait(ctx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if pending == nil {
			pending = e.launch(ctx, name, prepare(name))
		}
		res := pending.await()
		pending = nil
		pb := handle(res)

		if i+1 < len(names) && !e.players[names[i+1]].Interactive() {
			pending = e.launch(ctx, names[i+1], prepare(names[i+1]))
		}
		if err := pb.Wait(); err != nil {
			logging.Get(logging.CategoryNarration).Debug("playback: %v", err)
		}
	}
	return nil
}

// collect runs one turn per player concurrently with at most limit workers
// and returns results in the order of names. Requests are built up front so
// every player sees the same snapshot. Interactive players answer first.
func (e *Engine) collect(ctx context.Context, names []string, limit int, build func(name string) agent.Request) ([]turnResult, error) {
	if err := e.opts.Gate.Wait(ctx); err != nil {
		return nil, err
	}
	reqs := make(map[string]agent.Request, len(names))
	for _, name := range names {
		reqs[name] = build(name)
	}

	byName := make(map[string]turnResult, len(names))
	for _, name := range names {
		if e.players[name].Interactive() {
			byName[name] = e.produce(ctx, name, reqs[name])
		}
	}

	results := make(chan turnResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, name := range names {
		if e.players[name].Interactive() {
			continue
		}
		g.Go(func() error {
			results <- e.produce(gctx, name, reqs[name])
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	for r := range results {
		byName[r.name] = r
	}

	out := make([]turnResult, len(names))
	for i, name := range names {
		out[i] = byName[name]
	}
	return out, ctx.Err()
}

// absorb merges a result's bookkeeping into the state: retry failures,
// terminal failure and strategy memo. It returns the output to act on and
// whether the turn succeeded.
func (e *Engine) absorb(res turnResult, vis game.Visibility) (turnparse.Output, bool) {
	for i, f := range res.resp.Failures {
		e.log(vis, res.name, "retry", fmt.Sprintf("attempt %d failed: %s", i+1, describeFailure(f)))
	}
	if res.err != nil {
		e.failures++
		logging.Get(logging.CategoryEngine).Warn("%s failed to act in %s: %v", res.name, res.phase, res.err)
		e.log(vis, res.name, "failed", "failed to act")
		return turnparse.Output{}, false
	}
	out := res.resp.Output
	if out.Strategy != nil {
		e.state.SetStrategy(res.name, *out.Strategy)
	}
	return out, true
}

// describeFailure is the short, prompt-safe form of a turn error.
func describeFailure(err error) string {
	var pe *turnparse.ParseError
	var rl *perception.RateLimitError
	var pv *perception.ProviderError
	switch {
	case errors.As(err, &pe):
		return fmt.Sprintf("unreadable response (%s)", pe.Stage)
	case errors.As(err, &rl):
		return "rate limited"
	case errors.As(err, &pv):
		return fmt.Sprintf("provider error %d", pv.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	default:
		return "call failed"
	}
}

// request builds a turn request from the current state.
func (e *Engine) request(name string, phase game.Phase, candidates []string, note string) agent.Request {
	return agent.Request{
		View:       e.state.ViewFor(name),
		Phase:      phase,
		Candidates: candidates,
		Memory:     e.memories[name],
		Note:       note,
	}
}

// resolveVote maps a raw vote onto candidates. A mandatory vote that does
// not name a candidate falls back to the first candidate.
func resolveVote(raw string, candidates []string, mandatory bool) (target string, defaulted bool) {
	if name, ok := turnparse.ResolveVote(raw, candidates); ok {
		return name, false
	}
	if mandatory && len(candidates) > 0 {
		return candidates[0], true
	}
	return "", false
}
