package runner

import (
	"context"
	"time"

	"volley/internal/progress"
	"volley/internal/rules"
	"volley/internal/sink"
	"volley/internal/stats"
	"volley/internal/token"
	"volley/internal/transport"
)

// Runner drives the request loop: loops x payloads, one outstanding request
// at a time. The next iteration starts only after the current attempt
// (including any auth retry) has finished and the pacing delay has elapsed.
type Runner struct {
	Cfg    Config
	Stats  *stats.Stats
	client transport.Client
	tokens *token.Manager
	rep    progress.Reporter
	tmpl   *TemplateEngine
}

// Option tweaks a Runner at construction. Used by the CLI/TUI wiring and by
// tests to swap the transport.
type Option func(*Runner)

func WithClient(c transport.Client) Option {
	return func(r *Runner) {
		r.client = c
		if r.Cfg.Token != nil {
			r.tokens = token.NewManager(c, *r.Cfg.Token)
		}
	}
}

func WithReporter(rep progress.Reporter) Option {
	return func(r *Runner) { r.rep = rep }
}

func NewRunner(cfg Config, opts ...Option) *Runner {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if cfg.TimeoutSec == 0 {
		timeout = 30 * time.Second
	}
	client := transport.Client(transport.NewHTTPClient(timeout, cfg.VerifySSL))

	r := &Runner{
		Cfg:    cfg,
		Stats:  stats.NewStats(),
		client: client,
		rep:    progress.Nop{},
		tmpl:   NewTemplateEngine(),
	}
	if cfg.Token != nil {
		r.tokens = token.NewManager(client, *cfg.Token)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the full simulation and returns its summary. A failed request
// never aborts the run; it is counted and the loop advances. The returned
// error is only non-nil when the context is cancelled mid-run.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	payloads := r.Cfg.Payloads
	if len(payloads) == 0 {
		payloads = []any{nil}
	}
	total := r.Cfg.Loops * len(payloads)

	out := sink.New(r.Cfg.AppendLogs)
	defer out.CloseAll()

	sum := &Summary{}
	start := time.Now()
	seq := 0

	for loop := 0; loop < r.Cfg.Loops; loop++ {
		for _, payload := range payloads {
			seq++
			r.attempt(ctx, seq, loop, payload, out, sum)
			r.rep.Report(progress.State{
				Done:      seq,
				Total:     total,
				Completed: sum.Completed,
				Failed:    sum.Failed,
			})

			if seq < total && r.Cfg.SleepTime > 0 {
				select {
				case <-ctx.Done():
					sum.Elapsed = time.Since(start)
					return sum, ctx.Err()
				case <-time.After(r.Cfg.SleepTime):
				}
			}
		}
	}

	if total == 0 {
		r.rep.Report(progress.State{Done: 0, Total: 0})
	}

	if err := out.CloseAll(); err != nil {
		sum.OutputErrors++
	}
	sum.Elapsed = time.Since(start)
	return sum, nil
}

// attempt performs one top-level request, with at most Cfg.AuthRetries
// refresh+retry rounds when the response is a 401-class signal.
func (r *Runner) attempt(ctx context.Context, seq, loop int, payload any, out *sink.Sink, sum *Summary) {
	body := payload
	if body != nil {
		body = r.tmpl.ExpandPayload(body, TemplateData{Seq: seq, Loop: loop})
	}

	attemptStart := time.Now()
	resp, err := r.send(ctx, body)

	retries := 0
	for r.tokens != nil && isAuthFailure(resp, err) && retries < r.authRetries() {
		retries++
		sum.Refreshes++
		r.Stats.AddRefresh()
		if rerr := r.tokens.Refresh(ctx); rerr != nil {
			sum.RefreshFailures++
			break
		}
		resp, err = r.send(ctx, body)
	}
	latency := time.Since(attemptStart)

	failed := false
	switch {
	case err != nil:
		failed = true
		sum.TransportErrors++
	case r.tokens != nil && isAuthFailure(resp, nil):
		// Still unauthorized after the retry budget.
		failed = true
		sum.AuthFailures++
	}

	if resp != nil {
		rec := rules.Record{
			Seq:     seq,
			Method:  r.Cfg.Method,
			URL:     r.Cfg.URL,
			Payload: body,
			Status:  resp.Status,
			Headers: resp.Headers,
			Body:    string(resp.Body),
		}
		if r.Cfg.SaveOutput {
			if werr := out.Write(r.Cfg.OutputFile, rec); werr != nil {
				sum.OutputErrors++
			}
		}
		for _, m := range rules.Classify(rec, r.Cfg.Conditions) {
			if !m.Matched {
				continue
			}
			if werr := out.Write(m.Rule.OutputFile, rec); werr != nil {
				sum.OutputErrors++
			}
		}
	}

	r.Stats.AddAttempt(failed, latency.Microseconds())
	sum.Attempts++
	if failed {
		sum.Failed++
	} else {
		sum.Completed++
	}
}

func (r *Runner) send(ctx context.Context, body any) (*transport.Response, error) {
	headers := make(map[string]string, len(r.Cfg.Headers)+1)
	for k, v := range r.Cfg.Headers {
		headers[k] = v
	}
	if r.tokens != nil {
		if key, value, ok := r.tokens.HeaderValue(); ok {
			headers[key] = value
		}
	}

	return r.client.Do(ctx, transport.Request{
		Method:  r.Cfg.Method,
		URL:     r.Cfg.URL,
		Headers: headers,
		Query:   r.Cfg.Params,
		Body:    body,
	})
}

func (r *Runner) authRetries() int {
	if r.Cfg.AuthRetries > 0 {
		return r.Cfg.AuthRetries
	}
	return 1
}

// isAuthFailure reports a 401-class signal: an HTTP 401, or a transport error
// explicitly tagged unauthorized.
func isAuthFailure(resp *transport.Response, err error) bool {
	if resp != nil {
		return resp.Status == 401
	}
	if terr, ok := err.(*transport.Error); ok {
		return terr.Unauthorized()
	}
	return false
}
