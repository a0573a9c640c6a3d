package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/mraidhost/internal/loop"
	"github.com/xkilldash9x/mraidhost/internal/surface/scripted"
)

// ErrExpectation is wrapped by every failed expect_state step.
var ErrExpectation = errors.New("expectation failed")

// Point is a screen position in dips.
type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Step is one scripted host action. Fields that are set run in a fixed
// order: note, load/html, rotate, tap, tap_close, back, eval, pause, resume,
// show, destroy. The loop then settles, advance moves the clock, and
// expect_state is checked last.
type Step struct {
	Note        string        `yaml:"note"`
	Load        string        `yaml:"load"`
	HTML        string        `yaml:"html"`
	Rotate      *int          `yaml:"rotate"`
	Tap         *Point        `yaml:"tap"`
	TapClose    bool          `yaml:"tap_close"`
	Back        bool          `yaml:"back"`
	Eval        string        `yaml:"eval"`
	Surface     string        `yaml:"surface"`
	Pause       bool          `yaml:"pause"`
	Finishing   bool          `yaml:"finishing"`
	Resume      bool          `yaml:"resume"`
	Show        bool          `yaml:"show"`
	Destroy     bool          `yaml:"destroy"`
	Advance     time.Duration `yaml:"advance"`
	ExpectState string        `yaml:"expect_state"`
}

func (s Step) empty() bool {
	return s.Note == "" && s.Load == "" && s.HTML == "" && s.Rotate == nil && s.Tap == nil &&
		!s.TapClose && !s.Back && s.Eval == "" && !s.Pause && !s.Resume && !s.Show &&
		!s.Destroy && s.Advance == 0 && s.ExpectState == ""
}

// Scenario is a named list of steps, usually read from YAML.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// ParseScenario decodes a scenario. Unknown keys are rejected so typos do not
// silently turn into no-ops.
func ParseScenario(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadScenario reads a scenario file. A leading ~ is expanded.
func LoadScenario(path string) (*Scenario, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expanding scenario path: %w", err)
	}
	f, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("opening scenario: %w", err)
	}
	defer f.Close()
	sc, err := ParseScenario(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = path
	}
	return sc, nil
}

// Validate checks every step before anything runs.
func (sc *Scenario) Validate() error {
	for i, s := range sc.Steps {
		n := i + 1
		switch {
		case s.Finishing && !s.Pause:
			return fmt.Errorf("step %d: finishing only applies to pause", n)
		case s.Surface != "" && s.Eval == "":
			return fmt.Errorf("step %d: surface only applies to eval", n)
		case s.empty():
			return fmt.Errorf("step %d does nothing", n)
		case s.Load != "" && s.HTML != "":
			return fmt.Errorf("step %d sets both load and html", n)
		case s.Rotate != nil && (*s.Rotate < 0 || *s.Rotate > 3):
			return fmt.Errorf("step %d: rotate must be between 0 and 3", n)
		case s.Advance < 0:
			return fmt.Errorf("step %d: advance must not be negative", n)
		}
	}
	return nil
}

// Driver moves the loop between steps.
type Driver interface {
	// Do runs fn on the loop and returns its error.
	Do(fn func() error) error
	// Settle lets work posted by the last action finish.
	Settle() error
	// Advance lets d of loop time pass.
	Advance(d time.Duration) error
}

// QueueDriver drives a deterministic queue owned by the calling goroutine.
type QueueDriver struct {
	Queue *loop.Queue
}

func (d QueueDriver) Do(fn func() error) error      { return fn() }
func (d QueueDriver) Settle() error                 { return d.Queue.RunUntilIdle() }
func (d QueueDriver) Advance(t time.Duration) error { return d.Queue.Advance(t) }

// LiveDriver drives a running event loop in wall-clock time.
type LiveDriver struct {
	Ctx  context.Context
	Loop *loop.EventLoop
	// SettleTime is how long to wait after each action for asynchronous
	// rendering work, such as a browser round trip, to land.
	SettleTime time.Duration
}

func (d LiveDriver) Do(fn func() error) error {
	result := make(chan error, 1)
	d.Loop.Post(func() { result <- fn() })
	select {
	case err := <-result:
		return err
	case <-d.Ctx.Done():
		return d.Ctx.Err()
	}
}

func (d LiveDriver) Settle() error { return d.sleepThenSync(d.SettleTime) }

func (d LiveDriver) Advance(t time.Duration) error { return d.sleepThenSync(t) }

func (d LiveDriver) sleepThenSync(t time.Duration) error {
	if t > 0 {
		timer := time.NewTimer(t)
		select {
		case <-timer.C:
		case <-d.Ctx.Done():
			timer.Stop()
			return d.Ctx.Err()
		}
	}
	return d.Loop.Sync(d.Ctx)
}

// Run executes the scenario against env. It stops at the first failing
// step; a failed expectation is recorded in the transcript and wraps
// ErrExpectation.
func (sc *Scenario) Run(ctx context.Context, env *Environment, d Driver, fetcher scripted.Fetcher) error {
	if fetcher == nil {
		fetcher = scripted.DefaultFetcher()
	}
	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sc.runStep(ctx, env, d, fetcher, step); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func (sc *Scenario) runStep(ctx context.Context, env *Environment, d Driver, fetcher scripted.Fetcher, step Step) error {
	markup := step.HTML
	if step.Load != "" {
		var err error
		if markup, err = fetcher.Fetch(ctx, step.Load); err != nil {
			return fmt.Errorf("reading creative %s: %w", step.Load, err)
		}
	}

	err := d.Do(func() error {
		if step.Note != "" {
			env.Transcript.Record(KindHost, "note", step.Note)
		}
		if markup != "" {
			if err := env.Load(markup); err != nil {
				return err
			}
		}
		if step.Rotate != nil {
			if err := env.Rotate(*step.Rotate); err != nil {
				return err
			}
		}
		if step.Tap != nil {
			env.Tap(step.Tap.X, step.Tap.Y)
		}
		if step.TapClose {
			env.TapClose()
		}
		if step.Back {
			env.Back()
		}
		if step.Eval != "" {
			if err := env.Eval(step.Surface, step.Eval); err != nil {
				return err
			}
		}
		if step.Pause {
			env.Pause(step.Finishing)
		}
		if step.Resume {
			env.Resume()
		}
		if step.Show {
			env.Controller.OnShow(env.Handle)
			env.Transcript.Record(KindHost, "show", "")
		}
		if step.Destroy {
			return env.Destroy()
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := d.Settle(); err != nil {
		return err
	}
	if step.Advance > 0 {
		if err := d.Advance(step.Advance); err != nil {
			return err
		}
	}

	return d.Do(func() error {
		env.SyncState()
		if step.ExpectState == "" {
			return nil
		}
		got := env.Controller.ViewState().String()
		want := strings.ToLower(step.ExpectState)
		if got == want {
			env.Transcript.Record(KindExpect, "state", "ok "+got)
			return nil
		}
		env.Transcript.Record(KindExpect, "state", fmt.Sprintf("want %s, got %s", want, got))
		return fmt.Errorf("%w: view state is %s, want %s", ErrExpectation, got, want)
	})
}
