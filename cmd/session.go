package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/mraidhost/internal/config"
	"github.com/xkilldash9x/mraidhost/internal/loop"
	"github.com/xkilldash9x/mraidhost/internal/simulator"
	"github.com/xkilldash9x/mraidhost/internal/surface/chrome"
	"github.com/xkilldash9x/mraidhost/internal/surface/scripted"
)

// Transcript output formats.
const (
	formatText = "text"
	formatJSON = "json"
)

// sessionOptions describe one run of a creative.
type sessionOptions struct {
	scenario string
	// duration lets the ad run this long after the creative and scenario.
	duration time.Duration
	format   string
	output   string
	// live logs transcript entries as they happen.
	live bool
}

func (o sessionOptions) validate() error {
	if o.format != formatText && o.format != formatJSON {
		return fmt.Errorf("--format must be %s or %s, got %q", formatText, formatJSON, o.format)
	}
	if o.duration < 0 {
		return errors.New("--duration must not be negative")
	}
	return nil
}

// session is a hosted ad unit on one of the surface backends.
type session struct {
	env    *simulator.Environment
	driver simulator.Driver
	close  func()
}

// openSession builds the environment on the backend cfg selects: the
// scripted backend runs on a deterministic queue in virtual time, the chrome
// backend on a live event loop against a real browser.
func openSession(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*session, error) {
	if cfg.Surface().Kind == config.SurfaceChrome {
		return openChromeSession(ctx, cfg, logger)
	}

	q := loop.NewQueue()
	factory := scripted.NewFactory(q, logger, scripted.Options{ScriptTimeout: cfg.Surface().ScriptTimeout})
	env, err := simulator.NewEnvironment(cfg, q, factory, logger)
	if err != nil {
		return nil, err
	}
	return &session{env: env, driver: simulator.QueueDriver{Queue: q}, close: func() {}}, nil
}

func openChromeSession(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*session, error) {
	b := cfg.Browser()
	opts := chrome.DefaultBrowserOptions()
	opts.Headless = b.Headless
	opts.NoSandbox = b.NoSandbox
	opts.ExecPath = b.ExecPath
	opts.Flags = browserFlags(b.Args)

	browser, err := chrome.Launch(ctx, logger, opts)
	if err != nil {
		return nil, err
	}
	el := loop.NewEventLoop(logger)
	el.Start()
	closeAll := func() {
		el.Stop()
		if err := browser.Close(); err != nil {
			logger.Warn("Failed to close browser.", zap.Error(err))
		}
	}

	driver := simulator.LiveDriver{Ctx: ctx, Loop: el, SettleTime: b.SettleTime}
	factory := chrome.NewFactory(browser, el, logger, chrome.SurfaceOptions{
		LoadTimeout:   b.LoadTimeout,
		ScriptTimeout: cfg.Surface().ScriptTimeout,
	})
	var env *simulator.Environment
	err = driver.Do(func() error {
		var err error
		env, err = simulator.NewEnvironment(cfg, el, factory, logger)
		return err
	})
	if err != nil {
		closeAll()
		return nil, err
	}
	return &session{env: env, driver: driver, close: closeAll}, nil
}

// browserFlags turns "--name=value" and "--name" arguments into chromedp
// flags.
func browserFlags(args []string) map[string]any {
	flags := make(map[string]any, len(args))
	for _, arg := range args {
		arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
		if arg == "" {
			continue
		}
		if name, value, ok := strings.Cut(arg, "="); ok {
			flags[name] = value
			continue
		}
		flags[arg] = true
	}
	return flags
}

// run loads the creative, plays the scenario, lets the ad idle for the
// requested duration, and destroys it.
func (s *session) run(ctx context.Context, creative string, sc *simulator.Scenario, duration time.Duration) error {
	fetcher := scripted.DefaultFetcher()
	env := s.env

	if creative != "" {
		if err := s.driver.Do(func() error { return env.LoadCreative(ctx, creative, fetcher) }); err != nil {
			return err
		}
		if err := s.driver.Settle(); err != nil {
			return err
		}
		if err := s.driver.Do(func() error { env.SyncState(); return nil }); err != nil {
			return err
		}
	}

	if sc != nil {
		if err := sc.Run(ctx, env, s.driver, fetcher); err != nil {
			return fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
	}

	if duration > 0 {
		if err := s.driver.Advance(duration); err != nil {
			return err
		}
		if err := s.driver.Do(func() error { env.SyncState(); return nil }); err != nil {
			return err
		}
	}

	return s.driver.Do(env.Destroy)
}

// runSession is the body shared by simulate and preview. The transcript is
// written even when the run fails part way.
func runSession(ctx context.Context, cfg config.Interface, opts sessionOptions, stdout io.Writer, logger *zap.Logger) error {
	if err := opts.validate(); err != nil {
		return err
	}

	var sc *simulator.Scenario
	if opts.scenario != "" {
		var err error
		if sc, err = simulator.LoadScenario(opts.scenario); err != nil {
			return err
		}
	}
	creative := cfg.Ad().Creative
	if creative == "" && sc == nil {
		return errors.New("nothing to run: pass a creative, set ad.creative, or use --scenario")
	}

	s, err := openSession(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer s.close()

	if opts.live {
		s.env.Transcript.OnRecord(func(e simulator.Entry) {
			logger.Info("Observed.",
				zap.Int("seq", e.Seq),
				zap.String("kind", e.Kind),
				zap.String("event", e.Event),
				zap.String("detail", e.Detail))
		})
	}

	logger.Info("Running creative.",
		zap.String("creative", creative),
		zap.String("scenario", opts.scenario),
		zap.String("surface", cfg.Surface().Kind),
		zap.String("placement", cfg.Ad().Placement))
	runErr := s.run(ctx, creative, sc, opts.duration)

	return errors.Join(runErr, writeTranscript(s.env.Transcript, opts, stdout))
}

func writeTranscript(t *simulator.Transcript, opts sessionOptions, stdout io.Writer) error {
	w := stdout
	if opts.output != "" {
		path, err := homedir.Expand(opts.output)
		if err != nil {
			return fmt.Errorf("expanding output path: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating transcript file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if opts.format == formatJSON {
		return t.WriteJSON(w)
	}
	return t.WriteText(w)
}
