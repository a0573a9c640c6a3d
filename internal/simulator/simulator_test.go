package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/mraidhost/internal/config"
	"github.com/xkilldash9x/mraidhost/internal/loop"
	"github.com/xkilldash9x/mraidhost/internal/mraid"
	"github.com/xkilldash9x/mraidhost/internal/surface/scripted"
)

const expandOnReady = `<html><body><script>
	mraid.addEventListener("ready", function () {
		console.log("ready in", mraid.getState());
		mraid.expand();
	});
</script></body></html>`

const expandLater = `<html><body><script>
	mraid.addEventListener("ready", function () {
		setTimeout(function () { mraid.expand(); }, 1000);
	});
</script></body></html>`

const leaveAd = `<html><body><script>
	mraid.addEventListener("ready", function () {
		alert("hello");
		mraid.open("https://example.com/landing");
		mraid.playVideo("https://example.com/clip.mp4");
	});
</script></body></html>`

// creatives serves fixed markup by name.
func creatives(docs map[string]string) scripted.Fetcher {
	return scripted.FetcherFunc(func(_ context.Context, name string) (string, error) {
		doc, ok := docs[name]
		if !ok {
			return "", errors.New("not found: " + name)
		}
		return doc, nil
	})
}

func newTestEnvironment(t *testing.T, mutate func(*config.Config)) (*Environment, *loop.Queue) {
	t.Helper()
	cfg := config.NewDefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	q := loop.NewQueue()
	logger := zaptest.NewLogger(t)
	factory := scripted.NewFactory(q, logger, scripted.Options{})
	env, err := NewEnvironment(cfg, q, factory, logger)
	require.NoError(t, err)
	return env, q
}

func parse(t *testing.T, doc string) *Scenario {
	t.Helper()
	sc, err := ParseScenario(strings.NewReader(doc))
	require.NoError(t, err)
	return sc
}

func TestNewEnvironmentLayout(t *testing.T) {
	t.Run("inline ads occupy the slot", func(t *testing.T) {
		env, q := newTestEnvironment(t, func(c *config.Config) {
			c.AdCfg.Slot = config.SlotConfig{X: 10, Y: 20, Width: 320, Height: 50}
		})
		require.NoError(t, q.RunUntilIdle())

		assert.Equal(t, 72, env.Window.Bounds().Y, "the window starts below the status bar")
		frame := env.Controller.AdContainer().Frame()
		assert.Equal(t, 960, frame.Width)
		assert.Equal(t, 150, frame.Height)
	})

	t.Run("interstitials fill the window", func(t *testing.T) {
		env, q := newTestEnvironment(t, func(c *config.Config) { c.AdCfg.Placement = "interstitial" })
		require.NoError(t, q.RunUntilIdle())

		assert.Equal(t, mraid.PlacementInterstitial, env.Controller.Placement())
		assert.Equal(t, env.Window.Bounds(), env.Controller.AdContainer().Frame())
	})

	t.Run("initial rotation is applied", func(t *testing.T) {
		env, _ := newTestEnvironment(t, func(c *config.Config) { c.DeviceCfg.Rotation = 1 })
		m := env.Device.DisplayMetrics()
		assert.Equal(t, 1920, m.WidthPixels)
		assert.Equal(t, 1080, m.HeightPixels)
	})

	t.Run("bad orientation is rejected", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cfg.ActivityCfg.ScreenOrientation = "sideways"
		q := loop.NewQueue()
		_, err := NewEnvironment(cfg, q, scripted.NewFactory(q, nil, scripted.Options{}), nil)
		assert.Error(t, err)
	})
}

func TestScenarioExpandThenTapClose(t *testing.T) {
	env, q := newTestEnvironment(t, nil)
	sc := parse(t, `
name: expand and close
steps:
  - note: creative expands once ready
    load: expand.html
    expect_state: expanded
  - tap_close: true
    expect_state: default
`)
	require.NoError(t, sc.Run(context.Background(), env, QueueDriver{Queue: q}, creatives(map[string]string{"expand.html": expandOnReady})))

	want := []string{"listener:use_custom_close", "listener:loaded", "listener:expand", "listener:close"}
	if diff := cmp.Diff(want, env.Transcript.Events(KindListener)); diff != "" {
		t.Errorf("listener events mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"state:expanded", "state:default"}, env.Transcript.Events(KindState))
	assert.Equal(t, []string{"expect:state", "expect:state"}, env.Transcript.Events(KindExpect))
	assert.Contains(t, env.Transcript.Events(KindConsole), "console:log")
	assert.False(t, env.Controller.CloseableContainer().IsShown())
}

func TestScenarioExternalScriptsUnderQueue(t *testing.T) {
	cfg := config.NewDefaultConfig()
	q := loop.NewQueue()
	logger := zaptest.NewLogger(t)
	var fetched []string
	scripts := scripted.FetcherFunc(func(_ context.Context, ref string) (string, error) {
		fetched = append(fetched, ref)
		if ref == "tracker.js" {
			return `var tracked = true;`, nil
		}
		return "", errors.New("not found: " + ref)
	})
	factory := scripted.NewFactory(q, logger, scripted.Options{Fetcher: scripts})
	env, err := NewEnvironment(cfg, q, factory, logger)
	require.NoError(t, err)

	markup := `<html><head><script src="mraid.js"></script><script src="tracker.js"></script></head>
<body><script>
	mraid.addEventListener("ready", function () {
		if (tracked) { mraid.expand(); }
	});
</script></body></html>`
	sc := parse(t, `
steps:
  - load: banner.html
    expect_state: expanded
`)
	require.NoError(t, sc.Run(context.Background(), env, QueueDriver{Queue: q}, creatives(map[string]string{"banner.html": markup})))

	assert.NotContains(t, fetched, "mraid.js")
	assert.NotContains(t, env.Transcript.Events(KindConsole), "console:error")
	assert.Contains(t, env.Transcript.Events(KindListener), "listener:expand")
}

func TestScenarioBackClosesExpandedAd(t *testing.T) {
	env, q := newTestEnvironment(t, nil)
	sc := parse(t, `
steps:
  - load: expand.html
  - back: true
    expect_state: default
  - back: true
    expect_state: default
`)
	require.NoError(t, sc.Run(context.Background(), env, QueueDriver{Queue: q}, creatives(map[string]string{"expand.html": expandOnReady})))

	var backs []string
	for _, e := range env.Transcript.Entries() {
		if e.Kind == KindHost && e.Event == "back" {
			backs = append(backs, e.Detail)
		}
	}
	assert.Equal(t, []string{"handled=true", "handled=false"}, backs)
}

func TestScenarioAdvanceRunsTimers(t *testing.T) {
	env, q := newTestEnvironment(t, nil)
	sc := parse(t, `
steps:
  - load: later.html
    advance: 500ms
    expect_state: default
  - advance: 600ms
    expect_state: expanded
`)
	require.NoError(t, sc.Run(context.Background(), env, QueueDriver{Queue: q}, creatives(map[string]string{"later.html": expandLater})))
	assert.Equal(t, 1100*time.Millisecond, q.Now())
}

func TestScenarioPausedTimersWaitForResume(t *testing.T) {
	env, q := newTestEnvironment(t, nil)
	sc := parse(t, `
steps:
  - load: later.html
  - pause: true
    advance: 2s
    expect_state: default
  - resume: true
    advance: 1s
    expect_state: expanded
`)
	require.NoError(t, sc.Run(context.Background(), env, QueueDriver{Queue: q}, creatives(map[string]string{"later.html": expandLater})))
	assert.True(t, env.Controller.ViewState() == mraid.ViewStateExpanded)
}

func TestScenarioFailedExpectation(t *testing.T) {
	env, q := newTestEnvironment(t, nil)
	sc := parse(t, `
steps:
  - load: later.html
    expect_state: resized
  - note: never reached
`)
	err := sc.Run(context.Background(), env, QueueDriver{Queue: q}, creatives(map[string]string{"later.html": expandLater}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExpectation))
	assert.Contains(t, err.Error(), "step 1")

	entries := env.Transcript.Entries()
	last := entries[len(entries)-1]
	assert.Equal(t, KindExpect, last.Kind)
	assert.Equal(t, "want resized, got default", last.Detail)
	for _, e := range entries {
		assert.NotEqual(t, "never reached", e.Detail)
	}
}

func TestScenarioEvalAndRotate(t *testing.T) {
	env, q := newTestEnvironment(t, nil)
	sc := parse(t, `
steps:
  - html: "<html><body></body></html>"
  - eval: console.warn("from the host")
    surface: primary
  - rotate: 1
  - eval: mraid.close()
    expect_state: hidden
`)
	require.NoError(t, sc.Run(context.Background(), env, QueueDriver{Queue: q}, nil))

	assert.Contains(t, env.Transcript.Events(KindConsole), "console:warn")
	assert.Contains(t, env.Transcript.Events(KindHost), "host:rotate")
	assert.Equal(t, 1920, env.Device.DisplayMetrics().WidthPixels)
	assert.Equal(t, 1920, env.Window.Bounds().Width, "the window follows the display")
	assert.Equal(t, []string{"listener:close"}, filterEvents(env.Transcript.Events(KindListener), "listener:close"))
}

func TestScenarioLeavingTheAd(t *testing.T) {
	env, q := newTestEnvironment(t, nil)
	sc := parse(t, `
steps:
  - load: leave.html
  - destroy: true
`)
	require.NoError(t, sc.Run(context.Background(), env, QueueDriver{Queue: q}, creatives(map[string]string{"leave.html": leaveAd})))

	events := env.Transcript.Events(KindAlert, KindOpen, KindVideo)
	assert.Equal(t, []string{"alert:alert", "open:url", "video:play"}, events)
	assert.Contains(t, env.Transcript.Events(KindListener), "listener:open")
	assert.Contains(t, env.Transcript.Events(KindHost), "host:destroy")
	_, held := env.Handle.Resolve()
	assert.False(t, held, "destroy releases the activity")
}

func TestEnvironmentEvalErrors(t *testing.T) {
	env, _ := newTestEnvironment(t, nil)
	assert.ErrorContains(t, env.Eval("sidebar", "1"), `unknown surface "sidebar"`)
	assert.ErrorContains(t, env.Eval("two_part", "1"), "no two_part surface")
}

func TestScenarioValidation(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"empty step", "steps:\n  - {}\n", "step 1 does nothing"},
		{"unknown key", "steps:\n  - tapp: true\n", "field tapp not found"},
		{"load and html", "steps:\n  - load: a.html\n    html: <p>\n", "sets both load and html"},
		{"rotation", "steps:\n  - rotate: 4\n", "rotate must be between 0 and 3"},
		{"finishing without pause", "steps:\n  - finishing: true\n", "finishing only applies to pause"},
		{"surface without eval", "steps:\n  - surface: primary\n", "surface only applies to eval"},
		{"negative advance", "steps:\n  - advance: -1s\n", "advance must not be negative"},
		{"finishing with a later step", "steps:\n  - note: x\n  - finishing: true\n", "step 2: finishing only applies to pause"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("modifiers with their action", func(t *testing.T) {
		sc := parse(t, "steps:\n  - pause: true\n    finishing: true\n  - eval: x()\n    surface: two_part\n")
		assert.Len(t, sc.Steps, 2)
	})
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "close.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - tap_close: true\n"), 0o600))

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, path, sc.Name, "the file name stands in for a missing name")
	require.Len(t, sc.Steps, 1)
	assert.True(t, sc.Steps[0].TapClose)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "opening scenario")
}

func TestTranscriptOutput(t *testing.T) {
	tr := NewTranscript()
	var live []Entry
	tr.OnRecord(func(e Entry) { live = append(live, e) })
	tr.Record(KindHost, "load", "42 bytes")
	tr.OnLoaded(nil)
	tr.OnResize(true)

	assert.Len(t, live, 3)
	assert.Equal(t, []string{"host:load"}, tr.Events(KindHost))
	assert.Equal(t, []string{"host:load", "listener:loaded", "listener:resize"}, tr.Events())

	var text bytes.Buffer
	require.NoError(t, tr.WriteText(&text))
	lines := strings.Split(strings.TrimRight(text.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "   1  host"))
	assert.Contains(t, lines[2], "to_original_size=true")

	var out bytes.Buffer
	require.NoError(t, tr.WriteJSON(&out))
	var decoded []Entry
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, tr.Entries(), decoded)

	out.Reset()
	require.NoError(t, NewTranscript().WriteJSON(&out))
	assert.Equal(t, "[]\n", out.String())
}

func filterEvents(events []string, want string) []string {
	var out []string
	for _, e := range events {
		if e == want {
			out = append(out, e)
		}
	}
	return out
}
