package simulator

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/mraidhost/internal/mraid"
	"github.com/xkilldash9x/mraidhost/internal/view"
)

// Entry kinds.
const (
	KindHost     = "host"
	KindListener = "listener"
	KindState    = "state"
	KindConsole  = "console"
	KindAlert    = "alert"
	KindOpen     = "open"
	KindVideo    = "video"
	KindExpect   = "expect"
)

// Entry is one observation.
type Entry struct {
	Seq    int    `json:"seq"`
	Kind   string `json:"kind"`
	Event  string `json:"event"`
	Detail string `json:"detail,omitempty"`
}

// Transcript records everything an embedding application would see from the
// controller. It is the controller's listener, custom close listener, debug
// listener, URL opener and video launcher at once.
type Transcript struct {
	mu       sync.Mutex
	entries  []Entry
	onRecord func(Entry)
}

var (
	_ mraid.Listener               = (*Transcript)(nil)
	_ mraid.UseCustomCloseListener = (*Transcript)(nil)
	_ mraid.DebugListener          = (*Transcript)(nil)
)

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript { return &Transcript{} }

// OnRecord installs a hook that sees every entry as it is recorded.
func (t *Transcript) OnRecord(fn func(Entry)) {
	t.mu.Lock()
	t.onRecord = fn
	t.mu.Unlock()
}

// Record appends an entry.
func (t *Transcript) Record(kind, event, detail string) {
	t.mu.Lock()
	e := Entry{Seq: len(t.entries) + 1, Kind: kind, Event: event, Detail: detail}
	t.entries = append(t.entries, e)
	hook := t.onRecord
	t.mu.Unlock()
	if hook != nil {
		hook(e)
	}
}

// Entries returns a copy of the recorded entries.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Events returns "kind:event" for every entry of the given kinds, or of all
// kinds when none are given.
func (t *Transcript) Events(kinds ...string) []string {
	want := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []string
	for _, e := range t.Entries() {
		if len(want) == 0 || want[e.Kind] {
			out = append(out, e.Kind+":"+e.Event)
		}
	}
	return out
}

// WriteText prints the transcript as aligned columns.
func (t *Transcript) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range t.Entries() {
		if _, err := fmt.Fprintf(tw, "%4d\t%s\t%s\t%s\n", e.Seq, e.Kind, e.Event, e.Detail); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteJSON prints the transcript as an indented JSON array.
func (t *Transcript) WriteJSON(w io.Writer) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")
	entries := t.Entries()
	if entries == nil {
		entries = []Entry{}
	}
	return enc.Encode(entries)
}

// -- mraid.Listener --

func (t *Transcript) OnLoaded(container view.View) {
	detail := ""
	if g, ok := container.(*view.Group); ok {
		detail = fmt.Sprintf("%dx%d px", g.Width(), g.Height())
	}
	t.Record(KindListener, "loaded", detail)
}

func (t *Transcript) OnFailedToLoad() { t.Record(KindListener, "failed_to_load", "") }
func (t *Transcript) OnExpand()       { t.Record(KindListener, "expand", "") }
func (t *Transcript) OnOpen()         { t.Record(KindListener, "open", "") }
func (t *Transcript) OnClose()        { t.Record(KindListener, "close", "") }

func (t *Transcript) OnResize(toOriginalSize bool) {
	t.Record(KindListener, "resize", fmt.Sprintf("to_original_size=%t", toOriginalSize))
}

// -- mraid.UseCustomCloseListener --

func (t *Transcript) UseCustomCloseChanged(useCustomClose bool) {
	t.Record(KindListener, "use_custom_close", fmt.Sprintf("%t", useCustomClose))
}

// -- mraid.DebugListener --

func (t *Transcript) OnConsoleMessage(msg mraid.ConsoleMessage) bool {
	t.Record(KindConsole, msg.Level, msg.Message)
	return true
}

func (t *Transcript) OnJsAlert(message string, result mraid.JsResult) bool {
	t.Record(KindAlert, "alert", message)
	result.Confirm()
	return true
}

// -- host.URLOpener and host.VideoLauncher --

func (t *Transcript) OpenURL(url string) error {
	t.Record(KindOpen, "url", url)
	return nil
}

func (t *Transcript) PlayVideo(url string) error {
	t.Record(KindVideo, "play", url)
	return nil
}
