// internal/surface/scripted/runtime.go
package scripted

import (
	"strings"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/xkilldash9x/mraidhost/internal/mraid/mraidjs"
)

// dialogResult answers alert() on behalf of the page. goja runs alert
// synchronously, so the answer only affects logging.
type dialogResult struct {
	confirmed bool
	cancelled bool
}

func (r *dialogResult) Confirm() { r.confirmed = true }
func (r *dialogResult) Cancel()  { r.cancelled = true }

// newRuntime builds a fresh VM for one page. Every native closes over gen so
// that work scheduled by an old page is dropped once a new one loads.
func (s *Surface) newRuntime(gen uint64) *goja.Runtime {
	vm := goja.New()
	global := vm.GlobalObject()

	set := func(obj *goja.Object, name string, v any) {
		if err := obj.Set(name, v); err != nil {
			s.logger.Error("Failed to install page global.", zap.String("name", name), zap.Error(err))
		}
	}

	set(global, "window", global)
	set(global, "self", global)
	set(global, "top", global)

	s.installConsole(vm, set)
	s.installTimers(vm, gen, set)
	s.installLocation(vm, gen, set)
	s.installScreen(vm, set)

	set(global, "alert", func(call goja.FunctionCall) goja.Value {
		message := call.Argument(0).String()
		result := &dialogResult{}
		if s.client == nil || !s.client.OnJsAlert(message, result) {
			s.logger.Info("[JS Alert]", zap.String("message", message))
		}
		return goja.Undefined()
	})

	set(global, mraidjs.NativeCallFunction, func(call goja.FunctionCall) goja.Value {
		s.navigate(gen, call.Argument(0).String())
		return goja.Undefined()
	})
	return vm
}

func (s *Surface) installConsole(vm *goja.Runtime, set func(*goja.Object, string, any)) {
	console := vm.NewObject()
	logFunc := func(level string) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			args := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				args[i] = stringify(vm, arg)
			}
			s.reportConsole(level, strings.Join(args, " "), s.url, 0)
			return goja.Undefined()
		}
	}
	set(console, "log", logFunc("log"))
	set(console, "info", logFunc("info"))
	set(console, "warn", logFunc("warn"))
	set(console, "error", logFunc("error"))
	set(console, "debug", logFunc("debug"))
	set(vm.GlobalObject(), "console", console)
}

// stringify renders objects as JSON the way browser consoles roughly do.
func stringify(vm *goja.Runtime, v goja.Value) string {
	if _, isObj := v.(*goja.Object); !isObj {
		return v.String()
	}
	if _, isFn := goja.AssertFunction(v); isFn {
		return v.String()
	}
	jsJSON := vm.Get("JSON")
	if jsJSON == nil || goja.IsUndefined(jsJSON) {
		return v.String()
	}
	if fn, ok := goja.AssertFunction(jsJSON.ToObject(vm).Get("stringify")); ok {
		if out, err := fn(goja.Undefined(), v); err == nil && !goja.IsUndefined(out) {
			return out.String()
		}
	}
	return v.String()
}

func (s *Surface) installTimers(vm *goja.Runtime, gen uint64, set func(*goja.Object, string, any)) {
	schedule := func(call goja.FunctionCall, repeat bool) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			return vm.ToValue(0)
		}
		delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
		if delay < 0 {
			delay = 0
		}
		var args []goja.Value
		if len(call.Arguments) > 2 {
			args = append(args, call.Arguments[2:]...)
		}

		s.nextTimerID++
		id := s.nextTimerID
		var arm func()
		arm = func() {
			s.timers[id] = s.sched.AfterFunc(delay, func() {
				if !s.current(gen) {
					return
				}
				if _, live := s.timers[id]; !live {
					return
				}
				fire := func() {
					if !s.current(gen) {
						return
					}
					if repeat {
						if _, live := s.timers[id]; !live {
							return
						}
						arm()
					} else {
						delete(s.timers, id)
					}
					s.invoke(fn, args)
				}
				if s.paused {
					s.deferred = append(s.deferred, fire)
					return
				}
				fire()
			})
		}
		arm()
		return vm.ToValue(id)
	}

	cancelTimer := func(call goja.FunctionCall) goja.Value {
		id := call.Argument(0).ToInteger()
		if cancel, ok := s.timers[id]; ok {
			cancel()
			delete(s.timers, id)
		}
		return goja.Undefined()
	}

	global := vm.GlobalObject()
	set(global, "setTimeout", func(call goja.FunctionCall) goja.Value { return schedule(call, false) })
	set(global, "setInterval", func(call goja.FunctionCall) goja.Value { return schedule(call, true) })
	set(global, "clearTimeout", cancelTimer)
	set(global, "clearInterval", cancelTimer)
}

// installLocation provides location.href, assign, replace and window.open.
// All of them turn into navigations offered to the client.
func (s *Surface) installLocation(vm *goja.Runtime, gen uint64, set func(*goja.Object, string, any)) {
	location := vm.NewObject()
	nav := func(call goja.FunctionCall) goja.Value {
		s.navigate(gen, call.Argument(0).String())
		return goja.Undefined()
	}
	getter := vm.ToValue(func(goja.FunctionCall) goja.Value { return vm.ToValue(s.url) })
	setter := vm.ToValue(nav)
	if err := location.DefineAccessorProperty("href", getter, setter, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
		s.logger.Error("Failed to define location.href.", zap.Error(err))
	}
	set(location, "assign", nav)
	set(location, "replace", nav)
	set(location, "toString", func(goja.FunctionCall) goja.Value { return vm.ToValue(s.url) })

	global := vm.GlobalObject()
	set(global, "location", location)
	set(global, "open", func(call goja.FunctionCall) goja.Value {
		s.navigate(gen, call.Argument(0).String())
		return goja.Null()
	})
}

// installScreen exposes the device screen and the surface's viewport in
// dips. The viewport properties are live.
func (s *Surface) installScreen(vm *goja.Runtime, set func(*goja.Object, string, any)) {
	global := vm.GlobalObject()
	screen := vm.NewObject()
	if s.ctx != nil {
		dm := s.ctx.DisplayMetrics()
		set(screen, "width", dm.Density.PixelsToDips(dm.WidthPixels))
		set(screen, "height", dm.Density.PixelsToDips(dm.HeightPixels))
		set(global, "devicePixelRatio", float64(dm.Density))
	}
	set(global, "screen", screen)

	live := func(name string, fn func() int) {
		getter := vm.ToValue(func(goja.FunctionCall) goja.Value { return vm.ToValue(fn()) })
		if err := global.DefineAccessorProperty(name, getter, goja.Undefined(), goja.FLAG_TRUE, goja.FLAG_TRUE); err != nil {
			s.logger.Error("Failed to define viewport property.", zap.String("name", name), zap.Error(err))
		}
	}
	live("innerWidth", func() int { return s.frameDips().Width })
	live("innerHeight", func() int { return s.frameDips().Height })
}
