package bridge

import "log/slog"

// errHook lets callers observe transport failures from contexts (pin
// writes, timer fires) that have no error return of their own. Defaults
// to logging; the `bench` command (internal/cli) replaces it with
// telemetry.LogDisconnect, which also only logs.
var errHook = func(err error) { slog.Warn("bridge transport error", "err", err) }

// OnError overrides the package's transport-error hook.
func OnError(hook func(error)) {
	if hook == nil {
		hook = func(error) {}
	}
	errHook = hook
}

func logBridgeErr(err error) {
	errHook(err)
}
