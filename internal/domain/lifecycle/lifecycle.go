// Package lifecycle holds shared bounds for startup and shutdown hooks.
package lifecycle

import "time"

// DefaultTimeout bounds a single OnStart or OnStop hook.
const DefaultTimeout = 15 * time.Second
