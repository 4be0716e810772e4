package config

import "reflect"

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	RouterChanged bool
	NewRouter     RouterConfig

	DefaultsChanged bool
	NewDefaults     DefaultsConfig

	ParallelChanged bool
	NewParallel     bool

	// Non-reloadable fields that changed (log warnings only)
	NonReloadable []string
}

// HasChanges reports whether any reloadable field changed.
func (d *ConfigDiff) HasChanges() bool {
	return d.RouterChanged || d.DefaultsChanged || d.ParallelChanged
}

// Diff compares two configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	var d ConfigDiff

	if !reflect.DeepEqual(old.Router, new.Router) {
		d.RouterChanged = true
		d.NewRouter = new.Router
	}

	if !reflect.DeepEqual(old.Defaults, new.Defaults) {
		d.DefaultsChanged = true
		d.NewDefaults = new.Defaults
	}

	if old.Orchestrator.Parallel != new.Orchestrator.Parallel {
		d.ParallelChanged = true
		d.NewParallel = new.Orchestrator.Parallel
	}

	// Non-reloadable warnings
	if old.Store.Path != new.Store.Path {
		d.NonReloadable = append(d.NonReloadable, "store.path")
	}
	if old.Store.Retention != new.Store.Retention || old.Store.PruneSchedule != new.Store.PruneSchedule {
		d.NonReloadable = append(d.NonReloadable, "store.retention")
	}
	if old.Telegram.Token != new.Telegram.Token {
		d.NonReloadable = append(d.NonReloadable, "telegram.token")
	}
	if old.Web.Port != new.Web.Port {
		d.NonReloadable = append(d.NonReloadable, "web.port")
	}
	if old.NATS.Port != new.NATS.Port {
		d.NonReloadable = append(d.NonReloadable, "nats.port")
	}
	if old.NATS.DataDir != new.NATS.DataDir {
		d.NonReloadable = append(d.NonReloadable, "nats.data_dir")
	}

	return d
}
