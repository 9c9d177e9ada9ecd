package config

import "reflect"

// ConfigDiff describes what changed between two configs.
//
// Only the log level is applied to a running process. The remaining flags are
// informational: every new document run takes a fresh snapshot of the config,
// so changed review, revision and output settings reach the next run on their
// own. Provider, history, batch and observe changes need a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ProviderChanged bool // provider or fallbacks
	ReviewChanged   bool
	RevisionChanged bool
	OutputChanged   bool
	HistoryChanged  bool
	BatchChanged    bool
	WatchChanged    bool
	ObserveChanged  bool
}

// Sections returns the YAML names of the changed sections in file order.
func (d ConfigDiff) Sections() []string {
	var out []string
	for _, s := range []struct {
		name    string
		changed bool
	}{
		{"log", d.LogLevelChanged},
		{"provider", d.ProviderChanged},
		{"review", d.ReviewChanged},
		{"revision", d.RevisionChanged},
		{"output", d.OutputChanged},
		{"history", d.HistoryChanged},
		{"batch", d.BatchChanged},
		{"watch", d.WatchChanged},
		{"observe", d.ObserveChanged},
	} {
		if s.changed {
			out = append(out, s.name)
		}
	}
	return out
}

// NeedsRestart reports whether a changed section is only read at startup.
func (d ConfigDiff) NeedsRestart() bool {
	return d.ProviderChanged || d.HistoryChanged || d.BatchChanged || d.ObserveChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Log.Level != new.Log.Level {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Log.Level
	}

	d.ProviderChanged = !reflect.DeepEqual(old.Provider, new.Provider) ||
		!reflect.DeepEqual(old.Fallbacks, new.Fallbacks)
	d.ReviewChanged = !reflect.DeepEqual(old.Review, new.Review)
	d.RevisionChanged = old.Revision != new.Revision
	d.OutputChanged = old.Output != new.Output
	d.HistoryChanged = old.History != new.History
	d.BatchChanged = old.Batch != new.Batch
	d.WatchChanged = !reflect.DeepEqual(old.Watch, new.Watch)
	d.ObserveChanged = old.Observe != new.Observe

	return d
}
