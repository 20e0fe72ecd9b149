package keyhandler

import (
	"log/slog"
	"sync"
)

// Persisted setting keys observed by the handler.
const (
	SettingHardwareKeysDisable   = "hardware_keys_disable"
	SettingProximityOnWake       = "proximity_on_wake"
	SettingButtonExtraKeyMapping = "button_extra_key_mapping"
)

// SettingsWatcher recomputes the enable flags whenever one of the observed
// settings changes, and once at Observe.
type SettingsWatcher struct {
	store    SettingsStore
	state    *State
	keysNode ControlNode
	logger   *slog.Logger

	mu   sync.Mutex
	subs []Subscription
}

func newSettingsWatcher(store SettingsStore, state *State, keysNode ControlNode, logger *slog.Logger) *SettingsWatcher {
	return &SettingsWatcher{
		store:    store,
		state:    state,
		keysNode: keysNode,
		logger:   logger,
	}
}

// Observe subscribes to the settings and applies their current values.
func (w *SettingsWatcher) Observe() {
	if w.store != nil {
		w.mu.Lock()
		for _, key := range []string{SettingHardwareKeysDisable, SettingProximityOnWake, SettingButtonExtraKeyMapping} {
			if sub := w.store.Observe(key, w); sub != nil {
				w.subs = append(w.subs, sub)
			}
		}
		w.mu.Unlock()
	}
	w.Update()
}

func (w *SettingsWatcher) OnSettingChanged(key string) {
	w.logger.Debug("setting changed", "key", key)
	w.Update()
}

// Update reads all observed settings and stores the derived flags. Without a
// store the defaults apply.
func (w *SettingsWatcher) Update() {
	disabled := false
	proxCheck := true
	mapping, mappingSet := "", false
	if w.store != nil {
		disabled = w.store.Bool(SettingHardwareKeysDisable, false)
		proxCheck = w.store.Bool(SettingProximityOnWake, true)
		mapping, mappingSet = w.store.String(SettingButtonExtraKeyMapping)
	}

	w.state.hardwareKeysDisabled.Store(disabled)
	writeNode(w.keysNode, disabled)

	w.state.proximityCheckEnabled.Store(proxCheck)
	w.state.setSliderMapping(mapping, mappingSet)

	w.logger.Debug("settings applied",
		"hardware_keys_disabled", disabled,
		"proximity_check", proxCheck,
		"slider_mapping", mapping)
}

// Close drops all settings subscriptions.
func (w *SettingsWatcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, sub := range w.subs {
		sub.Close()
	}
	w.subs = nil
}

// writeNode mirrors v to a control node as "1"/"0". Unwritable nodes and
// write failures are ignored.
func writeNode(node ControlNode, v bool) {
	if node == nil || !node.Writable() {
		return
	}
	value := "0"
	if v {
		value = "1"
	}
	_ = node.Write(value)
}
