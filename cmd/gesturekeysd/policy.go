package main

import (
	"log/slog"
	"sync"

	"gesturekeys/internal/keyhandler"
)

// policy is the daemon's zen and ringer state. It implements
// keyhandler.ZenController and keyhandler.RingerController; changes are
// published to state clients and handed to the optional policy command.
type policy struct {
	mu     sync.Mutex
	zen    keyhandler.ZenMode
	ringer keyhandler.RingerMode

	runner  commandRunner
	command []string
	notify  func(kind, mode string)
	logger  *slog.Logger
}

func newPolicy(runner commandRunner, command []string, notify func(kind, mode string), logger *slog.Logger) *policy {
	return &policy{
		zen:     keyhandler.ZenModeOff,
		ringer:  keyhandler.RingerModeNormal,
		runner:  runner,
		command: command,
		notify:  notify,
		logger:  logger.With("component", "policy"),
	}
}

func (p *policy) SetZenMode(mode keyhandler.ZenMode) error {
	p.mu.Lock()
	changed := p.zen != mode
	p.zen = mode
	p.mu.Unlock()

	if changed {
		p.publish("zen_mode", mode.String(), "ZEN_MODE="+mode.String())
	}
	return nil
}

func (p *policy) SetRingerMode(mode keyhandler.RingerMode) error {
	p.mu.Lock()
	changed := p.ringer != mode
	p.ringer = mode
	p.mu.Unlock()

	if changed {
		p.publish("ringer_mode", mode.String(), "RINGER_MODE="+mode.String())
	}
	return nil
}

func (p *policy) publish(kind, mode, env string) {
	p.logger.Info("mode changed", "kind", kind, "mode", mode)
	if p.notify != nil {
		p.notify(kind, mode)
	}
	if len(p.command) > 0 && p.runner != nil {
		p.runner.Run("policy", p.command, env)
	}
}

func (p *policy) modes() (keyhandler.ZenMode, keyhandler.RingerMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.zen, p.ringer
}
