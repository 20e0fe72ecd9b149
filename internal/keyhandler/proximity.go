package keyhandler

import (
	"log/slog"
	"sync"
)

// ProximityGate samples the proximity sensor while the display is off so
// that pocketed gestures can be rejected.
type ProximityGate struct {
	sensors SensorManager
	sensor  *Sensor
	state   *State
	node    ControlNode
	logger  *slog.Logger

	mu     sync.Mutex
	active bool
}

func newProximityGate(sensors SensorManager, state *State, node ControlNode, logger *slog.Logger) *ProximityGate {
	g := &ProximityGate{
		sensors: sensors,
		state:   state,
		node:    node,
		logger:  logger,
	}
	if sensors != nil {
		g.sensor = sensors.DefaultProximitySensor()
	}
	return g
}

// OnDisplayOff starts sampling. It is a no-op when the check is disabled,
// when already sampling, or when no sensor exists.
func (g *ProximityGate) OnDisplayOff() {
	if !g.state.ProximityCheckEnabled() {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active || g.sensor == nil {
		return
	}
	if err := g.sensors.RegisterListener(g, g.sensor, SensorDelayNormal); err != nil {
		g.logger.Warn("proximity listener registration failed", "sensor", g.sensor.Name, "error", err)
		return
	}
	g.active = true
}

// OnDisplayOn stops sampling. The last near value is kept.
func (g *ProximityGate) OnDisplayOn() {
	if !g.state.ProximityCheckEnabled() {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.active {
		return
	}
	g.sensors.UnregisterListener(g, g.sensor)
	g.active = false
}

func (g *ProximityGate) OnSensorChanged(ev SensorEvent) {
	sensor := ev.Sensor
	if sensor == nil {
		sensor = g.sensor
	}
	if sensor == nil {
		return
	}
	near := ev.Distance < sensor.MaxRange
	g.state.proximityNear.Store(near)
	writeNode(g.node, near)
}

// Active reports whether the listener is registered.
func (g *ProximityGate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}
