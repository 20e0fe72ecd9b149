package keyhandler

import "sync/atomic"

// State is the handler-owned mutable state shared with its components.
//
// Each field is written by exactly one component (settings watcher, proximity
// gate, torch controller) and read by others. Fields are individually atomic;
// there is no cross-field consistency and none is needed.
type State struct {
	hardwareKeysDisabled  atomic.Bool
	proximityCheckEnabled atomic.Bool
	proximityNear         atomic.Bool
	torchEnabled          atomic.Bool
	rearCameraID          atomic.Pointer[string]
	sliderMapping         atomic.Pointer[string]
}

func (s *State) HardwareKeysDisabled() bool  { return s.hardwareKeysDisabled.Load() }
func (s *State) ProximityCheckEnabled() bool { return s.proximityCheckEnabled.Load() }
func (s *State) ProximityNear() bool         { return s.proximityNear.Load() }
func (s *State) TorchEnabled() bool          { return s.torchEnabled.Load() }

// RearCameraID returns the cached rear flash camera id, if resolved.
func (s *State) RearCameraID() (string, bool) {
	if p := s.rearCameraID.Load(); p != nil {
		return *p, true
	}
	return "", false
}

// SliderMapping returns the raw persisted slider mapping, if set.
func (s *State) SliderMapping() (string, bool) {
	if p := s.sliderMapping.Load(); p != nil {
		return *p, true
	}
	return "", false
}

func (s *State) setSliderMapping(v string, ok bool) {
	if !ok {
		s.sliderMapping.Store(nil)
		return
	}
	s.sliderMapping.Store(&v)
}

// Snapshot is a point-in-time copy of State for publishing to other clients.
type Snapshot struct {
	HardwareKeysDisabled  bool   `json:"hardware_keys_disabled"`
	ProximityCheckEnabled bool   `json:"proximity_check_enabled"`
	ProximityNear         bool   `json:"proximity_near"`
	TorchEnabled          bool   `json:"torch_enabled"`
	RearCameraID          string `json:"rear_camera_id,omitempty"`
	SliderMapping         string `json:"slider_mapping"`
}

func (s *State) Snapshot() Snapshot {
	id, _ := s.RearCameraID()
	mapping, ok := s.SliderMapping()
	if !ok || !validMapping(mapping) {
		mapping = DefaultSliderMapping
	}
	return Snapshot{
		HardwareKeysDisabled:  s.HardwareKeysDisabled(),
		ProximityCheckEnabled: s.ProximityCheckEnabled(),
		ProximityNear:         s.ProximityNear(),
		TorchEnabled:          s.TorchEnabled(),
		RearCameraID:          id,
		SliderMapping:         mapping,
	}
}
