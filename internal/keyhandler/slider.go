package keyhandler

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultSliderMapping assigns top=no interruptions, center=important
// interruptions only, bottom=normal ringer.
const DefaultSliderMapping = "5,3,0"

// Slider actions, as stored in the mapping string.
const (
	SliderRingerNormal = iota
	SliderRingerVibrate
	SliderRingerSilent
	SliderZenImportant
	SliderZenAlarms
	SliderZenNone
)

// validMapping reports whether mapping is used as-is rather than replaced by
// the default. Only a comma is required; bad fields fall back per position.
func validMapping(mapping string) bool {
	return strings.Contains(mapping, ",")
}

// SliderAction returns the action assigned to a slider position. An unset or
// comma-less mapping is replaced by DefaultSliderMapping; a missing or
// non-numeric field yields 0.
func SliderAction(mapping string, set bool, position int) int {
	if !set || !validMapping(mapping) {
		mapping = DefaultSliderMapping
	}
	parts := strings.Split(mapping, ",")
	if position < 0 || position >= len(parts) {
		return 0
	}
	v, err := strconv.Atoi(parts[position])
	if err != nil {
		return 0
	}
	return v
}

// SliderMapper converts a slider position into zen and ringer changes.
type SliderMapper struct {
	state  *State
	zen    ZenController
	ringer RingerController
}

func newSliderMapper(state *State, zen ZenController, ringer RingerController) *SliderMapper {
	return &SliderMapper{state: state, zen: zen, ringer: ringer}
}

// ApplySliderAction applies the action mapped to position. Service errors
// are returned unhandled.
func (m *SliderMapper) ApplySliderAction(position int) error {
	mapping, set := m.state.SliderMapping()
	switch action := SliderAction(mapping, set, position); action {
	case SliderRingerNormal:
		return m.apply(ZenModeOff, RingerModeNormal, true)
	case SliderRingerVibrate:
		return m.apply(ZenModeOff, RingerModeVibrate, true)
	case SliderRingerSilent:
		return m.apply(ZenModeOff, RingerModeSilent, true)
	case SliderZenImportant:
		return m.apply(ZenModeImportantInterruptions, 0, false)
	case SliderZenAlarms:
		return m.apply(ZenModeAlarms, 0, false)
	case SliderZenNone:
		return m.apply(ZenModeNoInterruptions, 0, false)
	default:
		return nil
	}
}

func (m *SliderMapper) apply(zen ZenMode, ringer RingerMode, setRinger bool) error {
	if m.zen != nil {
		if err := m.zen.SetZenMode(zen); err != nil {
			return fmt.Errorf("set zen mode %s: %w", zen, err)
		}
	}
	if setRinger && m.ringer != nil {
		if err := m.ringer.SetRingerMode(ringer); err != nil {
			return fmt.Errorf("set ringer mode %s: %w", ringer, err)
		}
	}
	return nil
}
