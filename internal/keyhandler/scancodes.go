package keyhandler

import "slices"

// Scancodes reported by the touch panel gesture engine and the alert slider
// driver. The gesture codes are emitted on release of the drawn shape.
const (
	ScanDoubleTap     = 143
	ScanGestureCircle = 250 // draw circle to launch camera
	ScanGestureII     = 251 // two finger vertical swipe: play/pause
	ScanGestureV      = 252 // draw V: toggle flashlight
	ScanGestureLeftV  = 253 // draw left arrow: previous track
	ScanGestureRightV = 254 // draw right arrow: next track

	ScanSliderTop    = 601
	ScanSliderCenter = 602
	ScanSliderBottom = 603
)

// supportedScancodes are the codes the host may forward to the handler at all.
var supportedScancodes = []int{
	ScanGestureCircle,
	ScanGestureV,
	ScanDoubleTap,
	ScanGestureII,
	ScanGestureLeftV,
	ScanGestureRightV,
	ScanSliderTop,
	ScanSliderCenter,
	ScanSliderBottom,
}

// handledScancodes produce an action from OnKeyEvent. Circle and double tap
// are left to the host's camera-launch and wake fast paths.
var handledScancodes = []int{
	ScanGestureV,
	ScanGestureII,
	ScanGestureLeftV,
	ScanGestureRightV,
	ScanSliderTop,
	ScanSliderCenter,
	ScanSliderBottom,
}

// proximityCheckedScancodes are suppressed while the proximity sensor reports
// near. The slider is a physical switch and is never suppressed.
var proximityCheckedScancodes = []int{
	ScanGestureCircle,
	ScanGestureV,
	ScanDoubleTap,
	ScanGestureII,
	ScanGestureLeftV,
	ScanGestureRightV,
}

func isSupported(code int) bool        { return slices.Contains(supportedScancodes, code) }
func isHandled(code int) bool          { return slices.Contains(handledScancodes, code) }
func isProximityChecked(code int) bool { return slices.Contains(proximityCheckedScancodes, code) }

// sliderPosition maps a slider scancode to its position (0=top, 1=center,
// 2=bottom).
func sliderPosition(code int) (int, bool) {
	switch code {
	case ScanSliderTop:
		return 0, true
	case ScanSliderCenter:
		return 1, true
	case ScanSliderBottom:
		return 2, true
	}
	return 0, false
}
