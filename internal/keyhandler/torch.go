package keyhandler

import "log/slog"

// TorchController toggles the rear flash LED and tracks its state from
// torch callbacks.
type TorchController struct {
	camera CameraService
	state  *State
	logger *slog.Logger
}

func newTorchController(camera CameraService, state *State, logger *slog.Logger) *TorchController {
	return &TorchController{camera: camera, state: state, logger: logger}
}

// RearCameraID returns the id of the first back-facing camera with a flash.
// The result is cached once found; enumeration errors yield no camera.
func (t *TorchController) RearCameraID() (string, bool) {
	if id, ok := t.state.RearCameraID(); ok {
		return id, true
	}
	if t.camera == nil {
		return "", false
	}

	ids, err := t.camera.CameraIDs()
	if err != nil {
		t.logger.Debug("camera enumeration failed", "error", err)
		return "", false
	}
	for _, id := range ids {
		ch, err := t.camera.Characteristics(id)
		if err != nil {
			t.logger.Debug("camera characteristics failed", "camera", id, "error", err)
			continue
		}
		if ch.FlashAvailable && ch.LensFacing == LensFacingBack {
			t.state.rearCameraID.Store(&id)
			return id, true
		}
	}
	return "", false
}

// Toggle inverts the torch on cameraID. The cached flag follows the request
// even if the camera rejects it; the next torch callback corrects it.
func (t *TorchController) Toggle(cameraID string) {
	enabled := !t.state.TorchEnabled()
	if t.camera != nil {
		if err := t.camera.SetTorchMode(cameraID, enabled); err != nil {
			t.logger.Debug("set torch mode failed", "camera", cameraID, "enabled", enabled, "error", err)
		}
	}
	t.state.torchEnabled.Store(enabled)
}

func (t *TorchController) OnTorchModeChanged(cameraID string, enabled bool) {
	if !t.isRear(cameraID) {
		return
	}
	t.state.torchEnabled.Store(enabled)
}

func (t *TorchController) OnTorchModeUnavailable(cameraID string) {
	if !t.isRear(cameraID) {
		return
	}
	t.state.torchEnabled.Store(false)
}

func (t *TorchController) isRear(cameraID string) bool {
	id, ok := t.state.RearCameraID()
	return ok && id == cameraID
}
