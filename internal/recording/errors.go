package recording

import "fmt"

// DeviceError reports that the capture device could not be opened or stopped delivering audio.
type DeviceError struct {
	Device string
	Err    error
}

func (e *DeviceError) Error() string {
	device := e.Device
	if device == "" {
		device = "default"
	}
	return fmt.Sprintf("audio device %s: %v", device, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
