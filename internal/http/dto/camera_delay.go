package dto

import (
	"fmt"

	"github.com/edirooss/obsdelay-server/internal/domain/delay"
	"github.com/edirooss/obsdelay-server/pkg/jsonx"
)

// CameraDelay is the wire shape of one source's reading, as served by
// GET /api/cameras. Delay is -1 when the value could not be read.
type CameraDelay struct {
	CameraName string `json:"cameraName"`
	Delay      int64  `json:"delay"`
}

// CameraDelayList maps readings to their wire shape, preserving order.
func CameraDelayList(readings []delay.Reading) []CameraDelay {
	out := make([]CameraDelay, len(readings))
	for i, r := range readings {
		out[i] = CameraDelay{CameraName: r.Source, Delay: r.DelayMS}
	}
	return out
}

// MissingFieldError reports a required request field that was absent
// (or explicitly null). Maps to 400; the device is never contacted.
type MissingFieldError struct{ Field string }

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// UpdateDelayRequest is the body of POST /api/cameras.
//   - cameraName: required; forwarded as-is (not checked against the
//     configured list - the device decides whether it exists)
//   - delay: required; integer milliseconds, not range-checked
type UpdateDelayRequest struct {
	CameraName jsonx.Field[string] `json:"cameraName"`
	Delay      jsonx.Field[int64]  `json:"delay"`
}

// Validate enforces field presence and unwraps the values.
func (req *UpdateDelayRequest) Validate() (cameraName string, delayMS int64, err error) {
	name, ok := req.CameraName.Get()
	if !ok {
		return "", 0, &MissingFieldError{Field: "cameraName"}
	}
	ms, ok := req.Delay.Get()
	if !ok {
		return "", 0, &MissingFieldError{Field: "delay"}
	}
	return name, ms, nil
}
