package deck

import (
	"encoding/json"

	"github.com/deckwork/ipkey/pkg/errors"
)

// Inbound event names sent by the host.
const (
	EventWillAppear          = "willAppear"
	EventWillDisappear       = "willDisappear"
	EventKeyDown             = "keyDown"
	EventKeyUp               = "keyUp"
	EventDidReceiveSettings  = "didReceiveSettings"
	EventDeviceDidConnect    = "deviceDidConnect"
	EventDeviceDidDisconnect = "deviceDidDisconnect"
)

// Event is one inbound host message. Context identifies the key instance the
// event belongs to; device-level events leave it empty.
type Event struct {
	Event   string          `json:"event"`
	Action  string          `json:"action,omitempty"`
	Context string          `json:"context,omitempty"`
	Device  string          `json:"device,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EventPayload is the payload shape shared by key events.
type EventPayload struct {
	Settings        json.RawMessage `json:"settings,omitempty"`
	Coordinates     *Coordinates    `json:"coordinates,omitempty"`
	State           *int            `json:"state,omitempty"`
	IsInMultiAction bool            `json:"isInMultiAction,omitempty"`
}

// Coordinates locate a key on the device grid.
type Coordinates struct {
	Column int `json:"column"`
	Row    int `json:"row"`
}

// ParsePayload decodes the payload common to key events. Events without a
// payload decode to the zero value.
func (e Event) ParsePayload() (EventPayload, error) {
	var p EventPayload
	if len(e.Payload) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return EventPayload{}, errors.Wrap(errors.ErrCodeHostProtocol, err, "parsing %s payload", e.Event)
	}
	return p, nil
}

// HostInfo is the host description passed on the command line at launch.
type HostInfo struct {
	Application struct {
		Language string `json:"language,omitempty"`
		Platform string `json:"platform,omitempty"`
		Version  string `json:"version,omitempty"`
	} `json:"application"`
	Plugin struct {
		UUID    string `json:"uuid,omitempty"`
		Version string `json:"version,omitempty"`
	} `json:"plugin"`
	Devices []DeviceInfo `json:"devices,omitempty"`
}

// DeviceInfo describes one attached device.
type DeviceInfo struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Type int    `json:"type,omitempty"`
	Size struct {
		Columns int `json:"columns"`
		Rows    int `json:"rows"`
	} `json:"size"`
}

// ParseHostInfo decodes the -info JSON blob. An empty blob is fine; the
// info is advisory and only used for logs.
func ParseHostInfo(raw string) (HostInfo, error) {
	var info HostInfo
	if raw == "" {
		return info, nil
	}
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return HostInfo{}, errors.Wrap(errors.ErrCodeHostProtocol, err, "parsing host info")
	}
	return info, nil
}
