package deck

import "context"

// Outbound command names understood by the host.
const (
	cmdSetImage    = "setImage"
	cmdSetTitle    = "setTitle"
	cmdShowAlert   = "showAlert"
	cmdShowOK      = "showOk"
	cmdSetSettings = "setSettings"
	cmdGetSettings = "getSettings"
	cmdLogMessage  = "logMessage"
)

// Image targets for SetImage and SetTitle.
const (
	// TargetBoth updates both the hardware key and the host's software view.
	TargetBoth     = 0
	TargetHardware = 1
	TargetSoftware = 2
)

// command is the envelope for every outbound message after registration.
type command struct {
	Event   string `json:"event"`
	Context string `json:"context,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

type imagePayload struct {
	Image  string `json:"image"`
	Target int    `json:"target"`
}

type titlePayload struct {
	Title  string `json:"title"`
	Target int    `json:"target"`
}

type messagePayload struct {
	Message string `json:"message"`
}

// SetImage replaces the image for one key. The image travels as a data URI,
// typically produced by keyimage.Image.DataURI.
func (c *Client) SetImage(ctx context.Context, keyContext, image string) error {
	return c.send(ctx, cmdSetImage, command{
		Event:   cmdSetImage,
		Context: keyContext,
		Payload: imagePayload{Image: image, Target: TargetBoth},
	})
}

// SetTitle replaces the title overlay for one key. An empty title clears it.
func (c *Client) SetTitle(ctx context.Context, keyContext, title string) error {
	return c.send(ctx, cmdSetTitle, command{
		Event:   cmdSetTitle,
		Context: keyContext,
		Payload: titlePayload{Title: title, Target: TargetBoth},
	})
}

// ShowAlert flashes the host's warning indicator on one key.
func (c *Client) ShowAlert(ctx context.Context, keyContext string) error {
	return c.send(ctx, cmdShowAlert, command{Event: cmdShowAlert, Context: keyContext})
}

// ShowOK flashes the host's checkmark indicator on one key.
func (c *Client) ShowOK(ctx context.Context, keyContext string) error {
	return c.send(ctx, cmdShowOK, command{Event: cmdShowOK, Context: keyContext})
}

// SetSettings persists settings for one key in the host.
func (c *Client) SetSettings(ctx context.Context, keyContext string, settings any) error {
	return c.send(ctx, cmdSetSettings, command{
		Event:   cmdSetSettings,
		Context: keyContext,
		Payload: settings,
	})
}

// GetSettings asks the host to send a didReceiveSettings event for one key.
func (c *Client) GetSettings(ctx context.Context, keyContext string) error {
	return c.send(ctx, cmdGetSettings, command{Event: cmdGetSettings, Context: keyContext})
}

// LogMessage writes a line into the host's own log file.
func (c *Client) LogMessage(ctx context.Context, message string) error {
	return c.send(ctx, cmdLogMessage, command{
		Event:   cmdLogMessage,
		Payload: messagePayload{Message: message},
	})
}
