package deck

import (
	"regexp"
	"strings"

	"github.com/deckwork/ipkey/pkg/errors"
)

// ActionAddress is the reverse-DNS identifier of the plugin's only action.
const ActionAddress = "dev.deckwork.ipkey.address"

// Manifest is the packaging descriptor the host reads from the plugin
// bundle. Field names follow the host's PascalCase JSON schema.
type Manifest struct {
	Name        string `json:"Name"`
	Description string `json:"Description"`
	Author      string `json:"Author"`
	Version     string `json:"Version"`
	SDKVersion  int    `json:"SDKVersion"`
	CodePath    string `json:"CodePath"`
	Icon        string `json:"Icon"`
	Category    string `json:"Category,omitempty"`
	URL         string `json:"URL,omitempty"`

	OS       []ManifestOS     `json:"OS"`
	Software ManifestSoftware `json:"Software"`
	Actions  []ManifestAction `json:"Actions"`
}

// ManifestOS declares a supported platform.
type ManifestOS struct {
	Platform       string `json:"Platform"`
	MinimumVersion string `json:"MinimumVersion"`
}

// ManifestSoftware declares the minimum host version.
type ManifestSoftware struct {
	MinimumVersion string `json:"MinimumVersion"`
}

// ManifestAction declares one action the plugin contributes.
type ManifestAction struct {
	UUID                    string          `json:"UUID"`
	Name                    string          `json:"Name"`
	Icon                    string          `json:"Icon"`
	Tooltip                 string          `json:"Tooltip,omitempty"`
	SupportedInMultiActions bool            `json:"SupportedInMultiActions"`
	States                  []ManifestState `json:"States"`
}

// ManifestState declares one visual state of an action.
type ManifestState struct {
	Image          string `json:"Image"`
	TitleAlignment string `json:"TitleAlignment,omitempty"`
}

// actionUUIDPattern matches reverse-DNS action identifiers.
var actionUUIDPattern = regexp.MustCompile(`^[a-z0-9-]+(\.[a-z0-9-]+)+$`)

// semverPattern matches plain three-part versions, optionally prefixed v.
var semverPattern = regexp.MustCompile(`^v?\d+\.\d+(\.\d+)?$`)

// DefaultManifest builds the manifest for this plugin. Dev builds carry a
// non-release version string, which is normalized to 0.0.0 so the bundle
// still validates.
func DefaultManifest(version string) Manifest {
	return Manifest{
		Name:        "ipkey",
		Description: "Show your public IPv4 address on a key and copy it with a press.",
		Author:      "deckwork",
		Version:     normalizeVersion(version),
		SDKVersion:  2,
		CodePath:    "ipkey",
		Icon:        "images/plugin",
		Category:    "ipkey",
		URL:         "https://github.com/deckwork/ipkey",
		OS: []ManifestOS{
			{Platform: "mac", MinimumVersion: "10.15"},
			{Platform: "windows", MinimumVersion: "10"},
		},
		Software: ManifestSoftware{MinimumVersion: "5.0"},
		Actions: []ManifestAction{
			{
				UUID:    ActionAddress,
				Name:    "Public IP",
				Icon:    "images/key",
				Tooltip: "Show and copy your public IPv4 address",
				States:  []ManifestState{{Image: "images/key"}},
			},
		},
	}
}

func normalizeVersion(version string) string {
	if !semverPattern.MatchString(version) {
		return "0.0.0"
	}
	return strings.TrimPrefix(version, "v")
}

// Validate checks the fields the host refuses to load without.
func (m Manifest) Validate() error {
	if m.Name == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "manifest name is required")
	}
	if !semverPattern.MatchString(m.Version) {
		return errors.New(errors.ErrCodeInvalidConfig, "manifest version %q is not a release version", m.Version)
	}
	if m.CodePath == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "manifest code path is required")
	}
	if m.SDKVersion < 2 {
		return errors.New(errors.ErrCodeInvalidConfig, "manifest SDK version %d is too old", m.SDKVersion)
	}
	if len(m.Actions) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "manifest declares no actions")
	}
	for _, action := range m.Actions {
		if !actionUUIDPattern.MatchString(action.UUID) {
			return errors.New(errors.ErrCodeInvalidConfig, "action UUID %q is not reverse-DNS", action.UUID)
		}
		if action.Name == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "action %s has no name", action.UUID)
		}
		if len(action.States) == 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "action %s has no states", action.UUID)
		}
	}
	return nil
}
