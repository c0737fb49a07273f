// Package shell holds the layout and accessibility rules that wrap every page:
// responsive base font size, text scaling, high contrast and theme tokens.
package shell

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	dErrors "bharatkyc/pkg/domain-errors"
)

const (
	MinFontSizePx = 12
	MaxFontSizePx = 20
)

// BaseFontSize is the root font size for a viewport width in CSS pixels.
func BaseFontSize(viewportWidth int) int {
	switch {
	case viewportWidth < 480:
		return 14
	case viewportWidth < 768:
		return 15
	default:
		return 16
	}
}

// Action is a user accessibility control.
type Action string

const (
	ActionToggleHighContrast Action = "toggle_high_contrast"
	ActionIncreaseText       Action = "increase_text"
	ActionDecreaseText       Action = "decrease_text"
	ActionResetText          Action = "reset_text"
)

// ParseAction validates an untrusted action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionToggleHighContrast, ActionIncreaseText, ActionDecreaseText, ActionResetText:
		return a, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown accessibility action %q", s))
}

// Accessibility is per-session display state. A zero FontSizePx follows the
// viewport; any text scaling pins an explicit size.
type Accessibility struct {
	HighContrast bool `json:"high_contrast"`
	FontSizePx   int  `json:"font_size_px,omitempty"`
}

// EffectiveFontSize resolves the size the page should render at.
func (a Accessibility) EffectiveFontSize(viewportWidth int) int {
	if a.FontSizePx != 0 {
		return a.FontSizePx
	}
	return BaseFontSize(viewportWidth)
}

// Apply performs action against the current state.
func (a *Accessibility) Apply(action Action, viewportWidth int) {
	switch action {
	case ActionToggleHighContrast:
		a.HighContrast = !a.HighContrast
	case ActionIncreaseText:
		a.FontSizePx = min(a.EffectiveFontSize(viewportWidth)+1, MaxFontSizePx)
	case ActionDecreaseText:
		a.FontSizePx = max(a.EffectiveFontSize(viewportWidth)-1, MinFontSizePx)
	case ActionResetText:
		a.FontSizePx = 0
	}
}

// Theme is the static design token set.
type Theme struct {
	Colors           map[string]map[string]string `yaml:"colors" json:"colors"`
	Fonts            map[string]string            `yaml:"fonts" json:"fonts"`
	InitialColorMode string                       `yaml:"initial_color_mode" json:"initial_color_mode"`
}

//go:embed theme.yaml
var themeYAML []byte

// LoadTheme parses the embedded theme tokens.
func LoadTheme() (*Theme, error) {
	var t Theme
	if err := yaml.Unmarshal(themeYAML, &t); err != nil {
		return nil, fmt.Errorf("parse theme: %w", err)
	}
	return &t, nil
}
