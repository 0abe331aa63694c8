package config

import (
	"fmt"

	"github.com/derailed/tcell/v2"
)

// Color represents a color in the application
type Color string

const (
	// DefaultColor represents a default color
	DefaultColor Color = "default"
)

// NewColor returns a new color
func NewColor(c string) Color {
	return Color(c)
}

// String returns color as a tview tag value
func (c Color) String() string {
	if c.isHex() {
		return string(c)
	}
	if c == DefaultColor || c == "" {
		return "-"
	}
	col := c.Color().Hex()
	if col < 0 {
		return "-"
	}
	return fmt.Sprintf("#%06x", col)
}

func (c Color) isHex() bool {
	return len(c) == 7 && c[0] == '#'
}

// Color returns a view color
func (c Color) Color() tcell.Color {
	if c == DefaultColor || c == "" {
		return tcell.ColorDefault
	}
	return tcell.GetColor(string(c)).TrueColor()
}

// EmailColors defines colors for message states in the list
type EmailColors struct {
	UnreadColor  Color `yaml:"unreadColor"`
	ReadColor    Color `yaml:"readColor"`
	StarredColor Color `yaml:"starredColor"`
}

// FrameColors defines colors for borders and titles
type FrameColors struct {
	BorderColor Color `yaml:"borderColor"`
	FocusColor  Color `yaml:"focusColor"`
	TitleColor  Color `yaml:"titleColor"`
}

// StatusColors defines colors for the status bar
type StatusColors struct {
	FgColor    Color `yaml:"fgColor"`
	ErrorColor Color `yaml:"errorColor"`
}

// BodyColors defines colors for the content pane
type BodyColors struct {
	FgColor Color `yaml:"fgColor"`
	BgColor Color `yaml:"bgColor"`
}

// ColorsConfig defines the complete color configuration
type ColorsConfig struct {
	Body   BodyColors   `yaml:"body"`
	Frame  FrameColors  `yaml:"frame"`
	Status StatusColors `yaml:"status"`
	Email  EmailColors  `yaml:"email"`
}

// DefaultColors returns the default (dracula) color configuration
func DefaultColors() *ColorsConfig {
	return &ColorsConfig{
		Body: BodyColors{
			FgColor: NewColor("#f8f8f2"),
			BgColor: NewColor("#282a36"),
		},
		Frame: FrameColors{
			BorderColor: NewColor("#44475a"),
			FocusColor:  NewColor("#6272a4"),
			TitleColor:  NewColor("#f1fa8c"),
		},
		Status: StatusColors{
			FgColor:    NewColor("#50fa7b"),
			ErrorColor: NewColor("#ff5555"),
		},
		Email: EmailColors{
			UnreadColor:  NewColor("#ffb86c"),
			ReadColor:    NewColor("#6272a4"),
			StarredColor: NewColor("#f1fa8c"),
		},
	}
}
