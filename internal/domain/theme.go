package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
)

// Theme holds the colours of a business's public booking page.
type Theme struct {
	PrimaryColor    string `json:"primaryColor"`
	TextColor       string `json:"textColor"`
	BackgroundColor string `json:"backgroundColor"`
}

func DefaultTheme() Theme {
	return Theme{
		PrimaryColor:    "#007bff",
		TextColor:       "#ffffff",
		BackgroundColor: "#f8f9fa",
	}
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// WithDefaults fills unset colours from DefaultTheme.
func (t Theme) WithDefaults() Theme {
	def := DefaultTheme()
	if t.PrimaryColor == "" {
		t.PrimaryColor = def.PrimaryColor
	}
	if t.TextColor == "" {
		t.TextColor = def.TextColor
	}
	if t.BackgroundColor == "" {
		t.BackgroundColor = def.BackgroundColor
	}
	return t
}

// Validate accepts "#rgb" and "#rrggbb" colours.
func (t Theme) Validate() error {
	fields := []struct{ name, value string }{
		{"primaryColor", t.PrimaryColor},
		{"textColor", t.TextColor},
		{"backgroundColor", t.BackgroundColor},
	}
	for _, f := range fields {
		if !hexColor.MatchString(f.value) {
			return fmt.Errorf("%s must be a hex colour, got %q", f.name, f.value)
		}
	}
	return nil
}

func (t Theme) Value() (driver.Value, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan treats a missing document as the default theme.
func (t *Theme) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*t = DefaultTheme()
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("theme: unsupported scan type %T", src)
	}
	var out Theme
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*t = out.WithDefaults()
	return nil
}
