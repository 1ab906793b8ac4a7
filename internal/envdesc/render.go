// SPDX-License-Identifier: MPL-2.0

package envdesc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// FormatExport renders POSIX "export KEY=VALUE" lines.
	FormatExport Format = "export"
	// FormatDotenv renders "KEY=VALUE" lines.
	FormatDotenv Format = "dotenv"
	// FormatDockerfile renders Dockerfile "ENV KEY=VALUE" lines.
	FormatDockerfile Format = "dockerfile"
	// FormatTOML renders the descriptor as a TOML document.
	FormatTOML Format = "toml"
)

// ErrInvalidFormat is the sentinel error wrapped by InvalidFormatError.
var ErrInvalidFormat = errors.New("invalid descriptor format")

type (
	// Format selects a descriptor rendering.
	Format string

	// InvalidFormatError is returned when a Format value is not recognized.
	// It wraps ErrInvalidFormat for errors.Is() compatibility.
	InvalidFormatError struct {
		Value Format
	}
)

// String returns the string representation of the Format.
func (f Format) String() string { return string(f) }

// Validate returns an error if the Format is not one of the defined formats.
func (f Format) Validate() error {
	switch f {
	case FormatExport, FormatDotenv, FormatDockerfile, FormatTOML:
		return nil
	default:
		return &InvalidFormatError{Value: f}
	}
}

// Error implements the error interface for InvalidFormatError.
func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid descriptor format %q (valid: export, dotenv, dockerfile, toml)", e.Value)
}

// Unwrap returns ErrInvalidFormat for errors.Is() compatibility.
func (e *InvalidFormatError) Unwrap() error { return ErrInvalidFormat }

// Render renders the descriptor in the given format. Entries with empty
// values are omitted in every format.
func (d Descriptor) Render(format Format) (string, error) {
	if err := format.Validate(); err != nil {
		return "", err
	}
	if err := d.Validate(); err != nil {
		return "", err
	}

	switch format {
	case FormatTOML:
		data, err := toml.Marshal(d)
		if err != nil {
			return "", fmt.Errorf("failed to marshal descriptor: %w", err)
		}
		return string(data), nil
	case FormatExport:
		return d.renderLines("export %s=%q\n"), nil
	case FormatDotenv:
		return d.renderLines("%s=%s\n"), nil
	case FormatDockerfile:
		return d.renderLines("ENV %s=%s\n"), nil
	}
	return "", &InvalidFormatError{Value: format}
}

func (d Descriptor) renderLines(lineFormat string) string {
	var sb strings.Builder
	for _, entry := range d.Entries() {
		if entry.Value == "" {
			continue
		}
		fmt.Fprintf(&sb, lineFormat, entry.Key, entry.Value)
	}
	return sb.String()
}
