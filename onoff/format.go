package onoff

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format selects how a State is written to and read from an MQTT payload.
type Format string

const (
	// FormatText uses the "on" and "off" labels.
	FormatText Format = "text"
	// FormatInteger uses the integer codes "0" and "1".
	FormatInteger Format = "integer"
)

var ErrUnknownFormat = errors.New("unknown payload format")

func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatText:
		return FormatText, nil
	case FormatInteger:
		return FormatInteger, nil
	}
	return FormatText, errors.Wrapf(ErrUnknownFormat, "%q", value)
}

func (f Format) Encode(state State) string {
	if f == FormatInteger {
		return strconv.Itoa(state.Value())
	}
	return state.String()
}

// Decode reads a payload written in this format. The integer format only accepts codes, the
// text format accepts anything Parse does.
func (f Format) Decode(payload string) (State, error) {
	if f != FormatInteger {
		return Parse(payload)
	}

	code, err := parseCode(payload)
	if err != nil {
		return Off, err
	}
	return decode(code)
}

func (f *Format) UnmarshalYAML(value *yaml.Node) error {
	format, err := ParseFormat(value.Value)
	if err != nil {
		return errors.Wrapf(err, "line %d", value.Line)
	}
	*f = format
	return nil
}
