// Package onoff holds the binary state used for every on/off field the bridge stores or sends over
// the wire. The integer codes are part of the storage and MQTT formats and must never change.
package onoff

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrUnknownCode is returned by the error returning helpers when a value has no matching State.
// FromInt itself reports a miss through its boolean result.
var ErrUnknownCode = errors.New("unknown on/off code")

type State int

const (
	Off State = 0
	On  State = 1
)

// Values returns every State in code order.
func Values() []State {
	return []State{Off, On}
}

// Value returns the integer code of the state.
func (s State) Value() int {
	return int(s)
}

// FromInt looks up the State for an integer code. ok is false for anything but 0 and 1.
func FromInt(code int) (state State, ok bool) {
	switch code {
	case 0:
		return Off, true
	case 1:
		return On, true
	}
	return Off, false
}

func (s State) IsValid() bool {
	_, ok := FromInt(int(s))
	return ok
}

func (s State) String() string {
	switch s {
	case Off:
		return "off"
	case On:
		return "on"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Parse accepts the labels, booleans and integer codes, ignoring case and surrounding whitespace.
// Codes must be written without sign or zero padding.
func Parse(value string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true":
		return On, nil
	case "off", "false":
		return Off, nil
	}

	code, err := parseCode(value)
	if err != nil {
		return Off, err
	}

	return decode(code)
}

// parseCode only accepts canonical decimal codes, so "+1", "01" and "-0" are rejected.
func parseCode(value string) (int, error) {
	text := strings.TrimSpace(value)
	code, err := strconv.Atoi(text)
	if err != nil || strconv.Itoa(code) != text {
		return 0, errors.Wrapf(ErrUnknownCode, "%q", value)
	}
	return code, nil
}

func decode(code int) (State, error) {
	state, ok := FromInt(code)
	if !ok {
		return Off, errors.Wrapf(ErrUnknownCode, "%d", code)
	}
	return state, nil
}

func (s State) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, errors.Wrapf(ErrUnknownCode, "%d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	state, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = state
	return nil
}

func (s State) MarshalYAML() (interface{}, error) {
	if !s.IsValid() {
		return nil, errors.Wrapf(ErrUnknownCode, "%d", int(s))
	}
	return s.String(), nil
}

func (s *State) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: on/off value must be a scalar", value.Line)
	}

	var state State
	var err error
	if value.ShortTag() == "!!int" {
		var code int
		if err = value.Decode(&code); err != nil {
			return err
		}
		state, err = decode(code)
	} else {
		state, err = Parse(value.Value)
	}

	if err != nil {
		return errors.Wrapf(err, "line %d", value.Line)
	}

	*s = state
	return nil
}
