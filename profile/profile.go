// Package profile loads server declarations and binding profiles from JSON,
// YAML or TOML files.
//
// A declarations file lists the server's inputs and actions, plus one
// binding profile (client input path -> action path) per device class. The
// profile named "default" is used for classes without their own.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/Alia5/xrinput/action"
)

// DefaultProfile is the fallback profile name.
const DefaultProfile = "default"

var ErrUnsupportedFormat = errors.New("unsupported declarations format")

// Declarations are the server side of the binding negotiation.
type Declarations struct {
	ServerInputs []action.Input
	Actions      []string
	Profiles     map[string]map[string]string
}

// ProfileFor returns the bindings for class, falling back to the default
// profile. An exact name wins over a case-insensitive one; among several
// case-insensitive matches the lowest name wins. The bool is false when no
// profile applies.
func (d *Declarations) ProfileFor(class string) (map[string]string, bool) {
	if p, ok := d.Profiles[class]; ok {
		return p, true
	}
	for _, name := range slices.Sorted(maps.Keys(d.Profiles)) {
		if strings.EqualFold(name, class) {
			return d.Profiles[name], true
		}
	}
	p, ok := d.Profiles[DefaultProfile]
	return p, ok
}

type fileInput struct {
	Path string `json:"path" yaml:"path" toml:"path"`
	Type string `json:"type" yaml:"type" toml:"type"`
}

type file struct {
	ServerInputs []fileInput                  `json:"serverInputs" yaml:"serverInputs" toml:"serverInputs"`
	Actions      []string                     `json:"actions" yaml:"actions" toml:"actions"`
	Profiles     map[string]map[string]string `json:"profiles" yaml:"profiles" toml:"profiles"`
}

// Load reads a declarations file; the format follows the extension.
func Load(path string) (*Declarations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read declarations: %w", err)
	}
	d, err := Decode(data, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Decode parses data in format "json", "yaml", "yml" or "toml".
func Decode(data []byte, format string) (*Declarations, error) {
	var f file
	var err error
	switch strings.ToLower(format) {
	case "json":
		err = json.Unmarshal(data, &f)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &f)
	case "toml":
		err = toml.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}

	d := &Declarations{
		Actions:  f.Actions,
		Profiles: f.Profiles,
	}
	if d.Profiles == nil {
		d.Profiles = map[string]map[string]string{}
	}
	for i, in := range f.ServerInputs {
		vt, err := action.ParseValueType(in.Type)
		if err != nil {
			return nil, fmt.Errorf("serverInputs[%d] %s: %w", i, in.Path, err)
		}
		d.ServerInputs = append(d.ServerInputs, action.Input{Path: in.Path, Type: vt})
	}
	return d, nil
}

// Encode writes d in format. Used to scaffold declaration files.
func Encode(d *Declarations, format string) ([]byte, error) {
	f := file{Actions: d.Actions, Profiles: d.Profiles}
	for _, in := range d.ServerInputs {
		f.ServerInputs = append(f.ServerInputs, fileInput{Path: in.Path, Type: in.Type.String()})
	}
	switch strings.ToLower(format) {
	case "json":
		return json.MarshalIndent(f, "", "  ")
	case "yaml", "yml":
		return yaml.Marshal(f)
	case "toml":
		return toml.Marshal(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
