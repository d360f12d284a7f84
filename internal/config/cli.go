// Package config defines the command line, which doubles as the schema of
// the JSON, YAML and TOML config files.
package config

import (
	"github.com/alecthomas/kong"

	"github.com/Alia5/xrinput/internal/cmd"
)

// LogOptions configure logging for every command.
type LogOptions struct {
	Level   string `help:"Log level" enum:"trace,debug,info,warn,error" default:"info" env:"XRINPUT_LOG_LEVEL"`
	Format  string `help:"Log record format" enum:"text,json" default:"text" env:"XRINPUT_LOG_FORMAT"`
	File    string `help:"Also write logs to this file" type:"path" env:"XRINPUT_LOG_FILE"`
	RawFile string `help:"Hex dump peer stream frames to this file" type:"path" env:"XRINPUT_LOG_RAW_FILE"`
}

type CLI struct {
	ConfigFile string           `name:"config" help:"Config file (json, yaml or toml)" type:"path" env:"XRINPUT_CONFIG"`
	Log        LogOptions       `embed:"" prefix:"log."`
	Version    kong.VersionFlag `help:"Print version and exit"`

	Replay  cmd.Replay         `cmd:"" help:"Run the input pipeline over a recorded device trace"`
	Peer    cmd.Peer           `cmd:"" help:"Receive action events and log them"`
	Profile cmd.ProfileCommand `cmd:"" help:"Inspect binding profiles"`
	Config  cmd.ConfigCommand  `cmd:"" help:"Configuration helpers"`
}
