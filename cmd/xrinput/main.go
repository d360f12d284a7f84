package main

import (
	"os"
	"strings"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/Alia5/xrinput/internal/cmd"
	"github.com/Alia5/xrinput/internal/config"
	"github.com/Alia5/xrinput/internal/configpaths"
	"github.com/Alia5/xrinput/internal/log"

	_ "github.com/Alia5/xrinput/internal/registry" // Register all device classes
)

func main() {
	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(userCfg)

	var cli config.CLI
	ctx := kong.Parse(&cli,
		kong.Name("xrinput"),
		kong.Description("Controller input virtualization and action binding"),
		kong.UsageOnError(),
		kong.Vars{"version": cmd.Version},
		// Flags and env override config values.
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	logger, closers, err := log.NewLogger(log.Options{Level: cli.Log.Level, File: cli.Log.File, Format: cli.Log.Format})
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	rawLogger, rawCloser, err := log.OpenRaw(cli.Log.RawFile)
	if err != nil {
		logger.Error("failed to open raw log file", "file", cli.Log.RawFile, "error", err)
		rawLogger = log.NewRaw(nil)
	} else if rawCloser != nil {
		closers = append(closers, rawCloser)
	} else if cli.Log.Level == "trace" {
		rawLogger = log.NewRaw(os.Stdout)
	}

	ctx.Bind(logger)
	ctx.BindTo(rawLogger, (*log.RawLogger)(nil))

	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}

func findUserConfig(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("XRINPUT_CONFIG")
}
