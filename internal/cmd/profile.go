package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/Alia5/xrinput/action"
	"github.com/Alia5/xrinput/controller"
	"github.com/Alia5/xrinput/device"
	"github.com/Alia5/xrinput/profile"
)

// ProfileCommand groups binding profile subcommands.
type ProfileCommand struct {
	Check    ProfileCheck    `cmd:"" help:"Bind every device class against a declarations file and report defects"`
	Scaffold ProfileScaffold `cmd:"" help:"Write a declarations file listing every known client input"`
}

var ErrBindingDefects = errors.New("binding profile has defects")

// ProfileCheck reports how each device class binds.
type ProfileCheck struct {
	Declarations string `arg:"" help:"Declarations file (json, yaml or toml)" type:"existingfile"`
	Strict       bool   `help:"Fail when any class has unbound inputs or unknown actions"`
}

func (c *ProfileCheck) Run(logger *slog.Logger) error {
	decl, err := profile.Load(c.Declarations)
	if err != nil {
		return err
	}
	return checkProfiles(os.Stdout, decl, c.Strict, logger)
}

func checkProfiles(out io.Writer, decl *profile.Declarations, strict bool, logger *slog.Logger) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLASS\tBOUND\tMISSING INPUTS\tUNKNOWN ACTIONS")
	defects := false
	for _, name := range device.ListClasses() {
		class := device.GetClass(name)
		ctrl := controller.New(class.AngularVelocityInDeviceSpace, logger)
		if err := ctrl.Register(controller.Identity{ID: 0, Role: class.DefaultRole}, class.Inputs); err != nil {
			return err
		}
		ctrl.SetServerInputs(decl.ServerInputs)
		ctrl.SetServerActions(decl.Actions)
		bindings, _ := decl.ProfileFor(name)
		res := ctrl.SetProfile(bindings)
		if len(res.MissingInputs) > 0 || len(res.UnknownActions) > 0 {
			defects = true
		}
		fmt.Fprintf(tw, "%s\t%d/%d\t%s\t%s\n", name, res.Bound, len(class.Inputs),
			orDash(res.MissingInputs), orDash(res.UnknownActions))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if strict && defects {
		return ErrBindingDefects
	}
	return nil
}

func orDash(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ",")
}

// ProfileScaffold writes a declarations template.
type ProfileScaffold struct {
	Format string `help:"Output format" enum:"json,yaml,toml" default:"yaml"`
	Output string `help:"Destination file; stdout when empty" short:"o"`
	Force  bool   `help:"Overwrite if the file already exists"`
}

func (c *ProfileScaffold) Run() error {
	data, err := profile.Encode(scaffold(), c.Format)
	if err != nil {
		return err
	}
	if c.Output == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if !c.Force {
		if _, err := os.Stat(c.Output); err == nil {
			return errors.New("destination exists; use --force to overwrite")
		}
	}
	return os.WriteFile(c.Output, data, 0o644)
}

// scaffold declares every client input of every class as a server input,
// plus the placeholder action that takes index 0.
func scaffold() *profile.Declarations {
	seen := map[string]action.Input{}
	for _, name := range device.ListClasses() {
		for _, in := range device.GetClass(name).Inputs {
			if _, ok := seen[in.Path]; !ok {
				seen[in.Path] = in
			}
		}
	}
	d := &profile.Declarations{
		Actions:  []string{"/actions/none"},
		Profiles: map[string]map[string]string{profile.DefaultProfile: {}},
	}
	for _, path := range slices.Sorted(maps.Keys(seen)) {
		d.ServerInputs = append(d.ServerInputs, seen[path])
	}
	return d
}
