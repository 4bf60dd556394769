package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version of cdpdriver.
const Version = "0.1.0"

// fullVersion returns the version, the git commit it was built from when
// known, and the Go toolchain and platform.
func fullVersion() string {
	goVersionArch := fmt.Sprintf("%s, %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return fmt.Sprintf("%s (%s)", Version, goVersionArch)
	}

	var commit string
	dirty := false
	for _, s := range buildInfo.Settings {
		switch s.Key {
		case "vcs.revision":
			commitLen := 10
			if len(s.Value) < commitLen {
				commitLen = len(s.Value)
			}
			commit = s.Value[:commitLen]
		case "vcs.modified":
			if s.Value == "true" {
				dirty = true
			}
		default:
		}
	}

	if commit == "" {
		return fmt.Sprintf("%s (%s)", Version, goVersionArch)
	}
	if dirty {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (commit/%s, %s)", Version, commit, goVersionArch)
}

type versionInfo struct {
	Version string         `yaml:"version"`
	GoOS    string         `yaml:"goOS"`
	GoArch  string         `yaml:"goArch"`
	Go      string         `yaml:"go"`
	Browser *browserDetail `yaml:"browser,omitempty"`
}

type browserDetail struct {
	Product         string `yaml:"product"`
	ProtocolVersion string `yaml:"protocolVersion"`
	Revision        string `yaml:"revision"`
	UserAgent       string `yaml:"userAgent"`
	JSVersion       string `yaml:"jsVersion"`
}

type cmdVersion struct {
	gs *globalState

	details bool
	browser bool
}

func (c *cmdVersion) run(cmd *cobra.Command, _ []string) error {
	if !c.details && !c.browser {
		c.gs.console.Printf("cdpdriver v%s\n", fullVersion())
		return nil
	}

	info := versionInfo{
		Version: Version,
		GoOS:    runtime.GOOS,
		GoArch:  runtime.GOARCH,
		Go:      runtime.Version(),
	}
	if c.browser {
		b, err := startBrowser(c.gs, cmd.Flags())
		if err != nil {
			return err
		}
		defer b.Close()

		v, err := b.Version()
		if err != nil {
			return withExitCode(err)
		}
		info.Browser = &browserDetail{
			Product:         v.Product,
			ProtocolVersion: v.ProtocolVersion,
			Revision:        v.Revision,
			UserAgent:       v.UserAgent,
			JSVersion:       v.JSVersion,
		}
	}

	return c.gs.console.PrintYAML(info)
}

func getCmdVersion(gs *globalState) *cobra.Command {
	c := &cmdVersion{gs: gs}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show application version",
		Long:  `Show the application version and exit.`,
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	versionCmd.Flags().BoolVar(&c.details, "details", false, "print the version details as YAML")
	versionCmd.Flags().BoolVar(&c.browser, "browser", false, "also start the browser and report its version")
	versionCmd.Flags().AddFlagSet(launchFlagSet())

	return versionCmd
}
