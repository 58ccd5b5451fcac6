package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Collect *CollectCommand
	Report  *ReportCommand
	Status  *StatusCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "daytrail"
	parser.LongDescription = "Local activity timeline: collects OS usage artifacts into a merged per-day history."

	cmds := &commands{
		Collect: &CollectCommand{globals: &globals, version: version},
		Report:  &ReportCommand{globals: &globals, version: version},
		Status:  &StatusCommand{globals: &globals, version: version},
	}

	parser.AddCommand("collect", "Run an ingestion pass", "Read all configured artifact sources and merge new events into the daily store.", cmds.Collect)
	parser.AddCommand("report", "Show a day's timeline", "Render the merged activity timeline and statistics for one day.", cmds.Report)
	parser.AddCommand("status", "Show store statistics", "Show database health, event counts, and per-source statistics.", cmds.Status)

	return parser, &globals, cmds
}

// Run is the main entry point for the daytrail CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("daytrail %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
