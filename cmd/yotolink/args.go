package main

import (
	"errors"
	"fmt"
	"os"

	"yotolink/internal/config"
)

var (
	errShowHelp   = errors.New("help requested")
	errInitConfig = errors.New("init config requested")
)

// invocation is a parsed command line.
type invocation struct {
	cfg        config.Config
	configPath string
	command    string
	args       []string
}

// commandArity lists each command with its minimum and maximum positional
// argument count.
var commandArity = map[string][2]int{
	"match":  {1, 2},
	"link":   {2, 2},
	"get":    {1, 1},
	"unlink": {1, 1},
	"list":   {0, 0},
}

// parseArgs parses command-line arguments and loads configuration.
// Priority: CLI flags > config file > defaults
func parseArgs(args []string) (invocation, error) {
	if len(args) == 0 {
		return invocation{}, errShowHelp
	}

	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return invocation{}, errShowHelp
		}
		if arg == "--init-config" {
			return invocation{}, errInitConfig
		}
	}

	var configPath string
	for i := 0; i < len(args); i++ {
		if args[i] == "--config" || args[i] == "-c" {
			if i+1 >= len(args) {
				return invocation{}, fmt.Errorf("--config requires a path argument")
			}
			configPath = args[i+1]
			break
		}
	}

	cfg, err := config.LoadConfigFile(configPath)
	if err != nil {
		return invocation{}, fmt.Errorf("failed to load config: %w", err)
	}
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	inv := invocation{configPath: configPath}
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "--verbose", "-v":
			cfg.Verbose = true

		case "--dry-run", "-n":
			cfg.DryRun = true

		case "--mapping", "-m":
			if i+1 >= len(args) {
				return invocation{}, fmt.Errorf("--mapping requires a path argument")
			}
			i++
			cfg.MappingFile = config.ExpandHome(args[i])

		case "--config", "-c":
			i++

		default:
			if len(arg) > 1 && arg[0] == '-' {
				return invocation{}, fmt.Errorf("unknown flag: %s", arg)
			}
			positional = append(positional, arg)
		}
	}

	if len(positional) == 0 {
		return invocation{}, fmt.Errorf("missing command")
	}

	inv.command = positional[0]
	inv.args = positional[1:]

	arity, ok := commandArity[inv.command]
	if !ok {
		return invocation{}, fmt.Errorf("unknown command: %s", inv.command)
	}
	if n := len(inv.args); n < arity[0] || n > arity[1] {
		return invocation{}, fmt.Errorf("wrong number of arguments for %s", inv.command)
	}

	inv.cfg = cfg
	return inv, nil
}

// initConfigFile creates a new config file with default values
func initConfigFile() error {
	path := config.GetDefaultConfigPath()

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config file already exists at: %s\n", path)
		fmt.Println("Delete it first if you want to recreate it.")
		return nil
	}

	cfg := config.DefaultConfig()

	if err := config.SaveConfigFile(cfg, path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	fmt.Printf("Created default config file at: %s\n", path)
	fmt.Println("\nYou can now edit this file to customize your settings.")
	fmt.Println("Available options:")
	fmt.Println("  mapping_file: where track links are stored")
	fmt.Println("  lock_file: lock guarding the mapping file (default: <mapping_file>.lock)")
	fmt.Println("  local_dir: default folder searched for audio files")
	fmt.Println("  log_dir: folder for run logs")
	fmt.Println("  verbose: true/false (enable detailed logging)")
	fmt.Println("  dry_run: true/false (match without saving)")

	return nil
}

// printUsage displays the help message
func printUsage() {
	fmt.Println("yotolink - Link Yoto card tracks to audio files on disk")
	fmt.Println()
	fmt.Println("Usage: yotolink [options] <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  match <card.json> [dir]    Match card tracks against audio files in dir")
	fmt.Println("  link <track_ref> <path>    Link a track reference to a local file")
	fmt.Println("  get <track_ref>            Print the local file linked to a track")
	fmt.Println("  unlink <track_ref>         Remove a link")
	fmt.Println("  list                       Print all links")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -v, --verbose              Show detailed output")
	fmt.Println("  -n, --dry-run              Report matches without saving them")
	fmt.Println("  -m, --mapping <path>       Path to the mapping file")
	fmt.Println("  -c, --config <path>        Path to config file")
	fmt.Println("  -h, --help                 Show this help message")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println("  --init-config              Create a default config file")
	fmt.Println()
	fmt.Println("Config file locations (checked in order):")
	fmt.Println("  ./yotolink.yaml")
	fmt.Println("  ~/.config/yotolink/config.yaml")
	fmt.Println("  ~/.yotolink.yaml")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Preview which local files would be linked")
	fmt.Println("  yotolink -n match card.json ~/Music/Stories")
	fmt.Println()
	fmt.Println("  # Link a track by hand")
	fmt.Println("  yotolink link yoto:#abc123 ~/Music/Stories/01-intro.mp3")
}
