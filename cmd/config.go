package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/esm-tools/cadence/internal/calendar"
	"github.com/esm-tools/cadence/internal/config"
	"github.com/esm-tools/cadence/internal/render"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage cadence configuration",
	Long:  `Read and write cadence configuration stored in config.json.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		tmpl := config.Template()
		if err := config.WriteFile(path, tmpl); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
		fmt.Fprintln(cmd.OutOrStdout(), "  Edit it to set your default calendar, tolerance, and store path.")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		cfg := deps.Config

		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}

		switch resolveFormat(cfg.Format) {
		case render.FormatJSON:
			type configOut struct {
				Format      string  `json:"default_format"`
				Calendar    string  `json:"calendar"`
				Tol         float64 `json:"tol"`
				Strict      bool    `json:"strict"`
				Concurrency int     `json:"concurrency"`
				DBPath      string  `json:"db_path"`
				ConfigFile  string  `json:"config_file"`
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(configOut{
				Format:      cfg.Format,
				Calendar:    cfg.Calendar,
				Tol:         cfg.Tol,
				Strict:      cfg.Strict,
				Concurrency: cfg.Concurrency,
				DBPath:      cfg.DBPath,
				ConfigFile:  src,
			})
		default:
			rows := [][]string{
				{"default_format", cfg.Format},
				{"calendar", cfg.Calendar},
				{"tol", fmt.Sprintf("%g", cfg.Tol)},
				{"strict", fmt.Sprintf("%t", cfg.Strict)},
				{"concurrency", fmt.Sprintf("%d", cfg.Concurrency)},
				{"db_path", cfg.DBPath},
				{"config_file", src},
			}
			printKVTable(cmd.OutOrStdout(), rows)
			return nil
		}
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		val := args[1]

		// Load existing file or start from template
		var f config.File
		existing, path, err := loadConfigFile()
		if err != nil {
			path = config.DefaultConfigFile
			f = config.Template()
		} else {
			f = *existing
		}

		switch key {
		case "default_format", "format":
			f.DefaultFormat = val
		case "calendar":
			cal := calendar.Normalize(val)
			if !calendar.Known(cal) {
				return fmt.Errorf("unknown calendar %q (standard, noleap, all_leap, 360_day)", val)
			}
			f.Calendar = cal
		case "tol":
			tol, err := strconv.ParseFloat(val, 64)
			if err != nil || tol <= 0 || tol >= 1 {
				return fmt.Errorf("tol must be a number in (0,1)")
			}
			f.Tol = tol
		case "strict":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("strict must be true or false")
			}
			f.Strict = b
		case "concurrency":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 {
				return fmt.Errorf("concurrency must be a positive integer")
			}
			f.Concurrency = n
		case "db_path":
			f.DBPath = val
		default:
			return fmt.Errorf("unknown config key: %q\n\nValid keys: default_format, calendar, tol, strict, concurrency, db_path", key)
		}

		if err := config.WriteFile(path, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// loadConfigFile reads config.json from cwd; used by configSetCmd.
func loadConfigFile() (*config.File, string, error) {
	path := config.DefaultConfigFile
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	var f config.File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", err
	}
	return &f, path, nil
}
