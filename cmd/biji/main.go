package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"biji-go/internal/app"
	"biji-go/internal/biji"
	"biji-go/internal/config"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a BijiApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "tag", "scan").
func newApp(operation string, args []string) (*app.BijiApp, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewBijiApp(cfg, operation, args)
	if errors.Is(err, biji.ErrNotFound) {
		return nil, fmt.Errorf("%w\nrun `biji index create` to create the index", err)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no config at %s\nrun `biji config init` first", defaults["config_path"])
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// withApp runs fn against a freshly opened app and records its outcome
// in the operation log.
func withApp(operation string, args []string, fn func(a *app.BijiApp) error) error {
	a, err := newApp(operation, args)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(a); err != nil {
		a.Fail(err)
		return explain(err)
	}
	return nil
}

// explain appends a remedy to errors the user has to fix by hand.
func explain(err error) error {
	var se *biji.SidecarError
	if errors.As(err, &se) {
		return fmt.Errorf("%w\nfix or delete %s", err, biji.SidecarPath(se.Path))
	}
	return err
}

func printList(items []string, empty string) {
	if len(items) == 0 {
		fmt.Println(empty)
		return
	}
	for _, item := range items {
		fmt.Println(item)
	}
}

var rootCmd = &cobra.Command{
	Use:          "biji",
	Short:        "Tag files with sidecars and keep a searchable index",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [ROOT]",
	Short: "Initialize configuration for a tracked root (default: current directory)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		root := "."
		if len(args) > 0 {
			root = args[0]
		}
		root, err = filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("resolving root: %w", err)
		}

		cfg := config.NewConfig(root, defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Root:    %s\n", cfg.Root)
		fmt.Printf("Log Dir: %s\n", cfg.LogDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		dbPath := cfg.Database.Path
		if dbPath == "" {
			dbPath = "(inside root)"
		}
		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Root:      %s\n", cfg.Root)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Log Level: %s\n", cfg.Log.Level)
		fmt.Printf("Database:  %s %s\n", cfg.Database.Type, dbPath)
		fmt.Printf("Ignore:    %s\n", strings.Join(cfg.Filesystem.Ignore, ", "))
		fmt.Printf("Debounce:  %s\n", cfg.Watch.Debounce)
		return nil
	},
}

// index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the index",
}

var indexCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the index for the configured root",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		a, err := app.InitBijiApp(cfg, "index create", args)
		if err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
		defer a.Close()

		fmt.Printf("Index created at %s\n", a.IndexPath())

		_, res, err := a.Sync()
		if err != nil {
			a.Fail(err)
			return fmt.Errorf("indexing existing sidecars: %w", err)
		}
		if res.Added > 0 {
			fmt.Printf("Indexed %d existing sidecar(s)\n", res.Added)
		}
		return nil
	},
}

var indexBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Write a consistent copy of the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("index backup", args, func(a *app.BijiApp) error {
			dest, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			if err := a.BackupIndex(dest); err != nil {
				return err
			}
			if info, err := os.Stat(dest); err == nil {
				fmt.Printf("Index backed up to %s (%s)\n", dest, humanize.Bytes(uint64(info.Size())))
			}
			return nil
		})
	},
}

// tag command
var tagCmd = &cobra.Command{
	Use:   "tag FILE...",
	Short: "Add or remove tags on files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		added, _ := cmd.Flags().GetStringSlice("add")
		removed, _ := cmd.Flags().GetStringSlice("remove")
		if len(added) == 0 && len(removed) == 0 {
			return errors.New("nothing to do: pass --add and/or --remove")
		}

		return withApp("tag", args, func(a *app.BijiApp) error {
			res, err := a.Tag(args, removed, added)
			if err != nil {
				return err
			}
			fmt.Printf("Changed %d file(s) (%d indexed, %d updated)\n",
				len(res.Changed), len(res.Inserted), len(res.Updated))
			return nil
		})
	},
}

// common command
var commonCmd = &cobra.Command{
	Use:   "common FILE...",
	Short: "Show tags shared by all files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("common", args, func(a *app.BijiApp) error {
			common, all, err := a.CommonTags(args)
			if err != nil {
				return err
			}
			fmt.Printf("Common: %s\n", strings.Join(common, ", "))
			fmt.Printf("Any:    %s\n", strings.Join(all, ", "))
			return nil
		})
	},
}

// tags command
var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List and manage tags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		order, _ := cmd.Flags().GetString("sort")

		return withApp("tags", args, func(a *app.BijiApp) error {
			tags, err := a.ListTags(order)
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				fmt.Println("No tags.")
				return nil
			}
			for _, tc := range tags {
				fmt.Printf("%5d  %s\n", tc.Count, tc.Tag)
			}
			return nil
		})
	},
}

var tagsRenameCmd = &cobra.Command{
	Use:   "rename OLD NEW",
	Short: "Rename a tag everywhere",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("tags rename", args, func(a *app.BijiApp) error {
			if err := a.RenameTag(args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Renamed %q to %q\n", args[0], args[1])
			return nil
		})
	},
}

var tagsDeleteCmd = &cobra.Command{
	Use:   "delete TAG",
	Short: "Remove a tag from every file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("tags delete", args, func(a *app.BijiApp) error {
			if err := a.DeleteTag(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %q\n", args[0])
			return nil
		})
	},
}

var tagsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete tags no file uses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("tags prune", args, func(a *app.BijiApp) error {
			pruned, err := a.PruneTags()
			if err != nil {
				return err
			}
			fmt.Printf("Pruned %d tag(s)\n", len(pruned))
			for _, tag := range pruned {
				fmt.Printf("  %s\n", tag)
			}
			return nil
		})
	},
}

// files command
var filesCmd = &cobra.Command{
	Use:   "files TAG",
	Short: "List files carrying a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("files", args, func(a *app.BijiApp) error {
			files, err := a.FilesForTag(args[0])
			if err != nil {
				return err
			}
			printList(files, "No files.")
			return nil
		})
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every indexed file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("list", args, func(a *app.BijiApp) error {
			files, err := a.ListFiles()
			if err != nil {
				return err
			}
			printList(files, "No files indexed.")
			return nil
		})
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show FILE",
	Short: "Show the sidecar and index entry of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("show", args, func(a *app.BijiApp) error {
			d, err := a.Show(args[0])
			if err != nil {
				return err
			}
			printDetails(d)
			return nil
		})
	},
}

func printDetails(d *app.FileDetails) {
	if rec := d.Record; rec != nil {
		mime := "unknown"
		if rec.Mimetype != nil {
			mime = *rec.Mimetype
		}
		fmt.Printf("Path:     %s\n", rec.Filepath)
		fmt.Printf("Type:     %s\n", mime)
		fmt.Printf("Size:     %s\n", humanize.Bytes(uint64(rec.Filesize)))
		fmt.Printf("Tags:     %s\n", strings.Join(rec.Tags, ", "))
		fmt.Printf("Created:  %s\n", relativeTime(rec.BijiCTime))
		fmt.Printf("Modified: %s\n", relativeTime(rec.BijiMTime))
	} else {
		fmt.Println("Sidecar:  missing")
	}

	if !d.Indexed {
		fmt.Println("Index:    not indexed")
		return
	}
	state := "in sync"
	if !d.InSync() {
		state = "out of sync, run `biji sync`"
	}
	fmt.Printf("Index:    %s (%s)\n", d.IndexMTime, state)
	if d.Record == nil {
		fmt.Printf("Indexed tags: %s\n", strings.Join(d.IndexTags, ", "))
	}
}

func relativeTime(ts string) string {
	t, err := biji.ParseTimestamp(ts)
	if err != nil {
		return ts
	}
	return fmt.Sprintf("%s (%s)", ts, humanize.Time(t))
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// index subcommands
	indexCmd.AddCommand(indexCreateCmd)
	indexCmd.AddCommand(indexBackupCmd)

	// tags subcommands
	tagsCmd.AddCommand(tagsRenameCmd)
	tagsCmd.AddCommand(tagsDeleteCmd)
	tagsCmd.AddCommand(tagsPruneCmd)
	tagsCmd.Flags().StringP("sort", "s", app.SortByCount, "Order: count, recent, or alpha")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(tagCmd)
	tagCmd.Flags().StringSliceP("add", "a", nil, "Tags to add (comma separated or repeated)")
	tagCmd.Flags().StringSliceP("remove", "r", nil, "Tags to remove (comma separated or repeated)")
	rootCmd.AddCommand(commonCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(recentCmd)
	recentCmd.Flags().String("since", "", "Start date in any common format (default: 7 days ago)")
	recentCmd.Flags().IntP("days", "d", 7, "Look back this many days when --since is not given")
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Bool("resolve", false, "Apply every resolution after scanning")
	scanCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.AddCommand(cleanGhostsCmd)
	cleanCmd.AddCommand(cleanOrphansCmd)
	rootCmd.AddCommand(watchCmd)
}
