package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"biji-go/internal/app"
	"biji-go/internal/biji"

	"github.com/araddon/dateparse"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// recent command
var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List files whose tags changed recently",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sinceFlag, _ := cmd.Flags().GetString("since")
		days, _ := cmd.Flags().GetInt("days")

		since := time.Now().AddDate(0, 0, -days)
		if sinceFlag != "" {
			t, err := dateparse.ParseLocal(sinceFlag)
			if err != nil {
				return fmt.Errorf("invalid --since date: %w", err)
			}
			since = t
		}

		return withApp("recent", args, func(a *app.BijiApp) error {
			files, err := a.RecentFiles(since)
			if err != nil {
				return err
			}
			printList(files, fmt.Sprintf("No changes since %s.", since.Format("2006-01-02 15:04")))
			return nil
		})
	},
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Compare sidecars with the index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolve, _ := cmd.Flags().GetBool("resolve")
		yes, _ := cmd.Flags().GetBool("yes")

		return withApp("scan", args, func(a *app.BijiApp) error {
			report, err := a.Scan()
			if err != nil {
				return err
			}
			printReport(report)
			if report.Empty() || !resolve {
				return nil
			}

			if !yes && !confirm("Apply all resolutions?") {
				fmt.Println("Nothing changed.")
				return nil
			}
			res, err := a.Resolve(report)
			if err != nil {
				return err
			}
			printResolution(res)
			return nil
		})
	},
}

func printReport(r *biji.Report) {
	if r.Empty() {
		color.Green("Index is in sync.")
		return
	}
	section := func(title string, c *color.Color, paths []string) {
		if len(paths) == 0 {
			return
		}
		c.Printf("%s (%d)\n", title, len(paths))
		for _, p := range paths {
			fmt.Printf("  %s\n", p)
		}
	}
	section("File missing, sidecar will be deleted", color.New(color.FgRed), r.FileMissing)
	section("New, will be indexed", color.New(color.FgGreen), r.NewFile)
	section("Outdated, will be updated", color.New(color.FgYellow), r.Outdated)
	section("Sidecar missing, row will be deleted", color.New(color.FgMagenta), r.NoSidecar)
}

func printResolution(res *biji.Resolution) {
	fmt.Printf("Sidecars deleted: %d\n", res.SidecarsDeleted)
	fmt.Printf("Rows added:       %d\n", res.Added)
	fmt.Printf("Rows updated:     %d\n", res.Updated)
	fmt.Printf("Rows deleted:     %d\n", res.RowsDeleted)
}

// confirm asks a yes/no question. Without a terminal on stdin the answer
// is no, so scripts must pass --yes.
func confirm(question string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "stdin is not a terminal; pass --yes to apply")
		return false
	}
	fmt.Printf("%s [y/N] ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Index new and changed sidecars",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("sync", args, func(a *app.BijiApp) error {
			report, res, err := a.Sync()
			if err != nil {
				return err
			}
			fmt.Printf("Added %d, updated %d\n", res.Added, res.Updated)
			if n := len(report.FileMissing) + len(report.NoSidecar); n > 0 {
				color.Yellow("%d stale path(s) left alone; see `biji scan`", n)
			}
			return nil
		})
	},
}

// clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove stale sidecars or index rows",
}

var cleanGhostsCmd = &cobra.Command{
	Use:   "ghosts",
	Short: "Delete sidecars whose file no longer exists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("clean ghosts", args, func(a *app.BijiApp) error {
			removed, err := a.CleanGhosts()
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d sidecar(s)\n", len(removed))
			for _, p := range removed {
				fmt.Printf("  %s\n", p)
			}
			return nil
		})
	},
}

var cleanOrphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "Delete index rows whose sidecar no longer exists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("clean orphans", args, func(a *app.BijiApp) error {
			removed, err := a.CleanOrphans()
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d row(s)\n", len(removed))
			for _, p := range removed {
				fmt.Printf("  %s\n", p)
			}
			return nil
		})
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index in sync while sidecars change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withApp("watch", args, func(a *app.BijiApp) error {
			fmt.Printf("Watching %s (Ctrl-C to stop)\n", a.Root())
			return a.Watch(ctx)
		})
	},
}
