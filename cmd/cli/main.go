package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/sitemonitor/internal/aggregate"
	"github.com/hamed0406/sitemonitor/internal/config"
	"github.com/hamed0406/sitemonitor/internal/repo/backend"
	"github.com/hamed0406/sitemonitor/internal/status"
)

func main() {
	window := flag.Duration("window", 0, "aggregation window (default DASHBOARD_WINDOW)")
	flag.Parse()

	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *window <= 0 {
		*window = cfg.DashboardWindow
	}

	ctx := context.Background()
	store, err := backend.Open(ctx, cfg, zap.NewNop())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error opening history:", err)
		os.Exit(1)
	}
	defer store.Close()

	hist, err := store.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading history:", err)
		os.Exit(1)
	}

	if sum, ok, _ := status.Read(cfg.Paths.Status); ok {
		fmt.Printf("Last update: %s  online %d/%d  (%.2f%%)\n\n",
			time.Unix(sum.LastUpdate, 0).Format("02/01/2006 15:04:05"),
			sum.OnlineCount, sum.TotalTargets, sum.OverallUptimePct)
	}

	views := aggregate.Views(hist, *window, time.Now())
	if len(views) == 0 {
		fmt.Println("No data yet. Run the monitor first.")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "SITE\tSTATUS\tLATENCY\tUPTIME %s\tAVG\tCHECKS\tLAST CHECK\n", window.String())
	for _, v := range views {
		state := "ONLINE"
		if !v.Online {
			state = "OFFLINE"
		}
		fmt.Fprintf(tw, "%s\t%s (%d)\t%.0fms\t%.2f%%\t%.0fms\t%d\t%s\n",
			v.Name, state, v.Status, v.ResponseTimeMS, v.Uptime, v.AvgResponseMS, v.ChecksCount,
			time.Unix(v.LastCheckTime, 0).Format("02/01/2006 15:04:05"))
	}
	tw.Flush()
}
