package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/noor/internal/health"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe connectivity and show the status of every configured provider",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	app := newApp(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app.CheckConnectivity(ctx)

	report := app.Health()
	_ = app.Stop(ctx)

	if err := printStatus(os.Stdout, report); err != nil {
		os.Exit(1)
	}
}

func printStatus(out io.Writer, report health.HealthReport) error {
	if asJSON {
		return json.NewEncoder(out).Encode(report)
	}

	online := "offline"
	if report.Connectivity.Online {
		online = "online"
	}
	_, _ = fmt.Fprintf(out, "System: %s (%s)\n\n", report.SystemStatus, online)

	names := make([]string, 0, len(report.Providers))
	for name := range report.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "PROVIDER\tSTATUS\tBASE URL")
	for _, name := range names {
		p := report.Providers[name]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", name, p.Status, p.Detail.BaseURL)
	}
	return w.Flush()
}
