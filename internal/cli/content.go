package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/noor/internal/content/resolver"
	"github.com/vietddude/noor/internal/control"
	"github.com/vietddude/noor/internal/core/config"
	"github.com/vietddude/noor/internal/core/domain"
	"github.com/vietddude/noor/internal/core/errclass"
)

var (
	prayerLat     float64
	prayerLng     float64
	prayerCity    string
	prayerCountry string
	prayerMethod  int
	translation   string
)

var prayerCmd = &cobra.Command{
	Use:   "prayer",
	Short: "Show today's prayer times for coordinates or a city",
	Run:   runPrayer,
}

var surahCmd = &cobra.Command{
	Use:   "surah [number]",
	Short: "Show a chapter",
	Args:  cobra.ExactArgs(1),
	Run:   runSurah,
}

var tafsirCmd = &cobra.Command{
	Use:   "tafsir [chapter:verse]",
	Short: "Show the commentary for a verse",
	Args:  cobra.RangeArgs(1, 2),
	Run:   runTafsir,
}

func init() {
	prayerCmd.Flags().Float64Var(&prayerLat, "lat", 0, "latitude")
	prayerCmd.Flags().Float64Var(&prayerLng, "lng", 0, "longitude")
	prayerCmd.Flags().StringVar(&prayerCity, "city", "", "city name (with --country)")
	prayerCmd.Flags().StringVar(&prayerCountry, "country", "", "country name")
	prayerCmd.Flags().IntVar(&prayerMethod, "method", 0, "calculation method (default from config)")

	surahCmd.Flags().StringVar(&translation, "translation", "", "translation edition, e.g. en.asad")

	rootCmd.AddCommand(prayerCmd, surahCmd, tafsirCmd)
}

// withApp runs fn against a fresh app after one connectivity probe.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.AppConfig, app *control.App) error) {
	cfg := loadConfig(cmd)
	app := newApp(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	app.CheckConnectivity(ctx)
	err := fn(ctx, cfg, app)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	_ = app.Stop(stopCtx)

	if err != nil {
		slog.Error("Request failed", "error", err)
		os.Exit(1)
	}
}

func runPrayer(cmd *cobra.Command, args []string) {
	withApp(cmd, func(ctx context.Context, cfg *config.AppConfig, app *control.App) error {
		method := prayerMethod
		if !cmd.Flags().Changed("method") {
			method = cfg.Providers.Prayer.Method
		}

		if prayerCity != "" || prayerCountry != "" {
			res, err := app.Service().PrayerTimesByCity(ctx, prayerCity, prayerCountry, method)
			if err != nil {
				return err
			}
			return printPrayer(os.Stdout, res.Value, res.Source, res.Cause)
		}

		if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
			return fmt.Errorf("either --lat and --lng or --city and --country are required")
		}
		res, err := app.Service().PrayerTimes(ctx, prayerLat, prayerLng, method)
		if err != nil {
			return err
		}
		return printPrayer(os.Stdout, res.Value, res.Source, res.Cause)
	})
}

func runSurah(cmd *cobra.Command, args []string) {
	number, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("Invalid chapter number: %v\n", err)
		os.Exit(1)
	}

	withApp(cmd, func(ctx context.Context, _ *config.AppConfig, app *control.App) error {
		res, err := app.Service().Chapter(ctx, number, translation)
		if err != nil {
			return err
		}
		return printChapter(os.Stdout, res.Value, res.Source, res.Cause)
	})
}

func runTafsir(cmd *cobra.Command, args []string) {
	chapter, verse, err := parseVerseRef(args)
	if err != nil {
		fmt.Printf("Invalid verse reference: %v\n", err)
		os.Exit(1)
	}

	withApp(cmd, func(ctx context.Context, _ *config.AppConfig, app *control.App) error {
		res, err := app.Service().Commentary(ctx, chapter, verse)
		if err != nil {
			return err
		}
		return printCommentary(os.Stdout, res.Value, res.Source, res.Cause)
	})
}

// parseVerseRef accepts "2:255" or "2 255".
func parseVerseRef(args []string) (chapter, verse int, err error) {
	parts := args
	if len(args) == 1 {
		parts = strings.Split(args[0], ":")
	}
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected chapter:verse, got %q", strings.Join(args, " "))
	}
	if chapter, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("invalid chapter: %w", err)
	}
	if verse, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("invalid verse: %w", err)
	}
	return chapter, verse, nil
}

func printDegraded(w io.Writer, source resolver.Source, cause *errclass.Error) {
	if source == resolver.SourceNetwork {
		return
	}
	reason := ""
	if cause != nil {
		reason = ": " + resolver.Message(cause)
	}
	_, _ = fmt.Fprintf(w, "(showing %s content%s)\n", source, reason)
}

func printPrayer(w io.Writer, pt *domain.PrayerTimes, source resolver.Source, cause *errclass.Error) error {
	if asJSON {
		return json.NewEncoder(w).Encode(pt)
	}

	printDegraded(w, source, cause)
	if pt.Hijri.Date != "" {
		_, _ = fmt.Fprintf(w, "%s %s %s\n", pt.Hijri.Day, pt.Hijri.Month, pt.Hijri.Year)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	for _, t := range pt.Ordered() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", t[0], t[1])
	}
	return tw.Flush()
}

func printChapter(w io.Writer, ch *domain.Chapter, source resolver.Source, cause *errclass.Error) error {
	if asJSON {
		return json.NewEncoder(w).Encode(ch)
	}

	printDegraded(w, source, cause)
	_, _ = fmt.Fprintf(w, "%d. %s (%s) - %d verses, %s\n\n",
		ch.Number, ch.EnglishName, ch.Name, ch.VerseCount, ch.RevelationPlace)
	for _, v := range ch.Verses {
		_, _ = fmt.Fprintf(w, "[%d] %s\n", v.Number, v.Text)
	}
	return nil
}

func printCommentary(w io.Writer, c domain.Commentary, source resolver.Source, cause *errclass.Error) error {
	if asJSON {
		return json.NewEncoder(w).Encode(c)
	}

	printDegraded(w, source, cause)
	_, _ = fmt.Fprintf(w, "%d:%d\n%s\n", c.Chapter, c.Verse, c.Text)
	return nil
}
