package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/mrdeadlift/relic-engine/internal/cache"
	"github.com/mrdeadlift/relic-engine/internal/data"
	"github.com/mrdeadlift/relic-engine/internal/engine"
	"github.com/mrdeadlift/relic-engine/internal/model"
	"github.com/mrdeadlift/relic-engine/internal/validator"
)

var (
	criticalColor = color.New(color.FgRed, color.Bold)
	highColor     = color.New(color.FgYellow, color.Bold)
	mediumColor   = color.New(color.FgYellow)
	lowColor      = color.New(color.FgHiBlack)
	okColor       = color.New(color.FgGreen)
)

type options struct {
	relics    string
	weapon    string
	style     string
	enemy     string
	health    float64
	combo     int
	firstHit  bool
	env       string
	trace     bool
	jsonOut   bool
	list      bool
	remoteURL string
}

func main() {
	var opts options
	flag.StringVar(&opts.relics, "relics", "", "comma-separated relic ids to equip")
	flag.StringVar(&opts.weapon, "weapon", "", "equipped weapon type (sword, bow, ...)")
	flag.StringVar(&opts.style, "style", "", "combat style (melee, ranged, ...)")
	flag.StringVar(&opts.enemy, "enemy", "", "enemy type (boss, undead, ...)")
	flag.Float64Var(&opts.health, "health", 1.0, "current health as a fraction in [0,1]")
	flag.IntVar(&opts.combo, "combo", 0, "current combo count")
	flag.BoolVar(&opts.firstHit, "first-hit", false, "treat the hit as the first of a chain")
	flag.StringVar(&opts.env, "env", "", "comma-separated environment tags")
	flag.BoolVar(&opts.trace, "trace", false, "print the step-by-step trace")
	flag.BoolVar(&opts.jsonOut, "json", false, "print the raw result as JSON")
	flag.BoolVar(&opts.list, "list", false, "list the available relics and exit")
	flag.StringVar(&opts.remoteURL, "remote", "", "base URL of a calcserver to validate against")
	flag.Parse()

	if err := run(opts); err != nil {
		criticalColor.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	catalog, err := data.Load()
	if err != nil {
		if opts.relics == "" {
			return fmt.Errorf("loading relic catalog: %w", err)
		}
		// Degraded path: no catalog, print the naive offline estimate.
		highColor.Fprintln(os.Stderr, "relic catalog unavailable, using offline estimate:", err)
		result := engine.Fallback(splitList(opts.relics))
		printSummary(result)
		printRelics(result.RelicDetails)
		return nil
	}

	if opts.list {
		printCatalog(os.Stdout, catalog)
		return nil
	}
	if opts.relics == "" {
		flag.Usage()
		return fmt.Errorf("no relics given, use -relics id1,id2,... (-list shows the catalog)")
	}

	ids := splitList(opts.relics)
	cctx := &model.CalculationContext{
		WeaponType:  opts.weapon,
		CombatStyle: opts.style,
		EnemyType:   opts.enemy,
		HealthPct:   opts.health,
		ComboCount:  opts.combo,
		FirstHit:    opts.firstHit,
		Environment: splitList(opts.env),
	}

	calc := engine.NewCalculator(catalog, cache.New(cache.DefaultMaxEntries), cache.DefaultTTL)
	engOpts := engine.DefaultOptions()
	engOpts.IncludeTrace = opts.trace
	engOpts.IncludePerformance = true

	result, err := calc.Calculate(ids, cctx, engOpts)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printSummary(result)
	printRelics(result.RelicDetails)
	printBreakdown(result.Breakdown)
	if opts.trace {
		printTrace(result.Trace)
	}

	if opts.remoteURL != "" {
		return validateAgainst(opts.remoteURL, calc, ids, cctx, result)
	}
	return nil
}

func printSummary(r *model.CalculationResult) {
	fmt.Printf("Total multiplier: %s\n", okColor.Sprintf("%.2fx", r.Total))
	fmt.Printf("  base %.2f, synergy %.2f, conditional %.2f, environmental %.2f\n",
		r.Base, r.Synergy, r.Conditional, r.Environmental)
	fmt.Printf("Efficiency: %.2f (avg difficulty %.1f)\n", r.Efficiency, r.Difficulty)
	fmt.Printf("Request %s, %d/%d effects applied in %dus\n",
		r.Metadata.RequestID, r.Metadata.EffectsApplied, r.Metadata.EffectsConsidered,
		r.Metadata.DurationMicros)
}

func printRelics(details []model.RelicDetail) {
	if len(details) == 0 {
		return
	}
	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Relic", "Category", "Difficulty", "Contribution", "Status"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	for _, d := range details {
		status := okColor.Sprint("active")
		if d.Excluded {
			status = highColor.Sprintf("conflicts with %s", d.ExcludedBy)
		}
		table.Append([]string{
			d.Name,
			d.Category,
			fmt.Sprintf("%.1f", d.Difficulty),
			fmt.Sprintf("%+.3f", d.Contribution),
			status,
		})
	}
	if err := table.Render(); err != nil {
		fmt.Fprintln(os.Stderr, "rendering relic table:", err)
	}
}

func printBreakdown(breakdown []model.EffectContribution) {
	if len(breakdown) == 0 {
		return
	}
	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Relic", "Effect", "Kind", "Value"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	for _, c := range breakdown {
		table.Append([]string{
			c.RelicID,
			c.EffectID,
			c.Kind.String(),
			fmt.Sprintf("%+.3f", c.Value),
		})
	}
	if err := table.Render(); err != nil {
		fmt.Fprintln(os.Stderr, "rendering breakdown table:", err)
	}
}

func printTrace(trace []model.TraceStep) {
	fmt.Println()
	for _, step := range trace {
		fmt.Printf("  %-14s %-40s -> %.4f\n", step.Stage, step.Detail, step.Value)
	}
}

func printCatalog(w io.Writer, catalog *data.Catalog) {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Name", "Category", "Rarity", "Difficulty", "Effects"})
	for _, r := range catalog.All() {
		kinds := make([]string, 0, len(r.Effects))
		for _, e := range r.Effects {
			kinds = append(kinds, e.Kind.String())
		}
		table.Append([]string{
			r.ID, r.Name, r.Category, string(r.Rarity),
			fmt.Sprintf("%.1f", r.Difficulty),
			strings.Join(kinds, ", "),
		})
	}
	if err := table.Render(); err != nil {
		fmt.Fprintln(os.Stderr, "rendering catalog table:", err)
	}
}

// validateAgainst reruns the calculation through a remote calcserver and
// prints the field-level comparison.
func validateAgainst(baseURL string, calc *engine.Calculator, ids []string, cctx *model.CalculationContext, local *model.CalculationResult) error {
	remote := validator.NewHTTPRemote(baseURL, 10*time.Second)
	val := validator.New(calc, remote, validator.DefaultConfig(), nil)

	vr, err := val.Validate(context.Background(), ids, cctx, local)
	if err != nil {
		return fmt.Errorf("validating against %s: %w", baseURL, err)
	}

	fmt.Println()
	if vr.TimedOut {
		criticalColor.Println("Remote validation timed out")
	}
	if len(vr.Discrepancies) == 0 {
		okColor.Printf("Remote agrees (confidence %.2f)\n", vr.Confidence)
	} else {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header([]string{"Field", "Local", "Remote", "Diff %", "Severity"})
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignRight
		})
		for _, d := range vr.Discrepancies {
			table.Append([]string{
				d.Field,
				fmt.Sprintf("%.4f", d.Local),
				fmt.Sprintf("%.4f", d.Remote),
				fmt.Sprintf("%.2f", d.PctDiff),
				severityColor(d.Severity).Sprint(d.Severity.String()),
			})
		}
		if err := table.Render(); err != nil {
			fmt.Fprintln(os.Stderr, "rendering discrepancy table:", err)
		}
		fmt.Printf("Confidence %.2f\n", vr.Confidence)
	}
	fmt.Printf("Recommended action: %s\n", actionColor(vr.Action).Sprint(string(vr.Action)))
	return nil
}

func severityColor(s model.Severity) *color.Color {
	switch s {
	case model.SeverityCritical:
		return criticalColor
	case model.SeverityHigh:
		return highColor
	case model.SeverityMedium:
		return mediumColor
	default:
		return lowColor
	}
}

func actionColor(a model.RecommendedAction) *color.Color {
	switch a {
	case model.ActionManualReview:
		return criticalColor
	case model.ActionUseRemote:
		return highColor
	default:
		return okColor
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
