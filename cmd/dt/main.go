package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	json "github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/dealtree/internal/datasource"
	"github.com/vanderheijden86/dealtree/pkg/config"
	"github.com/vanderheijden86/dealtree/pkg/debug"
	"github.com/vanderheijden86/dealtree/pkg/loader"
	"github.com/vanderheijden86/dealtree/pkg/marketplace"
	"github.com/vanderheijden86/dealtree/pkg/metrics"
	"github.com/vanderheijden86/dealtree/pkg/model"
	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
	"github.com/vanderheijden86/dealtree/pkg/ui"
	"github.com/vanderheijden86/dealtree/pkg/version"
	"github.com/vanderheijden86/dealtree/pkg/wizard"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// flags holds the parsed command line.
type flags struct {
	help        bool
	version     bool
	configPath  string
	dbPath      string
	role        string
	user        string
	editProfile string
	editDeal    string
	newProfile  bool
	newDeal     bool
	importPath  string
	showDeal    string
	offMarket   string
	relist      string
	complete    string

	robotCatalog   string
	robotNormalize string
	robotNames     string
	robotMatch     string
	robotDeals     string
	robotAudit     bool
	metrics        bool
	saveConfig     bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, *flag.FlagSet, error) {
	f := &flags{}
	fs := flag.NewFlagSet("dt", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.BoolVar(&f.help, "help", false, "Show help")
	fs.BoolVar(&f.version, "version", false, "Show version")
	fs.StringVar(&f.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/dealtree/config.yaml)")
	fs.StringVar(&f.dbPath, "db", "", "SQLite database path (overrides config and DT_DB)")
	fs.StringVar(&f.role, "role", "", "Act as buyer or seller (overrides config and DT_ROLE)")
	fs.StringVar(&f.user, "user", "", "Act as this user ID (overrides config and DT_USER)")
	fs.StringVar(&f.editProfile, "edit-profile", "", "Edit a buyer profile's target criteria in the TUI")
	fs.StringVar(&f.editDeal, "edit-deal", "", "Edit a deal's geography and industry in the TUI")
	fs.BoolVar(&f.newProfile, "new-profile", false, "Create a buyer profile interactively")
	fs.BoolVar(&f.newDeal, "new-deal", false, "Create a deal interactively")
	fs.StringVar(&f.importPath, "import", "", "Import buyer profiles from a JSONL file")
	fs.StringVar(&f.showDeal, "show-deal", "", "Show a deal (and its matching buyers, for its seller)")
	fs.StringVar(&f.offMarket, "off-market", "", "Take a deal off the market")
	fs.StringVar(&f.relist, "relist", "", "Put an off-market deal back on the market")
	fs.StringVar(&f.complete, "complete", "", "Mark a deal completed")

	fs.StringVar(&f.robotCatalog, "robot-catalog", "", "Print a catalog tree as JSON (geography|industry)")
	fs.StringVar(&f.robotNormalize, "robot-normalize", "", "Normalize --names against a catalog and print JSON (geography|industry)")
	fs.StringVar(&f.robotNames, "names", "", "Comma-separated names for --robot-normalize")
	fs.StringVar(&f.robotMatch, "robot-match", "", "Print buyers matching a deal as JSON")
	fs.StringVar(&f.robotDeals, "robot-deals", "", "Print visible deals as JSON (all|active|off_market|completed)")
	fs.BoolVar(&f.robotAudit, "robot-audit", false, "Report stored names the catalogs no longer contain, as JSON")
	fs.BoolVar(&f.saveConfig, "save-config", false, "Write the effective settings to the config file and exit")
	fs.BoolVar(&f.metrics, "metrics", false, "Print timing and cache metrics as JSON to stderr on exit")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return f, fs, nil
}

// app bundles what every command needs once the config is resolved.
type app struct {
	cfg    config.Config
	geo    taxonomy.GeographyProvider
	ind    taxonomy.IndustryProvider
	stdout io.Writer
	stderr io.Writer

	store *datasource.Store
	svc   *marketplace.Service
	sess  marketplace.Session
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, fs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if f.help {
		fmt.Fprintln(stdout, "Usage: dt [options]")
		fmt.Fprintln(stdout, "\nEdit deal marketplace profiles and deals against the geography and industry catalogs.")
		fs.SetOutput(stdout)
		fs.PrintDefaults()
		return 0
	}
	if f.version {
		fmt.Fprintln(stdout, version.String())
		return 0
	}

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if f.saveConfig {
		return saveConfig(f, cfg, stdout, stderr)
	}

	if f.metrics {
		defer printMetrics(stderr)
	}

	a := &app{
		cfg:    cfg,
		geo:    taxonomy.NewGeographyProvider(cfg.Catalogs.Geography),
		ind:    taxonomy.NewIndustryProvider(cfg.Catalogs.Industry),
		stdout: stdout,
		stderr: stderr,
	}

	// Catalog-only robot commands need no database or session.
	switch {
	case f.robotCatalog != "":
		return a.exit(a.robotCatalog(ctx, f.robotCatalog))
	case f.robotNormalize != "":
		return a.exit(a.robotNormalize(ctx, f.robotNormalize, f.robotNames))
	}

	if err := a.open(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	switch {
	case f.robotMatch != "":
		return a.exit(a.robotMatchBuyers(ctx, f.robotMatch))
	case f.robotDeals != "":
		return a.exit(a.robotListDeals(ctx, f.robotDeals))
	case f.robotAudit:
		return a.exit(a.robotAuditNames(ctx))
	case f.importPath != "":
		return a.exit(a.importProfiles(ctx, f.importPath))
	case f.showDeal != "":
		return a.exit(a.showDeal(ctx, f.showDeal))
	case f.offMarket != "":
		return a.exit(a.transition(ctx, f.offMarket, a.svc.MarkOffMarket))
	case f.relist != "":
		return a.exit(a.transition(ctx, f.relist, a.svc.Relist))
	case f.complete != "":
		return a.exit(a.transition(ctx, f.complete, a.svc.CompleteDeal))
	case f.newProfile:
		return a.exit(a.newProfile(ctx))
	case f.newDeal:
		return a.exit(a.newDeal(ctx))
	case f.editProfile != "":
		return a.exit(a.editProfile(ctx, f.editProfile))
	case f.editDeal != "":
		return a.exit(a.editDeal(ctx, f.editDeal))
	default:
		return a.exit(a.list(ctx))
	}
}

func loadConfig(f *flags) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFrom(f.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()
	if f.dbPath != "" {
		cfg.Database = f.dbPath
	}
	if f.role != "" {
		cfg.Session.Role = f.role
	}
	if f.user != "" {
		cfg.Session.UserID = f.user
	}
	if cfg.Session.UserID == "" {
		cfg.Session.UserID = defaultUser()
	}
	return cfg, cfg.Validate()
}

func saveConfig(f *flags, cfg config.Config, stdout, stderr io.Writer) int {
	var err error
	path := f.configPath
	if path == "" {
		path = config.ConfigPath()
		err = config.Save(cfg)
	} else {
		err = config.SaveTo(cfg, path)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Saved config to %s\n", path)
	return 0
}

func defaultUser() string {
	for _, env := range []string{"USER", "USERNAME"} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return "local"
}

func (a *app) open(ctx context.Context) error {
	role, err := marketplace.ParseRole(a.cfg.Session.Role)
	if err != nil {
		return err
	}
	a.sess = marketplace.Session{UserID: a.cfg.Session.UserID, Role: role, Token: a.cfg.Session.Token}
	if err := a.sess.Validate(); err != nil {
		return err
	}

	path := a.cfg.DatabasePath()
	debug.Log("opening database %s as %s (%s)", path, a.sess.UserID, a.sess.Role)
	a.store, err = datasource.Open(ctx, path)
	if err != nil {
		return err
	}
	a.svc = marketplace.NewService(a.store, a.geo, a.ind)
	return nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

func (a *app) exit(err error) int {
	if err == nil {
		return 0
	}
	switch {
	case errors.Is(err, marketplace.ErrForbidden):
		fmt.Fprintf(a.stderr, "Error: %v (current role: %s, use --role)\n", err, a.sess.Role)
	default:
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
	}
	return 1
}

func printMetrics(w io.Writer) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(metrics.Snapshot())
}

func (a *app) interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func (a *app) termWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

func (a *app) importProfiles(ctx context.Context, path string) error {
	profiles, err := loader.LoadProfilesFromFile(path, loader.ParseOptions{
		WarningHandler: func(msg string) { fmt.Fprintf(a.stderr, "Warning: %s\n", msg) },
	})
	if err != nil {
		return err
	}
	imported := 0
	for _, p := range profiles {
		saved, dropped, err := a.svc.ImportProfile(ctx, a.sess, p)
		if err != nil {
			if errors.Is(err, marketplace.ErrForbidden) {
				return err
			}
			fmt.Fprintf(a.stderr, "Warning: skipping %s: %v\n", p.Company, err)
			continue
		}
		imported++
		for _, d := range dropped {
			fmt.Fprintf(a.stderr, "Warning: %s: dropped unknown %s %q%s\n", saved.Company, d.Field, d.Name, suggestionHint(d.Suggestions))
		}
	}
	fmt.Fprintf(a.stdout, "Imported %d of %d profiles from %s\n", imported, len(profiles), path)
	return nil
}

func suggestionHint(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return " (did you mean " + strings.Join(s, ", ") + "?)"
}

func (a *app) showDeal(ctx context.Context, id string) error {
	d, err := a.svc.GetDeal(ctx, a.sess, id)
	if err != nil {
		return err
	}
	var matches []marketplace.BuyerMatch
	if a.sess.Role == marketplace.RoleSeller {
		matches, err = a.svc.MatchBuyers(ctx, a.sess, id)
		if err != nil {
			return err
		}
	}
	fmt.Fprintln(a.stdout, ui.RenderDeal(d, matches, a.termWidth()-4))
	return nil
}

func (a *app) transition(ctx context.Context, id string, fn func(context.Context, marketplace.Session, string) (model.Deal, error)) error {
	d, err := fn(ctx, a.sess, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s %s is now %s\n", d.ID, d.Title, d.Status)
	return nil
}

func (a *app) newProfile(ctx context.Context) error {
	p, err := wizard.NewProfile(ctx, a.svc, a.sess)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Created profile %s (%s)\n", p.ID, p.Company)
	if !a.interactive() {
		return nil
	}
	return a.editProfile(ctx, p.ID)
}

func (a *app) newDeal(ctx context.Context) error {
	d, err := wizard.NewDeal(ctx, a.svc, a.sess)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Listed deal %s (%s / %s)\n", d.ID, d.GeographySelection, d.IndustrySector)
	return nil
}

func (a *app) list(ctx context.Context) error {
	if a.sess.Role == marketplace.RoleBuyer {
		profiles, err := a.svc.ListProfiles(ctx, a.sess)
		if err != nil {
			return err
		}
		if len(profiles) == 0 {
			fmt.Fprintln(a.stdout, "No profiles yet. Create one with 'dt --new-profile'.")
			return nil
		}
		for _, p := range profiles {
			fmt.Fprintf(a.stdout, "%s  %-24s  %d countries, %d sectors  %s\n",
				p.ID, p.Company, len(p.TargetCriteria.Countries), len(p.TargetCriteria.IndustrySectors), ui.FormatTimeRel(p.UpdatedAt))
		}
		return nil
	}

	deals, err := a.svc.ListDeals(ctx, a.sess, "")
	if err != nil {
		return err
	}
	if len(deals) == 0 {
		fmt.Fprintln(a.stdout, "No deals yet. List one with 'dt --new-deal'.")
		return nil
	}
	for _, d := range deals {
		fmt.Fprintf(a.stdout, "%s  %s  %-28s  %s / %s  %s\n",
			d.ID, ui.RenderDealStatusBadge(string(d.Status)), d.Title, d.GeographySelection, d.IndustrySector, ui.FormatPrice(d.AskingPrice))
	}
	return nil
}
