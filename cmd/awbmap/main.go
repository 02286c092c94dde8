// awbmap is the command-line front end for the AWB Map tuning-file toolkit:
// inspect, validate and patch vendor tuning documents, manage backups, and
// generate reports from EXIF frame logs.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/banshee-data/awbmap"
	"github.com/banshee-data/awbmap/internal/awb/backup"
	"github.com/banshee-data/awbmap/internal/awb/exif"
	"github.com/banshee-data/awbmap/internal/awb/field"
	"github.com/banshee-data/awbmap/internal/awb/parse"
	"github.com/banshee-data/awbmap/internal/awb/patch"
	"github.com/banshee-data/awbmap/internal/awb/report"
	"github.com/banshee-data/awbmap/internal/awb/storage/sqlite"
	"github.com/banshee-data/awbmap/internal/awb/validate"
	"github.com/banshee-data/awbmap/internal/config"
	"github.com/banshee-data/awbmap/internal/monitoring"
	"github.com/banshee-data/awbmap/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "parse":
		handleParse(args)
	case "validate":
		handleValidate(args)
	case "set":
		handleSet(args)
	case "backup":
		handleBackup(args)
	case "restore":
		handleRestore(args)
	case "backups":
		handleBackups(args)
	case "report":
		handleReport(args)
	case "exif-import":
		handleExifImport(args)
	case "exif-stats":
		handleExifStats(args)
	case "meta":
		handleMeta(args)
	case "version":
		fmt.Printf("awbmap version %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`awbmap - AWB Map tuning file toolkit

Usage: awbmap <command> [options]

Commands:
  parse        Parse a tuning file and print its entries
  validate     Validate a tuning file (basic, structure or content level)
  set          Patch one field of one entry, preserving file formatting
  backup       Make a timestamped backup of a tuning file
  restore      Restore a tuning file from a backup
  backups      List existing backups for a tuning file
  report       Render an HTML (and optionally PNG) report of the map layout
  exif-import  Import an EXIF CSV log and match frames against the map
  exif-stats   Show per-point match statistics for an import
  meta         Show file metadata without a full parse
  version      Show awbmap version
  help         Show this help message

Common Flags:
  --file <path>     Tuning file to operate on
  --config <file>   Tool configuration file (JSON)
  --verbose         Enable debug logging

Examples:
  awbmap parse --file awb_map.xml
  awbmap set --file awb_map.xml --alias 1_BlueSky_Bright --field offset_x --value 0.598
  awbmap validate --file awb_map.xml --level content
  awbmap report --file awb_map.xml --out report.html --png layout.png
  awbmap exif-import --file awb_map.xml --csv frames.csv --db history.db`)
}

// loadConfig loads the tool config when --config was given, or returns an
// empty config with all defaults.
func loadConfig(path string) *config.ToolConfig {
	if path == "" {
		return config.EmptyToolConfig()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fatalf("load config: %v", err)
	}
	return cfg
}

// openStore opens the history store when a DB path is configured, else nil.
func openStore(flagPath string, cfg *config.ToolConfig) *sqlite.Store {
	path := flagPath
	if path == "" {
		path = cfg.GetHistoryDBPath()
	}
	if path == "" {
		return nil
	}
	store, err := sqlite.Open(path)
	if err != nil {
		fatalf("open history store: %v", err)
	}
	return store
}

// backupService builds a backup service from the tool config. A non-empty
// dirFlag wins over the configured backup_dir.
func backupService(cfg *config.ToolConfig, dirFlag string) *backup.Service {
	svc := backup.NewService()
	svc.Retention = cfg.GetBackupRetention()
	svc.Dir = dirFlag
	if svc.Dir == "" {
		svc.Dir = cfg.GetBackupDir()
	}
	return svc
}

func fatalf(format string, v ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", v...)
	os.Exit(1)
}

func requireFile(fs *flag.FlagSet, file string) {
	if file == "" {
		fmt.Fprintln(os.Stderr, "Error: --file flag is required")
		fs.Usage()
		os.Exit(1)
	}
}

func handleParse(args []string) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	file := fs.String("file", "", "Tuning file to parse (required)")
	configPath := fs.String("config", "", "Tool configuration file")
	dbPath := fs.String("db", "", "History database path (overrides config)")
	verbose := fs.Bool("verbose", false, "Enable debug logging")
	fs.Parse(args)

	monitoring.SetVerbose(*verbose)
	requireFile(fs, *file)

	toolCfg := loadConfig(*configPath)
	cfg, err := awbmap.ParseFile(*file, toolCfg.GetDeviceLabel())
	if err != nil {
		fatalf("%v", err)
	}

	fmt.Printf("%s: %d entries, base boundary RpG=%g BpG=%g\n",
		*file, len(cfg.Points), cfg.Boundary.RpG, cfg.Boundary.BpG)
	for _, pt := range cfg.Points {
		x, y := pt.Representative()
		shape := "point"
		if pt.HasPolygon() {
			shape = fmt.Sprintf("polygon[%d]", len(pt.Polygon))
		}
		state := "enabled"
		if !pt.Enabled {
			state = "disabled"
		}
		fmt.Printf("  %-10s %-28s %-11s (%.4f, %.4f) weight=%g %s\n",
			pt.Tag, pt.Alias, shape, x, y, pt.Float(field.Weight), state)
	}
	for _, w := range cfg.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}

	if store := openStore(*dbPath, toolCfg); store != nil {
		defer store.Close()
		if err := store.RecordSession(cfg); err != nil {
			monitoring.Logf("record session: %v", err)
		}
	}
}

func handleValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	file := fs.String("file", "", "Tuning file to validate (required)")
	levelName := fs.String("level", "content", "Validation level: basic, structure or content")
	fs.Parse(args)

	requireFile(fs, *file)
	level, err := validate.ParseLevel(*levelName)
	if err != nil {
		fatalf("%v", err)
	}

	res, err := awbmap.Validate(*file, level)
	if err != nil {
		fatalf("%v", err)
	}

	for _, e := range res.Errors {
		fmt.Printf("error: %s\n", e)
	}
	for _, w := range res.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	if res.OK() {
		fmt.Printf("%s: OK at level %s (%d entries)\n", *file, res.Level, res.EntryCount)
		return
	}
	fmt.Printf("%s: FAILED at level %s (%d error(s))\n", *file, res.Level, len(res.Errors))
	os.Exit(1)
}

func handleSet(args []string) {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	file := fs.String("file", "", "Tuning file to patch (required)")
	alias := fs.String("alias", "", "Alias of the entry to change (required)")
	fieldID := fs.String("field", "", "Field ID to change, e.g. offset_x or weight (required)")
	value := fs.String("value", "", "New value (required)")
	noBackup := fs.Bool("no-backup", false, "Skip the pre-write backup")
	configPath := fs.String("config", "", "Tool configuration file")
	dbPath := fs.String("db", "", "History database path (overrides config)")
	verbose := fs.Bool("verbose", false, "Enable debug logging")
	fs.Parse(args)

	monitoring.SetVerbose(*verbose)
	requireFile(fs, *file)
	if *alias == "" || *fieldID == "" || *value == "" {
		fmt.Fprintln(os.Stderr, "Error: --alias, --field and --value are all required")
		fs.Usage()
		os.Exit(1)
	}

	toolCfg := loadConfig(*configPath)
	reg := field.DefaultRegistry()

	def, ok := reg.Lookup(*fieldID)
	if !ok {
		fatalf("unknown field %q; known fields: %s", *fieldID, strings.Join(fieldIDs(reg), ", "))
	}
	typed, err := def.Type.Parse(*value)
	if err != nil {
		fatalf("value %q is not a valid %s: %v", *value, def.Type, err)
	}

	cfg, err := parse.NewParser(reg).ParseFile(*file, toolCfg.GetDeviceLabel())
	if err != nil {
		fatalf("%v", err)
	}
	pt := cfg.PointByAlias(*alias)
	if pt == nil {
		fatalf("no entry with alias %q; aliases: %s", *alias, strings.Join(cfg.Aliases(), ", "))
	}
	pt.SetField(*fieldID, typed)

	w := patch.NewWriter(reg)
	w.Backups = backupService(toolCfg, "")
	if store := openStore(*dbPath, toolCfg); store != nil {
		defer store.Close()
		w.Audit = store
	}
	if err := w.Write(cfg, *file, !*noBackup); err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("%s: %s.%s = %s\n", *file, *alias, *fieldID, *value)
}

func fieldIDs(reg *field.Registry) []string {
	defs := reg.All()
	ids := make([]string, len(defs))
	for i, d := range defs {
		ids[i] = d.ID
	}
	sort.Strings(ids)
	return ids
}

func handleBackup(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	file := fs.String("file", "", "Tuning file to back up (required)")
	dir := fs.String("dir", "", "Backup directory (default: sibling backups/ or config backup_dir)")
	configPath := fs.String("config", "", "Tool configuration file")
	fs.Parse(args)

	requireFile(fs, *file)
	toolCfg := loadConfig(*configPath)
	path, err := backupService(toolCfg, *dir).Backup(*file)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("backed up to %s\n", path)
}

func handleRestore(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	file := fs.String("file", "", "Tuning file to restore (required)")
	from := fs.String("from", "", "Backup file to restore from (default: newest)")
	dir := fs.String("dir", "", "Backup directory to search (default: sibling backups/ or config backup_dir)")
	configPath := fs.String("config", "", "Tool configuration file")
	fs.Parse(args)

	requireFile(fs, *file)
	toolCfg := loadConfig(*configPath)
	svc := backupService(toolCfg, *dir)
	src := *from
	if src == "" {
		infos, err := svc.List(*file)
		if err != nil {
			fatalf("%v", err)
		}
		if len(infos) == 0 {
			fatalf("no backups found for %s", *file)
		}
		src = infos[len(infos)-1].Path
	}
	if err := svc.Restore(src, *file); err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("restored %s from %s\n", *file, src)
}

func handleBackups(args []string) {
	fs := flag.NewFlagSet("backups", flag.ExitOnError)
	file := fs.String("file", "", "Tuning file to list backups for (required)")
	dir := fs.String("dir", "", "Backup directory to search (default: sibling backups/ or config backup_dir)")
	configPath := fs.String("config", "", "Tool configuration file")
	fs.Parse(args)

	requireFile(fs, *file)
	toolCfg := loadConfig(*configPath)
	infos, err := backupService(toolCfg, *dir).List(*file)
	if err != nil {
		fatalf("%v", err)
	}
	if len(infos) == 0 {
		fmt.Printf("no backups for %s\n", *file)
		return
	}
	for _, info := range infos {
		fmt.Printf("%s  %8d bytes  %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"), info.SizeBytes, info.Path)
	}
}

func handleReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	file := fs.String("file", "", "Tuning file to report on (required)")
	out := fs.String("out", "awb_report.html", "HTML output path")
	png := fs.String("png", "", "Optional PNG layout output path")
	configPath := fs.String("config", "", "Tool configuration file")
	fs.Parse(args)

	requireFile(fs, *file)
	toolCfg := loadConfig(*configPath)

	cfg, err := awbmap.ParseFile(*file, toolCfg.GetDeviceLabel())
	if err != nil {
		fatalf("%v", err)
	}
	if len(cfg.Points) > toolCfg.GetReportMaxPoints() {
		fatalf("%d entries exceed report_max_points (%d)", len(cfg.Points), toolCfg.GetReportMaxPoints())
	}

	opts := report.Options{Theme: toolCfg.GetReportTheme()}
	if err := report.RenderHTMLFile(cfg, *out, opts); err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("wrote %s\n", *out)

	if *png != "" {
		if err := report.SavePNG(cfg, *png); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("wrote %s\n", *png)
	}
}

func handleExifImport(args []string) {
	fs := flag.NewFlagSet("exif-import", flag.ExitOnError)
	file := fs.String("file", "", "Tuning file to match against (required)")
	csvPath := fs.String("csv", "", "EXIF CSV log to import (required)")
	configPath := fs.String("config", "", "Tool configuration file")
	dbPath := fs.String("db", "", "History database path (overrides config)")
	fs.Parse(args)

	requireFile(fs, *file)
	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --csv flag is required")
		fs.Usage()
		os.Exit(1)
	}

	toolCfg := loadConfig(*configPath)
	cfg, err := awbmap.ParseFile(*file, toolCfg.GetDeviceLabel())
	if err != nil {
		fatalf("%v", err)
	}

	frames, skipped, err := exif.ReadCSVFile(*csvPath)
	if err != nil {
		fatalf("%v", err)
	}
	matches := exif.MatchFrames(cfg, frames)
	stats := exif.ComputeStats(matches)
	fmt.Printf("%s: %d frames (%d skipped), %d matched, %d unmatched\n",
		*csvPath, stats.Total, skipped, stats.Matched, stats.Unmatched)

	if store := openStore(*dbPath, toolCfg); store != nil {
		defer store.Close()
		importID := cfg.ParseID
		frameIDs, err := store.InsertFrames(importID, frames)
		if err != nil {
			fatalf("store frames: %v", err)
		}
		if err := store.RecordMatches(importID, frameIDs, matches); err != nil {
			fatalf("store matches: %v", err)
		}
		fmt.Printf("recorded import %s\n", importID)
	}
}

func handleExifStats(args []string) {
	fs := flag.NewFlagSet("exif-stats", flag.ExitOnError)
	file := fs.String("file", "", "Tuning file to match against (required)")
	csvPath := fs.String("csv", "", "EXIF CSV log to analyse (required)")
	configPath := fs.String("config", "", "Tool configuration file")
	fs.Parse(args)

	requireFile(fs, *file)
	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --csv flag is required")
		fs.Usage()
		os.Exit(1)
	}

	toolCfg := loadConfig(*configPath)
	cfg, err := awbmap.ParseFile(*file, toolCfg.GetDeviceLabel())
	if err != nil {
		fatalf("%v", err)
	}
	frames, _, err := exif.ReadCSVFile(*csvPath)
	if err != nil {
		fatalf("%v", err)
	}
	stats := exif.ComputeStats(exif.MatchFrames(cfg, frames))

	fmt.Printf("frames=%d matched=%d unmatched=%d cct/bv correlation=%.3f\n",
		stats.Total, stats.Matched, stats.Unmatched, stats.CCTBVCorrelation)
	for _, ps := range stats.PerPoint {
		fmt.Printf("  %-28s %5d frames  RpG %.4f±%.4f  BpG %.4f±%.4f  CCT %.0fK\n",
			ps.Alias, ps.Count, ps.MeanRpG, ps.StdRpG, ps.MeanBpG, ps.StdBpG, ps.MeanCCT)
	}
}

func handleMeta(args []string) {
	fs := flag.NewFlagSet("meta", flag.ExitOnError)
	file := fs.String("file", "", "Tuning file to inspect (required)")
	fs.Parse(args)

	requireFile(fs, *file)
	meta, err := awbmap.Metadata(*file)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("path:          %s\n", meta.Path)
	fmt.Printf("size:          %d bytes\n", meta.SizeBytes)
	fmt.Printf("modified:      %s\n", meta.ModTime.Format("2006-01-02 15:04:05"))
	fmt.Printf("root tag:      %s\n", meta.RootTag)
	fmt.Printf("entries:       %d\n", meta.EntryCount)
	fmt.Printf("base boundary: %v\n", meta.HasBaseBoundary)
	if len(meta.Aliases) > 0 {
		fmt.Printf("aliases:       %s\n", strings.Join(meta.Aliases, ", "))
	}
}
