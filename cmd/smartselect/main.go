package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/adewale/smartselect/internal/database"
	"github.com/adewale/smartselect/internal/engine"
	"github.com/adewale/smartselect/internal/models"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	command := os.Args[1]

	switch command {
	case "version", "--version", "-v":
		fmt.Printf("smartselect version %s\n", version)
		fmt.Println("Smart selection and theming engine")
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	case "index":
		handleIndex()
	case "select":
		handleSelect()
	case "shown":
		handleShown()
	case "extract":
		handleExtract()
	case "stats":
		handleStats()
	case "theme":
		handleTheme()
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown command '%s'\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("smartselect - weighted wallpaper selection and theming engine")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  smartselect <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  index      Index photos from one or more source directories")
	fmt.Println("  select     Draw one or more weighted-random images")
	fmt.Println("  shown      Record that an image was just displayed")
	fmt.Println("  extract    Extract palettes for every pending image")
	fmt.Println("  stats      Display database statistics")
	fmt.Println("  theme      Apply the theming template registry to an image")
	fmt.Println("  version    Show version information")
	fmt.Println("  help       Show this help message")
}

func openEngine(dbPath string, workers int, favoritesRoot string) (*database.DB, *engine.Engine) {
	db, err := database.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open database %s: %v\n", dbPath, err)
		os.Exit(1)
	}
	eng := engine.New(db, models.DefaultSelectionConfig(), engine.Options{
		WorkerCount:         workers,
		FavoritesRoot:       favoritesRoot,
		PaletteExtractionOn: true,
	})
	return db, eng
}

func handleIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	dbPath := fs.String("db", "smartselect.db", "Database file path")
	workers := fs.Int("w", 4, "Number of worker threads")
	favoritesRoot := fs.String("favorites-root", "", "Directory whose contents are marked as favorites")

	fs.Usage = func() {
		fmt.Println("Usage: smartselect index <directory> [<directory> ...] [options]")
		fmt.Println("")
		fmt.Println("Index photos from one or more directories into a SQLite database.")
		fmt.Println("Every top-level argument becomes its own rotation source, named")
		fmt.Println("after the directory's base name. Any file under -favorites-root")
		fmt.Println("is marked as a favorite.")
		fmt.Println("")
		fmt.Println("Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: at least one photo directory is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	db, eng := openEngine(*dbPath, *workers, *favoritesRoot)
	defer db.Close()

	result, err := eng.RebuildIndex(fs.Args(), progressPrinter("indexing"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("added=%d updated=%d removed=%d\n", result.Added, result.Updated, result.Removed)
}

func handleSelect() {
	fs := flag.NewFlagSet("select", flag.ExitOnError)
	dbPath := fs.String("db", "smartselect.db", "Database file path")
	count := fs.Int("n", 1, "Number of images to select")
	favoritesOnly := fs.Bool("favorites", false, "Restrict selection to favorites")

	fs.Usage = func() {
		fmt.Println("Usage: smartselect select [options]")
		fmt.Println("")
		fmt.Println("Draw up to -n weighted-random images matching the given constraints.")
		fmt.Println("")
		fmt.Println("Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(1)
	}

	db, eng := openEngine(*dbPath, 0, "")
	defer db.Close()

	constraints := &models.SelectionConstraints{FavoritesOnly: *favoritesOnly}
	paths, err := eng.SelectImages(*count, constraints)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(strings.Join(paths, "\n"))
}

func handleShown() {
	fs := flag.NewFlagSet("shown", flag.ExitOnError)
	dbPath := fs.String("db", "smartselect.db", "Database file path")

	fs.Usage = func() {
		fmt.Println("Usage: smartselect shown <filepath> [options]")
		fmt.Println("")
		fmt.Println("Record that an image was just displayed, indexing it on the fly")
		fmt.Println("if it isn't already known, and extracting its palette if enabled.")
		fmt.Println("")
		fmt.Println("Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: filepath is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	db, eng := openEngine(*dbPath, 0, "")
	defer db.Close()

	if err := eng.RecordShown(fs.Arg(0), nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := eng.ApplyTheme(fs.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: theming failed: %v\n", err)
	}
}

func handleExtract() {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	dbPath := fs.String("db", "smartselect.db", "Database file path")

	fs.Usage = func() {
		fmt.Println("Usage: smartselect extract [options]")
		fmt.Println("")
		fmt.Println("Extract palettes for every image whose palette is still pending.")
		fmt.Println("")
		fmt.Println("Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(1)
	}

	db, eng := openEngine(*dbPath, 0, "")
	defer db.Close()

	n, err := eng.ExtractAllPalettes(progressPrinter("extracting"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("processed %d images\n", n)
}

func handleStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	dbPath := fs.String("db", "smartselect.db", "Database file path")

	fs.Usage = func() {
		fmt.Println("Usage: smartselect stats [options]")
		fmt.Println("")
		fmt.Println("Display aggregate statistics about the indexed library.")
		fmt.Println("")
		fmt.Println("Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(1)
	}

	db, eng := openEngine(*dbPath, 0, "")
	defer db.Close()

	stats, err := eng.GetStatistics()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	period, err := eng.GetTimePeriod()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("images:    %d\n", stats.TotalImages)
	fmt.Printf("favorites: %d\n", stats.TotalFavorites)
	fmt.Printf("palettes:  %d\n", stats.TotalPalettes)
	fmt.Printf("shown:     %d\n", stats.TotalShown)
	fmt.Printf("period:    %s\n", period)
}

func handleTheme() {
	fs := flag.NewFlagSet("theme", flag.ExitOnError)
	dbPath := fs.String("db", "smartselect.db", "Database file path")
	debounced := fs.Bool("debounce", false, "Schedule a debounced apply instead of an immediate one")

	fs.Usage = func() {
		fmt.Println("Usage: smartselect theme <filepath> [options]")
		fmt.Println("")
		fmt.Println("Expand the configured template registry against an image's")
		fmt.Println("cached palette, writing outputs and dispatching reload commands.")
		fmt.Println("")
		fmt.Println("Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: filepath is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	db, eng := openEngine(*dbPath, 0, "")
	defer db.Close()
	defer eng.Close()

	if *debounced {
		eng.ApplyThemeDebounced(fs.Arg(0))
		return
	}
	if err := eng.ApplyTheme(fs.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func progressPrinter(label string) models.ProgressCallback {
	return func(current, total int, message string) {
		fmt.Printf("\r%s: %d/%d %s", label, current, total, message)
		if current == total {
			fmt.Println()
		}
	}
}
