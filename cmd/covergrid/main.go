package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"covergrid/internal/catalog"
	"covergrid/internal/config"
	"covergrid/internal/export"
	"covergrid/internal/tui"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to the TOML config file")
	catalogURL := flag.String("catalog-url", "", "override the catalog server base URL")
	kindFlag := flag.String("kind", "", "starting catalog: movies, albums, or books")
	outDir := flag.String("out", "", "override the export directory")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	if *catalogURL != "" {
		cfg.Catalog.BaseURL = *catalogURL
	}
	if *kindFlag != "" {
		cfg.Catalog.Kind = *kindFlag
	}
	if *outDir != "" {
		cfg.Export.Directory = *outDir
	}

	kind, err := catalog.ParseKind(cfg.Catalog.Kind)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	exportDir, err := filepath.Abs(cfg.Export.Directory)
	if err != nil {
		fmt.Println("failed to resolve export directory:", err)
		os.Exit(1)
	}

	layout := export.DefaultLayout
	layout.CellSize = cfg.Export.CellSize
	layout.Scale = cfg.Export.Scale
	exporter := export.NewPipeline(exportDir, layout, nil)

	opts := []tea.ProgramOption{}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Kind: kind,
			NewClient: func(kind catalog.Kind) catalog.Client {
				return catalog.NewHTTPClient(cfg.Catalog.BaseURL, kind, nil)
			},
			Exporter:    exporter,
			HistoryPath: filepath.Join(exportDir, "exports.json"),
			Debounce:    cfg.Debounce(),
			MinChars:    cfg.Search.MinChars,
		}),
		opts...,
	)

	if _, err := program.Run(); err != nil {
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}
