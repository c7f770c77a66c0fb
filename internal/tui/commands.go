package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"covergrid/internal/board"
	"covergrid/internal/catalog"
	"covergrid/internal/export"
	"covergrid/internal/history"
)

// exportJob runs the full pipeline off the UI thread and appends the export
// log entry on success. History failures are non-fatal: the artifact already
// exists, so the record is dropped with only the job log noticing.
func exportJob(exporter *export.Pipeline, req export.Request, historyPath string, kind catalog.Kind, filled int) jobRunner {
	tiles := append([]export.Tile(nil), req.Tiles...)
	req.Tiles = tiles
	return func(parent context.Context) (tea.Msg, error) {
		result, err := exporter.Export(parent, req)
		if err != nil {
			return exportResultMsg{err: err}, err
		}
		record := history.Record{
			Title:      req.Title,
			Path:       result.Path,
			Format:     result.Format,
			Kind:       kind,
			Slots:      filled,
			ExportedAt: time.Now(),
		}
		if err := history.Append(historyPath, record); err != nil {
			return exportResultMsg{result: result, record: record}, err
		}
		return exportResultMsg{result: result, record: record}, nil
	}
}

// boardTiles snapshots the 9 slots into export tiles, row-major. Empty slots
// become empty cells.
func boardTiles(b *board.Board) []export.Tile {
	selections := b.Selections()
	tiles := make([]export.Tile, len(selections))
	for i, selection := range selections {
		if selection == nil {
			continue
		}
		tiles[i] = export.Tile{
			Label:    selection.Title,
			ImageURL: selection.ImageURL,
		}
	}
	return tiles
}
