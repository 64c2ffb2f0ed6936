package dag

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"dag-console/apperr"
)

// Format is an export format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatImage Format = "image"
)

var csvHeader = []string{
	"id", "label", "level", "timestamp", "validator_id",
	"transaction_count", "status", "hash", "parent_hashes",
}

// Export writes the current view in the given format. Image export is
// delegated to the rendering surface.
func (m *Model) Export(format Format, w io.Writer) error {
	view := m.View()

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			return apperr.NewInternal(err)
		}
		return nil

	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return apperr.NewInternal(err)
		}
		for _, n := range view.Nodes {
			row := []string{
				n.ID,
				n.Label,
				strconv.Itoa(n.Level),
				strconv.FormatInt(n.Timestamp, 10),
				n.ValidatorID,
				strconv.Itoa(n.TransactionCount),
				string(n.Status),
				n.Hash,
				strings.Join(n.ParentHashes, ";"),
			}
			if err := cw.Write(row); err != nil {
				return apperr.NewInternal(err)
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return apperr.NewInternal(err)
		}
		return nil

	case FormatImage:
		m.mu.RLock()
		surface := m.surface
		m.mu.RUnlock()
		if surface == nil {
			return apperr.NewUnsupportedFormat(string(format))
		}
		img, err := surface.RequestSnapshot(view)
		if err != nil {
			return apperr.NewInternal(err)
		}
		if _, err := w.Write(img); err != nil {
			return apperr.NewInternal(err)
		}
		return nil
	}
	return apperr.NewUnsupportedFormat(string(format))
}
