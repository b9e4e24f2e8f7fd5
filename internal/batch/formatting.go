package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Format renders the batch result. Unknown formats fall back to text.
func (r *Result) Format(format string) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(r)
	case FormatCSV:
		return formatCSV(r)
	default:
		return formatText(r), nil
	}
}

func formatJSON(r *Result) (string, error) {
	out := struct {
		Images []Item `json:"images"`
		Failed int    `json:"failed"`
	}{Images: r.Items, Failed: r.Failed()}
	if out.Images == nil {
		out.Images = []Item{}
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

// formatCSV writes one row per region, or a single row with index -1 for
// images without regions.
func formatCSV(r *Result) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write([]string{"file", "region_index", "x", "y", "width", "height", "confidence", "text", "error"}); err != nil {
		return "", err
	}

	for _, it := range r.Items {
		if it.Result == nil || len(it.Result.Regions) == 0 {
			text := ""
			if it.Result != nil {
				text = it.Result.Text
			}
			if err := w.Write([]string{it.File, "-1", "", "", "", "", "", text, it.Error}); err != nil {
				return "", err
			}
			continue
		}
		for _, reg := range it.Result.Regions {
			row := []string{
				it.File,
				strconv.Itoa(reg.Index),
				strconv.Itoa(reg.X),
				strconv.Itoa(reg.Y),
				strconv.Itoa(reg.Width),
				strconv.Itoa(reg.Height),
				fmt.Sprintf("%.4f", reg.Confidence),
				reg.Text,
				"",
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}
	w.Flush()
	return sb.String(), w.Error()
}

func formatText(r *Result) string {
	var sb strings.Builder
	for i, it := range r.Items {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "# %s\n", it.File)
		if it.Error != "" {
			fmt.Fprintf(&sb, "! %s\n", it.Error)
			continue
		}
		sb.WriteString(it.Result.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}
