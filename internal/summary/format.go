package summary

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// WriteText renders the table as an aligned block, one row per segment and
// one mean/min/max column group per feature.
func (t *Table) WriteText(w io.Writer, title string) error {
	if _, err := fmt.Fprintf(w, "%s\n%s\n", title, strings.Repeat("=", len(title))); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	header := []string{"segment", "count"}
	for _, f := range t.Features {
		header = append(header, f+" mean", "min", "max")
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	for _, s := range t.Segments {
		cells := []string{strconv.Itoa(s.Label), strconv.Itoa(s.Count)}
		for _, st := range s.Stats {
			cells = append(cells, formatStat(st.Mean), formatStat(st.Min), formatStat(st.Max))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if t.Unlabeled > 0 {
		if _, err := fmt.Fprintf(w, "(%d customers not modeled)\n", t.Unlabeled); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// formatStat prints two decimals, which is enough for reading a summary
func formatStat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
