package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.boson/internal/btree"
	"go.boson/internal/engine"
	"go.boson/internal/pagecache"
)

var (
	primaryColor   = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7C79FF"}
	secondaryColor = lipgloss.AdaptiveColor{Light: "#EE6FF8", Dark: "#F780FF"}
	mutedColor     = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	leafStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	innerStyle = lipgloss.NewStyle().Bold(true)
)

var inspectNodes int

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Render the file header, cache statistics and tree levels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDB(); err != nil {
			return err
		}

		st, err := db.Stats()
		if err != nil {
			return err
		}

		levels, err := renderLevels(db, inspectNodes)
		if err != nil {
			return err
		}

		panels := lipgloss.JoinHorizontal(lipgloss.Top,
			panelStyle.Render(renderFile(st)),
			panelStyle.Render(renderCache(st)),
			panelStyle.Render(renderTree(st)),
		)

		fmt.Fprintln(cmd.OutOrStdout(), lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render(st.Path),
			panels,
			panelStyle.Render(levels),
		))
		return nil
	},
}

func field(label, value string) string {
	return labelStyle.Render(label) + " " + value
}

func renderFile(st engine.Stats) string {
	return strings.Join([]string{
		field("size   ", humanize.IBytes(uint64(st.EndOfFile))),
		field("records", humanize.Comma(int64(st.Records))),
		field("free   ", humanize.Comma(int64(st.FreeRecords))),
	}, "\n")
}

func renderCache(st engine.Stats) string {
	return strings.Join([]string{
		field("pages   ", fmt.Sprintf("%d (%s)", st.CachePages, humanize.IBytes(uint64(st.CachePages)*pagecache.PageSize))),
		field("requests", humanize.Comma(int64(st.Cache.Requests))),
		field("hit rate", fmt.Sprintf("%.2f%%", st.CacheHitRate)),
		field("evicted ", humanize.Comma(int64(st.Cache.Evictions))),
	}, "\n")
}

func renderTree(st engine.Stats) string {
	return strings.Join([]string{
		field("entries", humanize.Comma(int64(st.Keys))),
		field("height ", fmt.Sprint(st.Height)),
		field("degrees", fmt.Sprintf("%d/%d", st.MaxDegree, st.MinDegree)),
	}, "\n")
}

// renderLevels lists the keys of every node, one line per tree level
func renderLevels(db *engine.Database, perLevel int) (string, error) {
	var lines []string
	var line []string
	depth, shown := 0, 0

	flush := func() {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render(fmt.Sprintf("L%d", depth)), strings.Join(line, " ")))
		line = line[:0]
		shown = 0
	}

	err := db.Walk(func(n btree.NodeInfo) error {
		if n.Depth != depth {
			flush()
			depth = n.Depth
		}

		shown++
		if perLevel > 0 && shown > perLevel {
			if shown == perLevel+1 {
				line = append(line, leafStyle.Render("..."))
			}
			return nil
		}

		keys := make([]string, len(n.Keys))
		for i, k := range n.Keys {
			keys[i] = fmt.Sprint(k)
		}

		text := "[" + strings.Join(keys, " ") + "]"
		if n.Leaf {
			line = append(line, leafStyle.Render(text))
		} else {
			line = append(line, innerStyle.Render(text))
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	flush()
	return strings.Join(lines, "\n"), nil
}

func init() {
	inspectCmd.Flags().IntVar(&inspectNodes, "nodes", 16, "nodes shown per level, 0 shows all")
	rootCmd.AddCommand(inspectCmd)
}
