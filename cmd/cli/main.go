package main

import (
	"fmt"
	"os"
	"strings"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/spf13/cobra"

	"datastory/adapters/fileload"
	"datastory/domain/chart"
	"datastory/domain/table"
	"datastory/internal/chartspec"
	"datastory/internal/cleaning"
	"datastory/internal/insight"
	"datastory/internal/qa"
	"datastory/internal/testkit"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "datastory",
		Short: "Explore a tabular dataset from the command line",
	}

	rootCmd.AddCommand(
		newProfileCmd(),
		newSummaryCmd(),
		newInsightCmd(),
		newAskCmd(),
		newExportCmd(),
		newSampleCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadCleaned reads and cleans a file in one step, the way every subcommand
// starts.
func loadCleaned(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := fileload.NewLoader().Load(path, f)
	if err != nil {
		return nil, err
	}
	return cleaning.NewCleaner().Clean(raw), nil
}

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile [file]",
		Short: "Print a per-column profile of the cleaned dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cleaned, err := loadCleaned(args[0])
			if err != nil {
				return err
			}

			t := prettytable.NewWriter()
			t.AppendHeader(prettytable.Row{"Column", "Type", "Distinct", "Min", "Max", "Mean"})
			for _, col := range cleaned.Columns() {
				row := prettytable.Row{col.Name, string(col.Type), cleaned.DistinctCount(col.Name), "", "", ""}
				if col.Type == table.TypeNumeric {
					if data, err := cleaned.Floats(col.Name); err == nil && len(data) > 0 {
						minVal, _ := stats.Min(data)
						maxVal, _ := stats.Max(data)
						mean, _ := stats.Mean(data)
						row[3] = fmt.Sprintf("%.2f", minVal)
						row[4] = fmt.Sprintf("%.2f", maxVal)
						row[5] = fmt.Sprintf("%.2f", mean)
					}
				}
				t.AppendRows([]prettytable.Row{row})
			}
			t.SetStyle(prettytable.StyleDefault)

			fmt.Printf("%s: %d rows, %d columns\n\n", args[0], cleaned.NumRows(), cleaned.NumColumns())
			fmt.Println(t.Render())
			return nil
		},
	}
}

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary [file]",
		Short: "Print the dataset statistical summary as markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cleaned, err := loadCleaned(args[0])
			if err != nil {
				return err
			}
			fmt.Println(insight.DatasetSummary(cleaned))
			return nil
		},
	}
}

func chartFlags(cmd *cobra.Command, kind, x, y, size *string) {
	cmd.Flags().StringVar(kind, "kind", "bar", "chart kind: "+kindList())
	cmd.Flags().StringVar(x, "x", "", "x-axis column")
	cmd.Flags().StringVar(y, "y", "", "y-axis column")
	cmd.Flags().StringVar(size, "size", "", "bubble size column")
}

func kindList() string {
	kinds := chart.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func resolveFromFlags(cleaned *table.Table, kind, x, y, size string) (chart.Spec, error) {
	return chartspec.NewResolver().Resolve(cleaned, chartspec.Request{
		Kind: chart.Kind(kind),
		X:    x,
		Y:    y,
		Size: size,
	})
}

func newInsightCmd() *cobra.Command {
	var kind, x, y, size string

	cmd := &cobra.Command{
		Use:   "insight [file]",
		Short: "Generate the narrative insight for a chart configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cleaned, err := loadCleaned(args[0])
			if err != nil {
				return err
			}
			spec, err := resolveFromFlags(cleaned, kind, x, y, size)
			if err != nil {
				return err
			}
			fmt.Println(insight.NewGenerator().Narrative(cleaned, spec))
			return nil
		},
	}
	chartFlags(cmd, &kind, &x, &y, &size)
	return cmd
}

func newAskCmd() *cobra.Command {
	var kind, x, y, size string

	cmd := &cobra.Command{
		Use:   "ask [file] [question...]",
		Short: "Ask a question about a chart configuration",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cleaned, err := loadCleaned(args[0])
			if err != nil {
				return err
			}
			spec, err := resolveFromFlags(cleaned, kind, x, y, size)
			if err != nil {
				return err
			}
			question := strings.Join(args[1:], " ")
			fmt.Println(qa.NewResponder().Answer(cleaned, spec, question))
			return nil
		},
	}
	chartFlags(cmd, &kind, &x, &y, &size)
	return cmd
}

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export the cleaned dataset as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cleaned, err := loadCleaned(args[0])
			if err != nil {
				return err
			}

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return fileload.ExportCSV(out, cleaned)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newSampleCmd() *cobra.Command {
	var days int
	var seed int64
	var output string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Generate a synthetic sales dataset as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := testkit.DefaultConfig()
			cfg.Days = days
			cfg.Seed = seed

			generated, err := testkit.NewGenerator(cfg).Table()
			if err != nil {
				return err
			}

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return fileload.ExportCSV(out, generated)
		},
	}
	cmd.Flags().IntVar(&days, "days", 90, "number of days to generate")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
