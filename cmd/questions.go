package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sanctuari/rfq-cli/internal/classify"
	"github.com/sanctuari/rfq-cli/internal/model"
)

var questionsJSON bool

var questionsCmd = &cobra.Command{
	Use:   "questions <product>",
	Short: "Show a product's question sections with their field types",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := initCatalog()
		if err != nil {
			return err
		}
		sections, err := initLoader(cat).Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if questionsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(classifySections(sections))
		}
		return printQuestions(cmd.OutOrStdout(), sections)
	},
}

func init() {
	questionsCmd.Flags().BoolVar(&questionsJSON, "json", false, "print classified sections as JSON")
	rootCmd.AddCommand(questionsCmd)
}

type classifiedSection struct {
	Name   string                     `json:"name"`
	Fields []model.ClassifiedQuestion `json:"fields"`
}

func classifySections(sections []model.Section) []classifiedSection {
	out := make([]classifiedSection, 0, len(sections))
	for _, s := range sections {
		out = append(out, classifiedSection{Name: s.Name, Fields: classify.Section(s)})
	}
	return out
}

func printQuestions(w io.Writer, sections []model.Section) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, s := range classifySections(sections) {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "== %s (%d)\n", s.Name, len(s.Fields))
		for _, f := range s.Fields {
			req := ""
			if f.Required {
				req = "*"
			}
			typ := string(f.Field.Type)
			if len(f.Field.Options) > 0 {
				typ += " [" + strings.Join(f.Field.Options, "|") + "]"
			}
			fmt.Fprintf(tw, "%s%s\t%s\t%s\n", f.Number, req, typ, f.Text)
		}
	}
	return tw.Flush()
}
