package commands

import (
	"encoding/json"
	"os"
	"path/filepath"

	"siga-backend/internal/browser"

	"github.com/spf13/cobra"
)

var parseJson bool

func init() {
	parseGradesCmd.Flags().BoolVar(&parseJson, "json", false, "Print the result as JSON instead of a table.")
	parseAttendanceCmd.Flags().BoolVar(&parseJson, "json", false, "Print the result as JSON instead of a table.")
	rootCmd.AddCommand(parseGradesCmd)
	rootCmd.AddCommand(parseAttendanceCmd)
}

// openSaved loads a page saved from the portal, its url is a file url so
// relative links resolve against the saved file.
func openSaved(path string) (*browser.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return browser.FromReader("file://"+filepath.ToSlash(abs), f)
}

func printJson(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

var parseGradesCmd = &cobra.Command{
	Use:   "parse-grades <notasparciais.html>",
	Short: "Reads the grades out of a saved partial grades page.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := openSaved(args[0])
		if err != nil {
			return err
		}
		defer page.Close()

		cfg, err := readConfig()
		if err != nil {
			return err
		}
		grades, err := newScraper(nil, cfg).ReadGrades(cmd.Context(), page)
		if err != nil {
			return err
		}
		if parseJson {
			return printJson(grades)
		}
		renderGrades(os.Stdout, grades)
		return nil
	},
}

var parseAttendanceCmd = &cobra.Command{
	Use:   "parse-attendance <faltasparciais.html>",
	Short: "Reads the attendance out of a saved partial absences page.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := openSaved(args[0])
		if err != nil {
			return err
		}
		defer page.Close()

		cfg, err := readConfig()
		if err != nil {
			return err
		}
		records, err := newScraper(nil, cfg).ReadAttendance(cmd.Context(), page)
		if err != nil {
			return err
		}
		if parseJson {
			return printJson(records)
		}
		renderAttendance(os.Stdout, records)
		return nil
	},
}
