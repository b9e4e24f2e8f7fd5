package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/eastocr/internal/ocr"
	"github.com/spf13/cobra"
)

// languagesCmd represents the languages command.
var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List OCR languages",
	Long: `List the languages with trained data in the tessdata directory and mark
the configured one. With --init the configured language is loaded first, so
the loaded list reflects what the engine accepted.

Examples:
  eastocr languages
  eastocr languages --tessdata /usr/share/tessdata
  eastocr languages --lang eng+deu --init`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runLanguages,
}

func init() {
	rootCmd.AddCommand(languagesCmd)
	languagesCmd.Flags().Bool("init", false, "initialise the configured language before listing")
	bindConfigFlags(languagesCmd, addOCRFlags(languagesCmd))
}

func runLanguages(cmd *cobra.Command, _ []string) error {
	cfg := GetConfig()
	initLang, _ := cmd.Flags().GetBool("init")

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	if initLang {
		if err := p.SetLanguage(cfg.OCR.Language); err != nil {
			return err
		}
	}

	available, loaded, err := p.Languages()
	if err != nil {
		return fmt.Errorf("failed to list languages: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Tessdata: %s\n", p.Config().OCR.TessdataDir)
	_, _ = fmt.Fprintln(out, "Available:")
	for _, l := range available {
		marker := " "
		if slices.Contains(ocr.ParseLanguages(cfg.OCR.Language), l) {
			marker = "*"
		}
		_, _ = fmt.Fprintf(out, " %s %s\n", marker, l)
	}
	if len(loaded) > 0 {
		_, _ = fmt.Fprintf(out, "Loaded: %s\n", strings.Join(loaded, ", "))
	}
	return nil
}
