package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MeKo-Tech/eastocr/internal/models"
	"github.com/MeKo-Tech/eastocr/internal/ocr"
	"github.com/MeKo-Tech/eastocr/internal/onnx"
	"github.com/spf13/cobra"
)

// checkCmd represents the check command.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check ONNX Runtime, the EAST model and tessdata",
	Long: `Verify that everything needed for OCR is in place.

This command checks that:
- the ONNX Runtime shared library is found and initialises
- the EAST model file exists
- the tessdata directory holds the configured language`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	bindConfigFlags(checkCmd, mergeKeys(addDetectorFlags(checkCmd), addOCRFlags(checkCmd)))
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg := GetConfig()
	pcfg, err := cfg.ToPipelineConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, cmd.Short)
	_, _ = fmt.Fprintln(out)

	var failed []string
	report := func(name, detail string, err error) {
		if err != nil {
			failed = append(failed, name)
			_, _ = fmt.Fprintf(out, "❌ %s: %v\n", name, err)
			return
		}
		_, _ = fmt.Fprintf(out, "✅ %s: %s\n", name, detail)
	}

	lib, err := onnx.FindLibrary(pcfg.Detector.GPU.UseGPU)
	if err == nil {
		if err = onnx.Acquire(pcfg.Detector.GPU.UseGPU); err == nil {
			onnx.Release()
		}
	}
	report("ONNX Runtime", lib, err)

	report("EAST model", pcfg.Detector.ModelPath, models.ValidateModelExists(pcfg.Detector.ModelPath))

	langs, err := ocr.ListTrainedData(pcfg.OCR.TessdataDir)
	if err == nil {
		for _, l := range ocr.ParseLanguages(pcfg.OCR.Language) {
			if !fileExists(models.TrainedDataPath(pcfg.OCR.TessdataDir, l)) {
				err = fmt.Errorf("no traineddata for %q in %s", l, pcfg.OCR.TessdataDir)
				break
			}
		}
	}
	report("Tessdata", fmt.Sprintf("%s (%s)", pcfg.OCR.TessdataDir, strings.Join(langs, ", ")), err)

	_, _ = fmt.Fprintln(out)
	if len(failed) > 0 {
		return errors.New("checks failed: " + strings.Join(failed, ", "))
	}
	_, _ = fmt.Fprintln(out, "🎉 All checks passed.")
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
