package support

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/eastocr/internal/ocr"
	"github.com/MeKo-Tech/eastocr/internal/testutil"
	"github.com/MeKo-Tech/eastocr/internal/utils"
	"github.com/cucumber/godog"
)

// aTestImage writes a blank image into the scenario directory.
func (testCtx *TestContext) aTestImage(name string) error {
	path := testCtx.TempPath(name)
	if err := utils.SaveImage(path, testutil.SolidImage(64, 64, color.White)); err != nil {
		return fmt.Errorf("failed to write test image: %w", err)
	}
	testCtx.Files[name] = path
	return nil
}

// aTessdataDirectoryWithLanguages creates empty traineddata files, enough
// for language listing but not for loading.
func (testCtx *TestContext) aTessdataDirectoryWithLanguages(langs string) error {
	dir := testCtx.TempPath("tessdata")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create tessdata directory: %w", err)
	}
	for _, l := range ocr.ParseLanguages(langs) {
		if err := os.WriteFile(filepath.Join(dir, l+".traineddata"), nil, 0o600); err != nil {
			return fmt.Errorf("failed to create traineddata for %s: %w", l, err)
		}
	}
	testCtx.Files["tessdata"] = dir
	return nil
}

// aConfigFileWith writes a config file with the given content.
func (testCtx *TestContext) aConfigFileWith(name string, content *godog.DocString) error {
	path := testCtx.TempPath(name)
	if err := os.WriteFile(path, []byte(content.Content), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	testCtx.Files[name] = path
	return nil
}

// theEnvironmentVariableIsSet sets an environment variable for later commands.
func (testCtx *TestContext) theEnvironmentVariableIsSet(name, value string) error {
	testCtx.AddEnvVar(name, value)
	return nil
}

// substituteCommandVariables replaces ${name} with registered file paths and
// ${tmp} with the scenario directory.
func (testCtx *TestContext) substituteCommandVariables(command string) string {
	command = strings.ReplaceAll(command, "${tmp}", testCtx.TempDir)
	for name, path := range testCtx.Files {
		command = strings.ReplaceAll(command, "${"+name+"}", path)
	}
	return command
}

// iRunCommand executes a command and stores the result.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substituteCommandVariables(command)

	testCtx.LastCommand = command
	testCtx.LastStartTime = time.Now()

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...) //nolint:gosec // G204: commands come from feature files
	cmd.Dir = testCtx.WorkingDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)

	// Capture both stdout and stderr
	output, err := cmd.CombinedOutput()
	testCtx.LastOutput = string(output)
	testCtx.LastError = err
	testCtx.LastDuration = time.Since(testCtx.LastStartTime)

	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			testCtx.LastExitCode = exitError.ExitCode()
		} else {
			testCtx.LastExitCode = -1
		}
	} else {
		testCtx.LastExitCode = 0
	}
	return nil
}

// theCommandShouldSucceed verifies the command succeeded.
func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

// theCommandShouldFail verifies the command failed.
func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldContain verifies the output contains specific text.
func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldNotContain verifies the output lacks specific text.
func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output contains '%s'\nActual output: %s", text, testCtx.LastOutput)
	}
	return nil
}

// theFileShouldExist verifies a file was created.
func (testCtx *TestContext) theFileShouldExist(path string) error {
	path = testCtx.substituteCommandVariables(path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(testCtx.WorkingDir, path)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("expected file %s: %w", path, err)
	}
	return nil
}

// RegisterCommonSteps registers setup, execution and output steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	// Setup
	sc.Step(`^a test image "([^"]*)"$`, testCtx.aTestImage)
	sc.Step(`^a tessdata directory with languages "([^"]*)"$`, testCtx.aTessdataDirectoryWithLanguages)
	sc.Step(`^a config file "([^"]*)" with:$`, testCtx.aConfigFileWith)
	sc.Step(`^the environment variable "([^"]*)" is "([^"]*)"$`, testCtx.theEnvironmentVariableIsSet)

	// Execution
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)

	// Results
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
}
