package support

import (
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// theErrorShouldMention verifies the error output contains text, ignoring case.
func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastError == nil && testCtx.LastExitCode == 0 {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", errorText)
	}

	fullErrorText := testCtx.LastOutput
	if testCtx.LastError != nil {
		fullErrorText += " " + testCtx.LastError.Error()
	}
	if !strings.Contains(strings.ToLower(fullErrorText), strings.ToLower(errorText)) {
		return fmt.Errorf("error does not contain '%s'\nActual error: %s", errorText, fullErrorText)
	}
	return nil
}

// theErrorShouldMentionFileNotFound verifies a missing input was reported.
func (testCtx *TestContext) theErrorShouldMentionFileNotFound() error {
	return testCtx.theErrorShouldMention("no such file")
}

// theErrorShouldMentionInvalidPort verifies the port was rejected.
func (testCtx *TestContext) theErrorShouldMentionInvalidPort() error {
	return testCtx.theErrorShouldMention("invalid server port")
}

// theErrorShouldMentionThreshold verifies the score threshold was rejected.
func (testCtx *TestContext) theErrorShouldMentionThreshold() error {
	return testCtx.theErrorShouldMention("score_threshold")
}

// theErrorShouldMentionEngineUnavailable verifies OCR reported a missing engine.
func (testCtx *TestContext) theErrorShouldMentionEngineUnavailable() error {
	return testCtx.theErrorShouldMention("ocr engine unavailable")
}

// RegisterErrorSteps registers error-checking steps.
func (testCtx *TestContext) RegisterErrorSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)

	// File-related errors
	sc.Step(`^the error should mention a missing file$`, testCtx.theErrorShouldMentionFileNotFound)

	// Parameter validation errors
	sc.Step(`^the error should mention an invalid port$`, testCtx.theErrorShouldMentionInvalidPort)
	sc.Step(`^the error should mention the score threshold$`, testCtx.theErrorShouldMentionThreshold)

	// Engine errors
	sc.Step(`^the error should mention that the OCR engine is unavailable$`, testCtx.theErrorShouldMentionEngineUnavailable)
}
