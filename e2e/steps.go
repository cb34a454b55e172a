package e2e

import (
	"github.com/cucumber/godog"

	"blockship/e2e/steps/common"
	"blockship/e2e/steps/disclosure"
	"blockship/e2e/steps/session"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (background, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register session lifecycle and sign-in steps
	session.RegisterSteps(ctx, tc)

	// Register search/disclosure/claim steps
	disclosure.RegisterSteps(ctx, tc)
}
