package disclosure

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string) error
	LastStatus() int
	GetResponseField(field string) (interface{}, error)
}

// RegisterSteps registers search, disclosure and claim step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &disclosureSteps{tc: tc}

	ctx.Step(`^I search for shipment "([^"]*)"$`, steps.search)
	ctx.Step(`^the search outcome should be "([^"]*)"$`, steps.assertSearchState)
	ctx.Step(`^I request the disclosure state$`, steps.getDisclosure)
	ctx.Step(`^I open the custody document$`, steps.openDocument)
	ctx.Step(`^I request the token explorer link$`, steps.tokenLink)
	ctx.Step(`^I attempt to claim the shipment$`, steps.claim)
	ctx.Step(`^I connect the wallet$`, steps.connectWallet)
}

type disclosureSteps struct {
	tc TestContext
}

func (s *disclosureSteps) search(ctx context.Context, shipmentID string) error {
	return s.tc.POST("/v1/shipments/search", map[string]interface{}{
		"query": shipmentID,
	})
}

func (s *disclosureSteps) assertSearchState(ctx context.Context, expected string) error {
	value, err := s.tc.GetResponseField("state")
	if err != nil {
		return err
	}
	actual, ok := value.(string)
	if !ok {
		return fmt.Errorf("state field is %T, not a string", value)
	}
	if actual != expected {
		return fmt.Errorf("expected search state %q, got %q", expected, actual)
	}
	return nil
}

func (s *disclosureSteps) getDisclosure(ctx context.Context) error {
	return s.tc.GET("/v1/disclosure")
}

func (s *disclosureSteps) openDocument(ctx context.Context) error {
	return s.tc.POST("/v1/disclosure/document", nil)
}

func (s *disclosureSteps) tokenLink(ctx context.Context) error {
	return s.tc.POST("/v1/disclosure/token", nil)
}

func (s *disclosureSteps) claim(ctx context.Context) error {
	return s.tc.POST("/v1/disclosure/claim", nil)
}

func (s *disclosureSteps) connectWallet(ctx context.Context) error {
	return s.tc.POST("/v1/wallet/connect", nil)
}
