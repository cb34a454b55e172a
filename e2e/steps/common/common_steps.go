package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string) error
	DELETE(path string) error
	LastStatus() int
	GetResponseField(field string) (interface{}, error)
}

// RegisterSteps registers generic request and assertion step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I DELETE "([^"]*)"$`, steps.delete)

	ctx.Step(`^the response status should be (\d+)$`, steps.assertStatus)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.assertFieldString)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, steps.assertFieldBool)
	ctx.Step(`^the response should contain field "([^"]*)"$`, steps.assertFieldPresent)
	ctx.Step(`^the response error code should be "([^"]*)"$`, steps.assertErrorCode)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) delete(ctx context.Context, path string) error {
	return s.tc.DELETE(path)
}

func (s *commonSteps) assertStatus(ctx context.Context, expected int) error {
	if s.tc.LastStatus() != expected {
		return fmt.Errorf("expected status %d, got %d", expected, s.tc.LastStatus())
	}
	return nil
}

func (s *commonSteps) assertFieldString(ctx context.Context, field, expected string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	actual, ok := value.(string)
	if !ok {
		return fmt.Errorf("field %q is %T, not a string", field, value)
	}
	if actual != expected {
		return fmt.Errorf("field %q: expected %q, got %q", field, expected, actual)
	}
	return nil
}

func (s *commonSteps) assertFieldBool(ctx context.Context, field, expected string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	actual, ok := value.(bool)
	if !ok {
		return fmt.Errorf("field %q is %T, not a bool", field, value)
	}
	if fmt.Sprintf("%t", actual) != expected {
		return fmt.Errorf("field %q: expected %s, got %t", field, expected, actual)
	}
	return nil
}

func (s *commonSteps) assertFieldPresent(ctx context.Context, field string) error {
	_, err := s.tc.GetResponseField(field)
	return err
}

func (s *commonSteps) assertErrorCode(ctx context.Context, expected string) error {
	value, err := s.tc.GetResponseField("error")
	if err != nil {
		return err
	}
	actual, ok := value.(string)
	if !ok {
		return fmt.Errorf("error field is %T, not a string", value)
	}
	if actual != expected {
		return fmt.Errorf("expected error code %q, got %q", expected, actual)
	}
	return nil
}
