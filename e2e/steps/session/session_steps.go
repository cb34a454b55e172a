package session

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
	SetToken(token string)
	Token() string
}

// RegisterSteps registers session lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &sessionSteps{tc: tc}

	ctx.Step(`^I have an open session$`, steps.openSession)
	ctx.Step(`^I close the session$`, steps.closeSession)
	ctx.Step(`^I sign in with subject "([^"]*)" and password "([^"]*)"$`, steps.signIn)
	ctx.Step(`^I request the session state$`, steps.getSession)
	ctx.Step(`^I use the token "([^"]*)"$`, steps.useToken)
}

type sessionSteps struct {
	tc TestContext
}

func (s *sessionSteps) openSession(ctx context.Context) error {
	if err := s.tc.POST("/v1/sessions", nil); err != nil {
		return err
	}
	if s.tc.LastStatus() != 201 {
		return fmt.Errorf("opening session: expected 201, got %d", s.tc.LastStatus())
	}
	token, err := s.tc.GetResponseField("token")
	if err != nil {
		return err
	}
	s.tc.SetToken(token.(string))
	return nil
}

func (s *sessionSteps) closeSession(ctx context.Context) error {
	return s.tc.DELETE("/v1/session")
}

func (s *sessionSteps) signIn(ctx context.Context, subject, password string) error {
	return s.tc.POST("/v1/session/signin", map[string]interface{}{
		"subject":  subject,
		"password": password,
	})
}

func (s *sessionSteps) getSession(ctx context.Context) error {
	return s.tc.GET("/v1/session")
}

func (s *sessionSteps) useToken(ctx context.Context, token string) error {
	s.tc.SetToken(token)
	return nil
}
