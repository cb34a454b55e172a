package handler

import (
	dErrors "blockship/pkg/domain-errors"
)

// signInRequest carries interactive sign-in credentials.
type signInRequest struct {
	Subject  string `json:"subject"`
	Password string `json:"password"`
}

func (r *signInRequest) Validate() error {
	if r.Subject == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "subject is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "password is required")
	}
	return nil
}

// searchRequest carries the raw search-box input. Trimming and emptiness
// checks happen in the service so every caller gets the same rejection.
type searchRequest struct {
	Query string `json:"query"`
}

func (r *searchRequest) Validate() error {
	return nil
}
