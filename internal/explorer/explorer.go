// Package explorer builds block-explorer URLs for NFT-backed shipment
// records. URL construction is pure string work; the gateway never calls
// the explorer itself, it only hands the link to the client.
package explorer

import (
	"fmt"
	"net/url"
	"strings"

	dErrors "blockship/pkg/domain-errors"
)

// Links builds explorer URLs from a base address and contract.
type Links struct {
	baseURL         string
	contractAddress string
}

func New(baseURL, contractAddress string) *Links {
	return &Links{
		baseURL:         strings.TrimRight(baseURL, "/"),
		contractAddress: contractAddress,
	}
}

// TokenURL returns the explorer page for a shipment's NFT token:
//
//	{base}/token/{contract}?a={tokenID}
func (l *Links) TokenURL(tokenID string) (string, error) {
	if tokenID == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "token id cannot be empty")
	}
	if l.baseURL == "" || l.contractAddress == "" {
		return "", dErrors.New(dErrors.CodeUnavailable, "explorer is not configured")
	}
	return fmt.Sprintf("%s/token/%s?a=%s", l.baseURL, l.contractAddress, url.QueryEscape(tokenID)), nil
}
