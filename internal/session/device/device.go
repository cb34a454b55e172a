// Package device derives display names and fingerprints from User-Agent
// strings. Display names show up in session metadata and audit events;
// fingerprints detect a session token replayed from a different device.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
)

// Service computes device fingerprints. When disabled, fingerprints are
// empty and comparison never reports drift.
type Service struct {
	enabled bool
}

func NewService(enabled bool) *Service {
	return &Service{enabled: enabled}
}

// ParseUserAgent turns a raw User-Agent into a short display name like
// "Chrome 120 on Mac OS X". Unknown agents still produce a readable string.
func ParseUserAgent(rawUA string) string {
	if rawUA == "" {
		return "Unknown Device"
	}

	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		name = "Unknown Browser"
	}

	display := name
	if major := majorVersion(version); major != "" {
		display += " " + major
	}

	platform := ua.Platform()
	osInfo := ua.OSInfo().Name
	switch {
	case platform == "iPhone" || platform == "iPad":
		display += " on " + platform
	case osInfo != "":
		display += " on " + osInfo
	case platform != "":
		display += " on " + platform
	default:
		display += " on Unknown OS"
	}

	return strings.Join(strings.Fields(display), " ")
}

// ComputeFingerprint hashes the stable parts of the User-Agent: browser
// name, major version, and OS. Minor version bumps (auto-updates) keep the
// same fingerprint; a major version or OS change produces a new one.
func (s *Service) ComputeFingerprint(rawUA string) string {
	if !s.enabled {
		return ""
	}

	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	material := name + "|" + majorVersion(version) + "|" + ua.OS()

	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}

// CompareFingerprints reports whether the stored and presented fingerprints
// match, and whether the mismatch counts as drift. A disabled service (or a
// session created before fingerprinting was enabled) never reports drift.
func (s *Service) CompareFingerprints(stored, presented string) (matched bool, drift bool) {
	if !s.enabled || stored == "" {
		return true, false
	}
	if stored == presented {
		return true, false
	}
	return false, true
}

func majorVersion(version string) string {
	if version == "" {
		return ""
	}
	if dot := strings.IndexByte(version, '.'); dot > 0 {
		return version[:dot]
	}
	return version
}
