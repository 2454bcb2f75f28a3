package project

import (
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Feature is one of the optional capabilities a generated project can carry.
// The set is closed: names outside it are rejected when the config is validated.
type Feature string

const (
	FeatureAuthentication Feature = "Authentication"
	FeatureDatabase       Feature = "Database"
	FeatureCaching        Feature = "Caching"
	FeatureLogging        Feature = "Logging"
	FeatureMonitoring     Feature = "Monitoring"
	FeatureRateLimiting   Feature = "RateLimiting"
	FeatureFileUpload     Feature = "FileUpload"
	FeatureNotifications  Feature = "Notifications"
	FeatureSearch         Feature = "Search"
	FeaturePayments       Feature = "Payments"
)

// FeatureSpec is the generation routine parameters for one feature.
type FeatureSpec struct {
	Slug         string
	Instructions string
	Standards    []string
}

var featureTable = map[Feature]FeatureSpec{
	FeatureAuthentication: {
		Slug:         "authentication",
		Instructions: "Implement user authentication using the configured authentication mode, including credential verification, session or token issuance, and logout.",
		Standards:    []string{"security"},
	},
	FeatureDatabase: {
		Slug:         "database",
		Instructions: "Implement the data access layer: connection management, a repository abstraction, and schema migrations.",
		Standards:    []string{"coding"},
	},
	FeatureCaching: {
		Slug:         "caching",
		Instructions: "Implement a cache abstraction with TTL support and an in-memory default backend.",
		Standards:    []string{"coding"},
	},
	FeatureLogging: {
		Slug:         "logging",
		Instructions: "Implement structured logging with request correlation identifiers and log level configuration.",
		Standards:    []string{"coding", "security"},
	},
	FeatureMonitoring: {
		Slug:         "monitoring",
		Instructions: "Implement health checks and metrics endpoints suitable for the configured monitoring system.",
		Standards:    []string{"coding"},
	},
	FeatureRateLimiting: {
		Slug:         "rate-limiting",
		Instructions: "Implement per-client request rate limiting with configurable limits.",
		Standards:    []string{"security"},
	},
	FeatureFileUpload: {
		Slug:         "file-upload",
		Instructions: "Implement validated file upload handling with size and content-type limits.",
		Standards:    []string{"security"},
	},
	FeatureNotifications: {
		Slug:         "notifications",
		Instructions: "Implement a notification service abstraction with an email channel.",
		Standards:    []string{"coding"},
	},
	FeatureSearch: {
		Slug:         "search",
		Instructions: "Implement a search service with pagination and filtering.",
		Standards:    []string{"coding"},
	},
	FeaturePayments: {
		Slug:         "payments",
		Instructions: "Implement a payment provider abstraction with idempotent charge creation.",
		Standards:    []string{"security", "compliance"},
	},
}

// AllFeatures lists every supported feature in display order.
var AllFeatures = []Feature{
	FeatureAuthentication, FeatureDatabase, FeatureCaching, FeatureLogging,
	FeatureMonitoring, FeatureRateLimiting, FeatureFileUpload,
	FeatureNotifications, FeatureSearch, FeaturePayments,
}

// ParseFeature resolves a feature by its name or slug, case-insensitively.
func ParseFeature(s string) (Feature, error) {
	needle := strings.TrimSpace(s)
	for f, spec := range featureTable {
		if strings.EqualFold(needle, string(f)) || strings.EqualFold(needle, spec.Slug) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown feature %q", ErrInvalidConfig, s)
}

// Spec returns the generation parameters for f. Callers must only pass
// features that passed validation.
func (f Feature) Spec() FeatureSpec {
	return featureTable[f]
}

// Slug returns the filesystem-safe identifier for f.
func (f Feature) Slug() string {
	return featureTable[f].Slug
}

// Known reports whether f belongs to the supported set.
func (f Feature) Known() bool {
	_, ok := featureTable[f]
	return ok
}

// UnmarshalYAML accepts either the display name or the slug.
func (f *Feature) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseFeature(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
