package validate

import (
	"fmt"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// Finding is one suspected secret.
type Finding struct {
	RuleID string
	Line   int
}

// SecretDetector scans text for credentials.
type SecretDetector interface {
	Detect(content string) ([]Finding, error)
}

// GitleaksDetector applies the gitleaks default rule set. The detector is
// built on first use since loading the rules is comparatively slow.
type GitleaksDetector struct {
	once     sync.Once
	detector *detect.Detector
	err      error
	mu       sync.Mutex
}

// NewGitleaksDetector returns a detector with the default rules.
func NewGitleaksDetector() *GitleaksDetector {
	return &GitleaksDetector{}
}

// Detect implements SecretDetector.
func (g *GitleaksDetector) Detect(content string) ([]Finding, error) {
	g.once.Do(func() {
		g.detector, g.err = detect.NewDetectorDefaultConfig()
		if g.err != nil {
			g.err = fmt.Errorf("loading gitleaks rules: %w", g.err)
		}
	})
	if g.err != nil {
		return nil, g.err
	}

	// The detector accumulates findings internally and is not safe for
	// concurrent use.
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []Finding
	for _, f := range g.detector.DetectString(content) {
		out = append(out, Finding{RuleID: f.RuleID, Line: f.StartLine})
	}
	return out, nil
}
