package pipeline

import (
	"github.com/repoforge/repoforge/internal/project"
)

// featureScope confines a feature to its own subtrees, which is what lets
// features be written concurrently without locking.
func featureScope(f project.Feature) []string {
	slug := f.Slug()
	return []string{"src/features/" + slug + "/", "tests/features/" + slug + "/"}
}

// featureStage builds the sub-stage generating f.
func featureStage(f project.Feature) Stage {
	spec := f.Spec()
	return &aiStage{
		name:         FeatureStageName(f),
		docs:         spec.Standards,
		instructions: featureInstructions(f),
		scope:        func(*project.Config) []string { return featureScope(f) },
	}
}
