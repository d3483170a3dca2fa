package export

import (
	"fmt"
	"strings"

	"github.com/c360studio/semstreams/vocabulary"
	"github.com/c360studio/semstreams/vocabulary/bfo"
	"github.com/c360studio/semstreams/vocabulary/cco"
)

// Profile determines which ontology type assertions are added on top of
// the recorded provenance statements.
type Profile string

const (
	// ProfileMinimal emits only what the history recorded.
	ProfileMinimal Profile = "minimal"

	// ProfilePROV adds PROV-O classes for versions and authors.
	ProfilePROV Profile = "prov"

	// ProfileBFO adds BFO classes plus the PROV profile.
	ProfileBFO Profile = "bfo"

	// ProfileCCO adds CCO classes plus the BFO profile.
	ProfileCCO Profile = "cco"
)

// Role is the part a resource plays in the provenance graph.
type Role int

const (
	RoleCommit Role = iota
	RoleVersion
	RoleAuthor
)

// ProfileConfig contains configuration for an export profile.
type ProfileConfig struct {
	Name        Profile
	Description string
	IncludePROV bool
	IncludeBFO  bool
	IncludeCCO  bool
}

// Profiles contains the configuration for all available export profiles.
var Profiles = map[Profile]ProfileConfig{
	ProfileMinimal: {
		Name:        ProfileMinimal,
		Description: "Recorded commit and derivation statements only",
	},
	ProfilePROV: {
		Name:        ProfilePROV,
		Description: "PROV-O classes for versions and authors",
		IncludePROV: true,
	},
	ProfileBFO: {
		Name:        ProfileBFO,
		Description: "BFO type assertions plus PROV profile",
		IncludePROV: true,
		IncludeBFO:  true,
	},
	ProfileCCO: {
		Name:        ProfileCCO,
		Description: "Full CCO/BFO/PROV-O alignment",
		IncludePROV: true,
		IncludeBFO:  true,
		IncludeCCO:  true,
	},
}

// GetProfileConfig returns the configuration for a profile.
func GetProfileConfig(profile Profile) ProfileConfig {
	if config, ok := Profiles[profile]; ok {
		return config
	}
	return Profiles[ProfileMinimal]
}

// ParseProfile resolves a profile name, case-insensitively. An empty name
// selects the minimal profile.
func ParseProfile(name string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(name)))
	if p == "" {
		return ProfileMinimal, nil
	}
	if _, ok := Profiles[p]; !ok {
		return "", fmt.Errorf("unknown profile: %s", name)
	}
	return p, nil
}

var (
	provClasses = map[Role]string{
		RoleVersion: vocabulary.ProvEntity,
		RoleAuthor:  vocabulary.ProvAgent,
	}
	bfoClasses = map[Role]string{
		RoleCommit:  bfo.Process,
		RoleVersion: bfo.GenericallyDependentContinuant,
	}
	ccoClasses = map[Role]string{
		RoleCommit:  cco.ActOfArtifactProcessing,
		RoleVersion: cco.InformationContentEntity,
		RoleAuthor:  cco.Person,
	}
)

// TypeAsserter generates the extra type assertions a profile asks for.
type TypeAsserter struct {
	profile ProfileConfig
}

// NewTypeAsserter creates a new type asserter for the given profile.
func NewTypeAsserter(profile Profile) *TypeAsserter {
	return &TypeAsserter{
		profile: GetProfileConfig(profile),
	}
}

// GetTypeIRIs returns the additional type IRIs for a resource in role.
func (t *TypeAsserter) GetTypeIRIs(role Role) []string {
	types := make([]string, 0, 3)
	if t.profile.IncludePROV {
		if c, ok := provClasses[role]; ok {
			types = append(types, c)
		}
	}
	if t.profile.IncludeBFO {
		if c, ok := bfoClasses[role]; ok {
			types = append(types, c)
		}
	}
	if t.profile.IncludeCCO {
		if c, ok := ccoClasses[role]; ok {
			types = append(types, c)
		}
	}
	return types
}
