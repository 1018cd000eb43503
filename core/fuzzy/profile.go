package fuzzy

import (
	"fmt"
	"sort"
)

// Profile bundles every constant the engine depends on. Profiles are plain
// values compiled into the binary; callers receive copies.
type Profile struct {
	Name        string
	Description string
	Service     ServiceShapes
	Price       PriceShapes
	Rules       RuleTable
	Anchors     Anchors
}

const (
	// ProfileStandard is the default profile
	ProfileStandard = "standard"

	// ProfileAlternate reproduces the second constant set: wider cheap
	// plateau, no medium price plateau and 20/35/50/75/90 anchors
	ProfileAlternate = "alternate"
)

func standardService() ServiceShapes {
	return ServiceShapes{
		Low:    LeftShoulder(10, 50),
		Medium: Trapezoid{A: 30, B: 50, C: 60, D: 80},
		High:   RightShoulder(60, 90),
	}
}

// StandardProfile returns the canonical constants.
func StandardProfile() Profile {
	return Profile{
		Name:        ProfileStandard,
		Description: "cheap <= 25k, medium price plateau 40k-45k, anchors 10/35/55/75/100",
		Service:     standardService(),
		Price: PriceShapes{
			Cheap:     LeftShoulder(25000, 35000),
			Medium:    Trapezoid{A: 30000, B: 40000, C: 45000, D: 50000},
			Expensive: RightShoulder(45000, 55000),
		},
		Rules: StandardRules(),
		Anchors: Anchors{
			VeryUnsuitable: 10,
			Unsuitable:     35,
			Adequate:       55,
			Suitable:       75,
			VerySuitable:   100,
		},
	}
}

// AlternateProfile returns the second constant set.
func AlternateProfile() Profile {
	return Profile{
		Name:        ProfileAlternate,
		Description: "cheap <= 30k, medium price peak at 40k, anchors 20/35/50/75/90",
		Service:     standardService(),
		Price: PriceShapes{
			Cheap:     LeftShoulder(30000, 35000),
			Medium:    Trapezoid{A: 30000, B: 40000, C: 40000, D: 50000},
			Expensive: RightShoulder(45000, 55000),
		},
		Rules: StandardRules(),
		Anchors: Anchors{
			VeryUnsuitable: 20,
			Unsuitable:     35,
			Adequate:       50,
			Suitable:       75,
			VerySuitable:   90,
		},
	}
}

var profiles = map[string]func() Profile{
	ProfileStandard:  StandardProfile,
	ProfileAlternate: AlternateProfile,
}

// LookupProfile returns the named profile. An empty name selects the standard profile.
func LookupProfile(name string) (Profile, error) {
	if name == "" {
		name = ProfileStandard
	}
	ctor, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (available: %v)", name, ProfileNames())
	}
	return ctor(), nil
}

// ProfileNames returns the compiled profile names, sorted
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
