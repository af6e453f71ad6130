package achievement

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/ropeline/internal/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Achievements []models.Achievement `yaml:"achievements"`
}

// DefaultCatalog returns the built-in achievement catalog.
func DefaultCatalog() ([]models.Achievement, error) {
	return LoadCatalog(bytes.NewReader(defaultCatalog))
}

// LoadCatalog decodes a YAML catalog, fills in derivable defaults and validates it.
func LoadCatalog(r io.Reader) ([]models.Achievement, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("catalog is empty")
		}
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	for i := range file.Achievements {
		applyDefaults(&file.Achievements[i])
	}
	if err := ValidateCatalog(file.Achievements); err != nil {
		return nil, err
	}
	return file.Achievements, nil
}

// applyDefaults derives the counter for categories that have exactly one.
// Social entries must name their counter explicitly.
func applyDefaults(a *models.Achievement) {
	if a.Counter == "" {
		switch a.Category {
		case models.AchievementStreak:
			a.Counter = models.CounterCurrentStreak
		case models.AchievementCompletion:
			a.Counter = models.CounterTotalCompletions
		case models.AchievementSpecial:
			a.Counter = models.CounterNone
		}
	}
	if a.Rarity == "" {
		a.Rarity = models.RarityCommon
	}
}

// ValidateCatalog reports every problem in the catalog as a joined error.
func ValidateCatalog(catalog []models.Achievement) error {
	var errs []error
	seen := make(map[string]bool, len(catalog))

	for i, a := range catalog {
		if a.ID == "" {
			errs = append(errs, fmt.Errorf("entry %d: missing id", i))
			continue
		}
		if seen[a.ID] {
			errs = append(errs, fmt.Errorf("%s: duplicate id", a.ID))
		}
		seen[a.ID] = true

		if a.Name == "" {
			errs = append(errs, fmt.Errorf("%s: missing name", a.ID))
		}
		if a.Points < 0 {
			errs = append(errs, fmt.Errorf("%s: points must not be negative", a.ID))
		}
		switch a.Rarity {
		case models.RarityCommon, models.RarityRare, models.RarityEpic, models.RarityLegendary:
		default:
			errs = append(errs, fmt.Errorf("%s: unknown rarity %q", a.ID, a.Rarity))
		}

		if err := validateCounter(a); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.ID, err))
		}
		if a.Category != models.AchievementSpecial && a.Requirement < 1 {
			errs = append(errs, fmt.Errorf("%s: requirement must be at least 1", a.ID))
		}
	}
	return errors.Join(errs...)
}

func validateCounter(a models.Achievement) error {
	switch a.Category {
	case models.AchievementStreak:
		if a.Counter != models.CounterCurrentStreak {
			return fmt.Errorf("streak achievements must use counter %q, got %q", models.CounterCurrentStreak, a.Counter)
		}
	case models.AchievementCompletion:
		if a.Counter != models.CounterTotalCompletions {
			return fmt.Errorf("completion achievements must use counter %q, got %q", models.CounterTotalCompletions, a.Counter)
		}
	case models.AchievementSocial:
		if a.Counter != models.CounterFriends && a.Counter != models.CounterChallengesJoined {
			return fmt.Errorf("social achievements must use counter %q or %q, got %q",
				models.CounterFriends, models.CounterChallengesJoined, a.Counter)
		}
	case models.AchievementSpecial:
		if a.Counter != models.CounterNone {
			return fmt.Errorf("special achievements cannot use a counter, got %q", a.Counter)
		}
	default:
		return fmt.Errorf("unknown category %q", a.Category)
	}
	return nil
}
