package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// File is the YAML shape of a designer-authored storylet catalog.
type File struct {
	Storylets []Entry `yaml:"storylets"`
}

// Entry is one storylet definition in a catalog file.
type Entry struct {
	Key            string              `yaml:"key"`
	Title          string              `yaml:"title"`
	Type           string              `yaml:"type"`
	Prerequisites  domain.ExprSpec     `yaml:"prerequisites"`
	Effects        []domain.EffectSpec `yaml:"effects"`
	AnchorsTheme   bool                `yaml:"anchors_theme"`
	Urgency        int                 `yaml:"urgency"`
	RequiresUnlock bool                `yaml:"requires_unlock"`
}

// Load parses and validates a catalog file. Validation is strict: a catalog
// with any bad entry is rejected whole, so a partial seed never reaches the
// store.
func Load(path string) ([]domain.Storylet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]domain.Storylet, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Storylets) == 0 {
		return nil, errors.New("catalog contains no storylets")
	}

	keys := make(map[string]bool, len(file.Storylets))
	storylets := make([]domain.Storylet, 0, len(file.Storylets))
	for i, entry := range file.Storylets {
		sl, err := entry.toStorylet()
		if err != nil {
			return nil, fmt.Errorf("storylet %d (%s): %w", i, entry.Key, err)
		}
		if keys[sl.Key] {
			return nil, fmt.Errorf("duplicate storylet key %q", sl.Key)
		}
		keys[sl.Key] = true
		storylets = append(storylets, sl)
	}

	// Unlock effects may only point at keys defined in the same catalog.
	for _, sl := range storylets {
		for _, effect := range sl.Effects {
			if unlock, ok := effect.(domain.UnlockStorylet); ok && !keys[unlock.Key] {
				return nil, fmt.Errorf("storylet %q unlocks unknown key %q", sl.Key, unlock.Key)
			}
		}
	}
	return storylets, nil
}

func (e Entry) toStorylet() (domain.Storylet, error) {
	var sl domain.Storylet
	if e.Key == "" {
		return sl, errors.New("missing key")
	}
	if e.Title == "" {
		return sl, errors.New("missing title")
	}
	if !domain.ValidStoryletType(e.Type) {
		return sl, fmt.Errorf("invalid type %q", e.Type)
	}

	// An omitted prerequisites block means always available.
	var prereq domain.BoolExpr = domain.All{}
	if !emptySpec(e.Prerequisites) {
		var err error
		prereq, err = e.Prerequisites.Expr()
		if err != nil {
			return sl, fmt.Errorf("prerequisites: %w", err)
		}
	}

	effects := make([]domain.Effect, 0, len(e.Effects))
	for _, spec := range e.Effects {
		effect, err := spec.Effect()
		if err != nil {
			return sl, fmt.Errorf("effects: %w", err)
		}
		effects = append(effects, effect)
	}

	return domain.Storylet{
		Key:            e.Key,
		Title:          e.Title,
		Type:           domain.StoryletType(e.Type),
		Prerequisites:  prereq,
		Effects:        effects,
		AnchorsTheme:   e.AnchorsTheme,
		Urgency:        e.Urgency,
		RequiresUnlock: e.RequiresUnlock,
	}, nil
}

func emptySpec(s domain.ExprSpec) bool {
	return len(s.All) == 0 && len(s.Any) == 0 && len(s.None) == 0 && s.Quality == ""
}

// Seed upserts every catalog storylet into the store. Existing keys are
// overwritten, so re-seeding an updated catalog is safe.
func Seed(ctx context.Context, storyletStore domain.StoryletStore, storylets []domain.Storylet, logger *zap.Logger) error {
	for i := range storylets {
		if err := storyletStore.Create(ctx, &storylets[i]); err != nil {
			return fmt.Errorf("seed storylet %q: %w", storylets[i].Key, err)
		}
	}
	logger.Info("storylet catalog seeded", zap.Int("count", len(storylets)))
	return nil
}
