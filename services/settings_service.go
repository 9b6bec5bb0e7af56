package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/kendall-kelly/linen-ops-api/analytics"
	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/spf13/viper"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Shift areas with a configurable start time
const (
	AreaMangle      = models.CategoryMangle
	AreaDoblado     = models.CategoryDoblado
	AreaSegregation = "Segregation"
)

// DefaultShiftStarts are used when no seed file is present
var DefaultShiftStarts = map[string]string{
	AreaMangle:      "06:00",
	AreaDoblado:     "07:00",
	AreaSegregation: "05:00",
}

// SettingsSeed is the shape of the YAML file that seeds version 1
type SettingsSeed struct {
	ShiftStarts             map[string]string           `mapstructure:"shift_starts"`
	ClassificationOverrides map[string]string           `mapstructure:"classification_overrides"`
	ClassificationRules     []models.ClassificationRule `mapstructure:"classification_rules"`
	DefaultCategory         string                      `mapstructure:"default_category"`
}

// SettingsChange replaces the settings fields that are non-nil
type SettingsChange struct {
	ShiftStarts             map[string]string
	ClassificationOverrides map[string]string
	ClassificationRules     []models.ClassificationRule
	DefaultCategory         *string
}

// SettingsStore serves the latest OperatorSettings version from memory.
// The copy only changes through Update or an explicit Reload.
type SettingsStore struct {
	db       *gorm.DB
	seedFile string

	mu      sync.RWMutex
	current models.OperatorSettings
	loaded  bool
}

var settingsStoreInstance *SettingsStore

// InitSettingsStore creates the store, loads the latest version and makes
// it the package instance
func InitSettingsStore(db *gorm.DB, seedFile string) (*SettingsStore, error) {
	store := NewSettingsStore(db, seedFile)
	if err := store.Load(); err != nil {
		return nil, err
	}
	settingsStoreInstance = store
	return store, nil
}

// GetSettingsStore returns the initialized settings store
func GetSettingsStore() *SettingsStore {
	return settingsStoreInstance
}

// SetSettingsStore replaces the settings store (primarily for testing)
func SetSettingsStore(store *SettingsStore) {
	settingsStoreInstance = store
}

// NewSettingsStore creates a store that has not loaded anything yet
func NewSettingsStore(db *gorm.DB, seedFile string) *SettingsStore {
	return &SettingsStore{db: db, seedFile: seedFile}
}

// Load reads the latest version, seeding version 1 when the table is empty
func (s *SettingsStore) Load() error {
	latest, err := latestSettings(s.db)
	if errors.Is(err, ErrNotFound) {
		latest, err = s.seed()
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = *latest
	s.loaded = true
	s.mu.Unlock()

	log.Printf("Operator settings version %d loaded", latest.Version)
	return nil
}

// Reload re-reads the latest version from the database
func (s *SettingsStore) Reload() (models.OperatorSettings, error) {
	if err := s.Load(); err != nil {
		return models.OperatorSettings{}, err
	}
	return s.Current(), nil
}

// Current returns a copy of the loaded settings
func (s *SettingsStore) Current() models.OperatorSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSettings(s.current)
}

// RuleTable builds the classification table of the loaded version
func (s *SettingsStore) RuleTable() analytics.RuleTable {
	return RuleTableFor(s.Current())
}

// ShiftStart returns the start of area's shift on day's date in loc
func (s *SettingsStore) ShiftStart(area string, day time.Time, loc *time.Location) (time.Time, bool) {
	return ShiftStartFor(s.Current(), area, day, loc)
}

// Update inserts version expectedVersion+1 with change applied. It fails
// with ErrSettingsConflict when expectedVersion is no longer the latest.
func (s *SettingsStore) Update(expectedVersion uint, change SettingsChange, actor string) (models.OperatorSettings, error) {
	var next models.OperatorSettings
	err := s.db.Transaction(func(tx *gorm.DB) error {
		latest, err := latestSettings(tx)
		if err != nil {
			return err
		}
		if latest.Version != expectedVersion {
			return fmt.Errorf("expected version %d, latest is %d: %w", expectedVersion, latest.Version, ErrSettingsConflict)
		}

		next = applyChange(*latest, change)
		next.ID = 0
		next.Version = latest.Version + 1
		next.CreatedBy = actor
		next.CreatedAt = time.Time{}
		if err := validateSettings(next); err != nil {
			return err
		}
		if err := tx.Create(&next).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("version %d already exists: %w", next.Version, ErrSettingsConflict)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.OperatorSettings{}, err
	}

	s.mu.Lock()
	s.current = cloneSettings(next)
	s.loaded = true
	s.mu.Unlock()

	log.Printf("Operator settings updated to version %d by %s", next.Version, actor)
	return cloneSettings(next), nil
}

func (s *SettingsStore) seed() (*models.OperatorSettings, error) {
	seed, err := LoadSettingsSeed(s.seedFile)
	if err != nil {
		return nil, err
	}

	settings := models.OperatorSettings{
		Version:                 1,
		ShiftStarts:             datatypes.NewJSONType(seed.ShiftStarts),
		ClassificationOverrides: datatypes.NewJSONType(seed.ClassificationOverrides),
		ClassificationRules:     datatypes.NewJSONType(seed.ClassificationRules),
		DefaultCategory:         seed.DefaultCategory,
		CreatedBy:               "system",
	}
	if err := validateSettings(settings); err != nil {
		return nil, fmt.Errorf("settings seed %s: %w", s.seedFile, err)
	}
	if err := s.db.Create(&settings).Error; err != nil {
		if isUniqueViolation(err) {
			// another instance seeded first
			return latestSettings(s.db)
		}
		return nil, fmt.Errorf("failed to seed settings: %w", err)
	}
	log.Printf("Seeded operator settings from %q", s.seedFile)
	return &settings, nil
}

// LoadSettingsSeed reads the YAML seed file. A missing file yields the
// built-in defaults; an unreadable one is an error.
func LoadSettingsSeed(path string) (SettingsSeed, error) {
	seed := defaultSeed()
	if path == "" {
		return seed, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return seed, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return SettingsSeed{}, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	var fromFile SettingsSeed
	if err := v.Unmarshal(&fromFile); err != nil {
		return SettingsSeed{}, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	if len(fromFile.ShiftStarts) > 0 {
		seed.ShiftStarts = canonicalAreas(fromFile.ShiftStarts)
	}
	if fromFile.ClassificationOverrides != nil {
		seed.ClassificationOverrides = canonicalCategories(fromFile.ClassificationOverrides)
	}
	if len(fromFile.ClassificationRules) > 0 {
		seed.ClassificationRules = canonicalRules(fromFile.ClassificationRules)
	}
	if fromFile.DefaultCategory != "" {
		seed.DefaultCategory = canonicalCategory(fromFile.DefaultCategory)
	}
	return seed, nil
}

func defaultSeed() SettingsSeed {
	rules := make([]models.ClassificationRule, 0, len(analytics.DefaultRules))
	for _, r := range analytics.DefaultRules {
		rules = append(rules, models.ClassificationRule{Pattern: r.Pattern, Category: r.Category})
	}
	shifts := make(map[string]string, len(DefaultShiftStarts))
	for k, v := range DefaultShiftStarts {
		shifts[k] = v
	}
	return SettingsSeed{
		ShiftStarts:             shifts,
		ClassificationOverrides: map[string]string{},
		ClassificationRules:     rules,
		DefaultCategory:         models.CategoryDoblado,
	}
}

// RuleTableFor builds the classification table of one settings version
func RuleTableFor(settings models.OperatorSettings) analytics.RuleTable {
	src := settings.ClassificationRules.Data()
	rules := make([]analytics.Rule, 0, len(src))
	for _, r := range src {
		rules = append(rules, analytics.Rule{Pattern: r.Pattern, Category: r.Category})
	}
	return analytics.NewRuleTable(settings.Version, rules, settings.ClassificationOverrides.Data(), settings.DefaultCategory)
}

// ShiftStartFor resolves an area's "HH:MM" start time on day's date in loc.
// Area names match case-insensitively.
func ShiftStartFor(settings models.OperatorSettings, area string, day time.Time, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	for name, clock := range settings.ShiftStarts.Data() {
		if !strings.EqualFold(name, area) {
			continue
		}
		hm, err := time.Parse("15:04", clock)
		if err != nil {
			return time.Time{}, false
		}
		y, m, d := day.In(loc).Date()
		return time.Date(y, m, d, hm.Hour(), hm.Minute(), 0, 0, loc), true
	}
	return time.Time{}, false
}

func latestSettings(db *gorm.DB) (*models.OperatorSettings, error) {
	var settings models.OperatorSettings
	if err := db.Order("version DESC").First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("operator settings: %w", ErrNotFound)
		}
		return nil, err
	}
	return &settings, nil
}

func applyChange(base models.OperatorSettings, change SettingsChange) models.OperatorSettings {
	next := cloneSettings(base)
	if change.ShiftStarts != nil {
		next.ShiftStarts = datatypes.NewJSONType(canonicalAreas(change.ShiftStarts))
	}
	if change.ClassificationOverrides != nil {
		next.ClassificationOverrides = datatypes.NewJSONType(canonicalCategories(change.ClassificationOverrides))
	}
	if change.ClassificationRules != nil {
		next.ClassificationRules = datatypes.NewJSONType(canonicalRules(change.ClassificationRules))
	}
	if change.DefaultCategory != nil {
		next.DefaultCategory = canonicalCategory(*change.DefaultCategory)
	}
	return next
}

func validateSettings(settings models.OperatorSettings) error {
	for area, clock := range settings.ShiftStarts.Data() {
		if _, err := time.Parse("15:04", clock); err != nil {
			return validationf("shift start for %s must be HH:MM, got %q", area, clock)
		}
	}
	for name, category := range settings.ClassificationOverrides.Data() {
		if !models.IsValidCategory(category) {
			return validationf("override for %q has unknown category %q", name, category)
		}
	}
	for i, rule := range settings.ClassificationRules.Data() {
		if rule.Pattern == "" {
			return validationf("rule %d has an empty pattern", i)
		}
		if !models.IsValidCategory(rule.Category) {
			return validationf("rule %d has unknown category %q", i, rule.Category)
		}
	}
	if !models.IsValidCategory(settings.DefaultCategory) {
		return validationf("unknown default category %q", settings.DefaultCategory)
	}
	return nil
}

func cloneSettings(in models.OperatorSettings) models.OperatorSettings {
	out := in
	shifts := make(map[string]string, len(in.ShiftStarts.Data()))
	for k, v := range in.ShiftStarts.Data() {
		shifts[k] = v
	}
	overrides := make(map[string]string, len(in.ClassificationOverrides.Data()))
	for k, v := range in.ClassificationOverrides.Data() {
		overrides[k] = v
	}
	rules := append([]models.ClassificationRule(nil), in.ClassificationRules.Data()...)
	out.ShiftStarts = datatypes.NewJSONType(shifts)
	out.ClassificationOverrides = datatypes.NewJSONType(overrides)
	out.ClassificationRules = datatypes.NewJSONType(rules)
	return out
}

// canonicalAreas restores the casing of known areas; viper lowercases map keys
func canonicalAreas(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for area, clock := range in {
		for known := range DefaultShiftStarts {
			if strings.EqualFold(area, known) {
				area = known
				break
			}
		}
		out[area] = strings.TrimSpace(clock)
	}
	return out
}

func canonicalCategories(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for name, category := range in {
		out[name] = canonicalCategory(category)
	}
	return out
}

func canonicalRules(in []models.ClassificationRule) []models.ClassificationRule {
	out := make([]models.ClassificationRule, len(in))
	for i, r := range in {
		out[i] = models.ClassificationRule{Pattern: strings.TrimSpace(r.Pattern), Category: canonicalCategory(r.Category)}
	}
	return out
}

func canonicalCategory(c string) string {
	switch {
	case strings.EqualFold(c, models.CategoryMangle):
		return models.CategoryMangle
	case strings.EqualFold(c, models.CategoryDoblado):
		return models.CategoryDoblado
	}
	return c
}

// isUniqueViolation matches duplicate key errors from both PostgreSQL and SQLite
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
