package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/yourusername/studyquest-api/internal/config"
	"github.com/yourusername/studyquest-api/internal/domain/entity"
	pgRepo "github.com/yourusername/studyquest-api/internal/repository/postgres"
	"github.com/yourusername/studyquest-api/pkg/database"
	"github.com/yourusername/studyquest-api/pkg/logger"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
)

// catalogEntry - запись каталога достижений в YAML
type catalogEntry struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Icon        string         `yaml:"icon"`
	Type        string         `yaml:"type"`
	Rarity      string         `yaml:"rarity"`
	XPReward    int            `yaml:"xp_reward"`
	Criteria    map[string]int `yaml:"criteria"`
}

type catalogFile struct {
	Achievements []catalogEntry `yaml:"achievements"`
}

var (
	validTypes = map[string]bool{
		entity.AchievementTypeStreak:     true,
		entity.AchievementTypeCompletion: true,
		entity.AchievementTypeDedication: true,
		entity.AchievementTypeMilestone:  true,
		entity.AchievementTypeQuiz:       true,
		entity.AchievementTypeSpeed:      true,
	}
	validRarities = map[string]bool{
		entity.RarityCommon:    true,
		entity.RarityRare:      true,
		entity.RarityEpic:      true,
		entity.RarityLegendary: true,
	}
)

// parseCatalog разбирает и проверяет каталог.
// Неизвестные виды условий не считаются ошибкой и возвращаются как предупреждения.
func parseCatalog(r io.Reader) ([]entity.Achievement, []string, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]bool, len(file.Achievements))
	achievements := make([]entity.Achievement, 0, len(file.Achievements))
	var warnings []string

	for i, e := range file.Achievements {
		switch {
		case e.Name == "":
			return nil, nil, fmt.Errorf("achievement #%d: name is required", i+1)
		case seen[e.Name]:
			return nil, nil, fmt.Errorf("achievement %q: duplicate name", e.Name)
		case !validTypes[e.Type]:
			return nil, nil, fmt.Errorf("achievement %q: unknown type %q", e.Name, e.Type)
		case !validRarities[e.Rarity]:
			return nil, nil, fmt.Errorf("achievement %q: unknown rarity %q", e.Name, e.Rarity)
		case e.XPReward < 0:
			return nil, nil, fmt.Errorf("achievement %q: xp_reward must be non-negative", e.Name)
		case len(e.Criteria) == 0:
			return nil, nil, fmt.Errorf("achievement %q: criteria are required", e.Name)
		}
		seen[e.Name] = true

		criteria := make(entity.AchievementCriteria, len(e.Criteria))
		for k, v := range e.Criteria {
			criteria[entity.CriterionKind(k)] = v
		}
		for _, kind := range criteria.UnknownKinds() {
			warnings = append(warnings, fmt.Sprintf("achievement %q: criterion %q is not recognized and will never be satisfied", e.Name, kind))
		}

		achievements = append(achievements, entity.Achievement{
			Name:        e.Name,
			Description: e.Description,
			Icon:        e.Icon,
			Type:        e.Type,
			Rarity:      e.Rarity,
			XPReward:    e.XPReward,
			Criteria:    datatypes.NewJSONType(criteria),
		})
	}
	return achievements, warnings, nil
}

func main() {
	catalogPath := flag.String("file", "config/achievements.yaml", "путь к каталогу достижений")
	configPath := flag.String("config", "config/config.yaml", "путь к файлу конфигурации")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appLog, err := logger.New(cfg.Server.Mode)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer appLog.Sync()

	f, err := os.Open(*catalogPath)
	if err != nil {
		appLog.Fatal("failed to open catalog", "path", *catalogPath, "error", err)
	}
	defer f.Close()

	achievements, warnings, err := parseCatalog(f)
	if err != nil {
		appLog.Fatal("invalid catalog", "path", *catalogPath, "error", err)
	}
	for _, w := range warnings {
		appLog.Warn(w)
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), false)
	if err != nil {
		appLog.Fatal("failed to connect to database", "error", err)
	}

	repo := pgRepo.NewAchievementRepo(db)
	for i := range achievements {
		if err := repo.UpsertByName(&achievements[i]); err != nil {
			appLog.Fatal("failed to upsert achievement", "name", achievements[i].Name, "error", err)
		}
		appLog.Debug("achievement upserted", "name", achievements[i].Name)
	}
	appLog.Info("achievement catalog seeded", "count", len(achievements), "warnings", len(warnings))
}
