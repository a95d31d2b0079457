// Package postgres provides the pgvector-backed recipe corpus.
package postgres

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/platewise/v1/internal/domain/plan"
	"github.com/platewise/v1/internal/domain/recipe"
	"github.com/platewise/v1/internal/ports/outbound"
	apperrors "github.com/platewise/v1/pkg/errors"
)

// Config holds the database connection settings.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
	Debug    bool
}

// DSN renders the connection string.
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, sslMode)
}

// jsonbStringArray stores meal tags as a JSONB array.
type jsonbStringArray []string

// Value implements the driver.Valuer interface
func (a jsonbStringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface
func (a *jsonbStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = jsonbStringArray{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
	return json.Unmarshal(bytes, a)
}

// recipeRecord is the persistence model for an ingested recipe.
type recipeRecord struct {
	ID             int64            `gorm:"primaryKey;autoIncrement"`
	Name           string           `gorm:"size:255;not null;index"`
	IngredientText string           `gorm:"type:text;not null"`
	Steps          string           `gorm:"type:text"`
	Calories       float64          `gorm:"type:float;not null"`
	Protein        float64          `gorm:"type:float;not null"`
	Carbs          float64          `gorm:"type:float;not null"`
	Fat            float64          `gorm:"type:float;not null"`
	MealTags       jsonbStringArray `gorm:"type:jsonb;not null;default:'[]'"`
	Embedding      pgvector.Vector  `gorm:"type:vector(384)"`
	CreatedAt      time.Time
}

func (recipeRecord) TableName() string {
	return "recipes"
}

// RecipeCorpus is the pgvector-backed implementation of the corpus port.
type RecipeCorpus struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ outbound.RecipeCorpus = (*RecipeCorpus)(nil)

// Connect opens the database, enables the vector extension and migrates the
// schema.
func Connect(cfg Config, logger *zap.Logger) (*gorm.DB, error) {
	logLevel := gormlogger.Silent
	if cfg.Debug {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}
	if err := db.AutoMigrate(&recipeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate recipe schema: %w", err)
	}

	logger.Info("recipe corpus connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
	)
	return db, nil
}

// NewRecipeCorpus creates the corpus over an open connection.
func NewRecipeCorpus(db *gorm.DB, logger *zap.Logger) *RecipeCorpus {
	return &RecipeCorpus{
		db:     db,
		logger: logger.Named("recipe-corpus"),
	}
}

// searchRow carries the record plus its similarity from the index scan.
type searchRow struct {
	recipeRecord
	Similarity float64
}

// SimilaritySearch returns the k nearest recipes by cosine similarity.
// Equal scores are broken by ascending ID for determinism.
func (c *RecipeCorpus) SimilaritySearch(ctx context.Context, query []float32, k int) ([]plan.Candidate, error) {
	vec := pgvector.NewVector(query)

	var rows []searchRow
	err := c.db.WithContext(ctx).
		Model(&recipeRecord{}).
		Select("*, 1 - (embedding <=> ?) AS similarity", vec).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  "embedding <=> ?, id ASC",
			Vars: []interface{}{vec},
		}}).
		Limit(k).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.NewDatabaseError("run similarity search", err)
	}

	candidates := make([]plan.Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, plan.Candidate{
			Recipe:     toDomain(row.recipeRecord),
			Similarity: row.Similarity,
		})
	}
	return candidates, nil
}

// FindByIDs fetches authoritative records for the given IDs.
func (c *RecipeCorpus) FindByIDs(ctx context.Context, ids []int64) ([]recipe.Recipe, error) {
	var records []recipeRecord
	if err := c.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&records).Error; err != nil {
		return nil, apperrors.NewDatabaseError("fetch recipes by id", err)
	}
	recipes := make([]recipe.Recipe, 0, len(records))
	for _, rec := range records {
		recipes = append(recipes, toDomain(rec))
	}
	return recipes, nil
}

// Count returns the corpus size.
func (c *RecipeCorpus) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := c.db.WithContext(ctx).Model(&recipeRecord{}).Count(&count).Error; err != nil {
		return 0, apperrors.NewDatabaseError("count recipes", err)
	}
	return count, nil
}

// BulkCreate inserts ingested recipes in batches. Used by the seed job
// only.
func (c *RecipeCorpus) BulkCreate(ctx context.Context, recipes []recipe.Recipe) error {
	records := make([]recipeRecord, 0, len(recipes))
	for _, r := range recipes {
		if err := r.Validate(); err != nil {
			return apperrors.NewValidationError(err.Error())
		}
		records = append(records, toRecord(r))
	}
	if err := c.db.WithContext(ctx).CreateInBatches(records, 500).Error; err != nil {
		return apperrors.NewDatabaseError("bulk insert recipes", err)
	}
	return nil
}

func toDomain(rec recipeRecord) recipe.Recipe {
	tags := make([]recipe.MealTag, 0, len(rec.MealTags))
	for _, t := range rec.MealTags {
		if tag, err := recipe.ParseMealTag(t); err == nil {
			tags = append(tags, tag)
		}
	}
	return recipe.Recipe{
		ID:             rec.ID,
		Name:           rec.Name,
		IngredientText: rec.IngredientText,
		Steps:          rec.Steps,
		Nutrition: recipe.NutritionProfile{
			Calories: rec.Calories,
			Protein:  rec.Protein,
			Carbs:    rec.Carbs,
			Fat:      rec.Fat,
		},
		Embedding: rec.Embedding.Slice(),
		MealTags:  tags,
	}
}

func toRecord(r recipe.Recipe) recipeRecord {
	tags := make(jsonbStringArray, 0, len(r.MealTags))
	for _, t := range r.MealTags {
		tags = append(tags, string(t))
	}
	return recipeRecord{
		ID:             r.ID,
		Name:           r.Name,
		IngredientText: r.IngredientText,
		Steps:          r.Steps,
		Calories:       r.Nutrition.Calories,
		Protein:        r.Nutrition.Protein,
		Carbs:          r.Nutrition.Carbs,
		Fat:            r.Nutrition.Fat,
		MealTags:       tags,
		Embedding:      pgvector.NewVector(r.Embedding),
	}
}
