// Package main implements the one-time bulk recipe ingestion job. It reads
// a RAW_recipes-style CSV, derives nutrition facts and meal tags, embeds
// each recipe and loads the corpus in batches.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/platewise/v1/internal/domain/recipe"
	"github.com/platewise/v1/internal/infrastructure/ai"
	"github.com/platewise/v1/internal/infrastructure/config"
	"github.com/platewise/v1/internal/infrastructure/persistence/postgres"
	"github.com/platewise/v1/internal/ports/outbound"
	"github.com/platewise/v1/pkg/logger"
)

func main() {
	var (
		filePath  = flag.String("file", "data/RAW_recipes.csv", "path to the recipe CSV")
		sample    = flag.Int("sample", 50000, "maximum number of recipes to ingest")
		batchSize = flag.Int("batch", 1000, "recipes per insert batch")
	)
	flag.Parse()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Format:      "console",
		Development: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	db, err := postgres.Connect(postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
	}, log)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	corpus := postgres.NewRecipeCorpus(db, log)

	provider := ai.NewProvider(ai.Config{
		Provider:       cfg.AI.Provider,
		OpenAIKey:      cfg.AI.OpenAIKey,
		OpenAIBaseURL:  cfg.AI.OpenAIBaseURL,
		OllamaBaseURL:  cfg.AI.OllamaHost,
		EmbeddingModel: cfg.AI.EmbeddingModel,
		Timeout:        cfg.AI.Timeout,
	}, log)

	ctx := context.Background()
	total, err := run(ctx, *filePath, *sample, *batchSize, corpus, provider, log)
	if err != nil {
		log.Fatal("ingestion failed", zap.Error(err))
	}
	log.Info("ingestion complete", zap.Int("recipes", total))
}

func run(
	ctx context.Context,
	path string,
	sample, batchSize int,
	corpus outbound.RecipeCorpus,
	embedder outbound.EmbeddingService,
	log *zap.Logger,
) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return 0, err
	}

	var (
		batch  []recipe.Recipe
		total  int
		parsed int
	)
	for parsed < sample {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn("skipping unreadable row", zap.Error(err))
			continue
		}

		r, ok := parseRow(row, cols)
		if !ok {
			continue
		}

		// Embed the same text shape the corpus was designed around.
		text := r.Name + ". Ingredients: " + r.IngredientText
		vec, err := embedder.Embed(ctx, text)
		if err != nil {
			return total, fmt.Errorf("embedding failed on %q: %w", r.Name, err)
		}
		r.Embedding = vec

		parsed++
		batch = append(batch, r)
		if len(batch) >= batchSize {
			if err := corpus.BulkCreate(ctx, batch); err != nil {
				return total, err
			}
			total += len(batch)
			log.Info("batch loaded", zap.Int("total", total))
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := corpus.BulkCreate(ctx, batch); err != nil {
			return total, err
		}
		total += len(batch)
	}
	return total, nil
}

type columns struct {
	name, nutrition, steps, ingredients int
}

func columnIndex(header []string) (columns, error) {
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(strings.ToLower(h))] = i
	}
	cols := columns{name: -1, nutrition: -1, steps: -1, ingredients: -1}
	lookup := map[string]*int{
		"name":        &cols.name,
		"nutrition":   &cols.nutrition,
		"steps":       &cols.steps,
		"ingredients": &cols.ingredients,
	}
	for col, dst := range lookup {
		i, ok := idx[col]
		if !ok {
			return cols, fmt.Errorf("CSV is missing the %q column", col)
		}
		*dst = i
	}
	return cols, nil
}

// parseRow converts one CSV row. The nutrition column is a Python-style
// list [calories, fat, sugar, sodium, protein, sat fat, carbs]; rows with
// missing fields or zero calories are dropped.
func parseRow(row []string, cols columns) (recipe.Recipe, bool) {
	get := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	name := get(cols.name)
	ingredients := joinListLiteral(get(cols.ingredients))
	steps := joinListLiteral(get(cols.steps))
	nutrition := parseListLiteral(get(cols.nutrition))
	if name == "" || ingredients == "" || len(nutrition) < 7 {
		return recipe.Recipe{}, false
	}

	calories, err := strconv.ParseFloat(nutrition[0], 64)
	if err != nil || calories <= 0 {
		return recipe.Recipe{}, false
	}
	fat, err1 := strconv.ParseFloat(nutrition[1], 64)
	protein, err2 := strconv.ParseFloat(nutrition[4], 64)
	carbs, err3 := strconv.ParseFloat(nutrition[6], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return recipe.Recipe{}, false
	}

	return recipe.Recipe{
		Name:           name,
		IngredientText: ingredients,
		Steps:          steps,
		Nutrition: recipe.NutritionProfile{
			Calories: calories,
			Protein:  protein,
			Carbs:    carbs,
			Fat:      fat,
		},
		MealTags: inferMealTags(name),
	}, true
}

// parseListLiteral splits a Python-style list literal like
// ['a', 'b'] or [1.0, 2.0] into its raw elements.
func parseListLiteral(s string) []string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil
	}
	s = s[1 : len(s)-1]
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), "'\"")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// joinListLiteral renders a list literal as comma-joined text, or returns
// the input untouched when it is not a list.
func joinListLiteral(s string) string {
	parts := parseListLiteral(s)
	if parts == nil {
		return s
	}
	return strings.Join(parts, ", ")
}

var mealKeywords = map[recipe.MealTag][]string{
	recipe.MealTagBreakfast: {"breakfast", "pancake", "waffle", "oatmeal", "omelet", "omelette", "granola", "muffin", "smoothie", "porridge", "scrambled"},
	recipe.MealTagLunch:     {"lunch", "sandwich", "wrap", "salad", "soup", "quesadilla", "burger"},
	recipe.MealTagDinner:    {"dinner", "roast", "casserole", "stew", "curry", "lasagna", "meatloaf", "pot pie", "chili", "steak"},
	recipe.MealTagSnack:     {"snack", "cookie", "bar", "dip", "trail mix", "popcorn", "brownie"},
}

// inferMealTags guesses slots from the recipe name. Recipes that match
// nothing stay untagged and act as wildcards at planning time.
func inferMealTags(name string) []recipe.MealTag {
	lower := strings.ToLower(name)
	var tags []recipe.MealTag
	for _, tag := range []recipe.MealTag{recipe.MealTagBreakfast, recipe.MealTagLunch, recipe.MealTagDinner, recipe.MealTagSnack} {
		for _, kw := range mealKeywords[tag] {
			if strings.Contains(lower, kw) {
				tags = append(tags, tag)
				break
			}
		}
	}
	return tags
}
