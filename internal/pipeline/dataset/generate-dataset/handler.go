// internal/pipeline/dataset/generate-dataset/handler.go
package generatedataset

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"bedrock-batch-pipeline/internal/common/errors"
	"bedrock-batch-pipeline/internal/common/logger"
	"bedrock-batch-pipeline/internal/common/metrics"
	"bedrock-batch-pipeline/internal/models"
)

const (
	TaskType = "generate-dataset"
)

// Fixed vocabularies for the synthetic CRM dataset. Names are sampled with
// replacement; the product catalog is sampled without replacement until it
// wraps.
var firstNames = []string{
	"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael",
	"Linda", "David", "Elizabeth", "William", "Barbara", "Richard", "Susan",
	"Joseph", "Jessica", "Thomas", "Sarah", "Daniel", "Karen",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
	"Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez",
	"Wilson", "Anderson", "Clark", "Taylor", "Moore", "Jackson", "Martin",
}

var productCatalog = []models.ProductRecommendation{
	{
		Product:     "Aurora Smart Lamp",
		Description: "A voice-controlled lamp that adapts its warmth to the time of day.",
	},
	{
		Product:     "TrailBlaze Hiking Backpack",
		Description: "A 45-liter weatherproof backpack with an integrated hydration sleeve.",
	},
	{
		Product:     "BrewMaster Pour-Over Kettle",
		Description: "A gooseneck kettle with precision temperature control for coffee lovers.",
	},
	{
		Product:     "ZenFlow Yoga Mat",
		Description: "An extra-grip natural rubber mat that cushions joints during practice.",
	},
	{
		Product:     "PulseFit Fitness Tracker",
		Description: "A slim tracker with heart-rate monitoring and a ten-day battery.",
	},
	{
		Product:     "CozyNest Weighted Blanket",
		Description: "A breathable weighted blanket engineered for deeper sleep.",
	},
	{
		Product:     "SoundScape Wireless Earbuds",
		Description: "Noise-isolating earbuds with studio-grade drivers and wireless charging.",
	},
	{
		Product:     "FreshPress Cold Brew Maker",
		Description: "A mess-free cold brew system that steeps a smooth batch overnight.",
	},
}

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	startTime := time.Now()

	customerCount := input.CustomerCount
	if customerCount == 0 {
		customerCount = h.config.CustomerCount
	}
	recommendationCount := input.RecommendationCount
	if recommendationCount == 0 {
		recommendationCount = h.config.RecommendationCount
	}

	if customerCount < 1 {
		metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeInvalidInput)).Inc()
		return nil, errors.NewInvalidInputError(fmt.Sprintf("customerCount must be positive, got %d", customerCount))
	}
	if recommendationCount < 1 {
		metrics.StageFailed.WithLabelValues(TaskType, string(errors.ErrCodeInvalidInput)).Inc()
		return nil, errors.NewInvalidInputError(fmt.Sprintf("recommendationCount must be positive, got %d", recommendationCount))
	}

	customers := make([]models.Customer, 0, customerCount)
	for i := 0; i < customerCount; i++ {
		name := firstNames[rand.IntN(len(firstNames))] + " " + lastNames[rand.IntN(len(lastNames))]
		customers = append(customers, models.Customer{
			ID:   fmt.Sprintf("CUST-%04d", i+1),
			Name: name,
		})
	}

	// Shuffle the catalog once, then walk it so small requests get distinct
	// products and larger ones wrap around.
	perm := rand.Perm(len(productCatalog))
	recommendations := make([]models.ProductRecommendation, 0, recommendationCount)
	for i := 0; i < recommendationCount; i++ {
		recommendations = append(recommendations, productCatalog[perm[i%len(productCatalog)]])
	}

	h.logger.Info("synthetic dataset generated", map[string]interface{}{
		"customers":       len(customers),
		"recommendations": len(recommendations),
	})

	metrics.RecordsProcessed.WithLabelValues(TaskType).Add(float64(len(customers)))
	metrics.StageCompleted.WithLabelValues(TaskType).Inc()
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())

	return &Output{
		Customers:           customers,
		Recommendations:     recommendations,
		CustomerCount:       len(customers),
		RecommendationCount: len(recommendations),
	}, nil
}
