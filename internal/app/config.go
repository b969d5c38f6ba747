package app

import (
	"fmt"

	"github.com/joho/godotenv"

	"github.com/yungbote/school-backend/internal/jobs/sweeper"
	"github.com/yungbote/school-backend/internal/jobs/worker"
	"github.com/yungbote/school-backend/internal/observability"
	"github.com/yungbote/school-backend/internal/platform/envutil"
	"github.com/yungbote/school-backend/internal/platform/llm"
	"github.com/yungbote/school-backend/internal/platform/logger"
	"github.com/yungbote/school-backend/internal/services/assessment"
)

type Config struct {
	Addr          string
	JWTSecretKey  string
	CORSOrigins   []string
	CatalogDir    string
	RedisEnabled  bool
	ImagesEnabled bool

	LLM     llm.Config
	Images  llm.ImageConfig
	Policy  assessment.RetryPolicy
	Worker  worker.Config
	Sweeper sweeper.Config
	Otel    observability.OtelConfig
}

// LoadDotenv reads .env when present. Values already in the environment win.
func LoadDotenv(log *logger.Logger) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded", "error", err)
	}
}

func LoadConfig(log *logger.Logger) (Config, error) {
	policy, err := assessment.PolicyFromEnv(log)
	if err != nil {
		return Config{}, fmt.Errorf("assessment policy: %w", err)
	}
	addr := envutil.String("ADDR", "", log)
	if addr == "" {
		addr = ":" + envutil.String("PORT", "8080", log)
	}
	images := llm.ImageConfigFromEnv(log)
	return Config{
		Addr:          addr,
		JWTSecretKey:  envutil.String("AUTH_JWT_SECRET", "", log),
		CORSOrigins:   envutil.List("CORS_ORIGINS", []string{"http://localhost:3000"}),
		CatalogDir:    envutil.String("CATALOG_DIR", "", log),
		RedisEnabled:  envutil.String("REDIS_ADDR", "", log) != "",
		ImagesEnabled: envutil.Bool("COVER_IMAGES_ENABLED", images.APIKey != "", log),
		LLM:           llm.ConfigFromEnv(log),
		Images:        images,
		Policy:        policy,
		Worker:        worker.ConfigFromEnv(log),
		Sweeper:       sweeper.ConfigFromEnv(log),
		Otel:          observability.OtelConfigFromEnv(log),
	}, nil
}
