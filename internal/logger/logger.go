package logger

import (
	"os"

	"go.uber.org/zap"
)

// Init builds the process-wide zap logger and installs it as the global.
func Init() (*zap.Logger, error) {
	var cfg zap.Config
	if os.Getenv("BLOG_ENV") == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.DisableStacktrace = true

	logg, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(logg)
	return logg, nil
}
