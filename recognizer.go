package autotag

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/autotag/entity"
	"github.com/poiesic/autotag/entity/openai"
	"github.com/poiesic/autotag/entity/prose"
)

// errEntityDisabled is the cause reported when the backend is "none".
var errEntityDisabled = errors.New("entity extraction disabled by configuration")

// LoadRecognizer builds the recognizer cfg selects. It never fails: a
// recognizer that cannot be built is logged and replaced by
// entity.Unavailable.
func LoadRecognizer(cfg *entity.Config, logger *slog.Logger) entity.Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = entity.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn("invalid entity configuration, entity tags disabled", "err", err)
		return entity.Unavailable(err)
	}

	switch cfg.Backend {
	case entity.BackendNone:
		return entity.Unavailable(errEntityDisabled)
	case entity.BackendOpenAI:
		rec, err := openai.NewRecognizer(cfg)
		if err != nil {
			logger.Warn("failed to create openai recognizer, entity tags disabled", "host", cfg.Host, "err", err)
			return entity.Unavailable(err)
		}
		return rec
	default:
		rec, err := prose.Load(cfg.ModelPath)
		if err != nil {
			logger.Warn("failed to load prose model, entity tags disabled", "path", cfg.ModelPath, "err", err)
			return entity.Unavailable(err)
		}
		warnMissingTypes(logger, rec)
		return rec
	}
}

// warnMissingTypes logs the allow-listed categories rec can never produce.
func warnMissingTypes(logger *slog.Logger, rec entity.Recognizer) {
	missing := entity.MissingTypes(rec)
	if len(missing) == 0 {
		return
	}
	names := make([]string, len(missing))
	for i, t := range missing {
		names[i] = string(t)
	}
	logger.Warn("entity model cannot produce every category; set entity.model_path to a model trained on the full label set or use the openai backend",
		"missing", strings.Join(names, ","))
}
