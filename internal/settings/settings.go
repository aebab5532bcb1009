package settings

import (
	"encoding/json"
	"fmt"

	"github.com/voicetel/freescout-nps/internal/models"
	"github.com/voicetel/freescout-nps/internal/storage"
)

// Defaults returns the compiled-in survey configuration.
func Defaults() models.Settings {
	return models.Settings{
		Question:           "How likely are you to recommend us to a friend or colleague?",
		FollowUpQuestion:   "What is the main reason for your score?",
		TriggerDelayHours:  24,
		FrequencyLimitDays: 90,
		Branding: models.Branding{
			PrimaryColor: "#3b82f6",
			LogoURL:      "",
		},
		Enabled: true,
	}
}

// Service reads and writes the survey configuration.
//
// The save contract is deliberate and non-obvious: a partial update is
// deep-merged over the *defaults*, not over the previously saved value.
// A field omitted from the partial reverts to its default. The dashboard
// always submits the full settings form, so in practice nothing is lost,
// and the store never holds half a document.
type Service struct {
	store storage.SettingsStore
}

func NewService(store storage.SettingsStore) *Service {
	return &Service{store: store}
}

// Load returns the persisted settings merged over defaults. Missing or
// malformed persisted data falls back entirely to defaults; reporting must
// always have a configuration to render.
func (s *Service) Load() models.Settings {
	raw, err := s.store.LoadRaw()
	if err != nil || len(raw) == 0 {
		return Defaults()
	}

	merged, err := mergeOverDefaults(raw)
	if err != nil {
		return Defaults()
	}

	return merged
}

// Save deep-merges the partial JSON document over defaults and persists
// the result. Returns the merged settings as they will load back.
func (s *Service) Save(partial []byte) (models.Settings, error) {
	merged, err := mergeOverDefaults(partial)
	if err != nil {
		return models.Settings{}, fmt.Errorf("invalid settings payload: %w", err)
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return models.Settings{}, err
	}

	if err := s.store.SaveRaw(data); err != nil {
		return models.Settings{}, fmt.Errorf("failed to persist settings: %w", err)
	}

	return merged, nil
}

// EnsureSaved seeds the store with defaults when nothing is persisted yet.
// Called once on first activation.
func (s *Service) EnsureSaved() error {
	raw, err := s.store.LoadRaw()
	if err != nil {
		return err
	}
	if len(raw) > 0 {
		return nil
	}
	_, err = s.Save([]byte("{}"))
	return err
}

// mergeOverDefaults decodes raw as a generic JSON object, recursively lays
// it over the default document and decodes the result into Settings. This
// is the single place the "missing keys resolve to defaults, never to
// null" rule lives.
func mergeOverDefaults(raw []byte) (models.Settings, error) {
	var partial map[string]interface{}
	if err := json.Unmarshal(raw, &partial); err != nil {
		return models.Settings{}, err
	}

	defaultsJSON, err := json.Marshal(Defaults())
	if err != nil {
		return models.Settings{}, err
	}
	var base map[string]interface{}
	if err := json.Unmarshal(defaultsJSON, &base); err != nil {
		return models.Settings{}, err
	}

	merged := deepMerge(base, partial)

	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		return models.Settings{}, err
	}

	var out models.Settings
	if err := json.Unmarshal(mergedJSON, &out); err != nil {
		return models.Settings{}, err
	}

	return out, nil
}

// deepMerge lays overlay onto base. Nested objects merge key by key;
// null overlay values are treated as missing so no field ever resolves
// to null.
func deepMerge(base, overlay map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base))
	for k, v := range base {
		out[k] = v
	}

	for k, v := range overlay {
		if v == nil {
			continue
		}
		if nested, ok := v.(map[string]interface{}); ok {
			if baseNested, ok := out[k].(map[string]interface{}); ok {
				out[k] = deepMerge(baseNested, nested)
				continue
			}
		}
		out[k] = v
	}

	return out
}
