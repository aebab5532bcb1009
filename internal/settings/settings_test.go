package settings

import (
	"testing"

	"github.com/voicetel/freescout-nps/internal/storage"
)

func newTestService() *Service {
	return NewService(storage.NewMemorySettings())
}

func TestLoadDefaultsWhenEmpty(t *testing.T) {
	svc := newTestService()

	got := svc.Load()
	want := Defaults()
	if got != want {
		t.Errorf("Load() = %+v, want defaults %+v", got, want)
	}
}

func TestLoadDefaultsWhenMalformed(t *testing.T) {
	store := storage.NewMemorySettings()
	if err := store.SaveRaw([]byte("not json at all")); err != nil {
		t.Fatal(err)
	}

	svc := NewService(store)
	if got := svc.Load(); got != Defaults() {
		t.Errorf("Load() on malformed data = %+v, want defaults", got)
	}
}

func TestSaveMergesOverDefaults(t *testing.T) {
	svc := newTestService()

	merged, err := svc.Save([]byte(`{"question": "Would you recommend us?", "trigger_delay_hours": 48}`))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if merged.Question != "Would you recommend us?" {
		t.Errorf("Question = %q", merged.Question)
	}
	if merged.TriggerDelayHours != 48 {
		t.Errorf("TriggerDelayHours = %d, want 48", merged.TriggerDelayHours)
	}
	// Omitted fields resolve to defaults.
	if merged.FrequencyLimitDays != 90 {
		t.Errorf("FrequencyLimitDays = %d, want default 90", merged.FrequencyLimitDays)
	}
	if !merged.Enabled {
		t.Error("Enabled should default to true")
	}

	if got := svc.Load(); got != merged {
		t.Errorf("Load() = %+v, want saved %+v", got, merged)
	}
}

// TestSaveRevertsOmittedFields pins the non-obvious contract: saving a
// partial merges over defaults, not over the previous value, so a field
// omitted from the second save reverts to its default.
func TestSaveRevertsOmittedFields(t *testing.T) {
	svc := newTestService()

	if _, err := svc.Save([]byte(`{"trigger_delay_hours": 72}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Save([]byte(`{"question": "New question?"}`)); err != nil {
		t.Fatal(err)
	}

	got := svc.Load()
	if got.TriggerDelayHours != 24 {
		t.Errorf("TriggerDelayHours = %d, want default 24 after omission", got.TriggerDelayHours)
	}
	if got.Question != "New question?" {
		t.Errorf("Question = %q", got.Question)
	}
}

func TestSaveNestedBranding(t *testing.T) {
	svc := newTestService()

	merged, err := svc.Save([]byte(`{"branding": {"logo_url": "https://example.com/logo.png"}}`))
	if err != nil {
		t.Fatal(err)
	}

	if merged.Branding.LogoURL != "https://example.com/logo.png" {
		t.Errorf("LogoURL = %q", merged.Branding.LogoURL)
	}
	// Sibling key inside the nested object keeps its default.
	if merged.Branding.PrimaryColor != "#3b82f6" {
		t.Errorf("PrimaryColor = %q, want default", merged.Branding.PrimaryColor)
	}
}

func TestSaveAcceptsOutOfRangeValues(t *testing.T) {
	svc := newTestService()

	merged, err := svc.Save([]byte(`{"trigger_delay_hours": -5, "frequency_limit_days": -1}`))
	if err != nil {
		t.Fatalf("negative values must be accepted as-is: %v", err)
	}

	if merged.TriggerDelayHours != -5 || merged.FrequencyLimitDays != -1 {
		t.Errorf("got %d/%d, want -5/-1 stored verbatim", merged.TriggerDelayHours, merged.FrequencyLimitDays)
	}
}

func TestSaveRejectsInvalidJSON(t *testing.T) {
	svc := newTestService()

	if _, err := svc.Save([]byte(`{"question": `)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestNullResolvesToDefault(t *testing.T) {
	svc := newTestService()

	merged, err := svc.Save([]byte(`{"question": null}`))
	if err != nil {
		t.Fatal(err)
	}
	if merged.Question != Defaults().Question {
		t.Errorf("Question = %q, want default for explicit null", merged.Question)
	}
}

func TestEnsureSaved(t *testing.T) {
	store := storage.NewMemorySettings()
	svc := NewService(store)

	if err := svc.EnsureSaved(); err != nil {
		t.Fatal(err)
	}
	raw, err := store.LoadRaw()
	if err != nil || len(raw) == 0 {
		t.Fatalf("expected seeded settings, got %q err %v", raw, err)
	}

	// A second call must not clobber customized settings.
	if _, err := svc.Save([]byte(`{"question": "Custom?"}`)); err != nil {
		t.Fatal(err)
	}
	if err := svc.EnsureSaved(); err != nil {
		t.Fatal(err)
	}
	if got := svc.Load(); got.Question != "Custom?" {
		t.Errorf("EnsureSaved clobbered settings: %q", got.Question)
	}
}
