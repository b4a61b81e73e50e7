package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewSessionInitializesEmptyListeners(t *testing.T) {
	speaker := uuid.New()
	s := NewSession("ABCD", speaker, "en", []string{"es", "fr"})

	if s.Code != "ABCD" {
		t.Errorf("Code = %q, want ABCD", s.Code)
	}
	if s.SpeakerConn != speaker {
		t.Error("SpeakerConn not set from constructor")
	}
	if s.ListenerCount() != 0 {
		t.Errorf("ListenerCount = %d, want 0", s.ListenerCount())
	}
}

func TestAddAndRemoveListener(t *testing.T) {
	s := NewSession("ABCD", uuid.New(), "en", nil)
	l := &Listener{ConnID: uuid.New(), Lang: "es"}

	s.AddListener(l)
	if s.ListenerCount() != 1 {
		t.Fatalf("ListenerCount = %d, want 1", s.ListenerCount())
	}
	got, ok := s.Listener(l.ConnID)
	if !ok || got.Lang != "es" {
		t.Errorf("Listener lookup failed: got %+v, ok=%v", got, ok)
	}

	s.RemoveListener(l.ConnID)
	if s.ListenerCount() != 0 {
		t.Errorf("ListenerCount = %d, want 0 after removal", s.ListenerCount())
	}
}

func TestSetListenerLanguageUpdatesInPlace(t *testing.T) {
	s := NewSession("ABCD", uuid.New(), "en", nil)
	id := uuid.New()
	s.AddListener(&Listener{ConnID: id, Lang: "es"})

	if !s.SetListenerLanguage(id, "fr") {
		t.Fatal("expected SetListenerLanguage to succeed for a known connection")
	}
	l, _ := s.Listener(id)
	if l.Lang != "fr" {
		t.Errorf("Lang = %q, want fr", l.Lang)
	}
	if s.SetListenerLanguage(uuid.New(), "de") {
		t.Error("expected SetListenerLanguage to fail for an unknown connection")
	}
}

func TestVoiceForLanguageUsesSoleListenerPreference(t *testing.T) {
	s := NewSession("ABCD", uuid.New(), "en", nil)
	idA := uuid.New()
	idB := uuid.New()
	s.AddListener(&Listener{ConnID: idA, Lang: "es"})
	s.AddListener(&Listener{ConnID: idB, Lang: "es"})

	if !s.SetListenerVoice(idA, "voice-1") {
		t.Fatal("expected SetListenerVoice to succeed")
	}
	if got := s.VoiceForLanguage("es"); got != "voice-1" {
		t.Errorf("VoiceForLanguage = %q, want voice-1", got)
	}
	if s.SetListenerVoice(uuid.New(), "de") {
		t.Error("expected SetListenerVoice to fail for an unknown connection")
	}
}

func TestVoiceForLanguageFallsBackToDefaultOnDisagreement(t *testing.T) {
	s := NewSession("ABCD", uuid.New(), "en", nil)
	idA := uuid.New()
	idB := uuid.New()
	s.AddListener(&Listener{ConnID: idA, Lang: "es"})
	s.AddListener(&Listener{ConnID: idB, Lang: "es"})
	s.SetListenerVoice(idA, "voice-1")
	s.SetListenerVoice(idB, "voice-2")

	if got := s.VoiceForLanguage("es"); got != defaultVoiceFor("es") {
		t.Errorf("VoiceForLanguage = %q, want the deterministic default %q", got, defaultVoiceFor("es"))
	}
}

func TestVoiceForLanguageFallsBackToDefaultWithNoPreference(t *testing.T) {
	s := NewSession("ABCD", uuid.New(), "en", nil)
	s.AddListener(&Listener{ConnID: uuid.New(), Lang: "es"})

	if got := s.VoiceForLanguage("es"); got != defaultVoiceFor("es") {
		t.Errorf("VoiceForLanguage = %q, want the deterministic default %q", got, defaultVoiceFor("es"))
	}
}

func TestDefaultVoiceForUnknownLanguageFallsBackToEnglish(t *testing.T) {
	if got := defaultVoiceFor("xx"); got != defaultVoiceByLanguage["en"] {
		t.Errorf("defaultVoiceFor(xx) = %q, want the English default", got)
	}
}

func TestEffectiveTargetsPrefersDeclaredTargets(t *testing.T) {
	s := NewSession("ABCD", uuid.New(), "en", []string{"es", "fr"})
	s.AddListener(&Listener{ConnID: uuid.New(), Lang: "de"})

	got := s.EffectiveTargets()
	if len(got) != 2 || got[0] != "es" || got[1] != "fr" {
		t.Errorf("EffectiveTargets = %v, want [es fr]", got)
	}
}

func TestEffectiveTargetsFallsBackToListenerLanguages(t *testing.T) {
	s := NewSession("ABCD", uuid.New(), "en", nil)
	s.AddListener(&Listener{ConnID: uuid.New(), Lang: "es"})
	s.AddListener(&Listener{ConnID: uuid.New(), Lang: "es"})
	s.AddListener(&Listener{ConnID: uuid.New(), Lang: "fr"})

	got := s.EffectiveTargets()
	if len(got) != 2 {
		t.Fatalf("EffectiveTargets = %v, want 2 distinct languages", got)
	}
}

func TestListenersForLanguageFiltersByLanguage(t *testing.T) {
	s := NewSession("ABCD", uuid.New(), "en", nil)
	esID := uuid.New()
	s.AddListener(&Listener{ConnID: esID, Lang: "es"})
	s.AddListener(&Listener{ConnID: uuid.New(), Lang: "fr"})

	got := s.ListenersForLanguage("es")
	if len(got) != 1 || got[0] != esID {
		t.Errorf("ListenersForLanguage(es) = %v, want [%v]", got, esID)
	}
}

func TestIsStaleRequiresNoListenersAndElapsedTime(t *testing.T) {
	s := NewSession("ABCD", uuid.New(), "en", nil)

	if s.IsStale(time.Now()) {
		t.Error("a freshly created session should not be stale yet")
	}
	if s.IsStale(time.Now().Add(StaleAfter + time.Minute)) == false {
		t.Error("expected a session with no listeners past StaleAfter to be stale")
	}

	s.AddListener(&Listener{ConnID: uuid.New(), Lang: "es"})
	if s.IsStale(time.Now().Add(StaleAfter + time.Minute)) {
		t.Error("a session with an active listener should never be stale")
	}
}

func TestRecordUtteranceAccumulates(t *testing.T) {
	s := NewSession("ABCD", uuid.New(), "en", nil)
	s.RecordUtterance(100 * time.Millisecond)
	s.RecordUtterance(200 * time.Millisecond)

	if s.UtteranceCount != 2 {
		t.Errorf("UtteranceCount = %d, want 2", s.UtteranceCount)
	}
	if s.CumulativeLatency != 300*time.Millisecond {
		t.Errorf("CumulativeLatency = %v, want 300ms", s.CumulativeLatency)
	}
}

func TestRecordErrorIncrements(t *testing.T) {
	s := NewSession("ABCD", uuid.New(), "en", nil)
	s.RecordError()
	s.RecordError()
	if s.ErrorCount != 2 {
		t.Errorf("ErrorCount = %d, want 2", s.ErrorCount)
	}
}
