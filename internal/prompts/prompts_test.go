package prompts

import (
	"strings"
	"testing"

	"github.com/shopchat/shopchat/internal/lang"
)

func TestSystemLocalized(t *testing.T) {
	en := System(RoleShoppingAssistant, lang.English)
	if !strings.Contains(en, "Your role: shopping assistant.") {
		t.Fatalf("english system prompt missing role: %q", en)
	}
	ar := System(RoleShoppingAssistant, lang.Arabic)
	if !strings.Contains(ar, "مهمتك") || !strings.Contains(ar, RoleShoppingAssistant) {
		t.Fatalf("arabic system prompt missing role: %q", ar)
	}
}

func TestEvaluateEmbedsAllParts(t *testing.T) {
	p := Evaluate("which phone", "1. iPhone | 100 | store\n", "buy the iPhone", lang.English)
	for _, want := range []string{"which phone", "1. iPhone | 100 | store", "buy the iPhone", "faithfulness"} {
		if !strings.Contains(p, want) {
			t.Fatalf("evaluate prompt missing %q:\n%s", want, p)
		}
	}
}

func TestTranscriptHeaderLocalized(t *testing.T) {
	if got := TranscriptHeader("tablet", lang.English); !strings.Contains(got, "Results for tablet") {
		t.Fatalf("unexpected header: %q", got)
	}
	if got := TranscriptHeader("tablet", lang.Arabic); !strings.Contains(got, "نتائج tablet") {
		t.Fatalf("unexpected arabic header: %q", got)
	}
}

func TestUnknownLocaleFallsBackToEnglish(t *testing.T) {
	if got := System("x", lang.Lang("fr")); !strings.Contains(got, "You are a smart assistant") {
		t.Fatalf("expected english fallback, got %q", got)
	}
}
