package protocol

import (
	"strings"
	"testing"
)

func TestParse_MemoryWriteScenario(t *testing.T) {
	reply := Parse("Feito. [[MEMORY_WRITE: usuário prefere respostas curtas]]")

	if reply.CleanText != "Feito." {
		t.Errorf("Expected clean text %q, got %q", "Feito.", reply.CleanText)
	}
	facts := reply.MemoryFacts()
	if len(facts) != 1 {
		t.Fatalf("Expected 1 memory fact, got %d", len(facts))
	}
	if facts[0] != "usuário prefere respostas curtas" {
		t.Errorf("Unexpected fact payload: %q", facts[0])
	}
}

func TestParse_MultipleMemoryWrites(t *testing.T) {
	raw := "[[MEMORY_WRITE: a]] meio [[MEMORY_WRITE: b]] fim [[MEMORY_WRITE: c]]"
	reply := Parse(raw)

	facts := reply.MemoryFacts()
	if len(facts) != 3 {
		t.Fatalf("Expected 3 memory facts, got %d", len(facts))
	}
	for i, want := range []string{"a", "b", "c"} {
		if facts[i] != want {
			t.Errorf("Fact %d: expected %q, got %q", i, want, facts[i])
		}
	}
	if strings.Contains(reply.CleanText, "[[") || strings.Contains(reply.CleanText, "]]") {
		t.Errorf("Marker fragments left in clean text: %q", reply.CleanText)
	}
}

func TestParse_PermissionRequestScenario(t *testing.T) {
	reply := Parse("Confirma a exclusão? [[REQUEST_PERMISSION: apagar memória]]")

	if reply.CleanText != "Confirma a exclusão?" {
		t.Errorf("Expected clean text %q, got %q", "Confirma a exclusão?", reply.CleanText)
	}
	if got := reply.PermissionDescription(); got != "apagar memória" {
		t.Errorf("Expected description %q, got %q", "apagar memória", got)
	}
	if reply.PrecedingText != "Confirma a exclusão?" {
		t.Errorf("Expected preceding text %q, got %q", "Confirma a exclusão?", reply.PrecedingText)
	}
}

func TestParse_LogoutScenario(t *testing.T) {
	reply := Parse("Até breve. [[LOGOUT]]")

	if reply.CleanText != "Até breve." {
		t.Errorf("Expected clean text %q, got %q", "Até breve.", reply.CleanText)
	}
	if !reply.Has(DirectiveLogout) {
		t.Error("Expected a Logout directive")
	}
}

func TestParse_DirectiveKindOrder(t *testing.T) {
	raw := "[[LOGOUT]] x [[REQUEST_PERMISSION: p]] y [[SESSION_RESET]] z [[MEMORY_WRITE: f]]"
	reply := Parse(raw)

	kinds := make([]DirectiveKind, 0, len(reply.Directives))
	for _, d := range reply.Directives {
		kinds = append(kinds, d.Kind)
	}
	want := []DirectiveKind{
		DirectiveMemoryWrite,
		DirectiveSessionReset,
		DirectivePermissionRequest,
		DirectiveLogout,
	}
	if len(kinds) != len(want) {
		t.Fatalf("Expected %d directives, got %d", len(want), len(kinds))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("Directive %d: expected %v, got %v", i, want[i], kinds[i])
		}
	}
	if reply.CleanText != "x  y  z" {
		t.Errorf("Unexpected clean text: %q", reply.CleanText)
	}
}

func TestParse_UnterminatedMarkerPassesThrough(t *testing.T) {
	raw := "quase [[MEMORY_WRITE: sem fechamento"
	reply := Parse(raw)

	if len(reply.Directives) != 0 {
		t.Errorf("Expected no directives, got %d", len(reply.Directives))
	}
	if reply.CleanText != raw {
		t.Errorf("Expected text untouched, got %q", reply.CleanText)
	}
}

func TestParse_NestedBracketsAreMalformed(t *testing.T) {
	raw := "a [[MEMORY_WRITE: x [[y]] b"
	reply := Parse(raw)

	if len(reply.Directives) != 0 {
		t.Errorf("Expected no directives for nested marker, got %d", len(reply.Directives))
	}
	if reply.CleanText != raw {
		t.Errorf("Expected text untouched, got %q", reply.CleanText)
	}
}

func TestParse_UnknownTagPassesThrough(t *testing.T) {
	raw := "ok [[SELF_DESTRUCT: now]] fim"
	reply := Parse(raw)

	if len(reply.Directives) != 0 {
		t.Errorf("Expected no directives, got %d", len(reply.Directives))
	}
	if reply.CleanText != raw {
		t.Errorf("Expected unknown tag preserved, got %q", reply.CleanText)
	}
}

func TestParse_EmptyPayload(t *testing.T) {
	reply := Parse("[[MEMORY_WRITE: ]]")

	facts := reply.MemoryFacts()
	if len(facts) != 1 {
		t.Fatalf("Expected 1 directive, got %d", len(facts))
	}
	if facts[0] != "" {
		t.Errorf("Expected empty payload, got %q", facts[0])
	}
	if reply.CleanText != "" {
		t.Errorf("Expected empty clean text, got %q", reply.CleanText)
	}
}

func TestParse_IdempotentOnCleanText(t *testing.T) {
	inputs := []string{
		"Feito. [[MEMORY_WRITE: gosta de café]] [[SESSION_RESET]]",
		"Confirma? [[REQUEST_PERMISSION: limpar tudo]] [[LOGOUT]]",
		"texto sem marcadores",
	}
	for _, raw := range inputs {
		first := Parse(raw)
		second := Parse(first.CleanText)
		if len(second.Directives) != 0 {
			t.Errorf("Parse(%q) not idempotent: second pass found %d directives",
				raw, len(second.Directives))
		}
		if second.CleanText != first.CleanText {
			t.Errorf("Clean text changed on reparse: %q -> %q", first.CleanText, second.CleanText)
		}
	}
}

func TestParse_SessionResetOnlyOnce(t *testing.T) {
	reply := Parse("[[SESSION_RESET]] e [[SESSION_RESET]]")

	count := 0
	for _, d := range reply.Directives {
		if d.Kind == DirectiveSessionReset {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected exactly 1 SessionReset directive, got %d", count)
	}
}

func TestParse_MarkerCountMatchesDirectives(t *testing.T) {
	for n := 0; n < 5; n++ {
		raw := strings.Repeat("[[MEMORY_WRITE: fato]] ", n)
		reply := Parse(raw)
		if got := len(reply.MemoryFacts()); got != n {
			t.Errorf("N=%d: expected %d directives, got %d", n, n, got)
		}
		if strings.Contains(reply.CleanText, tagMemoryWrite) {
			t.Errorf("N=%d: marker substring left in clean text %q", n, reply.CleanText)
		}
	}
}
