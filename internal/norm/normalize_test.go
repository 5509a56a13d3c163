package norm

import "testing"

func TestCanonEquivalence(t *testing.T) {
	cases := []struct{ a, b string }{
		{"Jogador", "jogador"},
		{"População", "populacao"},
		{"meu_nome", "meu nome"},
		{"Açúcar", "acucar"},
		{"@global", "@global"},
		{"Número3", "numero3"},
	}
	for _, c := range cases {
		if Canon(c.a) != Canon(c.b) {
			t.Errorf("Canon(%q) = %q, Canon(%q) = %q, want equal", c.a, Canon(c.a), c.b, Canon(c.b))
		}
	}
}

func TestCanonIdempotent(t *testing.T) {
	for _, s := range []string{"Pássaro", "ALGUM_Nome", "@X", "café com leite"} {
		c1 := Canon(s)
		c2 := Canon(string(c1))
		if c1 != c2 {
			t.Errorf("Canon not idempotent for %q: %q != %q", s, c1, c2)
		}
	}
}

func TestCanonDistinguishes(t *testing.T) {
	if Canon("abc") == Canon("abd") {
		t.Error("distinct identifiers folded to the same canonical name")
	}
}

func TestEqual(t *testing.T) {
	if !Equal("Coração", "coracao") {
		t.Error("Equal should fold accents")
	}
	if Equal("a", "b") {
		t.Error("Equal should not conflate distinct identifiers")
	}
}
