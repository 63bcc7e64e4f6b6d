package order

import "testing"

func TestLookup_AliasPriority(t *testing.T) {
	t.Parallel()

	// When several aliases are present with conflicting values, the
	// earlier alias in the declared order wins.
	in := RawInput{"phoneNumber": "222", "phone": "111", "tel": "333"}
	got, ok := in.lookup(phoneAliases)
	if !ok || got != "111" {
		t.Fatalf("lookup = %q, %v; want %q", got, ok, "111")
	}

	// A blank higher-priority alias is skipped, not treated as a value.
	in = RawInput{"phone": "  ", "phoneNumber": "222"}
	got, ok = in.lookup(phoneAliases)
	if !ok || got != "222" {
		t.Fatalf("lookup with blank first alias = %q, %v; want %q", got, ok, "222")
	}
}

func TestLookup_Coercion(t *testing.T) {
	t.Parallel()

	in := RawInput{"total": 99.5}
	if got, ok := in.lookup(totalAliases); !ok || got != "99.5" {
		t.Errorf("float coercion = %q, %v", got, ok)
	}

	in = RawInput{"total": true}
	if got, ok := in.lookup(totalAliases); !ok || got != "true" {
		t.Errorf("bool coercion = %q, %v", got, ok)
	}

	// Structured values are not primitives and count as absent.
	in = RawInput{"total": map[string]any{"x": 1}}
	if _, ok := in.lookup(totalAliases); ok {
		t.Error("map value resolved, want absent")
	}
	in = RawInput{"total": nil}
	if _, ok := in.lookup(totalAliases); ok {
		t.Error("nil value resolved, want absent")
	}
}

func TestLookup_Trimming(t *testing.T) {
	t.Parallel()

	in := RawInput{"comment": "  hello  "}
	if got, _ := in.lookup(commentAliases); got != "hello" {
		t.Errorf("lookup = %q, want trimmed %q", got, "hello")
	}
}

func TestLookupOr_Default(t *testing.T) {
	t.Parallel()

	in := RawInput{}
	if got := in.lookupOr(currencyAliases, "TJS"); got != "TJS" {
		t.Errorf("lookupOr = %q, want TJS", got)
	}
}
