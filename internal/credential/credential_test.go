package credential

import "testing"

func TestHashVerifyRoundTrip(t *testing.T) {
	cases := []struct{ pin, caller string }{
		{"123", "+15550001111"},
		{"000", "+15550002222"},
		{"999", "unknown"},
	}
	for _, tc := range cases {
		digest := Hash(tc.pin, tc.caller)
		if !Verify(tc.pin, tc.caller, digest) {
			t.Fatalf("expected %q/%q to verify", tc.pin, tc.caller)
		}
	}
}

func TestVerifyRejectsDifferentInputs(t *testing.T) {
	digest := Hash("123", "+15550001111")

	if Verify("124", "+15550001111", digest) {
		t.Fatalf("expected different pin to fail")
	}
	if Verify("123", "+15550009999", digest) {
		t.Fatalf("expected different caller to fail")
	}
	if Verify("123", "+15550001111", "not-hex") {
		t.Fatalf("expected malformed digest to fail")
	}
}

func TestHashIsDeterministicAndCallerSalted(t *testing.T) {
	if Hash("123", "a") != Hash("123", "a") {
		t.Fatalf("expected deterministic digest")
	}
	if Hash("123", "a") == Hash("123", "b") {
		t.Fatalf("expected caller to salt the digest")
	}
}
