package auth

import (
	"strings"
	"testing"
	"time"
)

func TestIssueParseRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", "rollcall", 7*24*time.Hour)
	signed, exp, err := tokens.Issue("G-100")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if d := time.Until(exp); d < 7*24*time.Hour-time.Minute || d > 7*24*time.Hour {
		t.Fatalf("expected 7 day expiry, got %s", d)
	}
	claims, err := tokens.Parse(signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.IDNum != "G-100" || claims.Subject != "G-100" || claims.Issuer != "rollcall" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejects(t *testing.T) {
	tokens := NewTokens("secret", "rollcall", time.Hour)
	tokenA, _, _ := tokens.Issue("A")
	tokenB, _, _ := tokens.Issue("B")

	partsA := strings.Split(tokenA, ".")
	partsB := strings.Split(tokenB, ".")
	// B's claims under A's signature.
	spliced := partsA[0] + "." + partsB[1] + "." + partsA[2]

	expired := NewTokens("secret", "rollcall", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, _ := expired.Issue("A")

	otherSecret, _, _ := NewTokens("other", "rollcall", time.Hour).Issue("A")
	otherIssuer, _, _ := NewTokens("secret", "someone-else", time.Hour).Issue("A")

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "spliced claims", token: spliced},
		{name: "expired", token: expiredToken},
		{name: "wrong secret", token: otherSecret},
		{name: "wrong issuer", token: otherIssuer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tokens.Parse(tt.token); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestTokenNeverAuthenticatesAnotherGovernor(t *testing.T) {
	tokens := NewTokens("secret", "rollcall", time.Hour)
	tokenA, _, _ := tokens.Issue("A")
	claims, err := tokens.Parse(tokenA)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.IDNum != "A" {
		t.Fatalf("token for A resolved to %q", claims.IDNum)
	}
}
