package auth

import (
	"testing"
	"time"
)

func TestTokenPairRoundTrip(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)

	access, refresh, exp, err := tm.GeneratePair("ops", "admin")
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}
	if exp.Before(time.Now()) {
		t.Error("access expiry already passed")
	}

	claims, isRefresh, err := tm.ParseAny(access)
	if err != nil {
		t.Fatalf("ParseAny(access): %v", err)
	}
	if isRefresh {
		t.Error("access token reported as refresh")
	}
	if claims.Username != "ops" || claims.Role != "admin" {
		t.Errorf("claims = %+v, want ops/admin", claims)
	}

	claims, isRefresh, err = tm.ParseAny(refresh)
	if err != nil {
		t.Fatalf("ParseAny(refresh): %v", err)
	}
	if !isRefresh {
		t.Error("refresh token not reported as refresh")
	}
	if claims.Username != "ops" {
		t.Errorf("refresh username = %q, want ops", claims.Username)
	}
}

func TestParseAnyRejectsForeignToken(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	other := NewTokenManager("other-access", "other-refresh", time.Minute, time.Hour)

	access, _, _, err := other.GeneratePair("ops", "admin")
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}
	if _, _, err := tm.ParseAny(access); err == nil {
		t.Fatal("token signed with a different secret must not validate")
	}
	if _, _, err := tm.ParseAny("not-a-token"); err == nil {
		t.Fatal("garbage must not validate")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword("s3cret", hash); err != nil {
		t.Errorf("VerifyPassword with correct password: %v", err)
	}
	if err := VerifyPassword("wrong", hash); err == nil {
		t.Error("VerifyPassword accepted a wrong password")
	}
}
