package loyalty

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQRTokenRoundTrip(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)
	user := createTestUser(t, db, "client")

	card, err := svc.EnsureCard(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("EnsureCard: %v", err)
	}

	token, err := svc.IssueQRToken(card, nil)
	if err != nil {
		t.Fatalf("IssueQRToken: %v", err)
	}

	parsed, err := svc.ValidateQRToken(token)
	if err != nil {
		t.Fatalf("ValidateQRToken: %v", err)
	}
	if parsed.CardNumber != card.CardNumber {
		t.Fatalf("card number mismatch: %s vs %s", parsed.CardNumber, card.CardNumber)
	}
	if parsed.UserID != user.ID {
		t.Fatalf("user id mismatch: %s vs %s", parsed.UserID, user.ID)
	}
	if parsed.StoreID != nil {
		t.Fatal("unexpected store scope")
	}
}

func TestQRTokenStoreScope(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)
	user := createTestUser(t, db, "client")
	owner := createTestUser(t, db, "store")
	store := createTestStore(t, db, owner.ID, true)

	card, err := svc.EnsureCard(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("EnsureCard: %v", err)
	}

	token, err := svc.IssueQRToken(card, &store.ID)
	if err != nil {
		t.Fatalf("IssueQRToken: %v", err)
	}

	parsed, err := svc.ValidateQRToken(token)
	if err != nil {
		t.Fatalf("ValidateQRToken: %v", err)
	}
	if parsed.StoreID == nil || *parsed.StoreID != store.ID {
		t.Fatal("store scope lost in round trip")
	}
}

func TestQRTokenExpiry(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)
	user := createTestUser(t, db, "client")

	card, err := svc.EnsureCard(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("EnsureCard: %v", err)
	}

	issuedAt := time.Now().Add(-25 * time.Hour)
	svc.now = func() time.Time { return issuedAt }

	token, err := svc.IssueQRToken(card, nil)
	if err != nil {
		t.Fatalf("IssueQRToken: %v", err)
	}

	svc.now = time.Now
	if _, err := svc.ValidateQRToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestQRTokenJustInsideFreshnessWindow(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)
	user := createTestUser(t, db, "client")

	card, err := svc.EnsureCard(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("EnsureCard: %v", err)
	}

	issuedAt := time.Now().Add(-23 * time.Hour)
	svc.now = func() time.Time { return issuedAt }

	token, err := svc.IssueQRToken(card, nil)
	if err != nil {
		t.Fatalf("IssueQRToken: %v", err)
	}

	svc.now = time.Now
	if _, err := svc.ValidateQRToken(token); err != nil {
		t.Fatalf("token inside freshness window rejected: %v", err)
	}
}

func TestQRTokenMalformed(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)

	for _, token := range []string{"", "not-a-token", "aaa.bbb.ccc"} {
		if _, err := svc.ValidateQRToken(token); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("token %q: expected ErrTokenMalformed, got %v", token, err)
		}
	}
}

func TestQRTokenForgedSignatureRejected(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)
	forger := NewService(db, "attacker-secret", 24*time.Hour, nil)
	user := createTestUser(t, db, "client")

	card, err := svc.EnsureCard(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("EnsureCard: %v", err)
	}

	forged, err := forger.IssueQRToken(card, nil)
	if err != nil {
		t.Fatalf("IssueQRToken: %v", err)
	}

	if _, err := svc.ValidateQRToken(forged); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed for forged signature, got %v", err)
	}
}
