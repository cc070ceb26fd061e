package talim

import (
	"context"
	"net/http"
	"testing"

	"github.com/uzbek-talim/talim/storage"
)

func TestRememberedPhoneRoundTrip(t *testing.T) {
	client := newTestClient(t, http.NewServeMux(), storage.NewMemory(), nil)
	ctx := context.Background()

	if phone, err := client.RememberedPhone(ctx); err != nil || phone != "" {
		t.Fatalf("fresh client: phone=%q err=%v", phone, err)
	}

	if err := client.RememberPhone(ctx, "+998901234567"); err != nil {
		t.Fatalf("RememberPhone failed: %v", err)
	}
	phone, err := client.RememberedPhone(ctx)
	if err != nil || phone != "+998901234567" {
		t.Fatalf("phone=%q err=%v", phone, err)
	}

	if err := client.ForgetPhone(ctx); err != nil {
		t.Fatalf("ForgetPhone failed: %v", err)
	}
	if phone, _ := client.RememberedPhone(ctx); phone != "" {
		t.Fatalf("phone should be forgotten, got %q", phone)
	}
}

func TestRememberedPhoneSurvivesLogout(t *testing.T) {
	client := newTestClient(t, http.NewServeMux(), storage.NewMemory(), nil)
	ctx := context.Background()

	if err := client.RememberPhone(ctx, "+998901234567"); err != nil {
		t.Fatalf("RememberPhone failed: %v", err)
	}
	client.Logout(ctx)

	phone, err := client.RememberedPhone(ctx)
	if err != nil || phone != "+998901234567" {
		t.Fatalf("preference must survive logout: phone=%q err=%v", phone, err)
	}
}

func TestRegistrationDraftRoundTrip(t *testing.T) {
	client := newTestClient(t, http.NewServeMux(), storage.NewMemory(), nil)
	ctx := context.Background()

	draft := RegistrationDraft{Phone: "+998901234567", FirstName: "Aziza", Role: "student"}
	if err := client.SaveRegistrationDraft(ctx, draft); err != nil {
		t.Fatalf("SaveRegistrationDraft failed: %v", err)
	}

	loaded, err := client.LoadRegistrationDraft(ctx)
	if err != nil {
		t.Fatalf("LoadRegistrationDraft failed: %v", err)
	}
	if loaded != draft {
		t.Fatalf("draft mangled: %+v", loaded)
	}

	if err := client.ClearRegistrationDraft(ctx); err != nil {
		t.Fatalf("ClearRegistrationDraft failed: %v", err)
	}
	if loaded, _ := client.LoadRegistrationDraft(ctx); loaded != (RegistrationDraft{}) {
		t.Fatalf("draft should be cleared, got %+v", loaded)
	}
}

func TestRegistrationDraftCorruptReadsEmpty(t *testing.T) {
	backend := storage.NewMemory()
	ctx := context.Background()
	if err := backend.Set(ctx, registrationDraftKey, []byte("{nope")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	client := newTestClient(t, http.NewServeMux(), backend, nil)
	loaded, err := client.LoadRegistrationDraft(ctx)
	if err != nil || loaded != (RegistrationDraft{}) {
		t.Fatalf("corrupt draft must read empty: %+v err=%v", loaded, err)
	}
}
