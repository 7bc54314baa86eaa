package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	userdomain "github.com/smallbiznis/passage/internal/user/domain"
	"github.com/smallbiznis/passage/internal/user/repository"
	"github.com/smallbiznis/passage/pkg/db"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, userdomain.Repository, *snowflake.Node) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&userdomain.User{}, &userdomain.Email{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo, _ := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	return New(zap.NewNop(), repo), repo, node
}

func seedUser(t *testing.T, repo userdomain.Repository, node *snowflake.Node, user userdomain.User) *userdomain.User {
	t.Helper()

	user.ID = node.Generate()
	user.UUID = uuid.NewString()
	if err := PrepareUserWrite(&user, ""); err != nil {
		t.Fatalf("failed to prepare user: %v", err)
	}
	if err := repo.Create(context.Background(), &user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return &user
}

func TestClassifyAccount(t *testing.T) {
	tests := []struct {
		account string
		want    AccountKind
	}{
		{"alice@example.com", AccountEmail},
		{"+8613800138000", AccountPhone},
		{"13800138000", AccountPhone},
		{"alice", AccountUsername},
		{"alice42", AccountUsername},
		{"not an email", AccountUsername},
	}
	for _, tt := range tests {
		if got := ClassifyAccount(tt.account); got != tt.want {
			t.Fatalf("ClassifyAccount(%q) = %v, want %v", tt.account, got, tt.want)
		}
	}
}

func TestFindByAccountEmailPrecedence(t *testing.T) {
	svc, repo, node := newTestService(t)

	username := "someone-else"
	collider := "alice@example.com"
	seedUser(t, repo, node, userdomain.User{Email: "alice@example.com", Username: &username})
	other := seedUser(t, repo, node, userdomain.User{Email: "bob@example.com", Username: &collider})

	// The string parses as an email, so it must never resolve through
	// the username column even though a user carries it there.
	found, err := svc.FindByAccount(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("failed to find by account: %v", err)
	}
	if found.ID == other.ID {
		t.Fatal("resolved through username instead of email")
	}
	if found.Email != "alice@example.com" {
		t.Fatalf("expected alice@example.com, got %s", found.Email)
	}
}

func TestFindByAccountPhone(t *testing.T) {
	svc, repo, node := newTestService(t)

	phone := "+8613800138000"
	seeded := seedUser(t, repo, node, userdomain.User{Email: "carol@example.com", Phone: &phone})

	found, err := svc.FindByAccount(context.Background(), "+8613800138000")
	if err != nil {
		t.Fatalf("failed to find by account: %v", err)
	}
	if found.ID != seeded.ID {
		t.Fatalf("expected user %s, got %s", seeded.ID, found.ID)
	}
}

func TestPrepareUserWriteNormalizesEmailAndHashesPassword(t *testing.T) {
	user := userdomain.User{Email: "  Alice@Example.COM "}
	if err := PrepareUserWrite(&user, "letters42"); err != nil {
		t.Fatalf("failed to prepare user: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}
	if user.Password == nil || *user.Password == "letters42" {
		t.Fatal("password must be stored hashed")
	}
	if user.Name != "alice" {
		t.Fatalf("expected derived display name, got %q", user.Name)
	}
	if user.Status != userdomain.StatusActive {
		t.Fatalf("expected default status ACTIVE, got %q", user.Status)
	}
}

func TestPrepareUserWriteRejectsWeakPassword(t *testing.T) {
	user := userdomain.User{Email: "alice@example.com"}
	if err := PrepareUserWrite(&user, "short"); err != userdomain.ErrWeakPassword {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestPrepareUserWriteRequiresIdentifier(t *testing.T) {
	user := userdomain.User{}
	if err := PrepareUserWrite(&user, ""); err != userdomain.ErrMissingIdentifier {
		t.Fatalf("expected ErrMissingIdentifier, got %v", err)
	}
}

func TestVerifyPasswordDistinguishesNoPasswordSet(t *testing.T) {
	svc, repo, node := newTestService(t)

	passwordless := seedUser(t, repo, node, userdomain.User{Email: "nopass@example.com"})
	if err := svc.VerifyPassword(passwordless, "anything1"); err != userdomain.ErrNoPasswordSet {
		t.Fatalf("expected ErrNoPasswordSet, got %v", err)
	}

	withPassword := userdomain.User{Email: "withpass@example.com"}
	withPassword.ID = node.Generate()
	withPassword.UUID = uuid.NewString()
	if err := PrepareUserWrite(&withPassword, "letters42"); err != nil {
		t.Fatalf("failed to prepare user: %v", err)
	}
	if err := repo.Create(context.Background(), &withPassword); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if err := svc.VerifyPassword(&withPassword, "wrong-pass1"); err != userdomain.ErrWrongCredentials {
		t.Fatalf("expected ErrWrongCredentials, got %v", err)
	}
	if err := svc.VerifyPassword(&withPassword, "letters42"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestVerifyPasswordInactiveUser(t *testing.T) {
	svc, repo, node := newTestService(t)

	inactive := seedUser(t, repo, node, userdomain.User{Email: "gone@example.com", Status: userdomain.StatusInactive})
	if err := svc.VerifyPassword(inactive, "letters42"); err != userdomain.ErrInactiveUser {
		t.Fatalf("expected ErrInactiveUser, got %v", err)
	}
}

func TestFindByProfileRejectsAmbiguousMatch(t *testing.T) {
	svc, repo, node := newTestService(t)

	first, last := "Ada", "Lovelace"
	middle := ""
	dob := time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC)
	for _, email := range []string{"ada1@example.com", "ada2@example.com"} {
		seedUser(t, repo, node, userdomain.User{
			Email:       email,
			FirstName:   &first,
			MiddleName:  &middle,
			LastName:    &last,
			DateOfBirth: &dob,
		})
	}

	_, err := svc.FindByProfile(context.Background(), userdomain.ProfileMatch{
		FirstName:   first,
		MiddleName:  middle,
		LastName:    last,
		DateOfBirth: dob,
	})
	if err != userdomain.ErrAmbiguousProfileMatch {
		t.Fatalf("expected ErrAmbiguousProfileMatch, got %v", err)
	}
}

func TestFindByProfileWithoutMiddleName(t *testing.T) {
	svc, repo, node := newTestService(t)

	first, last := "Robin", "Smith"
	dob := time.Date(1990, 5, 27, 0, 0, 0, 0, time.UTC)
	// MiddleName stays NULL in the row; the empty quadruple field must
	// still match it.
	seeded := seedUser(t, repo, node, userdomain.User{
		Email:       "robin@example.com",
		FirstName:   &first,
		LastName:    &last,
		DateOfBirth: &dob,
	})

	found, err := svc.FindByProfile(context.Background(), userdomain.ProfileMatch{
		FirstName:   first,
		MiddleName:  "",
		LastName:    last,
		DateOfBirth: dob,
	})
	if err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if found.ID != seeded.ID {
		t.Fatalf("expected user %s, got %s", seeded.ID, found.ID)
	}
}
