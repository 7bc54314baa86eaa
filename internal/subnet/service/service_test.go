package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/passage/internal/geolocation"
	subnetdomain "github.com/smallbiznis/passage/internal/subnet/domain"
	"github.com/smallbiznis/passage/internal/subnet/repository"
	"github.com/smallbiznis/passage/pkg/db"
	"go.uber.org/zap"
)

type failingResolver struct{}

func (failingResolver) Resolve(ctx context.Context, ip string) (geolocation.Location, error) {
	return geolocation.Location{}, errors.New("provider down")
}

func newTestService(t *testing.T) (*Service, subnetdomain.Repository, *snowflake.Node) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&subnetdomain.ApprovedSubnet{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	return New(zap.NewNop(), repo, failingResolver{}, node), repo, node
}

func TestAnonymize(t *testing.T) {
	tests := []struct {
		ip   string
		want string
	}{
		{"203.0.113.7", "203.0.113.0"},
		{"203.0.113.255", "203.0.113.0"},
		{"10.1.2.3", "10.1.2.0"},
		{"2001:db8:abcd:12:34::1", "2001:db8:abcd::"},
		{"not-an-ip", "not-an-ip"},
	}
	for _, tt := range tests {
		if got := Anonymize(tt.ip); got != tt.want {
			t.Fatalf("Anonymize(%q) = %q, want %q", tt.ip, got, tt.want)
		}
	}
}

func TestSubnetIsNeverStoredInTheClear(t *testing.T) {
	svc, repo, node := newTestService(t)
	userID := node.Generate()

	entry, err := svc.ApproveNewSubnet(context.Background(), userID, "203.0.113.7")
	if err != nil {
		t.Fatalf("failed to approve subnet: %v", err)
	}
	if entry.Subnet == "203.0.113.0" || entry.Subnet == "203.0.113.7" {
		t.Fatal("subnet stored in the clear")
	}

	subnets, err := repo.ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(subnets) != 1 {
		t.Fatalf("expected 1 subnet, got %d", len(subnets))
	}
}

func TestIsApprovedMatchesWholeSubnet(t *testing.T) {
	svc, _, node := newTestService(t)
	userID := node.Generate()

	if _, err := svc.ApproveNewSubnet(context.Background(), userID, "203.0.113.7"); err != nil {
		t.Fatalf("failed to approve subnet: %v", err)
	}

	// A different host on the same /24 is the same subnet.
	approved, err := svc.IsApproved(context.Background(), userID, "203.0.113.99")
	if err != nil {
		t.Fatalf("failed to check: %v", err)
	}
	if !approved {
		t.Fatal("expected same subnet to be approved")
	}

	approved, err = svc.IsApproved(context.Background(), userID, "198.51.100.1")
	if err != nil {
		t.Fatalf("failed to check: %v", err)
	}
	if approved {
		t.Fatal("expected different subnet to be unapproved")
	}
}

func TestUpsertDeduplicatesApproveDoesNot(t *testing.T) {
	svc, repo, node := newTestService(t)

	upsertUser := node.Generate()
	for i := 0; i < 2; i++ {
		if err := svc.UpsertNewSubnet(context.Background(), upsertUser, "203.0.113.7"); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}
	}
	subnets, err := repo.ListByUser(context.Background(), upsertUser)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(subnets) != 1 {
		t.Fatalf("upsert twice: expected 1 row, got %d", len(subnets))
	}

	approveUser := node.Generate()
	for i := 0; i < 2; i++ {
		if _, err := svc.ApproveNewSubnet(context.Background(), approveUser, "203.0.113.7"); err != nil {
			t.Fatalf("failed to approve: %v", err)
		}
	}
	subnets, err = repo.ListByUser(context.Background(), approveUser)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(subnets) != 2 {
		t.Fatalf("approve twice: expected 2 rows, got %d", len(subnets))
	}
}

func TestDeleteIsScopedAndIdempotent(t *testing.T) {
	svc, repo, node := newTestService(t)

	owner := node.Generate()
	stranger := node.Generate()
	entry, err := svc.ApproveNewSubnet(context.Background(), owner, "203.0.113.7")
	if err != nil {
		t.Fatalf("failed to approve: %v", err)
	}

	if err := svc.Delete(context.Background(), stranger, entry.ID); err != nil {
		t.Fatalf("stranger delete must succeed silently: %v", err)
	}
	subnets, _ := repo.ListByUser(context.Background(), owner)
	if len(subnets) != 1 {
		t.Fatal("stranger delete must not remove the row")
	}

	if err := svc.Delete(context.Background(), owner, entry.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if err := svc.Delete(context.Background(), owner, entry.ID); err != nil {
		t.Fatalf("second delete must succeed: %v", err)
	}
}
