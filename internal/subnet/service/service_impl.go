package service

import (
	"context"
	"net"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/passage/internal/geolocation"
	"github.com/smallbiznis/passage/internal/subnet/domain"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Anonymization masks: host bits are zeroed before hashing so the
// ledger never fingerprints an individual address.
var (
	v4Mask = net.CIDRMask(24, 32)
	v6Mask = net.CIDRMask(48, 128)
)

// Anonymize zeroes the host-identifying bits of an IP and returns the
// subnet in canonical text form. Unparseable input is returned as-is;
// hashing still keeps it out of the clear.
func Anonymize(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ip
	}
	if v4 := parsed.To4(); v4 != nil {
		return v4.Mask(v4Mask).String()
	}
	return parsed.Mask(v6Mask).String()
}

type Service struct {
	log   *zap.Logger
	repo  domain.Repository
	geo   geolocation.Resolver
	genID *snowflake.Node
}

func New(log *zap.Logger, repo domain.Repository, geo geolocation.Resolver, genID *snowflake.Node) *Service {
	return &Service{
		log:   log.Named("subnet.service"),
		repo:  repo,
		geo:   geo,
		genID: genID,
	}
}

// IsApproved tests subnet membership for a user. Each stored entry is a
// salted hash, so membership is a compare loop over the user's ledger,
// short-circuiting on the first match.
func (s *Service) IsApproved(ctx context.Context, userID snowflake.ID, ip string) (bool, error) {
	subnets, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	anonymized := []byte(Anonymize(ip))
	for _, entry := range subnets {
		if bcrypt.CompareHashAndPassword([]byte(entry.Subnet), anonymized) == nil {
			return true, nil
		}
	}
	return false, nil
}

// ApproveNewSubnet unconditionally records the IP's subnet for the
// user. Duplicates are acceptable here; callers wanting dedupe use
// UpsertNewSubnet.
func (s *Service) ApproveNewSubnet(ctx context.Context, userID snowflake.ID, ip string) (*domain.ApprovedSubnet, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(Anonymize(ip)), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	entry := &domain.ApprovedSubnet{
		ID:     s.genID.Generate(),
		UserID: userID,
		Subnet: string(hashed),
	}
	if loc, err := s.geo.Resolve(ctx, ip); err == nil {
		entry.City = loc.City
		entry.Region = loc.Region
		entry.Timezone = loc.Timezone
		entry.CountryCode = loc.CountryCode
	} else {
		s.log.Debug("geolocation lookup failed", zap.String("ip", ip), zap.Error(err))
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// UpsertNewSubnet approves the subnet only when no existing entry
// matches, keeping the ledger from growing on every visit from an
// already-approved network.
func (s *Service) UpsertNewSubnet(ctx context.Context, userID snowflake.ID, ip string) error {
	approved, err := s.IsApproved(ctx, userID, ip)
	if err != nil {
		return err
	}
	if approved {
		return nil
	}
	_, err = s.ApproveNewSubnet(ctx, userID, ip)
	return err
}

func (s *Service) ListForUser(ctx context.Context, userID snowflake.ID) ([]domain.ApprovedSubnet, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Delete removes one approval. Removing an id that does not exist (or
// belongs to someone else) succeeds, so the endpoint leaks nothing.
func (s *Service) Delete(ctx context.Context, userID, id snowflake.ID) error {
	return s.repo.DeleteForUser(ctx, userID, id)
}
