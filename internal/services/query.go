package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clubops-backend/internal/data/repos"
	types "github.com/yungbote/clubops-backend/internal/domain"
	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// QueryService serves unlocked reads. Results may trail concurrent writes.
type QueryService interface {
	GetAccount(dbc dbctx.Context, id uuid.UUID) (*types.Account, error)
	GetAccountByOwner(dbc dbctx.Context, ownerID uuid.UUID) (*types.Account, error)
	ListTransactions(dbc dbctx.Context, accountID uuid.UUID, before *time.Time, limit int) ([]*types.Transaction, error)

	GetCode(dbc dbctx.Context, code string) (*types.RedemptionCode, error)
	ListCodesByResource(dbc dbctx.Context, resourceID uuid.UUID, limit int) ([]*types.RedemptionCode, error)

	GetSubject(dbc dbctx.Context, id uuid.UUID) (*types.AllocationSubject, error)
	ListMembers(dbc dbctx.Context, subjectID uuid.UUID) ([]*types.AllocationMembership, error)
	ListApplications(dbc dbctx.Context, subjectID uuid.UUID, statuses []string, limit int) ([]*types.AllocationApplication, error)

	ListRewardMarkers(dbc dbctx.Context, scope string) ([]*types.RewardMarker, error)
}

type QueryRepos struct {
	Accounts     repos.AccountRepo
	Transactions repos.TransactionRepo
	Codes        repos.RedemptionCodeRepo
	Subjects     repos.AllocationSubjectRepo
	Memberships  repos.AllocationMembershipRepo
	Applications repos.AllocationApplicationRepo
	Markers      repos.RewardMarkerRepo
}

type queryService struct {
	log   *logger.Logger
	repos QueryRepos
}

func NewQueryService(log *logger.Logger, r QueryRepos) QueryService {
	return &queryService{log: log.With("service", "QueryService"), repos: r}
}

func (s *queryService) GetAccount(dbc dbctx.Context, id uuid.UUID) (*types.Account, error) {
	const op = "Query.GetAccount"
	row, err := s.repos.Accounts.GetByID(dbc, id)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if row == nil {
		return nil, notFound(op, "account", id.String())
	}
	return row, nil
}

func (s *queryService) GetAccountByOwner(dbc dbctx.Context, ownerID uuid.UUID) (*types.Account, error) {
	const op = "Query.GetAccountByOwner"
	row, err := s.repos.Accounts.GetByOwnerID(dbc, ownerID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if row == nil {
		return nil, notFound(op, "account for owner", ownerID.String())
	}
	return row, nil
}

func (s *queryService) ListTransactions(dbc dbctx.Context, accountID uuid.UUID, before *time.Time, limit int) ([]*types.Transaction, error) {
	const op = "Query.ListTransactions"
	if _, err := s.GetAccount(dbc, accountID); err != nil {
		return nil, err
	}
	rows, err := s.repos.Transactions.ListByAccount(dbc, accountID, before, clampLimit(limit))
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return rows, nil
}

func (s *queryService) GetCode(dbc dbctx.Context, code string) (*types.RedemptionCode, error) {
	const op = "Query.GetCode"
	code = strings.ToUpper(strings.TrimSpace(code))
	row, err := s.repos.Codes.GetByCode(dbc, code)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if row == nil {
		return nil, notFound(op, "code", code)
	}
	return row, nil
}

func (s *queryService) ListCodesByResource(dbc dbctx.Context, resourceID uuid.UUID, limit int) ([]*types.RedemptionCode, error) {
	rows, err := s.repos.Codes.ListByResource(dbc, resourceID, clampLimit(limit))
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, "Query.ListCodesByResource", err)
	}
	return rows, nil
}

func (s *queryService) GetSubject(dbc dbctx.Context, id uuid.UUID) (*types.AllocationSubject, error) {
	const op = "Query.GetSubject"
	row, err := s.repos.Subjects.GetByID(dbc, id)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if row == nil {
		return nil, notFound(op, "subject", id.String())
	}
	return row, nil
}

func (s *queryService) ListMembers(dbc dbctx.Context, subjectID uuid.UUID) ([]*types.AllocationMembership, error) {
	if _, err := s.GetSubject(dbc, subjectID); err != nil {
		return nil, err
	}
	rows, err := s.repos.Memberships.ListBySubject(dbc, subjectID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, "Query.ListMembers", err)
	}
	return rows, nil
}

func (s *queryService) ListApplications(dbc dbctx.Context, subjectID uuid.UUID, statuses []string, limit int) ([]*types.AllocationApplication, error) {
	const op = "Query.ListApplications"
	normalized := make([]string, 0, len(statuses))
	for _, st := range statuses {
		st = strings.ToUpper(strings.TrimSpace(st))
		switch st {
		case types.ApplicationStatusPending, types.ApplicationStatusApproved, types.ApplicationStatusRejected:
			normalized = append(normalized, st)
		default:
			return nil, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown status %q", st), nil)
		}
	}
	if _, err := s.GetSubject(dbc, subjectID); err != nil {
		return nil, err
	}
	rows, err := s.repos.Applications.ListBySubject(dbc, subjectID, normalized, clampLimit(limit))
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return rows, nil
}

func (s *queryService) ListRewardMarkers(dbc dbctx.Context, scope string) ([]*types.RewardMarker, error) {
	const op = "Query.ListRewardMarkers"
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing scope", nil)
	}
	rows, err := s.repos.Markers.ListByScope(dbc, scope)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return rows, nil
}

func notFound(op, what, id string) error {
	return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("%s not found: %s", what, id), nil)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
