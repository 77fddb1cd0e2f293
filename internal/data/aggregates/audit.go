package aggregates

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/clubops-backend/internal/data/repos"
	types "github.com/yungbote/clubops-backend/internal/domain"
	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

const auditPageSize = 500

type AuditorDeps struct {
	Log *logger.Logger

	Accounts     repos.AccountRepo
	Transactions repos.TransactionRepo
	Codes        repos.RedemptionCodeRepo
	Subjects     repos.AllocationSubjectRepo
	Memberships  repos.AllocationMembershipRepo
	Markers      repos.RewardMarkerRepo
}

// Auditor replays the append-only records and compares them with the stored
// aggregate state. It reads outside any write transaction; run it against a
// quiesced store or expect in-flight writes to show up as drift.
type Auditor struct {
	deps AuditorDeps
	log  *logger.Logger
}

type Drift struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Field    string `json:"field"`
	Stored   string `json:"stored"`
	Replayed string `json:"replayed"`
}

type AuditReport struct {
	AccountsChecked int     `json:"accounts_checked"`
	CodesChecked    int     `json:"codes_checked"`
	SubjectsChecked int     `json:"subjects_checked"`
	MarkersChecked  int     `json:"markers_checked"`
	Drift           []Drift `json:"drift"`
}

func (r AuditReport) Clean() bool { return len(r.Drift) == 0 }

func NewAuditor(deps AuditorDeps) *Auditor {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	return &Auditor{deps: deps, log: deps.Log.With("aggregate", "Auditor")}
}

func (a *Auditor) Verify(ctx context.Context) (AuditReport, error) {
	var rep AuditReport
	dbc := dbctx.Context{Ctx: ctx}
	if err := a.verifyAccounts(dbc, &rep); err != nil {
		return rep, err
	}
	if err := a.verifyCodes(dbc, &rep); err != nil {
		return rep, err
	}
	if err := a.verifySubjects(dbc, &rep); err != nil {
		return rep, err
	}
	if err := a.verifyMarkers(dbc, &rep); err != nil {
		return rep, err
	}
	if !rep.Clean() {
		a.log.Warn("audit found drift", "drift", len(rep.Drift))
	}
	return rep, nil
}

func (a *Auditor) verifyAccounts(dbc dbctx.Context, rep *AuditReport) error {
	if a.deps.Accounts == nil || a.deps.Transactions == nil {
		return nil
	}
	after := uuid.Nil
	for {
		page, err := a.deps.Accounts.ListAll(dbc, after, auditPageSize)
		if err != nil {
			return err
		}
		for _, acct := range page {
			rep.AccountsChecked++
			earned, spent, err := a.deps.Transactions.SumsByAccount(dbc, acct.ID)
			if err != nil {
				return err
			}
			id := acct.ID.String()
			if replayed := earned.Sub(spent); !replayed.Equal(acct.Balance.Decimal) {
				rep.Drift = append(rep.Drift, Drift{Kind: "account", ID: id, Field: "balance", Stored: acct.Balance.String(), Replayed: replayed.String()})
			}
			if !earned.Equal(acct.TotalEarned.Decimal) {
				rep.Drift = append(rep.Drift, Drift{Kind: "account", ID: id, Field: "total_earned", Stored: acct.TotalEarned.String(), Replayed: earned.String()})
			}
			if acct.Balance.IsNegative() {
				rep.Drift = append(rep.Drift, Drift{Kind: "account", ID: id, Field: "balance", Stored: acct.Balance.String(), Replayed: ">= 0"})
			}
		}
		if len(page) < auditPageSize {
			return nil
		}
		after = page[len(page)-1].ID
	}
}

// verifyCodes checks every used code carries its redeemer and exactly one
// grant transaction when it has a grant amount.
func (a *Auditor) verifyCodes(dbc dbctx.Context, rep *AuditReport) error {
	if a.deps.Codes == nil {
		return nil
	}
	after := ""
	for {
		page, err := a.deps.Codes.ListRedeemed(dbc, after, auditPageSize)
		if err != nil {
			return err
		}
		for _, c := range page {
			rep.CodesChecked++
			if c.RedeemedBy == nil || c.RedeemedAt == nil {
				rep.Drift = append(rep.Drift, Drift{Kind: "code", ID: c.Code, Field: "redeemed_by", Stored: "unset", Replayed: "set"})
			}
			if a.deps.Transactions == nil || !c.GrantAmount.IsPositive() {
				continue
			}
			n, err := a.deps.Transactions.CountByIdempotencyKey(dbc, RedeemIdempotencyKey(c.Code))
			if err != nil {
				return err
			}
			if n != 1 {
				rep.Drift = append(rep.Drift, Drift{Kind: "code", ID: c.Code, Field: "grants", Stored: fmt.Sprint(n), Replayed: "1"})
			}
		}
		if len(page) < auditPageSize {
			return nil
		}
		after = page[len(page)-1].Code
	}
}

func (a *Auditor) verifySubjects(dbc dbctx.Context, rep *AuditReport) error {
	if a.deps.Subjects == nil || a.deps.Memberships == nil {
		return nil
	}
	after := uuid.Nil
	for {
		page, err := a.deps.Subjects.ListAll(dbc, after, auditPageSize)
		if err != nil {
			return err
		}
		for _, s := range page {
			rep.SubjectsChecked++
			drift, err := a.subjectDrift(dbc, s)
			if err != nil {
				return err
			}
			rep.Drift = append(rep.Drift, drift...)
		}
		if len(page) < auditPageSize {
			return nil
		}
		after = page[len(page)-1].ID
	}
}

func (a *Auditor) subjectDrift(dbc dbctx.Context, s *types.AllocationSubject) ([]Drift, error) {
	var out []Drift
	id := s.ID.String()
	n, err := a.deps.Memberships.CountBySubject(dbc, s.ID)
	if err != nil {
		return nil, err
	}
	if int64(s.Count) != n {
		out = append(out, Drift{Kind: "subject", ID: id, Field: "count", Stored: fmt.Sprint(s.Count), Replayed: fmt.Sprint(n)})
	}
	if s.Count > s.Capacity {
		out = append(out, Drift{Kind: "subject", ID: id, Field: "capacity", Stored: fmt.Sprint(s.Count), Replayed: fmt.Sprintf("<= %d", s.Capacity)})
	}
	return out, nil
}

// verifyMarkers checks every reward marker points at the EARN transaction
// that credited its recipient for its scope.
func (a *Auditor) verifyMarkers(dbc dbctx.Context, rep *AuditReport) error {
	if a.deps.Markers == nil || a.deps.Transactions == nil {
		return nil
	}
	after := uuid.Nil
	for {
		page, err := a.deps.Markers.ListAll(dbc, after, auditPageSize)
		if err != nil {
			return err
		}
		for _, m := range page {
			rep.MarkersChecked++
			drift, err := a.markerDrift(dbc, m)
			if err != nil {
				return err
			}
			rep.Drift = append(rep.Drift, drift...)
		}
		if len(page) < auditPageSize {
			return nil
		}
		after = page[len(page)-1].ID
	}
}

func (a *Auditor) markerDrift(dbc dbctx.Context, m *types.RewardMarker) ([]Drift, error) {
	id := m.ID.String()
	if m.TransactionID == nil {
		return []Drift{{Kind: "marker", ID: id, Field: "transaction_id", Stored: "unset", Replayed: "set"}}, nil
	}
	tx, err := a.deps.Transactions.GetByID(dbc, *m.TransactionID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return []Drift{{Kind: "marker", ID: id, Field: "transaction_id", Stored: m.TransactionID.String(), Replayed: "missing"}}, nil
	}
	var out []Drift
	want := domainagg.RewardIdempotencyKey(m.Scope, m.RecipientID)
	if tx.IdempotencyKey == nil || *tx.IdempotencyKey != want {
		got := ""
		if tx.IdempotencyKey != nil {
			got = *tx.IdempotencyKey
		}
		out = append(out, Drift{Kind: "marker", ID: id, Field: "idempotency_key", Stored: got, Replayed: want})
	}
	if tx.Type != types.TransactionTypeEarn {
		out = append(out, Drift{Kind: "marker", ID: id, Field: "type", Stored: tx.Type, Replayed: types.TransactionTypeEarn})
	}
	return out, nil
}
