package workflow

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/bitfantasy/capex/internal/capex/entity"
)

func approverFor(role string) *entity.User {
	u := &entity.User{
		ID:           "user-" + role,
		Name:         "Approver " + role,
		Role:         role,
		Plant:        "Plant A",
		BusinessUnit: "Manufacturing",
		Status:       entity.UserStatusActive,
	}
	if RoleLevel(role) >= RoleLevel(entity.RoleCapexCommittee) {
		u.Plant = entity.ScopeAllPlants
		u.BusinessUnit = entity.ScopeAllBusinessUnits
	}
	return u
}

func newTestRequest(t *testing.T, amount int64) *entity.CapexRequest {
	t.Helper()
	reg := NewRegistry(0)
	requester := testRequester()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	req := &entity.CapexRequest{
		ID:              "8b4f2a1c-0000-0000-0000-000000000001",
		Code:            "CAPEX-2026-001",
		Title:           "New Production Line Equipment",
		Type:            entity.CapexTypeRevenueGrowth,
		Amount:          amount,
		Currency:        entity.CurrencyINR,
		Department:      requester.Department,
		Plant:           requester.Plant,
		BusinessUnit:    requester.BusinessUnit,
		RequesterID:     requester.ID,
		RequesterName:   requester.Name,
		Status:          entity.RequestStatusPending,
		CurrentApprover: entity.RoleDepartmentHead,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	req.Steps = reg.BuildChain(requester, amount, now)
	for i := range req.Steps {
		req.Steps[i].RequestID = req.ID
	}
	return req
}

func TestApproveFullChain(t *testing.T) {
	// ₹8,50,000 — five step chain without committee
	req := newTestRequest(t, 85_000_000)
	now := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)

	order := []string{
		entity.RoleDepartmentHead,
		entity.RolePlantHead,
		entity.RoleBusinessCEO,
		entity.RoleCFO,
	}
	for i, role := range order {
		if req.CurrentApprover != role {
			t.Fatalf("before step %d: currentApprover = %s, want %s", i, req.CurrentApprover, role)
		}
		ev, err := Decide(req, approverFor(role), DecisionApprove, "", now.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("approve at %s: %v", role, err)
		}
		if derived := DeriveStatus(req.Steps); derived != req.Status {
			t.Errorf("after %s: stored status %s != derived %s", role, req.Status, derived)
		}
		if i < len(order)-1 {
			if ev.Kind != EventAdvanced {
				t.Errorf("after %s: event = %s, want %s", role, ev.Kind, EventAdvanced)
			}
			if ev.NextRole != order[i+1] {
				t.Errorf("after %s: next role = %s, want %s", role, ev.NextRole, order[i+1])
			}
			if req.Status != entity.RequestStatusInProgress {
				t.Errorf("after %s: status = %s, want in_progress", role, req.Status)
			}
		}
	}

	if req.Status != entity.RequestStatusApproved {
		t.Fatalf("final status = %s, want approved", req.Status)
	}
	if req.CurrentApprover != "" {
		t.Errorf("currentApprover = %q, want empty", req.CurrentApprover)
	}
	if req.WBSCode != "WBS-CAPEX-2026-001" {
		t.Errorf("wbs code = %q, want WBS-CAPEX-2026-001", req.WBSCode)
	}
	if req.AUCCode != "AUC-CAPEX-2026-001" || req.PONumber != "PO-CAPEX-2026-001" {
		t.Errorf("auc/po = %q/%q, want AUC-/PO- derived from code", req.AUCCode, req.PONumber)
	}
}

func TestApproveDefaultsComment(t *testing.T) {
	req := newTestRequest(t, 85_000_000)

	ev, err := Decide(req, approverFor(entity.RoleDepartmentHead), DecisionApprove, "", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if ev.Step.Comments != "Approved" {
		t.Errorf("comments = %q, want default %q", ev.Step.Comments, "Approved")
	}

	ev, err = Decide(req, approverFor(entity.RolePlantHead), DecisionApprove, "Strategic investment", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if ev.Step.Comments != "Strategic investment" {
		t.Errorf("comments = %q, want caller comment preserved", ev.Step.Comments)
	}
}

func TestRejectShortCircuits(t *testing.T) {
	// ₹68,00,000 — six step chain including committee
	req := newTestRequest(t, 680_000_000)
	now := time.Now()

	for _, role := range []string{entity.RoleDepartmentHead} {
		if _, err := Decide(req, approverFor(role), DecisionApprove, "", now); err != nil {
			t.Fatalf("approve at %s: %v", role, err)
		}
	}

	ev, err := Decide(req, approverFor(entity.RolePlantHead), DecisionReject, "Budget constraints, defer to next quarter", now)
	if err != nil {
		t.Fatalf("reject at plant_head: %v", err)
	}
	if ev.Kind != EventRejected {
		t.Errorf("event = %s, want %s", ev.Kind, EventRejected)
	}
	if req.Status != entity.RequestStatusRejected {
		t.Errorf("status = %s, want rejected", req.Status)
	}
	if req.CurrentApprover != "" {
		t.Errorf("currentApprover = %q, want empty", req.CurrentApprover)
	}
	if derived := DeriveStatus(req.Steps); derived != entity.RequestStatusRejected {
		t.Errorf("derived status = %s, want rejected", derived)
	}

	// Steps after the rejected one stay pending forever.
	for _, s := range req.Steps {
		switch s.Level {
		case entity.RoleCapexCommittee, entity.RoleBusinessCEO, entity.RoleCFO:
			if s.Status != entity.StepStatusPending {
				t.Errorf("step %s status = %s, want pending", s.Level, s.Status)
			}
			if s.DecidedAt != nil || s.Comments != "" {
				t.Errorf("step %s was touched after rejection", s.Level)
			}
		}
	}
	if req.WBSCode != "" || req.AUCCode != "" || req.PONumber != "" {
		t.Error("post-approval codes must stay empty on rejection")
	}
}

func TestDecideOnTerminalRequest(t *testing.T) {
	req := newTestRequest(t, 85_000_000)
	now := time.Now()

	if _, err := Decide(req, approverFor(entity.RoleDepartmentHead), DecisionReject, "No budget", now); err != nil {
		t.Fatal(err)
	}

	snapshot := *req
	snapshotSteps := make([]entity.ApprovalStep, len(req.Steps))
	copy(snapshotSteps, req.Steps)

	for _, d := range []Decision{DecisionApprove, DecisionReject} {
		_, err := Decide(req, approverFor(entity.RolePlantHead), d, "late decision", now.Add(time.Hour))
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("decide(%s) on terminal request: err = %v, want ErrInvalidState", d, err)
		}
	}

	snapshot.Steps = nil
	after := *req
	after.Steps = nil
	if !reflect.DeepEqual(snapshot, after) {
		t.Error("terminal request fields changed after failed decide")
	}
	if !reflect.DeepEqual(snapshotSteps, req.Steps) {
		t.Error("terminal request steps changed after failed decide")
	}
}

func TestDecideOnCancelledRequest(t *testing.T) {
	req := newTestRequest(t, 85_000_000)
	req.Status = entity.RequestStatusCancelled
	req.CurrentApprover = ""

	_, err := Decide(req, approverFor(entity.RoleDepartmentHead), DecisionApprove, "", time.Now())
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestDecideAuthorization(t *testing.T) {
	now := time.Now()

	t.Run("wrong role", func(t *testing.T) {
		req := newTestRequest(t, 85_000_000)
		_, err := Decide(req, approverFor(entity.RolePlantHead), DecisionApprove, "", now)
		if !errors.Is(err, ErrNotAuthorized) {
			t.Fatalf("err = %v, want ErrNotAuthorized", err)
		}
		if req.Status != entity.RequestStatusPending {
			t.Errorf("status changed to %s on failed decide", req.Status)
		}
	})

	t.Run("wrong plant", func(t *testing.T) {
		req := newTestRequest(t, 85_000_000)
		actor := approverFor(entity.RoleDepartmentHead)
		actor.Plant = "Plant B"
		_, err := Decide(req, actor, DecisionApprove, "", now)
		if !errors.Is(err, ErrNotAuthorized) {
			t.Fatalf("err = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("all plants scope covers any plant", func(t *testing.T) {
		req := newTestRequest(t, 85_000_000)
		actor := approverFor(entity.RoleDepartmentHead)
		actor.Plant = entity.ScopeAllPlants
		if _, err := Decide(req, actor, DecisionApprove, "", now); err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
	})

	t.Run("inactive user", func(t *testing.T) {
		req := newTestRequest(t, 85_000_000)
		actor := approverFor(entity.RoleDepartmentHead)
		actor.Status = entity.UserStatusInactive
		_, err := Decide(req, actor, DecisionApprove, "", now)
		if !errors.Is(err, ErrNotAuthorized) {
			t.Fatalf("err = %v, want ErrNotAuthorized", err)
		}
	})
}

func TestDecideStampsActor(t *testing.T) {
	req := newTestRequest(t, 85_000_000)
	actor := approverFor(entity.RoleDepartmentHead)
	now := time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)

	ev, err := Decide(req, actor, DecisionApprove, "Looks good", now)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Step.AssignedUserID != actor.ID || ev.Step.AssignedUserName != actor.Name {
		t.Errorf("step actor = %s/%s, want %s/%s",
			ev.Step.AssignedUserID, ev.Step.AssignedUserName, actor.ID, actor.Name)
	}
	if ev.Step.DecidedAt == nil || !ev.Step.DecidedAt.Equal(now) {
		t.Errorf("decidedAt = %v, want %v", ev.Step.DecidedAt, now)
	}
	if !req.UpdatedAt.Equal(now) {
		t.Errorf("updatedAt = %v, want %v", req.UpdatedAt, now)
	}
}

func TestFrontierAndDeriveStatus(t *testing.T) {
	req := newTestRequest(t, 680_000_000)

	if got := DeriveStatus(req.Steps); got != entity.RequestStatusPending {
		t.Errorf("fresh chain derived status = %s, want pending", got)
	}
	f := Frontier(req.Steps)
	if f == nil || f.Level != entity.RoleDepartmentHead {
		t.Fatalf("frontier = %v, want department_head", f)
	}

	// Invariant: currentApprover tracks the frontier after every decision.
	roles := []string{
		entity.RoleDepartmentHead,
		entity.RolePlantHead,
		entity.RoleCapexCommittee,
		entity.RoleBusinessCEO,
		entity.RoleCFO,
	}
	for _, role := range roles {
		if _, err := Decide(req, approverFor(role), DecisionApprove, "", time.Now()); err != nil {
			t.Fatalf("approve at %s: %v", role, err)
		}
		f := Frontier(req.Steps)
		switch {
		case f == nil:
			if req.CurrentApprover != "" {
				t.Errorf("no frontier but currentApprover = %s", req.CurrentApprover)
			}
		case f.Level != req.CurrentApprover:
			t.Errorf("frontier %s != currentApprover %s", f.Level, req.CurrentApprover)
		}
		if derived := DeriveStatus(req.Steps); derived != req.Status {
			t.Errorf("after %s: stored %s != derived %s", role, req.Status, derived)
		}
	}
}
