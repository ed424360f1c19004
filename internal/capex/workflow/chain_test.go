package workflow

import (
	"testing"
	"time"

	"github.com/bitfantasy/capex/internal/capex/entity"
)

func testRequester() *entity.User {
	return &entity.User{
		ID:           "user-req-001",
		Name:         "John Doe",
		Role:         entity.RoleRequester,
		Department:   "Production",
		Plant:        "Plant A",
		BusinessUnit: "Manufacturing",
		Status:       entity.UserStatusActive,
	}
}

func chainLevels(steps []entity.ApprovalStep) []string {
	levels := make([]string, 0, len(steps))
	for _, s := range steps {
		levels = append(levels, s.Level)
	}
	return levels
}

func TestBuildChainBelowThreshold(t *testing.T) {
	reg := NewRegistry(0)
	now := time.Now()

	// ₹8,50,000 — well under the ₹25,00,000 committee threshold
	steps := reg.BuildChain(testRequester(), 85_000_000, now)

	want := []string{
		entity.RoleRequester,
		entity.RoleDepartmentHead,
		entity.RolePlantHead,
		entity.RoleBusinessCEO,
		entity.RoleCFO,
	}
	got := chainLevels(steps)
	if len(got) != len(want) {
		t.Fatalf("chain length = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBuildChainAtOrAboveThreshold(t *testing.T) {
	reg := NewRegistry(0)
	now := time.Now()

	for _, amount := range []int64{DefaultCommitteeThreshold, 680_000_000} {
		steps := reg.BuildChain(testRequester(), amount, now)
		want := []string{
			entity.RoleRequester,
			entity.RoleDepartmentHead,
			entity.RolePlantHead,
			entity.RoleCapexCommittee,
			entity.RoleBusinessCEO,
			entity.RoleCFO,
		}
		got := chainLevels(steps)
		if len(got) != 6 {
			t.Fatalf("amount %d: chain length = %d, want 6 (%v)", amount, len(got), got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("amount %d: step %d = %s, want %s", amount, i, got[i], want[i])
			}
		}
	}
}

func TestBuildChainBoundary(t *testing.T) {
	reg := NewRegistry(0)
	now := time.Now()

	below := reg.BuildChain(testRequester(), DefaultCommitteeThreshold-1, now)
	if len(below) != 5 {
		t.Errorf("one paisa below threshold: chain length = %d, want 5", len(below))
	}
	at := reg.BuildChain(testRequester(), DefaultCommitteeThreshold, now)
	if len(at) != 6 {
		t.Errorf("at threshold: chain length = %d, want 6", len(at))
	}
}

func TestBuildChainSeedStep(t *testing.T) {
	reg := NewRegistry(0)
	requester := testRequester()
	now := time.Now()

	steps := reg.BuildChain(requester, 100_000_000, now)

	seed := steps[0]
	if seed.Level != entity.RoleRequester {
		t.Fatalf("seed level = %s, want requester", seed.Level)
	}
	if seed.Status != entity.StepStatusApproved {
		t.Errorf("seed status = %s, want approved", seed.Status)
	}
	if seed.AssignedUserID != requester.ID || seed.AssignedUserName != requester.Name {
		t.Errorf("seed actor = %s/%s, want %s/%s",
			seed.AssignedUserID, seed.AssignedUserName, requester.ID, requester.Name)
	}
	if seed.DecidedAt == nil || !seed.DecidedAt.Equal(now) {
		t.Errorf("seed decidedAt = %v, want %v", seed.DecidedAt, now)
	}
	if seed.Comments != SubmitComment {
		t.Errorf("seed comments = %q, want %q", seed.Comments, SubmitComment)
	}

	for _, s := range steps[1:] {
		if s.Status != entity.StepStatusPending {
			t.Errorf("step %s status = %s, want pending", s.Level, s.Status)
		}
		if s.AssignedUserID != "" {
			t.Errorf("step %s pre-assigned to %s, want unassigned", s.Level, s.AssignedUserID)
		}
	}

	for i, s := range steps {
		if s.Sequence != i {
			t.Errorf("step %s sequence = %d, want %d", s.Level, s.Sequence, i)
		}
		if s.ID == "" {
			t.Errorf("step %s has empty id", s.Level)
		}
	}
}

func TestRegistryThresholdOverride(t *testing.T) {
	reg := NewRegistry(100_000_000)
	if reg.CommitteeThreshold() != 100_000_000 {
		t.Fatalf("threshold = %d, want 100000000", reg.CommitteeThreshold())
	}
	if !reg.NeedsCommitteeReview(100_000_000) {
		t.Error("amount at custom threshold should need committee review")
	}
	if reg.NeedsCommitteeReview(99_999_999) {
		t.Error("amount below custom threshold should not need committee review")
	}
}

func TestRoleLevels(t *testing.T) {
	order := []string{
		entity.RoleRequester,
		entity.RoleDepartmentHead,
		entity.RolePlantHead,
		entity.RoleCapexCommittee,
		entity.RoleBusinessCEO,
		entity.RoleCFO,
	}
	for i := 1; i < len(order); i++ {
		if RoleLevel(order[i]) <= RoleLevel(order[i-1]) {
			t.Errorf("RoleLevel(%s)=%d not above RoleLevel(%s)=%d",
				order[i], RoleLevel(order[i]), order[i-1], RoleLevel(order[i-1]))
		}
	}
	if RoleLevel(entity.RoleAdmin) != 0 {
		t.Errorf("admin level = %d, want 0", RoleLevel(entity.RoleAdmin))
	}
	if IsApproverRole(entity.RoleAdmin) || IsApproverRole(entity.RoleRequester) {
		t.Error("admin and requester must not be approver roles")
	}
}
