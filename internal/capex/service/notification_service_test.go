package service

import (
	"context"
	"testing"

	"github.com/bitfantasy/capex/internal/capex/entity"
	"github.com/bitfantasy/capex/internal/capex/repository"
	"github.com/bitfantasy/capex/internal/capex/testutil"
	"github.com/bitfantasy/capex/internal/capex/workflow"
	"github.com/bitfantasy/capex/internal/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupNotificationTest(t *testing.T) (*Services, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	rdb := testutil.SetupRedis(t)

	cfg := &config.Config{}
	cfg.JWT.Secret = testutil.JWTSecret

	repos := repository.NewRepositories(db)
	return NewServices(repos, rdb, cfg, zap.NewNop()), db
}

func titlesFor(t *testing.T, svc *Services, userID string) []string {
	t.Helper()
	ns, err := svc.Notification.ListForUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	titles := make([]string, 0, len(ns))
	for _, n := range ns {
		titles = append(titles, n.Title)
	}
	return titles
}

func TestSubmitNotifiesScopedDepartmentHeads(t *testing.T) {
	svc, db := setupNotificationTest(t)
	ctx := context.Background()

	requester := testutil.SeedUser(t, db, "raj", entity.RoleRequester,
		"Production", "Pune", "Industrial Systems")
	puneHead := testutil.SeedUser(t, db, "priya", entity.RoleDepartmentHead,
		"Production", "Pune", "Industrial Systems")
	chennaiHead := testutil.SeedUser(t, db, "neha", entity.RoleDepartmentHead,
		"Production", "Chennai", "Industrial Systems")
	committee := testutil.SeedUser(t, db, "committee", entity.RoleCapexCommittee,
		"Finance", entity.ScopeAllPlants, entity.ScopeAllBusinessUnits)

	_, err := svc.Request.Submit(ctx, requester.ID, &SubmitInput{
		Title:  "Forklift replacement",
		Type:   entity.CapexTypeMaintenance,
		Amount: 50_000_000,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	titles := titlesFor(t, svc, puneHead.ID)
	if len(titles) != 1 || titles[0] != "New CapEx Request" {
		t.Fatalf("pune head notifications: %v", titles)
	}
	if got := titlesFor(t, svc, chennaiHead.ID); len(got) != 0 {
		t.Fatalf("chennai head should get nothing, got %v", got)
	}
	// Below threshold: the committee is not alerted
	if got := titlesFor(t, svc, committee.ID); len(got) != 0 {
		t.Fatalf("committee should get nothing below threshold, got %v", got)
	}

	// At threshold the committee gets an early warning
	_, err = svc.Request.Submit(ctx, requester.ID, &SubmitInput{
		Title:  "New production line",
		Type:   entity.CapexTypeRevenueGrowth,
		Amount: 250_000_000,
	})
	if err != nil {
		t.Fatalf("submit high value: %v", err)
	}
	titles = titlesFor(t, svc, committee.ID)
	if len(titles) != 1 || titles[0] != "High Value CapEx Request" {
		t.Fatalf("committee notifications: %v", titles)
	}
}

func TestDecisionNotifications(t *testing.T) {
	svc, db := setupNotificationTest(t)
	ctx := context.Background()

	requester := testutil.SeedUser(t, db, "raj", entity.RoleRequester,
		"Production", "Pune", "Industrial Systems")
	deptHead := testutil.SeedUser(t, db, "priya", entity.RoleDepartmentHead,
		"Production", "Pune", "Industrial Systems")
	plantHead := testutil.SeedUser(t, db, "amit", entity.RolePlantHead,
		"Operations", "Pune", "Industrial Systems")
	ceo := testutil.SeedUser(t, db, "vikram", entity.RoleBusinessCEO,
		"Executive", entity.ScopeAllPlants, entity.ScopeAllBusinessUnits)
	cfo := testutil.SeedUser(t, db, "sunita", entity.RoleCFO,
		"Finance", entity.ScopeAllPlants, entity.ScopeAllBusinessUnits)

	req, err := svc.Request.Submit(ctx, requester.ID, &SubmitInput{
		Title:  "Press upgrade",
		Type:   entity.CapexTypeMaintenance,
		Amount: 50_000_000,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// department_head approves -> plant head is told
	if _, err := svc.Request.Decide(ctx, req.ID, deptHead.ID, workflow.DecisionApprove, ""); err != nil {
		t.Fatalf("dept head approve: %v", err)
	}
	titles := titlesFor(t, svc, plantHead.ID)
	if len(titles) != 1 || titles[0] != "CapEx Request Approved" {
		t.Fatalf("plant head notifications: %v", titles)
	}

	// plant_head approves -> ceo; ceo approves -> cfo gets the final-approval title
	if _, err := svc.Request.Decide(ctx, req.ID, plantHead.ID, workflow.DecisionApprove, ""); err != nil {
		t.Fatalf("plant head approve: %v", err)
	}
	if _, err := svc.Request.Decide(ctx, req.ID, ceo.ID, workflow.DecisionApprove, ""); err != nil {
		t.Fatalf("ceo approve: %v", err)
	}
	titles = titlesFor(t, svc, cfo.ID)
	if len(titles) != 1 || titles[0] != "Final Approval Required" {
		t.Fatalf("cfo notifications: %v", titles)
	}

	// cfo approves -> requester hears about the final approval
	if _, err := svc.Request.Decide(ctx, req.ID, cfo.ID, workflow.DecisionApprove, ""); err != nil {
		t.Fatalf("cfo approve: %v", err)
	}
	titles = titlesFor(t, svc, requester.ID)
	if len(titles) != 1 || titles[0] != "CapEx Request Approved" {
		t.Fatalf("requester notifications: %v", titles)
	}
}

func TestRejectionNotifiesRequester(t *testing.T) {
	svc, db := setupNotificationTest(t)
	ctx := context.Background()

	requester := testutil.SeedUser(t, db, "raj", entity.RoleRequester,
		"Production", "Pune", "Industrial Systems")
	deptHead := testutil.SeedUser(t, db, "priya", entity.RoleDepartmentHead,
		"Production", "Pune", "Industrial Systems")

	req, err := svc.Request.Submit(ctx, requester.ID, &SubmitInput{
		Title:  "Extra compressor",
		Type:   entity.CapexTypeMaintenance,
		Amount: 20_000_000,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.Request.Decide(ctx, req.ID, deptHead.ID, workflow.DecisionReject, "Not budgeted"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	ns, err := svc.Notification.ListForUser(ctx, requester.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ns) != 1 || ns[0].Title != "CapEx Request Rejected" {
		t.Fatalf("requester notifications: %+v", ns)
	}
	if ns[0].Type != entity.NotificationTypeError {
		t.Fatalf("expected error type, got %s", ns[0].Type)
	}
	if ns[0].RelatedRequestID != req.Code {
		t.Fatalf("expected related request %s, got %s", req.Code, ns[0].RelatedRequestID)
	}
}

func TestUnreadCountCaching(t *testing.T) {
	svc, db := setupNotificationTest(t)
	ctx := context.Background()

	requester := testutil.SeedUser(t, db, "raj", entity.RoleRequester,
		"Production", "Pune", "Industrial Systems")
	deptHead := testutil.SeedUser(t, db, "priya", entity.RoleDepartmentHead,
		"Production", "Pune", "Industrial Systems")

	// Prime the cache before any notifications exist
	count, err := svc.Notification.UnreadCount(ctx, deptHead.ID)
	if err != nil || count != 0 {
		t.Fatalf("initial unread count: %d, %v", count, err)
	}

	if _, err := svc.Request.Submit(ctx, requester.ID, &SubmitInput{
		Title:  "Grinder",
		Type:   entity.CapexTypeMaintenance,
		Amount: 10_000_000,
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// The cached counter was bumped alongside the insert
	count, err = svc.Notification.UnreadCount(ctx, deptHead.ID)
	if err != nil || count != 1 {
		t.Fatalf("unread count after submit: %d, %v", count, err)
	}

	ns, _ := svc.Notification.ListForUser(ctx, deptHead.ID)
	if err := svc.Notification.MarkRead(ctx, ns[0].ID, deptHead.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	count, err = svc.Notification.UnreadCount(ctx, deptHead.ID)
	if err != nil || count != 0 {
		t.Fatalf("unread count after mark read: %d, %v", count, err)
	}

	// MarkRead scoped to the owner
	if err := svc.Notification.MarkRead(ctx, ns[0].ID, requester.ID); err == nil {
		t.Fatalf("expected error marking someone else's notification")
	}
}
