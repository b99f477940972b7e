package marketplace

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/vanderheijden86/dealtree/internal/datasource"
	"github.com/vanderheijden86/dealtree/pkg/model"
	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
	"github.com/vanderheijden86/dealtree/pkg/testutil"
)

var (
	buyer   = Session{UserID: "buyer-1", Role: RoleBuyer}
	buyer2  = Session{UserID: "buyer-2", Role: RoleBuyer}
	seller  = Session{UserID: "seller-1", Role: RoleSeller}
	seller2 = Session{UserID: "seller-2", Role: RoleSeller}
	epoch   = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
)

func newTestService(t *testing.T) (*Service, *datasource.Store) {
	t.Helper()
	store, err := datasource.Open(context.Background(), filepath.Join(t.TempDir(), "dt.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tick := 0
	ids := 0
	svc := NewService(store,
		taxonomy.StaticGeography{Data: testutil.AsiaGeography()},
		taxonomy.StaticIndustry{Data: testutil.TechIndustry()},
		WithClock(func() time.Time {
			tick++
			return epoch.Add(time.Duration(tick) * time.Minute)
		}),
		WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("id-%d", ids)
		}),
	)
	return svc, store
}

func TestSessionValidate(t *testing.T) {
	if err := buyer.Validate(); err != nil {
		t.Errorf("buyer session invalid: %v", err)
	}
	if err := (Session{Role: RoleBuyer}).Validate(); err == nil {
		t.Error("expected missing user error")
	}
	if err := (Session{UserID: "x", Role: "admin"}).Validate(); err == nil {
		t.Error("expected bad role error")
	}
	if r, err := ParseRole(" Seller "); err != nil || r != RoleSeller {
		t.Errorf("ParseRole = %q, %v", r, err)
	}
}

func TestProfileEditorBindsSelections(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	if _, err := svc.NewProfileEditor(ctx, seller, model.KindAcquire, "Acme"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("seller should not edit profiles, got %v", err)
	}

	e, err := svc.NewProfileEditor(ctx, buyer, model.KindAcquire, "Northwind Capital")
	if err != nil {
		t.Fatalf("NewProfileEditor: %v", err)
	}
	if !e.IsNew() {
		t.Error("expected new editor")
	}

	e.Geography.ToggleID("east-asia")
	testutil.AssertNames(t, e.Profile.TargetCriteria.Countries, []string{"East Asia"})
	e.Geography.ToggleID("in")
	testutil.AssertNames(t, e.Profile.TargetCriteria.Countries, []string{"Asia"})
	e.Industry.ToggleID("saas")
	testutil.AssertNames(t, e.Profile.TargetCriteria.IndustrySectors, []string{"SaaS"})

	saved, dropped, err := e.Save(ctx)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(dropped) != 0 {
		t.Errorf("nothing should be dropped, got %v", dropped)
	}
	got, err := store.GetProfile(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	testutil.AssertNames(t, got.TargetCriteria.Countries, []string{"Asia"})
	testutil.AssertNames(t, got.TargetCriteria.IndustrySectors, []string{"SaaS"})
	if got.Owner != buyer.UserID {
		t.Errorf("owner = %q", got.Owner)
	}
}

func TestOpenProfileEditorRestoresAndDropsUnknownNames(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	p := model.Profile{
		ID: "p-1", Kind: model.KindAcquire, Company: "Legacy Holdings", Owner: buyer.UserID,
		TargetCriteria: model.TargetCriteria{Countries: []string{"China", "Japan", "Japn"}},
		CreatedAt:      epoch, UpdatedAt: epoch,
	}
	if err := store.SaveProfile(ctx, p); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.OpenProfileEditor(ctx, buyer2, "p-1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other buyer should be forbidden, got %v", err)
	}
	if _, err := svc.OpenProfileEditor(ctx, buyer, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	e, err := svc.OpenProfileEditor(ctx, buyer, "p-1")
	if err != nil {
		t.Fatalf("OpenProfileEditor: %v", err)
	}
	// Both East Asia children persisted individually: the parent is full.
	if !e.Geography.IsSelected("east-asia") {
		t.Error("East Asia should be selected after load")
	}
	um := e.Unmatched()
	if len(um) != 1 || um[0].Name != "Japn" || um[0].Field != "countries" {
		t.Fatalf("unexpected unmatched %+v", um)
	}
	if len(um[0].Suggestions) == 0 || um[0].Suggestions[0] != "Japan" {
		t.Errorf("expected Japan suggestion, got %v", um[0].Suggestions)
	}

	saved, dropped, err := e.Save(ctx)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(dropped) != 1 {
		t.Errorf("expected one dropped name, got %v", dropped)
	}
	testutil.AssertNames(t, saved.TargetCriteria.Countries, []string{"East Asia"})
	if !saved.UpdatedAt.After(epoch) {
		t.Error("UpdatedAt not bumped")
	}
}

func TestProfileListAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	e, err := svc.NewProfileEditor(ctx, buyer, "", "Solo")
	if err != nil {
		t.Fatal(err)
	}
	if e.Profile.Kind != model.KindAcquire {
		t.Errorf("default kind = %q", e.Profile.Kind)
	}
	p, _, err := e.Save(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if mine, _ := svc.ListProfiles(ctx, buyer2); len(mine) != 0 {
		t.Errorf("buyer-2 sees %d profiles", len(mine))
	}
	if err := svc.DeleteProfile(ctx, buyer2, p.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := svc.DeleteProfile(ctx, buyer, p.ID); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}
	if mine, _ := svc.ListProfiles(ctx, buyer); len(mine) != 0 {
		t.Errorf("profile survived delete: %v", mine)
	}
}

func TestImportProfileNormalizes(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	p, dropped, err := svc.ImportProfile(ctx, buyer, model.Profile{
		Company:        "Imported",
		Owner:          "someone-else",
		TargetCriteria: model.TargetCriteria{Countries: []string{"India", "China", "Japan", "Mars"}},
	})
	if err != nil {
		t.Fatalf("ImportProfile: %v", err)
	}
	if p.Owner != buyer.UserID {
		t.Errorf("import must take the session owner, got %q", p.Owner)
	}
	testutil.AssertNames(t, p.TargetCriteria.Countries, []string{"Asia"})
	if len(dropped) != 1 || dropped[0].Name != "Mars" {
		t.Errorf("unexpected dropped %v", dropped)
	}
}

func TestDealWorkflow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	in := DealInput{Title: "Kyoto payroll SaaS", Geography: "Japan", Industry: "SaaS", AskingPrice: 2_000_000}
	if _, err := svc.CreateDeal(ctx, buyer, in); !errors.Is(err, ErrForbidden) {
		t.Fatalf("buyer should not create deals, got %v", err)
	}
	bad := in
	bad.Geography = "Japn"
	if _, err := svc.CreateDeal(ctx, seller, bad); !errors.Is(err, ErrUnknownName) {
		t.Fatalf("expected ErrUnknownName, got %v", err)
	}
	bad.Geography = ""
	if _, err := svc.CreateDeal(ctx, seller, bad); err == nil {
		t.Fatal("expected missing geography error")
	}

	d, err := svc.CreateDeal(ctx, seller, in)
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}
	if d.Status != model.DealActive || d.GeographySelection != "Japan" {
		t.Errorf("unexpected deal %+v", d)
	}

	if _, err := svc.MarkOffMarket(ctx, seller2, d.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other seller should be forbidden, got %v", err)
	}
	if d, err = svc.MarkOffMarket(ctx, seller, d.ID); err != nil || d.Status != model.DealOffMarket {
		t.Fatalf("MarkOffMarket: %v %v", d.Status, err)
	}
	if got, _ := svc.ListDeals(ctx, buyer, ""); len(got) != 0 {
		t.Errorf("buyer should not see off-market deals, got %d", len(got))
	}
	if _, err := svc.GetDeal(ctx, buyer, d.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected hidden deal to be not found, got %v", err)
	}
	if d, err = svc.Relist(ctx, seller, d.ID); err != nil || d.Status != model.DealActive {
		t.Fatalf("Relist: %v %v", d.Status, err)
	}
	if got, _ := svc.ListDeals(ctx, buyer, ""); len(got) != 1 {
		t.Errorf("buyer should see the relisted deal, got %d", len(got))
	}

	upd := in
	upd.Geography = "East Asia"
	if d, err = svc.UpdateDeal(ctx, seller, d.ID, upd); err != nil || d.GeographySelection != "East Asia" {
		t.Fatalf("UpdateDeal: %q %v", d.GeographySelection, err)
	}

	if d, err = svc.CompleteDeal(ctx, seller, d.ID); err != nil || d.CompletedAt == nil {
		t.Fatalf("CompleteDeal: %v", err)
	}
	if _, err := svc.Relist(ctx, seller, d.ID); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.UpdateDeal(ctx, seller, d.ID, in); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("completed deal should be frozen, got %v", err)
	}
	if got, _ := svc.ListDeals(ctx, seller, model.DealCompleted); len(got) != 1 {
		t.Errorf("seller should see completed deal, got %d", len(got))
	}
}

func TestDealEditorSingleSelect(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	e, err := svc.OpenDealEditor(ctx, seller, "")
	if err != nil {
		t.Fatalf("OpenDealEditor: %v", err)
	}
	e.Input.Title = "Chengdu dev tooling"
	e.Geography.ToggleID("cn")
	e.Geography.ToggleID("jp")
	if e.Input.Geography != "Japan" {
		t.Errorf("single select should keep only the last choice, got %q", e.Input.Geography)
	}
	e.Industry.ToggleID("dev-tools")

	d, err := e.Save(ctx)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if e.IsNew() {
		t.Error("editor should track the created deal")
	}

	again, err := svc.OpenDealEditor(ctx, seller, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertNames(t, again.Geography.Serialize(), []string{"Japan"})
	testutil.AssertNames(t, again.Industry.Serialize(), []string{"Dev Tools"})
}

func TestMatchBuyersRanksBySpecificity(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	for _, p := range []struct {
		id        string
		countries []string
		sectors   []string
	}{
		{"p-a", []string{"Japan"}, []string{"SaaS"}},
		{"p-b", []string{"Asia"}, []string{"Tech"}},
		{"p-c", nil, []string{"Software"}},
		{"p-d", []string{"India"}, []string{"SaaS"}},
		{"p-e", []string{"Japan"}, []string{"Dev Tools"}},
	} {
		err := store.SaveProfile(ctx, model.Profile{
			ID: p.id, Kind: model.KindAcquire, Company: p.id, Owner: "buyer-x",
			TargetCriteria: model.TargetCriteria{Countries: p.countries, IndustrySectors: p.sectors},
			CreatedAt:      epoch, UpdatedAt: epoch,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	d, err := svc.CreateDeal(ctx, seller, DealInput{Title: "Osaka SaaS", Geography: "Japan", Industry: "SaaS"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.MatchBuyers(ctx, seller2, d.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	matches, err := svc.MatchBuyers(ctx, seller, d.ID)
	if err != nil {
		t.Fatalf("MatchBuyers: %v", err)
	}
	var ids []string
	var dists []int
	for _, m := range matches {
		ids = append(ids, m.Profile.ID)
		dists = append(dists, m.Distance())
	}
	if want := []string{"p-a", "p-b", "p-c"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
	if want := []int{0, 4, 4}; !reflect.DeepEqual(dists, want) {
		t.Errorf("distances = %v, want %v", dists, want)
	}
}

func TestCatalogCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	a, err := svc.Catalogs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := svc.Catalogs(ctx)
	if a != b {
		t.Error("catalogs should be cached")
	}
	svc.InvalidateCatalogs()
	c, _ := svc.Catalogs(ctx)
	if c == a {
		t.Error("invalidate should force a reload")
	}
}
