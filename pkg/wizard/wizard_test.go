package wizard

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/dealtree/internal/datasource"
	"github.com/vanderheijden86/dealtree/pkg/marketplace"
	"github.com/vanderheijden86/dealtree/pkg/model"
	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
	"github.com/vanderheijden86/dealtree/pkg/testutil"
)

func newService(t *testing.T) *marketplace.Service {
	t.Helper()
	store, err := datasource.Open(context.Background(), filepath.Join(t.TempDir(), "dt.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return marketplace.NewService(store,
		taxonomy.StaticGeography{Data: testutil.AsiaGeography()},
		taxonomy.StaticIndustry{Data: testutil.TechIndustry()},
	)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"1200000", 1200000, false},
		{"1,200,000", 1200000, false},
		{"250k", 250000, false},
		{"2.5M", 2500000, false},
		{" 3 m ", 3000000, false},
		{"abc", 0, true},
		{"-5", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePrice(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePrice(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTreeOptionsUsePathLabels(t *testing.T) {
	opts := treeOptions(testutil.AsiaGeography().Tree())
	if len(opts) != 6 {
		t.Fatalf("expected 6 options, got %d", len(opts))
	}
	if opts[2].Key != "Asia / East Asia / China" || opts[2].Value != "China" {
		t.Errorf("unexpected option %+v", opts[2])
	}
}

func TestProfileAnswersApplyNormalizes(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	sess := marketplace.Session{UserID: "buyer-1", Role: marketplace.RoleBuyer}
	e, err := svc.NewProfileEditor(ctx, sess, "", "")
	if err != nil {
		t.Fatal(err)
	}

	a := ProfileAnswers{
		Company:   "  Acme  ",
		Kind:      "company",
		Countries: []string{"China", "Japan", "India"},
		Sectors:   []string{"SaaS"},
	}
	if err := a.Apply(e); err != nil {
		t.Fatal(err)
	}
	p, _, err := e.Save(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if p.Company != "Acme" || p.Kind != model.KindCompany {
		t.Errorf("unexpected profile %+v", p)
	}
	testutil.AssertNames(t, p.TargetCriteria.Countries, []string{"Asia"})
	testutil.AssertNames(t, p.TargetCriteria.IndustrySectors, []string{"SaaS"})

	if err := (ProfileAnswers{Kind: "broker"}).Apply(e); err == nil {
		t.Error("expected invalid kind error")
	}
}

func TestDealAnswersApply(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	sess := marketplace.Session{UserID: "seller-1", Role: marketplace.RoleSeller}
	e, err := svc.OpenDealEditor(ctx, sess, "")
	if err != nil {
		t.Fatal(err)
	}

	a := DealAnswers{Title: "Tokyo SaaS", Price: "1.5m", Geography: "Japan", Industry: "Dev Tools"}
	if err := a.Apply(e); err != nil {
		t.Fatal(err)
	}
	d, err := e.Save(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d.AskingPrice != 1500000 || d.GeographySelection != "Japan" || d.IndustrySector != "Dev Tools" {
		t.Errorf("unexpected deal %+v", d)
	}
	if d.Status != model.DealActive {
		t.Errorf("expected active deal, got %s", d.Status)
	}

	if err := (DealAnswers{Price: "lots"}).Apply(e); err == nil {
		t.Error("expected price error")
	}
}
