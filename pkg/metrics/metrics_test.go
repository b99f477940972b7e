package metrics

import (
	"testing"
	"time"
)

func TestRecordKeepsScopesApart(t *testing.T) {
	SetEnabled(true)
	Reset()
	defer Reset()

	Record(Toggle, "geography", 2*time.Millisecond)
	Record(Toggle, "geography", 4*time.Millisecond)
	Record(Toggle, "industry", 1*time.Millisecond)

	r := Snapshot()
	geo, ok := r.Timing(Toggle, "geography")
	if !ok {
		t.Fatal("geography toggles missing")
	}
	if geo.Count != 2 || geo.MinMs != 2 || geo.MaxMs != 4 || geo.AvgMs != 3 || geo.TotalMs != 6 {
		t.Errorf("unexpected geography stats %+v", geo)
	}
	if ind, ok := r.Timing(Toggle, "industry"); !ok || ind.Count != 1 {
		t.Errorf("unexpected industry stats %+v", ind)
	}
	if len(r.Timings) != 2 || r.Timings[0].Scope != "geography" {
		t.Errorf("expected scopes in order, got %+v", r.Timings)
	}
}

func TestTimeReturnsElapsed(t *testing.T) {
	SetEnabled(true)
	Reset()
	defer Reset()

	done := Time(CatalogLoad, "")
	time.Sleep(time.Millisecond)
	if d := done(); d < time.Millisecond {
		t.Errorf("expected at least 1ms, got %v", d)
	}
	if s, ok := Snapshot().Timing(CatalogLoad, ""); !ok || s.Count != 1 {
		t.Errorf("catalog load not recorded: %+v", s)
	}
}

func TestDisabledRecordsNothing(t *testing.T) {
	Reset()
	SetEnabled(false)
	defer SetEnabled(true)

	Time(BuyerMatch, "")()
	Miss(CatalogCache)
	r := Snapshot()
	if len(r.Timings) != 0 || len(r.Caches) != 0 {
		t.Errorf("disabled metrics must not record, got %+v", r)
	}
}

func TestCacheCounts(t *testing.T) {
	SetEnabled(true)
	Reset()
	defer Reset()

	Miss(CatalogCache)
	Hit(CatalogCache)
	Hit(CatalogCache)
	Hit(CatalogCache)

	r := Snapshot()
	if len(r.Caches) != 1 {
		t.Fatalf("expected one cache, got %+v", r.Caches)
	}
	c := r.Caches[0]
	if c.Name != CatalogCache || c.Hits != 3 || c.Misses != 1 || c.HitRate != 0.75 {
		t.Errorf("unexpected cache stats %+v", c)
	}
}
