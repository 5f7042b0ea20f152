package catalog

import (
	"testing"
	"time"
)

func TestJobQueueFIFO(t *testing.T) {
	t.Parallel()

	var q JobQueue
	q.Push(Job{Kind: KindProduct, ID: "1"}, Job{Kind: KindProduct, ID: "2"})
	q.Push(Job{Kind: KindStore, ID: "3"})

	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}

	want := []Job{
		{Kind: KindProduct, ID: "1"},
		{Kind: KindProduct, ID: "2"},
		{Kind: KindStore, ID: "3"},
	}
	for _, w := range want {
		head, ok := q.Peek()
		if !ok || head != w {
			t.Fatalf("Peek() = %+v, %v, want %+v", head, ok, w)
		}
		job, ok := q.Pop()
		if !ok || job != w {
			t.Fatalf("Pop() = %+v, %v, want %+v", job, ok, w)
		}
	}
	if _, ok := q.Peek(); ok {
		t.Fatal("expected empty queue on Peek")
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("expected empty queue")
	}
}

func TestSessionCountersAreIdempotent(t *testing.T) {
	t.Parallel()

	s := NewSession("crawl-1", time.Unix(1700000000, 0).UTC())
	s.MarkCrawled(KindProduct, "10")
	s.RecordAggregate("10", ProductAggregate{
		InventoryRows: 2,
		UnitsOnHand:   5,
		ValueCents:    1000,
		VolumeML:      3750,
	})

	// Re-processing the same job after a crash-resume overwrites the
	// aggregate entry and re-adds the same crawled id.
	s.MarkCrawled(KindProduct, "10")
	s.RecordAggregate("10", ProductAggregate{
		InventoryRows: 2,
		UnitsOnHand:   5,
		ValueCents:    1000,
		VolumeML:      3750,
	})

	got := s.Counters()
	want := Counters{
		Products:            1,
		InventoryRows:       2,
		UnitsOnHand:         5,
		InventoryValueCents: 1000,
		InventoryVolumeML:   3750,
	}
	if got != want {
		t.Fatalf("Counters() = %+v, want %+v", got, want)
	}
}

func TestSessionCrawledIDsReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewSession("crawl-2", time.Now().UTC())
	s.MarkCrawled(KindStore, "1")

	ids := s.CrawledIDs(KindStore)
	ids["2"] = true
	if len(s.CrawledIDs(KindStore)) != 1 {
		t.Fatal("expected CrawledIDs to return a copy")
	}
}

func TestRawRecordAccessors(t *testing.T) {
	t.Parallel()

	rec := RawRecord{
		"name":  "store",
		"count": float64(7),
		"price": 395,
	}
	if rec.String("name") != "store" {
		t.Fatalf("String(name) = %q", rec.String("name"))
	}
	if rec.Int("count") != 7 {
		t.Fatalf("Int(count) = %d", rec.Int("count"))
	}
	if rec.Int("price") != 395 {
		t.Fatalf("Int(price) = %d", rec.Int("price"))
	}
	if rec.Lookup("missing") != nil {
		t.Fatal("Lookup(missing) should be nil")
	}
	if rec.Has("missing") {
		t.Fatal("Has(missing) should be false")
	}
}
