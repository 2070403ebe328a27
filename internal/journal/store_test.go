package journal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"lifedrop.org/internal/blood"
	"lifedrop.org/internal/donors"
	"lifedrop.org/internal/ids"
	"lifedrop.org/internal/stream"
)

var epoch = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

// tickingClock advances one second per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return epoch.Add(time.Duration(n) * time.Second)
	}
}

func newTestStore(dir donors.Directory, opts ...Option) *Store {
	base := []Option{
		WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
		WithIDs(ids.NewSequence("j")),
		WithClock(tickingClock()),
	}
	return New(dir, append(base, opts...)...)
}

func request(hospital string) RequestInput {
	return RequestInput{
		BloodType:     blood.OPos,
		UnitsNeeded:   2,
		HospitalName:  hospital,
		ContactNumber: "555-0100",
		RequesterName: "Alice",
		Location:      "Metro",
	}
}

func TestAddBloodRequestNewestFirst(t *testing.T) {
	s := newTestStore(nil)
	ctx := context.Background()
	const n = 5
	for i := 1; i <= n; i++ {
		if _, err := s.AddBloodRequest(ctx, request(fmt.Sprintf("H%d", i))); err != nil {
			t.Fatalf("AddBloodRequest %d: %v", i, err)
		}
	}
	got := s.State().BloodRequests
	if len(got) != n {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].HospitalName != "H5" || got[n-1].HospitalName != "H1" {
		t.Fatalf("order: first=%s last=%s", got[0].HospitalName, got[n-1].HospitalName)
	}
}

func TestAddBloodRequestAssignsIdentity(t *testing.T) {
	s := New(nil, WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))))
	ctx := context.Background()
	a, err := s.AddBloodRequest(ctx, request("H1"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.AddBloodRequest(ctx, request("H1"))
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Fatalf("ids not unique: %q %q", a.ID, b.ID)
	}
	if a.CreatedAt.IsZero() || b.CreatedAt.Before(a.CreatedAt) {
		t.Fatalf("createdAt not assigned in order: %v %v", a.CreatedAt, b.CreatedAt)
	}
	if a.Status != RequestActive || a.Urgency != blood.Normal {
		t.Fatalf("defaults not applied: %+v", a)
	}
}

func TestAddBloodRequestRejectsImpossibleInput(t *testing.T) {
	s := newTestStore(nil)
	bad := []RequestInput{
		{BloodType: "X", UnitsNeeded: 1},
		{BloodType: blood.APos, UnitsNeeded: 0},
		{BloodType: blood.APos, UnitsNeeded: 1, Urgency: "Soon"},
	}
	for _, in := range bad {
		if _, err := s.AddBloodRequest(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("input %+v: want ErrInvalidInput, got %v", in, err)
		}
	}
	if len(s.State().BloodRequests) != 0 {
		t.Fatal("rejected input must not be recorded")
	}
}

func TestAddDonationScheduled(t *testing.T) {
	s := newTestStore(nil)
	ctx := context.Background()
	prior, _ := s.AddDonation(ctx, DonationInput{DonorName: "Eve", BloodType: blood.BNeg, DonationCenter: "C0"})

	scheduled := epoch.Add(72 * time.Hour)
	d, err := s.AddDonation(ctx, DonationInput{
		DonorName:      "Bob",
		BloodType:      blood.APos,
		DonationCenter: "C1",
		ScheduledDate:  scheduled,
		Notes:          "",
		Status:         DonationScheduled,
	})
	if err != nil {
		t.Fatalf("AddDonation: %v", err)
	}
	hist := s.State().DonationHistory
	if hist[0].Status != DonationScheduled {
		t.Fatalf("status = %q", hist[0].Status)
	}
	if hist[0].ID == "" || hist[0].ID == prior.ID || hist[0].ID != d.ID {
		t.Fatalf("id not generated distinctly: %q (prior %q)", hist[0].ID, prior.ID)
	}
	if !hist[0].ScheduledDate.Equal(scheduled) || hist[0].DonatedAt.Equal(scheduled) {
		t.Fatalf("scheduledDate/donatedAt mixed up: %+v", hist[0])
	}
	if prior.Status != DonationScheduled {
		t.Fatalf("empty status should default to scheduled, got %q", prior.Status)
	}
}

func TestAddNotificationStartsUnread(t *testing.T) {
	s := newTestStore(nil)
	n, err := s.AddNotification(context.Background(), NotificationInput{Title: "Hi", Message: "there", Type: NotifyReminder})
	if err != nil {
		t.Fatal(err)
	}
	if n.Read || n.Timestamp.IsZero() || n.ID == "" {
		t.Fatalf("unexpected notification %+v", n)
	}
	if s.State().UnreadCount() != 1 {
		t.Fatal("want one unread")
	}
	if _, err := s.AddNotification(context.Background(), NotificationInput{Type: "loud"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestFindDonorsReplacesResult(t *testing.T) {
	calls := 0
	dir := donors.DirectoryFunc(func(_ context.Context, c donors.Criteria) ([]donors.Donor, error) {
		calls++
		if c.Location == "fail" {
			return nil, errors.New("directory offline")
		}
		return []donors.Donor{
			{ID: fmt.Sprintf("d%d-a", calls), BloodType: c.BloodType},
			{ID: fmt.Sprintf("d%d-b", calls), BloodType: c.BloodType},
		}, nil
	})
	s := newTestStore(dir)
	ctx := context.Background()

	if _, err := s.FindDonors(ctx, donors.Criteria{BloodType: blood.ANeg, Location: "Metro"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.FindDonors(ctx, donors.Criteria{BloodType: blood.BPos, Location: "Metro"})
	if err != nil {
		t.Fatal(err)
	}
	avail := s.State().AvailableDonors
	if len(avail) != 2 || avail[0].ID != "d2-a" || avail[0].BloodType != blood.BPos || len(got) != 2 {
		t.Fatalf("result not replaced: %+v", avail)
	}

	if _, err := s.FindDonors(ctx, donors.Criteria{BloodType: blood.BPos, Location: "fail"}); err == nil {
		t.Fatal("expected directory error")
	}
	if avail := s.State().AvailableDonors; len(avail) != 2 || avail[0].ID != "d2-a" {
		t.Fatalf("failed search must keep previous result: %+v", avail)
	}
}

func TestFindDonorsWithoutDirectory(t *testing.T) {
	s := newTestStore(nil)
	if _, err := s.FindDonors(context.Background(), donors.Criteria{BloodType: blood.APos}); !errors.Is(err, ErrNoDirectory) {
		t.Fatalf("want ErrNoDirectory, got %v", err)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	before := Initial()
	after := Reduce(before, RequestAdded{Request: BloodRequest{ID: "r1"}})
	if len(before.BloodRequests) != 0 || len(after.BloodRequests) != 1 {
		t.Fatalf("before=%d after=%d", len(before.BloodRequests), len(after.BloodRequests))
	}
}

func TestStateCopiesAreIndependent(t *testing.T) {
	s := newTestStore(nil)
	_, _ = s.AddBloodRequest(context.Background(), request("H1"))
	snap := s.State()
	snap.BloodRequests[0].HospitalName = "tampered"
	if s.State().BloodRequests[0].HospitalName != "H1" {
		t.Fatal("State leaked internal slice")
	}
}

func TestConcurrentAppends(t *testing.T) {
	s := New(nil, WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))))
	ctx := context.Background()
	var wg sync.WaitGroup
	const n = 50
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.AddBloodRequest(ctx, request(fmt.Sprintf("H%d", i)))
			_, _ = s.AddNotification(ctx, NotificationInput{Title: "t"})
		}(i)
	}
	wg.Wait()

	st := s.State()
	if len(st.BloodRequests) != n || len(st.Notifications) != n {
		t.Fatalf("lost appends: requests=%d notifications=%d", len(st.BloodRequests), len(st.Notifications))
	}
	seen := make(map[string]bool)
	for _, r := range st.BloodRequests {
		if seen[r.ID] {
			t.Fatalf("duplicate id %s", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTestStore(nil)
	ch := s.Subscribe(ctx)
	_, _ = s.AddNotification(ctx, NotificationInput{Title: "a"})
	select {
	case st := <-ch:
		if len(st.Notifications) != 1 {
			t.Fatalf("snapshot = %+v", st)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}
}

func TestUrgentRequestsNewestFirst(t *testing.T) {
	s := newTestStore(nil)
	ctx := context.Background()
	for _, u := range []blood.Urgency{blood.Critical, blood.Normal, blood.Urgent, ""} {
		in := request(string(u))
		in.Urgency = u
		if _, err := s.AddBloodRequest(ctx, in); err != nil {
			t.Fatalf("AddBloodRequest %q: %v", u, err)
		}
	}
	got := s.UrgentRequests()
	if len(got) != 2 {
		t.Fatalf("urgent = %+v", got)
	}
	if got[0].Urgency != blood.Urgent || got[1].Urgency != blood.Critical {
		t.Fatalf("order: %s, %s", got[0].Urgency, got[1].Urgency)
	}
	if len(s.State().UrgentRequests()) != 2 {
		t.Fatal("State().UrgentRequests disagrees with the store")
	}
}

func TestUrgentRequestsSkipsInactive(t *testing.T) {
	st := Initial()
	st = Reduce(st, RequestAdded{Request: BloodRequest{ID: "r1", Urgency: blood.Critical, Status: RequestFulfilled}})
	st = Reduce(st, RequestAdded{Request: BloodRequest{ID: "r2", Urgency: blood.Urgent, Status: RequestCancelled}})
	if got := st.UrgentRequests(); len(got) != 0 {
		t.Fatalf("inactive requests listed: %+v", got)
	}
}

func TestStatsCountsUnitsOfCompletedDonations(t *testing.T) {
	s := newTestStore(nil)
	ctx := context.Background()
	inputs := []DonationInput{
		{DonorName: "A", BloodType: blood.APos, DonationCenter: "C", Status: DonationCompleted, Units: 2},
		{DonorName: "A", BloodType: blood.APos, DonationCenter: "C", Status: DonationCompleted},
		{DonorName: "A", BloodType: blood.APos, DonationCenter: "C", Units: 3},
	}
	for _, in := range inputs {
		if _, err := s.AddDonation(ctx, in); err != nil {
			t.Fatalf("AddDonation: %v", err)
		}
	}
	st := s.Stats()
	if st.CompletedDonations != 2 || st.ScheduledDonations != 1 || st.UnitsDonated != 3 {
		t.Fatalf("stats = %+v", st)
	}
	if _, err := s.AddDonation(ctx, DonationInput{DonationCenter: "C", Units: -1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative units: want ErrInvalidInput, got %v", err)
	}
}

func TestConcurrentAppendsPublishInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	const n = 100
	s := New(nil,
		WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
		WithHub(stream.New[State](n)),
	)
	ch := s.Subscribe(ctx)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.AddNotification(ctx, NotificationInput{Title: fmt.Sprintf("n%d", i)})
		}(i)
	}
	wg.Wait()

	last := 0
	for i := 0; i < n; i++ {
		select {
		case st := <-ch:
			if got := len(st.Notifications); got != last+1 {
				t.Fatalf("snapshot %d has %d notifications after one with %d", i, got, last)
			}
			last = len(st.Notifications)
		case <-time.After(time.Second):
			t.Fatalf("only %d of %d snapshots published", i, n)
		}
	}
}
