package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/booking"
	"github.com/wolfman30/clinic-booking-assistant/internal/bookings"
	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

var saturday = time.Date(2025, time.June, 14, 10, 0, 0, 0, time.UTC)

func sunrise() clinic.Record {
	return clinic.Record{
		Name:       "Sunrise Clinic",
		OpenTime:   "09:00 AM",
		CloseTime:  "05:00 PM",
		ClosedDays: []string{"Sunday"},
		Services: []clinic.Service{
			{Name: "Dental Checkup", Price: 500},
			{Name: "Teeth Whitening", Price: 2500},
		},
	}
}

func greenValley() clinic.Record {
	return clinic.Record{
		Name:       "Green Valley Dental Care",
		OpenTime:   "10.00 AM",
		CloseTime:  "7.30 PM",
		ClosedDays: []string{"Saturday", "Sunday"},
		Services:   []clinic.Service{{Name: "Root Canal", Price: 6000}},
	}
}

type fixture struct {
	assistant   *Assistant
	registry    *clinic.Registry
	repo        *bookings.MemoryRepository
	llm         *stubLLM
	retriever   *Retriever
	sessions    *booking.MemorySessionStore
	transcripts *MemoryTranscriptStore
}

func newFixture(t *testing.T, records ...clinic.Record) *fixture {
	t.Helper()
	logger := logging.Discard()
	registry := clinic.NewRegistry()
	if len(records) > 0 {
		registry.Replace(records)
	}
	repo := bookings.NewMemoryRepository()
	machine := booking.NewMachine(
		bookings.NewService(repo, logger),
		nil,
		logger,
		booking.WithClock(func() time.Time { return saturday }),
	)
	f := &fixture{
		registry:    registry,
		repo:        repo,
		llm:         &stubLLM{text: "Parking is free behind the clinic."},
		retriever:   NewRetriever(NewLexicalRetriever(), logger),
		sessions:    booking.NewMemorySessionStore(),
		transcripts: NewMemoryTranscriptStore(25),
	}
	f.assistant = NewAssistant(AssistantConfig{
		Registry:    registry,
		Machine:     machine,
		Sessions:    f.sessions,
		Transcripts: f.transcripts,
		Retriever:   f.retriever,
		LLM:         f.llm,
		Logger:      logger,
		Now:         func() time.Time { return saturday },
	})
	return f
}

func (f *fixture) say(t *testing.T, text string) Turn {
	t.Helper()
	turn, err := f.assistant.Reply(context.Background(), "conv-1", text)
	if err != nil {
		t.Fatalf("Reply(%q) failed: %v", text, err)
	}
	return turn
}

func TestAssistant_Greeting(t *testing.T) {
	f := newFixture(t)
	turn := f.say(t, "  Good Morning ")
	if turn.Reply != msgGreeting || turn.Route != RouteGreeting {
		t.Fatalf("unexpected turn: %+v", turn)
	}
}

func TestAssistant_BookingNeedsDocuments(t *testing.T) {
	f := newFixture(t)
	turn := f.say(t, "I want to book an appointment")
	if !strings.HasPrefix(turn.Reply, "📄 Please upload clinic PDF(s) first") {
		t.Fatalf("unexpected reply %q", turn.Reply)
	}
	if turn.Stage != booking.Idle {
		t.Fatalf("expected idle stage, got %s", turn.Stage)
	}
}

func TestAssistant_FullBookingConversation(t *testing.T) {
	f := newFixture(t, sunrise(), greenValley())

	steps := []struct {
		text  string
		stage booking.Stage
	}{
		{"I'd like to book an appointment", booking.AwaitingService},
		{"root canal", booking.AwaitingDate},
		{"today", booking.AwaitingDate}, // Green Valley is closed on Saturdays
		{"16-06-2025", booking.AwaitingTime},
		{"6.30 PM", booking.AwaitingName},
		{"Ravi Kumar", booking.AwaitingEmail},
		{"Ravi@Example.com", booking.AwaitingPhone},
		{"9876543210", booking.AwaitingConfirmation},
	}
	for _, step := range steps {
		turn := f.say(t, step.text)
		if turn.Stage != step.stage {
			t.Fatalf("after %q expected stage %s, got %s (%q)", step.text, step.stage, turn.Stage, turn.Reply)
		}
		if turn.Route != RouteBooking && turn.Route != RouteBookingStart {
			t.Fatalf("after %q expected a booking route, got %s", step.text, turn.Route)
		}
	}

	turn := f.say(t, "YES")
	if turn.Stage != booking.Idle || turn.Booking == nil {
		t.Fatalf("expected confirmed booking, got %+v", turn)
	}
	// No notifier is configured, so the booking is reported without email.
	if !strings.Contains(turn.Reply, "email could not be sent") {
		t.Fatalf("unexpected reply %q", turn.Reply)
	}

	rows, err := f.repo.List(context.Background(), bookings.Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one booking, got %d", len(rows))
	}
	got := rows[0]
	if got.ClinicName != "Green Valley Dental Care" || got.Service != "Root Canal" || got.Date != "2025-06-16" || got.Time != "6:30 PM" {
		t.Fatalf("unexpected booking: %+v", got)
	}

	// Nine exchanges, two entries each.
	history, _ := f.assistant.History(context.Background(), "conv-1")
	if len(history) != 18 {
		t.Fatalf("expected 18 transcript entries, got %d", len(history))
	}
	if history[0].Role != ChatRoleUser || history[1].Role != ChatRoleAssistant {
		t.Fatalf("unexpected roles: %s, %s", history[0].Role, history[1].Role)
	}
}

func TestAssistant_ActiveBookingTakesPriority(t *testing.T) {
	f := newFixture(t, sunrise())
	f.say(t, "book")

	// "hello" would be a greeting if no booking were active.
	turn := f.say(t, "hello")
	if turn.Route != RouteBooking || turn.Stage != booking.AwaitingService {
		t.Fatalf("expected the booking flow to handle the turn, got %+v", turn)
	}

	turn = f.say(t, "stop")
	if turn.Stage != booking.Idle || turn.Reply != "❌ Booking cancelled." {
		t.Fatalf("expected cancellation, got %+v", turn)
	}

	turn = f.say(t, "cancel")
	if turn.Reply != msgNothingToCancel {
		t.Fatalf("expected nothing to cancel, got %q", turn.Reply)
	}
}

func TestAssistant_DirectoryQueries(t *testing.T) {
	f := newFixture(t, sunrise(), greenValley())

	turn := f.say(t, "What are the working hours of Green Valley Dental")
	if turn.Route != RouteWorkingHours {
		t.Fatalf("expected working hours route, got %s", turn.Route)
	}
	if !strings.Contains(turn.Reply, "Green Valley Dental Care") || strings.Contains(turn.Reply, "Sunrise") {
		t.Fatalf("expected only Green Valley hours, got %q", turn.Reply)
	}

	turn = f.say(t, "list services")
	if turn.Route != RouteServiceList {
		t.Fatalf("expected service list route, got %s", turn.Route)
	}
	for _, want := range []string{"Dental Checkup – ₹500", "Teeth Whitening – ₹2500", "Root Canal – ₹6000"} {
		if !strings.Contains(turn.Reply, want) {
			t.Fatalf("expected %q in %q", want, turn.Reply)
		}
	}
}

func TestAssistant_DirectoryQueriesWithoutDocuments(t *testing.T) {
	f := newFixture(t)
	if got := f.say(t, "opening hours?").Reply; got != msgUploadForHours {
		t.Fatalf("unexpected reply %q", got)
	}
	if got := f.say(t, "available services").Reply; got != msgUploadForServices {
		t.Fatalf("unexpected reply %q", got)
	}
	if got := f.say(t, "is there parking nearby?").Reply; got != msgUploadForAnswers {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestAssistant_UnavailableService(t *testing.T) {
	f := newFixture(t, sunrise())
	turn := f.say(t, "do you offer laser hair removal treatment")
	if turn.Reply != msgServiceUnavailable {
		t.Fatalf("unexpected reply %q", turn.Reply)
	}
	if len(f.llm.requests) != 0 {
		t.Fatal("the model must not be asked about unavailable services")
	}
}

func TestAssistant_DocumentAnswers(t *testing.T) {
	f := newFixture(t, sunrise())
	_ = f.retriever.Reindex(context.Background(), sampleChunks)

	turn := f.say(t, "Is parking available?")
	if turn.Route != RouteDocuments || turn.Reply != "Parking is free behind the clinic." {
		t.Fatalf("unexpected turn %+v", turn)
	}
	req := f.llm.requests[0]
	if !strings.Contains(req.System[0], "STRICT clinic information assistant") ||
		!strings.Contains(req.System[0], sampleChunks[0].Text) ||
		!strings.Contains(req.System[0], NoInformationAnswer) {
		t.Fatalf("unexpected system prompt: %s", req.System[0])
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "Is parking available?" {
		t.Fatalf("unexpected messages %#v", req.Messages)
	}

	// Nothing in the documents matches: the fixed answer, without a model call.
	turn = f.say(t, "Who won the cricket match?")
	if turn.Reply != NoInformationAnswer || len(f.llm.requests) != 1 {
		t.Fatalf("expected the no-information answer, got %q", turn.Reply)
	}

	f.llm.err = errBoom
	if got := f.say(t, "Is parking available on weekends?").Reply; got != msgAnswerFailed {
		t.Fatalf("unexpected reply on model failure %q", got)
	}
}

func TestAssistant_DirectorySwapCancelsBooking(t *testing.T) {
	f := newFixture(t, sunrise())
	f.say(t, "book")
	f.say(t, "dental checkup")

	f.registry.Replace(nil)
	turn := f.say(t, "16-06-2025")
	if turn.Stage != booking.Idle || !strings.Contains(turn.Reply, "clinic information was updated") {
		t.Fatalf("expected reset after directory change, got %+v", turn)
	}
}

// flakySessions fails writes of finished sessions, the way a Redis blip right
// after a confirmation would.
type flakySessions struct {
	booking.SessionStore
	failDelete bool
}

func (s *flakySessions) Save(ctx context.Context, conversationID string, sess booking.Session) error {
	if !sess.Active() {
		return errors.New("redis: connection reset by peer")
	}
	return s.SessionStore.Save(ctx, conversationID, sess)
}

func (s *flakySessions) Delete(ctx context.Context, conversationID string) error {
	if s.failDelete {
		return errors.New("redis: connection reset by peer")
	}
	return s.SessionStore.Delete(ctx, conversationID)
}

func advanceToConfirmation(t *testing.T, f *fixture) {
	t.Helper()
	for _, text := range []string{"book", "dental checkup", "16-06-2025", "2 PM", "Asha Rao", "asha@example.com", "9876543210"} {
		f.say(t, text)
	}
	s, _ := f.sessions.Load(context.Background(), "conv-1")
	if s.Stage != booking.AwaitingConfirmation {
		t.Fatalf("expected confirmation stage, got %s", s.Stage)
	}
}

func countBookings(t *testing.T, f *fixture) int {
	t.Helper()
	rows, err := f.repo.List(context.Background(), bookings.Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	return len(rows)
}

func TestAssistant_FailedSaveAfterConfirmationDoesNotRebook(t *testing.T) {
	for _, tc := range []struct {
		name       string
		failDelete bool
	}{
		{name: "delete succeeds"},
		{name: "delete fails", failDelete: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, sunrise())
			advanceToConfirmation(t, f)
			f.assistant.sessions = &flakySessions{SessionStore: f.sessions, failDelete: tc.failDelete}

			if turn := f.say(t, "yes"); turn.Booking == nil {
				t.Fatalf("expected a confirmed booking, got %+v", turn)
			}
			turn := f.say(t, "YES")
			if turn.Booking != nil || turn.Stage != booking.Idle {
				t.Fatalf("replayed confirmation was booked again: %+v", turn)
			}
			if n := countBookings(t, f); n != 1 {
				t.Fatalf("expected one booking, got %d", n)
			}
		})
	}
}

func TestAssistant_StaleSessionClearedOnceStoreRecovers(t *testing.T) {
	f := newFixture(t, sunrise())
	advanceToConfirmation(t, f)
	f.assistant.sessions = &flakySessions{SessionStore: f.sessions, failDelete: true}
	f.say(t, "yes")

	f.assistant.sessions = f.sessions
	if turn := f.say(t, "book"); turn.Stage != booking.AwaitingService {
		t.Fatalf("expected a fresh booking, got %+v", turn)
	}
	if turn := f.say(t, "dental checkup"); turn.Stage != booking.AwaitingDate {
		t.Fatalf("expected the new booking to continue, got %+v", turn)
	}
}

func TestAssistant_RejectsEmptyInput(t *testing.T) {
	f := newFixture(t)
	if _, err := f.assistant.Reply(context.Background(), "conv-1", "   "); err != ErrEmptyMessage {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := f.assistant.Reply(context.Background(), "", "hi"); err != ErrMissingConversationID {
		t.Fatalf("expected ErrMissingConversationID, got %v", err)
	}
}

func TestAssistant_ResetClearsEverything(t *testing.T) {
	f := newFixture(t, sunrise())
	f.say(t, "book")
	if err := f.assistant.Reset(context.Background(), "conv-1"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	s, _ := f.sessions.Load(context.Background(), "conv-1")
	if s.Active() {
		t.Fatal("expected the session to be cleared")
	}
	if h, _ := f.transcripts.History(context.Background(), "conv-1"); len(h) != 0 {
		t.Fatalf("expected empty transcript, got %d entries", len(h))
	}
}

func TestAssistant_SerializesTurnsPerConversation(t *testing.T) {
	f := newFixture(t, sunrise())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.assistant.Reply(context.Background(), "conv-1", "hi")
		}()
	}
	wg.Wait()

	h, _ := f.transcripts.History(context.Background(), "conv-1")
	if len(h) != 25 {
		t.Fatalf("expected capped transcript of 25, got %d", len(h))
	}
	for i := 1; i < len(h); i++ {
		if h[i].Role == h[i-1].Role {
			t.Fatalf("entries %d and %d share role %s: turns interleaved", i-1, i, h[i].Role)
		}
	}
}
