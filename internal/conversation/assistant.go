package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-booking-assistant/internal/booking"
	"github.com/wolfman30/clinic-booking-assistant/internal/bookings"
	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Service handles chat turns for the HTTP and websocket transports.
type Service interface {
	Reply(ctx context.Context, conversationID, text string) (Turn, error)
	History(ctx context.Context, conversationID string) ([]TranscriptEntry, error)
	Reset(ctx context.Context, conversationID string) error
}

// Turn is the result of one user utterance.
type Turn struct {
	ConversationID string            `json:"conversation_id"`
	Reply          string            `json:"reply"`
	Route          Route             `json:"route"`
	Stage          booking.Stage     `json:"stage"`
	Booking        *bookings.Booking `json:"booking,omitempty"`
}

// AssistantConfig holds the collaborators of an Assistant. Registry, Machine,
// Sessions and Transcripts are required.
type AssistantConfig struct {
	Registry    *clinic.Registry
	Machine     *booking.Machine
	Sessions    booking.SessionStore
	Transcripts TranscriptStore
	Retriever   *Retriever
	LLM         LLMClient
	Metrics     *metrics.AssistantMetrics
	Logger      *logging.Logger

	TopK        int
	Temperature float32
	MaxTokens   int32
	Now         func() time.Time
}

// Assistant routes each utterance to the booking flow, a directory answer or
// a document-grounded model answer.
type Assistant struct {
	registry    *clinic.Registry
	machine     *booking.Machine
	sessions    booking.SessionStore
	transcripts TranscriptStore
	retriever   *Retriever
	llm         LLMClient
	metrics     *metrics.AssistantMetrics
	logger      *logging.Logger
	topK        int
	temperature float32
	maxTokens   int32
	now         func() time.Time

	locks sync.Map // conversationID -> *sync.Mutex
	stale sync.Map // conversationID -> struct{}; stored session outlived its booking
}

var _ Service = (*Assistant)(nil)

func NewAssistant(cfg AssistantConfig) *Assistant {
	if cfg.Registry == nil {
		panic("conversation: clinic registry cannot be nil")
	}
	if cfg.Machine == nil {
		panic("conversation: booking machine cannot be nil")
	}
	if cfg.Sessions == nil {
		panic("conversation: session store cannot be nil")
	}
	if cfg.Transcripts == nil {
		panic("conversation: transcript store cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Assistant{
		registry:    cfg.Registry,
		machine:     cfg.Machine,
		sessions:    cfg.Sessions,
		transcripts: cfg.Transcripts,
		retriever:   cfg.Retriever,
		llm:         cfg.LLM,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		topK:        cfg.TopK,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		now:         cfg.Now,
	}
}

// Reply processes one utterance. Turns of the same conversation run one at a
// time; each turn works against a single directory snapshot.
func (a *Assistant) Reply(ctx context.Context, conversationID, text string) (Turn, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return Turn{}, ErrMissingConversationID
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyMessage
	}

	unlock := a.lock(conversationID)
	defer unlock()

	logger := a.logger.WithConversation(conversationID)
	dir := a.registry.Current()

	session, err := a.sessions.Load(ctx, conversationID)
	if err != nil {
		return Turn{}, fmt.Errorf("conversation: load booking session: %w", err)
	}
	if _, ok := a.stale.Load(conversationID); ok && session.Active() {
		logger.Warn("discarding booking session that could not be cleared", "stage", session.Stage.String())
		session = booking.NewSession()
	}
	userAt := a.now()

	next, out := a.route(ctx, logger, session, dir, text)
	a.persist(ctx, logger, conversationID, next)
	if err := a.transcripts.Append(ctx, conversationID,
		TranscriptEntry{ID: uuid.NewString(), Role: ChatRoleUser, Content: text, CreatedAt: userAt},
		TranscriptEntry{ID: uuid.NewString(), Role: ChatRoleAssistant, Content: out.text, CreatedAt: a.now()},
	); err != nil {
		logger.Warn("failed to append transcript", "error", err)
	}
	a.metrics.ObserveTurn(string(out.route))

	logger.Debug("turn handled", "route", string(out.route), "stage", next.Stage.String())
	return Turn{
		ConversationID: conversationID,
		Reply:          out.text,
		Route:          out.route,
		Stage:          next.Stage,
		Booking:        out.booking,
	}, nil
}

type routed struct {
	text    string
	route   Route
	booking *bookings.Booking
}

func (a *Assistant) route(ctx context.Context, logger *logging.Logger, session booking.Session, dir *clinic.Directory, text string) (booking.Session, routed) {
	// An active booking owns every turn until it completes or is cancelled.
	if session.Active() {
		next, reply := a.machine.Step(ctx, session, dir, text)
		return next, routed{text: reply.Text, route: RouteBooking, booking: reply.Booking}
	}

	lower := strings.ToLower(text)
	switch {
	case isGreeting(lower):
		return session, routed{text: msgGreeting, route: RouteGreeting}

	case booking.IsCancel(lower):
		return session, routed{text: msgNothingToCancel, route: RouteNothingToCancel}

	case isBookingIntent(lower):
		next, reply := a.machine.Start(dir)
		return next, routed{text: reply.Text, route: RouteBookingStart}

	case isWorkingHoursQuery(lower):
		if dir.Empty() {
			return session, routed{text: msgUploadForHours, route: RouteWorkingHours}
		}
		return session, routed{text: clinic.FormatWorkingHours(clinicsFor(dir, text)), route: RouteWorkingHours}

	case isServiceListQuery(lower):
		if dir.Empty() {
			return session, routed{text: msgUploadForServices, route: RouteServiceList}
		}
		return session, routed{text: clinic.FormatServices(clinicsFor(dir, text)), route: RouteServiceList}

	case looksLikeServiceQuery(lower) && !dir.HasExactService(text):
		return session, routed{text: msgServiceUnavailable, route: RouteServiceUnavailable}
	}

	return session, routed{text: a.answerFromDocuments(ctx, logger, text), route: RouteDocuments}
}

// clinicsFor narrows the directory to the clinic named in text, if any.
func clinicsFor(dir *clinic.Directory, text string) []clinic.Record {
	if c, ok := dir.ClinicMentionedIn(text); ok {
		return []clinic.Record{c}
	}
	return dir.Clinics()
}

func (a *Assistant) answerFromDocuments(ctx context.Context, logger *logging.Logger, question string) string {
	if a.retriever == nil || !a.retriever.Ready() {
		return msgUploadForAnswers
	}
	docContext := a.retriever.RetrieveContext(ctx, question, a.topK)
	if strings.TrimSpace(docContext) == "" {
		return NoInformationAnswer
	}
	if a.llm == nil {
		logger.Error("no language model configured for document answers")
		return msgAnswerFailed
	}

	resp, err := a.llm.Complete(ctx, LLMRequest{
		System:      []string{strictSystemPrompt(docContext)},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: question}},
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		logger.Error("document answer failed", "error", err)
		return msgAnswerFailed
	}
	if resp.Text == "" {
		return NoInformationAnswer
	}
	return resp.Text
}

// History returns the stored transcript.
func (a *Assistant) History(ctx context.Context, conversationID string) ([]TranscriptEntry, error) {
	return a.transcripts.History(ctx, conversationID)
}

// Reset clears the transcript and abandons any booking in progress.
func (a *Assistant) Reset(ctx context.Context, conversationID string) error {
	unlock := a.lock(conversationID)
	defer unlock()

	if err := a.transcripts.Clear(ctx, conversationID); err != nil {
		return err
	}
	if err := a.sessions.Delete(ctx, conversationID); err != nil {
		return err
	}
	a.stale.Delete(conversationID)
	return nil
}

// persist stores next. When the save fails after a booking finished or was
// abandoned, the stored session is deleted instead; if that fails too the
// conversation is marked stale so a replayed confirmation cannot book twice.
func (a *Assistant) persist(ctx context.Context, logger *logging.Logger, conversationID string, next booking.Session) {
	err := a.sessions.Save(ctx, conversationID, next)
	if err == nil {
		a.stale.Delete(conversationID)
		return
	}
	logger.Error("failed to save booking session", "stage", next.Stage.String(), "error", err)
	if next.Active() {
		return
	}
	if err := a.sessions.Delete(ctx, conversationID); err != nil {
		a.stale.Store(conversationID, struct{}{})
		logger.Error("failed to clear booking session", "error", err)
		return
	}
	a.stale.Delete(conversationID)
}

func (a *Assistant) lock(conversationID string) func() {
	v, _ := a.locks.LoadOrStore(conversationID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
