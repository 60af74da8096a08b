// Package journal holds the application state of the trading journal and
// implements the trade lifecycle on top of the trade store.
package journal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mindful-trader/internal/backup"
	"mindful-trader/internal/coach"
	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/logging"
	"mindful-trader/internal/models"
	"mindful-trader/internal/stats"
	"mindful-trader/internal/store"
)

// Options configures a Journal. Zero values select defaults.
type Options struct {
	DailyTradeLimit int
	Now             func() time.Time
	NewID           func() string
	// NewSession starts a coaching chat; nil disables chat.
	NewSession func() *coach.Session
	Logger     zerolog.Logger
}

// Journal is the single owner of mutable application state: the trade
// collection, the selected date, in-flight analyses and the chat session.
//
// Mutating methods return the resulting trade. Their error is either a
// refusal (nothing changed) or a *errors.StorageError warning (memory changed,
// persistence lagged); use errors.IsWarning to tell them apart.
type Journal struct {
	store    *store.TradeStore
	analyzer coach.Analyzer
	limit    int
	now      func() time.Time
	newID    func() string
	chat     func() *coach.Session
	logger   zerolog.Logger

	// write serialises read-modify-write sequences on the store.
	write sync.Mutex

	mu       sync.Mutex
	selected string
	busy     map[string]bool
	session  *coach.Session
}

// New creates a journal over s. analyzer may be nil, in which case analysis
// always yields the fallback review.
func New(s *store.TradeStore, analyzer coach.Analyzer, opts Options) *Journal {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.DailyTradeLimit == 0 {
		opts.DailyTradeLimit = stats.DefaultDailyTradeLimit
	}

	j := &Journal{
		store:    s,
		analyzer: analyzer,
		limit:    opts.DailyTradeLimit,
		now:      opts.Now,
		newID:    opts.NewID,
		chat:     opts.NewSession,
		logger:   opts.Logger.With().Str("component", "journal").Logger(),
		busy:     make(map[string]bool),
	}
	j.selected = j.today()
	if j.chat != nil {
		j.session = j.chat()
	}
	return j
}

func (j *Journal) today() string {
	return j.now().Format(models.DateLayout)
}

// Create stores a new trade built from draft, assigning its id and creation
// time. An empty date defaults to the selected date. A closed draft must
// carry an exit price; its pnl is recomputed.
func (j *Journal) Create(ctx context.Context, draft models.Trade) (models.Trade, error) {
	t := draft.Clone()
	t.ID = j.newID()
	t.Timestamp = j.now().UnixMilli()
	if t.Date == "" {
		t.Date = j.SelectedDate()
	}
	if t.Status == "" {
		t.Status = models.StatusOpen
	}

	switch {
	case t.IsClosed() && t.ExitPrice == nil:
		return models.Trade{}, apperrors.ErrExitPriceRequired
	case t.IsClosed():
		t.PnLPoints = models.Float(models.PnLPoints(t.EntryPrice, *t.ExitPrice, t.Direction))
	default:
		t.ExitPrice = nil
		t.ExitCandleNumber = ""
		t.PnLPoints = nil
	}

	err := j.store.Add(ctx, t)
	logging.LogTradeEvent(j.logger, "created", t.ID, t.Date)
	return t, err
}

// modify applies fn to the current version of trade id and stores the result.
func (j *Journal) modify(ctx context.Context, id, event string, fn func(models.Trade) (models.Trade, error)) (models.Trade, error) {
	j.write.Lock()
	defer j.write.Unlock()

	current, ok := j.store.Get(id)
	if !ok {
		return models.Trade{}, apperrors.ErrTradeNotFound
	}
	updated, err := fn(current)
	if err != nil {
		return current, err
	}
	err = j.store.Update(ctx, updated)
	logging.LogTradeEvent(j.logger, event, id, updated.Date)
	return updated, err
}

// Close records the exit of trade id.
func (j *Journal) Close(ctx context.Context, id string, exitPrice *float64, exitCandle, notes string) (models.Trade, error) {
	return j.modify(ctx, id, "closed", func(t models.Trade) (models.Trade, error) {
		return Close(t, exitPrice, exitCandle, notes)
	})
}

// Edit applies a partial update to trade id.
func (j *Journal) Edit(ctx context.Context, id string, e Edit) (models.Trade, error) {
	return j.modify(ctx, id, "edited", func(t models.Trade) (models.Trade, error) {
		return ApplyEdit(t, e)
	})
}

// SetNotes replaces the notes of trade id.
func (j *Journal) SetNotes(ctx context.Context, id, notes string) (models.Trade, error) {
	return j.modify(ctx, id, "noted", func(t models.Trade) (models.Trade, error) {
		return SetNotes(t, notes), nil
	})
}

// AttachFeedback stores a review on trade id.
func (j *Journal) AttachFeedback(ctx context.Context, id, feedback string, score int) (models.Trade, error) {
	return j.modify(ctx, id, "reviewed", func(t models.Trade) (models.Trade, error) {
		return AttachFeedback(t, feedback, coach.ClampScore(score)), nil
	})
}

// Delete removes trade id. Confirmation is the caller's responsibility.
func (j *Journal) Delete(ctx context.Context, id string) error {
	j.write.Lock()
	defer j.write.Unlock()

	t, ok := j.store.Get(id)
	if !ok {
		return apperrors.ErrTradeNotFound
	}
	err := j.store.Remove(ctx, id)
	logging.LogTradeEvent(j.logger, "deleted", id, t.Date)
	return err
}

// Analyze sends a snapshot of trade id to the coach and attaches the review
// to the trade's current version, so edits made while waiting survive.
// A failed analysis attaches the fallback review with score 0 and is not
// returned as an error. A second Analyze of the same trade while one is in
// flight fails with errors.ErrTradeBusy.
func (j *Journal) Analyze(ctx context.Context, id string) (models.Trade, error) {
	j.mu.Lock()
	if j.busy[id] {
		j.mu.Unlock()
		return models.Trade{}, apperrors.ErrTradeBusy
	}
	snapshot, ok := j.store.Get(id)
	if !ok {
		j.mu.Unlock()
		return models.Trade{}, apperrors.ErrTradeNotFound
	}
	j.busy[id] = true
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		delete(j.busy, id)
		j.mu.Unlock()
	}()

	log := logging.WithTradeID(j.logger, id)
	var (
		fb  coach.Feedback
		err error
	)
	if j.analyzer == nil {
		err = apperrors.ErrMissingAPIKey
	} else {
		fb, err = j.analyzer.Analyze(ctx, snapshot)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Analysis failed, attaching fallback review")
		fb = coach.Fallback(err)
	}

	return j.AttachFeedback(ctx, id, fb.Text, fb.Score)
}

// Analyzing reports whether an analysis of trade id is in flight.
func (j *Journal) Analyzing(id string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.busy[id]
}

// Trade returns trade id.
func (j *Journal) Trade(id string) (models.Trade, error) {
	t, ok := j.store.Get(id)
	if !ok {
		return models.Trade{}, apperrors.ErrTradeNotFound
	}
	return t, nil
}

// All returns every trade, newest first.
func (j *Journal) All() []models.Trade {
	return j.store.All()
}

// Trades returns the trades of the selected date, newest first.
func (j *Journal) Trades() []models.Trade {
	return stats.ForDate(j.store.All(), j.SelectedDate())
}

// Daily summarises the selected date.
func (j *Journal) Daily() models.DailyStats {
	return stats.Daily(j.store.All(), j.SelectedDate(), j.limit)
}

// AllTime returns realized pnl across every date.
func (j *Journal) AllTime() float64 {
	return stats.AllTime(j.store.All())
}

// DailyTradeLimit returns the overtrading threshold.
func (j *Journal) DailyTradeLimit() int { return j.limit }

// SelectDate changes the date the daily views refer to.
func (j *Journal) SelectDate(date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return apperrors.NewValidationError("date", date, "must be YYYY-MM-DD")
	}
	j.mu.Lock()
	j.selected = date
	j.mu.Unlock()
	return nil
}

// SelectedDate returns the date the daily views refer to.
func (j *Journal) SelectedDate() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.selected
}

// ApplyImport replaces the collection with trades, already validated by
// backup.Import, and selects the most recent imported date. Confirmation is
// the caller's responsibility.
func (j *Journal) ApplyImport(ctx context.Context, trades []models.Trade) error {
	j.write.Lock()
	defer j.write.Unlock()

	err := j.store.ReplaceAll(ctx, trades)
	if latest := backup.LatestDate(trades); latest != "" {
		j.mu.Lock()
		j.selected = latest
		j.mu.Unlock()
	}
	j.logger.Info().Int("count", len(trades)).Msg("Trades imported")
	return err
}

// Reset clears persisted and in-memory state: trades, selected date and the
// chat session. Confirmation is the caller's responsibility.
func (j *Journal) Reset(ctx context.Context) error {
	j.write.Lock()
	defer j.write.Unlock()

	err := j.store.Clear(ctx)

	j.mu.Lock()
	j.selected = j.today()
	j.session = nil
	if j.chat != nil {
		j.session = j.chat()
	}
	j.mu.Unlock()

	j.logger.Info().Msg("Journal reset")
	return err
}

// Chat sends text to the current coaching session. See coach.Session.Send.
func (j *Journal) Chat(ctx context.Context, text string) (models.ChatMessage, error) {
	j.mu.Lock()
	s := j.session
	j.mu.Unlock()
	if s == nil {
		return models.ChatMessage{}, apperrors.ErrMissingAPIKey
	}
	return s.Send(ctx, text)
}

// ChatHistory returns the messages of the current session.
func (j *Journal) ChatHistory() []models.ChatMessage {
	j.mu.Lock()
	s := j.session
	j.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Messages()
}

// NewChatSession starts a fresh conversation independent of the journal's own
// session, or returns nil when chat is disabled.
func (j *Journal) NewChatSession() *coach.Session {
	if j.chat == nil {
		return nil
	}
	return j.chat()
}
