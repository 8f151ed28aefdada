package app

import (
	"sync"
	"time"

	"scripture-quiz-service/internal/domain"
)

// State is a quiz session lifecycle state.
type State string

const (
	StateConfiguring    State = "configuring"
	StateActive         State = "active"
	StateAwaitingAnswer State = "awaiting_answer"
	StateScored         State = "scored"
	StateCompleted      State = "completed"
)

// answering reports whether the countdown runs and a choice may be recorded.
func (s State) answering() bool {
	return s == StateActive || s == StateAwaitingAnswer
}

// EventType classifies session notifications.
type EventType string

const (
	EventState     EventType = "state"
	EventQuestion  EventType = "question"
	EventTick      EventType = "tick"
	EventChoice    EventType = "choice"
	EventHint      EventType = "hint"
	EventScored    EventType = "scored"
	EventCompleted EventType = "completed"
)

// Event is pushed to subscribers after every state change.
type Event struct {
	Type     EventType `json:"type"`
	Snapshot Snapshot  `json:"snapshot"`
}

// QuestionView is the presentation-safe view of the active question. The correct
// answer and explanation are only filled once the question has been scored.
type QuestionView struct {
	ID            int               `json:"id"`
	Prompt        string            `json:"question"`
	Choices       []string          `json:"choices"`
	Reference     string            `json:"reference"`
	Difficulty    domain.Difficulty `json:"difficulty"`
	Topic         string            `json:"topic"`
	Points        int               `json:"points"`
	TimeBudget    int               `json:"timer"`
	Hints         []string          `json:"hints"`
	CorrectAnswer string            `json:"correctAnswer,omitempty"`
	Explanation   string            `json:"explanation,omitempty"`
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	SessionID      string               `json:"sessionId"`
	UserID         string               `json:"userId"`
	State          State                `json:"state"`
	Index          int                  `json:"index"`
	Total          int                  `json:"total"`
	Score          int                  `json:"score"`
	TimeRemaining  int                  `json:"timeRemaining"`
	HintsUsed      int                  `json:"hintsUsed"`
	HintsRemaining int                  `json:"hintsRemaining"`
	Choice         string               `json:"choice,omitempty"`
	Question       *QuestionView        `json:"question,omitempty"`
	LastAnswer     *domain.AnswerRecord `json:"lastAnswer,omitempty"`
	Fallback       string               `json:"fallback,omitempty"`
}

// Summary is what the aggregator needs from a finished session.
type Summary struct {
	Config      domain.SessionConfig
	Score       int
	Total       int
	Answers     []domain.AnswerRecord
	StartedAt   time.Time
	CompletedAt time.Time
}

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithSessionClock replaces time.Now.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithTicker replaces the wall-clock ticker used by the countdown.
func WithTicker(factory TickerFactory) SessionOption {
	return func(s *Session) { s.newTicker = factory }
}

// WithProgressSink receives a snapshot after every scoring-relevant change.
func WithProgressSink(sink func(domain.Progress)) SessionOption {
	return func(s *Session) { s.onProgress = sink }
}

// WithFallbackNotice records why the fallback question set is in use.
func WithFallbackNotice(err error) SessionOption {
	return func(s *Session) { s.fallback = err }
}

// StreakBonus is the in-session position bonus for a correct answer at index.
func StreakBonus(index int) int {
	return index / 5 * 5
}

// Session is a single-user quiz run. All mutation happens under mu; the countdown
// goroutine re-enters through tick and is fenced off by gen.
type Session struct {
	id        string
	userID    string
	cfg       domain.SessionConfig
	questions []domain.Question
	fallback  error

	now        func() time.Time
	newTicker  TickerFactory
	onProgress func(domain.Progress)

	// saveMu orders progress writes; completion takes it to fence in-flight writes.
	saveMu   sync.Mutex
	savedRev uint64

	mu            sync.Mutex
	rev           uint64
	state         State
	index         int
	score         int
	timeRemaining int
	hintsUsed     int
	choice        string
	hasChoice     bool
	answers       []domain.AnswerRecord
	startedAt     time.Time
	completedAt   time.Time
	timer         *countdown
	gen           uint64
	closed        bool
	subscribers   map[chan Event]struct{}
}

// NewSession builds a session in the configuring state over an already selected,
// already shuffled question list.
func NewSession(id, userID string, cfg domain.SessionConfig, questions []domain.Question, opts ...SessionOption) *Session {
	s := &Session{
		id:          id,
		userID:      userID,
		cfg:         cfg,
		questions:   questions,
		now:         time.Now,
		newTicker:   NewWallTicker,
		state:       StateConfiguring,
		subscribers: make(map[chan Event]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// UserID returns the owning user.
func (s *Session) UserID() string { return s.userID }

// Begin moves a configuring session to active(0) and starts the countdown.
func (s *Session) Begin() (Snapshot, error) {
	s.mu.Lock()
	if s.state != StateConfiguring {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, domain.ErrInvalidTransition
	}
	s.startedAt = s.now()
	if len(s.questions) == 0 {
		s.completeLocked()
	} else {
		s.activateLocked(0)
	}
	snap := s.snapshotLocked()
	progress := s.progressLocked()
	s.mu.Unlock()

	s.saveProgress(progress)
	return snap, nil
}

// Restore rebuilds a configuring session from a saved snapshot. The question list
// must already be in the snapshot's order.
func (s *Session) Restore(p domain.Progress) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConfiguring || p.Index < 0 || p.Index >= len(s.questions) {
		return s.snapshotLocked(), domain.ErrInvalidTransition
	}

	s.startedAt = p.StartTime
	s.score = p.Score
	s.answers = append([]domain.AnswerRecord(nil), p.Answers...)
	s.index = p.Index

	if p.Scored {
		s.hintsUsed = p.HintsUsed
		s.timeRemaining = p.TimeRemaining
		if n := len(s.answers); n > 0 {
			s.choice = s.answers[n-1].UserAnswer
			s.hasChoice = s.choice != ""
		}
		s.state = StateScored
		s.broadcastLocked(EventState)
		return s.snapshotLocked(), nil
	}

	s.activateLocked(p.Index)
	s.hintsUsed = min(p.HintsUsed, domain.MaxHints)
	if p.TimeRemaining > 0 && p.TimeRemaining < s.timeRemaining {
		s.timeRemaining = p.TimeRemaining
	}
	return s.snapshotLocked(), nil
}

// SelectChoice records the tentative answer; the last call wins.
func (s *Session) SelectChoice(value string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.answering() {
		return s.snapshotLocked(), domain.ErrInvalidTransition
	}
	s.choice = value
	s.hasChoice = true
	s.state = StateAwaitingAnswer
	s.broadcastLocked(EventChoice)
	return s.snapshotLocked(), nil
}

// SubmitAnswer scores the tentative choice. Without a choice, or once the question
// has been scored, it is a no-op returning ErrInvalidTransition.
func (s *Session) SubmitAnswer() (domain.AnswerRecord, error) {
	s.mu.Lock()
	if s.state != StateAwaitingAnswer {
		s.mu.Unlock()
		return domain.AnswerRecord{}, domain.ErrInvalidTransition
	}
	record := s.scoreLocked()
	progress := s.progressLocked()
	s.mu.Unlock()

	s.saveProgress(progress)
	return record, nil
}

// UseHint reveals the next hint and deducts the hint penalty.
func (s *Session) UseHint() (string, error) {
	s.mu.Lock()
	if !s.state.answering() {
		s.mu.Unlock()
		return "", domain.ErrInvalidTransition
	}
	q := s.questions[s.index]
	if s.hintsUsed >= domain.MaxHints || s.hintsUsed >= len(q.Hints) {
		s.mu.Unlock()
		return "", domain.ErrInvalidTransition
	}
	hint := q.Hints[s.hintsUsed]
	s.hintsUsed++
	s.score -= domain.HintPenalty
	s.broadcastLocked(EventHint)
	progress := s.progressLocked()
	s.mu.Unlock()

	s.saveProgress(progress)
	return hint, nil
}

// Advance moves a scored session to the next question or to completed.
func (s *Session) Advance() (Snapshot, error) {
	s.mu.Lock()
	if s.state != StateScored {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, domain.ErrInvalidTransition
	}
	if s.index+1 >= len(s.questions) {
		s.completeLocked()
		snap := s.snapshotLocked()
		s.mu.Unlock()

		s.fenceProgress()
		return snap, nil
	}
	s.activateLocked(s.index + 1)
	snap := s.snapshotLocked()
	progress := s.progressLocked()
	s.mu.Unlock()

	s.saveProgress(progress)
	return snap, nil
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Summary returns the aggregation input; meaningful once completed.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		Config:      s.cfg,
		Score:       s.score,
		Total:       len(s.questions),
		Answers:     append([]domain.AnswerRecord(nil), s.answers...),
		StartedAt:   s.startedAt,
		CompletedAt: s.completedAt,
	}
}

// Subscribe returns a channel of session events. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.mu.Lock()
	// the buffer is empty, so the initial state is queued ahead of any broadcast
	ch <- Event{Type: EventState, Snapshot: s.snapshotLocked()}
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close stops the countdown and releases subscribers. The session keeps its state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// tick is the countdown callback. It returns false once the countdown should end.
func (s *Session) tick(gen uint64) bool {
	s.mu.Lock()
	if gen != s.gen || !s.state.answering() {
		s.mu.Unlock()
		return false
	}
	s.timeRemaining--
	if s.timeRemaining > 0 {
		s.broadcastLocked(EventTick)
		s.mu.Unlock()
		return true
	}
	s.timeRemaining = 0
	s.scoreLocked()
	progress := s.progressLocked()
	s.mu.Unlock()

	s.saveProgress(progress)
	return false
}

func (s *Session) activateLocked(index int) {
	s.stopTimerLocked()
	s.index = index
	s.hintsUsed = 0
	s.choice = ""
	s.hasChoice = false
	s.timeRemaining = s.questions[index].TimeBudget()
	s.state = StateActive

	s.gen++
	gen := s.gen
	s.timer = startCountdown(s.newTicker, func() bool { return s.tick(gen) })
	s.broadcastLocked(EventQuestion)
}

func (s *Session) scoreLocked() domain.AnswerRecord {
	q := s.questions[s.index]
	correct := s.hasChoice && s.choice == q.CorrectAnswer
	if correct {
		s.score += q.Points + StreakBonus(s.index)
	} else {
		s.score -= q.NegativePoints
	}

	spent := q.TimeBudget() - s.timeRemaining
	if spent < 0 {
		spent = 0
	}
	record := domain.AnswerRecord{
		QuestionID: q.ID,
		UserAnswer: s.choice,
		IsCorrect:  correct,
		TimeSpent:  spent,
	}
	s.answers = append(s.answers, record)
	s.stopTimerLocked()
	s.state = StateScored
	s.broadcastLocked(EventScored)
	return record
}

func (s *Session) completeLocked() {
	s.stopTimerLocked()
	s.state = StateCompleted
	s.completedAt = s.now()
	s.broadcastLocked(EventCompleted)
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.stop()
		s.timer = nil
	}
	s.gen++
}

// pendingProgress is a snapshot captured under mu, ordered by rev.
type pendingProgress struct {
	progress domain.Progress
	rev      uint64
}

// saveProgress hands p to the sink unless a newer snapshot was already written or the
// session completed after p was captured.
func (s *Session) saveProgress(p *pendingProgress) {
	if p == nil || s.onProgress == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if p.rev <= s.savedRev {
		return
	}
	s.mu.Lock()
	completed := s.state == StateCompleted
	s.mu.Unlock()
	if completed {
		return
	}
	s.savedRev = p.rev
	s.onProgress(p.progress)
}

// fenceProgress waits for an in-flight progress write to finish.
func (s *Session) fenceProgress() {
	s.saveMu.Lock()
	s.saveMu.Unlock()
}

func (s *Session) progressLocked() *pendingProgress {
	if s.state == StateCompleted || s.state == StateConfiguring {
		return nil
	}
	s.rev++
	ids := make([]int, len(s.questions))
	for i, q := range s.questions {
		ids[i] = q.ID
	}
	return &pendingProgress{rev: s.rev, progress: domain.Progress{
		Config:        s.cfg,
		QuestionIDs:   ids,
		Index:         s.index,
		Score:         s.score,
		Answers:       append([]domain.AnswerRecord(nil), s.answers...),
		TimeRemaining: s.timeRemaining,
		HintsUsed:     s.hintsUsed,
		StartTime:     s.startedAt,
		Scored:        s.state == StateScored,
		Fallback:      s.fallback != nil,
	}}
}

func (s *Session) broadcastLocked(typ EventType) {
	if len(s.subscribers) == 0 {
		return
	}
	ev := Event{Type: typ, Snapshot: s.snapshotLocked()}
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// slow consumer: drop its oldest event
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:     s.id,
		UserID:        s.userID,
		State:         s.state,
		Index:         s.index,
		Total:         len(s.questions),
		Score:         s.score,
		TimeRemaining: s.timeRemaining,
		HintsUsed:     s.hintsUsed,
		Choice:        s.choice,
	}
	if s.fallback != nil {
		snap.Fallback = s.fallback.Error()
	}
	if len(s.answers) > 0 {
		last := s.answers[len(s.answers)-1]
		snap.LastAnswer = &last
	}
	if s.state == StateConfiguring || s.index >= len(s.questions) {
		return snap
	}

	q := s.questions[s.index]
	snap.HintsRemaining = min(domain.MaxHints, len(q.Hints)) - s.hintsUsed
	if snap.HintsRemaining < 0 {
		snap.HintsRemaining = 0
	}
	view := &QuestionView{
		ID:         q.ID,
		Prompt:     q.Prompt,
		Choices:    append([]string(nil), q.Choices...),
		Reference:  q.Reference,
		Difficulty: q.Difficulty,
		Topic:      q.Topic,
		Points:     q.Points,
		TimeBudget: q.TimeBudget(),
		Hints:      append([]string{}, q.Hints[:min(s.hintsUsed, len(q.Hints))]...),
	}
	if s.state == StateScored || s.state == StateCompleted {
		view.CorrectAnswer = q.CorrectAnswer
		if s.choice != q.CorrectAnswer {
			view.Explanation = q.Explanations[s.choice]
		}
	}
	snap.Question = view
	return snap
}
