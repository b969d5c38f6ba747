package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/school-backend/internal/platform/logger"
	"github.com/yungbote/school-backend/internal/realtime"
)

var ErrConnectionLost = errors.New("connection lost")

var (
	errGenerationComplete = errors.New("generation complete")
	errSettledOnOpen      = errors.New("settled on open")
)

type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, courseID uuid.UUID) (Snapshot, error)
}

// EventSource delivers a course's events to fn until ctx ends, the stream
// closes, or fn returns an error. opened runs once the subscription is live
// and before the first event; an error from opened or fn is returned
// unchanged.
type EventSource interface {
	StreamEvents(ctx context.Context, courseID uuid.UUID, opened func() error, fn func(Event) error) error
}

// Reconciler merges a course snapshot with its live event feed into one
// View. Only the session started by the latest Init may change the view.
type Reconciler struct {
	log      *logger.Logger
	fetcher  SnapshotFetcher
	events   EventSource
	onChange func(View)

	mu   sync.Mutex
	sess *session
	view View
}

type session struct {
	courseID uuid.UUID
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
}

func (s *session) end() {
	s.once.Do(func() { close(s.done) })
}

// New builds a reconciler. onChange, when set, receives a copy of the view
// after every accepted change.
func New(baseLog *logger.Logger, fetcher SnapshotFetcher, events EventSource, onChange func(View)) *Reconciler {
	return &Reconciler{
		log:      baseLog.With("component", "Reconciler"),
		fetcher:  fetcher,
		events:   events,
		onChange: onChange,
		view:     View{Phase: PhaseUninitialized},
	}
}

// Init abandons any previous session and starts one for courseID. The
// snapshot is fetched before Init returns; the feed, if any, runs in the
// background until the session completes or ctx ends. The hub does not replay
// events, so the course is read again once the feed is open to catch a
// completion that fell between the two.
func (r *Reconciler) Init(ctx context.Context, courseID uuid.UUID) error {
	sess := r.start(ctx, courseID)

	snap, err := r.fetcher.FetchSnapshot(sess.ctx, courseID)
	if err != nil {
		r.update(sess, func(v *View) {
			v.Phase = PhaseComplete
			v.Err = err.Error()
		})
		sess.end()
		return fmt.Errorf("fetch course %s: %w", courseID, err)
	}

	live := shouldStream(snap)
	ok := r.update(sess, func(v *View) {
		applySnapshot(v, snap)
		if live {
			v.Phase = PhaseStreaming
		} else {
			v.Phase = PhaseComplete
		}
	})
	if !ok || !live {
		sess.end()
		return nil
	}
	go r.stream(sess)
	return nil
}

func (r *Reconciler) start(ctx context.Context, courseID uuid.UUID) *session {
	sctx, cancel := context.WithCancel(ctx)
	sess := &session{courseID: courseID, ctx: sctx, cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	prev := r.sess
	r.sess = sess
	r.view = View{CourseID: courseID, Phase: PhaseLoading}
	v := r.view.clone()
	r.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}
	r.notify(v)
	return sess
}

func (r *Reconciler) stream(sess *session) {
	defer sess.end()
	opened := func() error { return r.confirm(sess) }
	err := r.events.StreamEvents(sess.ctx, sess.courseID, opened, func(ev Event) error {
		if ev.Name == realtime.SSEEventGenerationComplete {
			return errGenerationComplete
		}
		if !r.update(sess, func(v *View) { applyEvent(v, ev) }) {
			return context.Canceled
		}
		return nil
	})
	if errors.Is(err, errSettledOnOpen) {
		return
	}
	finished := errors.Is(err, errGenerationComplete)
	if !finished && sess.ctx.Err() != nil {
		return
	}
	if err != nil && !finished {
		r.log.Warn("Event feed dropped", "course_id", sess.courseID, "error", err)
	}
	r.settle(sess)
}

// confirm re-reads the course after the feed opens. If generation already
// ended the session completes without waiting for events that will never
// come. A failed read keeps the feed running.
func (r *Reconciler) confirm(sess *session) error {
	snap, err := r.fetcher.FetchSnapshot(sess.ctx, sess.courseID)
	if err != nil {
		if sess.ctx.Err() != nil {
			return sess.ctx.Err()
		}
		r.log.Warn("Snapshot re-read failed", "course_id", sess.courseID, "error", err)
		return nil
	}
	live := shouldStream(snap)
	if !r.update(sess, func(v *View) {
		applySnapshot(v, snap)
		if !live {
			v.Phase = PhaseComplete
		}
	}) {
		return context.Canceled
	}
	if !live {
		return errSettledOnOpen
	}
	return nil
}

// settle re-reads the course once the feed is over. A failed read still
// completes the session so nothing waits on it forever.
func (r *Reconciler) settle(sess *session) {
	snap, err := r.fetcher.FetchSnapshot(sess.ctx, sess.courseID)
	r.update(sess, func(v *View) {
		if err != nil {
			v.Err = ErrConnectionLost.Error()
		} else {
			applySnapshot(v, snap)
		}
		v.Phase = PhaseComplete
	})
}

// update applies fn to the view if sess is still current.
func (r *Reconciler) update(sess *session, fn func(*View)) bool {
	r.mu.Lock()
	if r.sess != sess || sess.ctx.Err() != nil {
		r.mu.Unlock()
		return false
	}
	fn(&r.view)
	v := r.view.clone()
	r.mu.Unlock()
	r.notify(v)
	return true
}

func (r *Reconciler) notify(v View) {
	if r.onChange != nil {
		r.onChange(v)
	}
}

func (r *Reconciler) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view.clone()
}

// Done is closed when the current session completes or is abandoned.
func (r *Reconciler) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sess == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return r.sess.done
}

// Close abandons the current session.
func (r *Reconciler) Close() {
	r.mu.Lock()
	sess := r.sess
	r.mu.Unlock()
	if sess != nil {
		sess.cancel()
	}
}
