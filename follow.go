package logrotate

import (
	"errors"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ListenerID identifies one TailFollow subscription. It is the only handle
// that removes the subscription, so identical callbacks registered twice are
// still removed one at a time.
type ListenerID string

// FollowOptions configures a TailFollow subscription.
type FollowOptions struct {
	// File is the path to follow (required)
	File string
	// OnData receives output chunks of the shared follow process (required).
	// Every subscriber of a file receives the same slice; it must not be
	// modified. OnData may call StopTailFollowing for its own id.
	OnData func([]byte)
	// OnClose receives the exit code if the follow process ends on its own
	OnClose func(exitCode int)
	// OnRegistration is called exactly once with either an error (file
	// missing) or the new listener id
	OnRegistration func(err error, file string, id ListenerID)
	// Lines is the number of trailing lines the follow process starts with,
	// DefaultReadLines when zero and none when NoLines. It only applies when the call starts a new
	// process; later subscribers join the existing output.
	Lines int
}

func (o *FollowOptions) validate() error {
	if o.File == "" {
		return &ConfigError{Field: "file", Reason: "is required"}
	}
	if o.OnData == nil {
		return &ConfigError{Field: "onData", Reason: "is required"}
	}
	switch {
	case o.Lines == NoLines:
		o.Lines = 0
	case o.Lines < 0:
		return &ConfigError{Field: "lines", Reason: "must not be negative"}
	case o.Lines == 0:
		o.Lines = DefaultReadLines
	}
	return nil
}

type listener struct {
	onData  func([]byte)
	onClose func(int)
}

// tailSession is one follow process and its subscribers. The manager keeps
// a session in its registry exactly while it has subscribers.
type tailSession struct {
	file   string
	stream Stream

	mu        sync.Mutex
	order     []ListenerID
	listeners map[ListenerID]listener
	closed    bool
}

func newTailSession(file string, stream Stream) *tailSession {
	return &tailSession{
		file:      file,
		stream:    stream,
		listeners: make(map[ListenerID]listener),
	}
}

func (s *tailSession) add(id ListenerID, l listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, id)
	s.listeners[id] = l
}

// remove deletes id and reports whether it was present and whether the
// session is now empty.
func (s *tailSession) remove(id ListenerID) (removed, empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listeners[id]; !ok {
		return false, len(s.listeners) == 0
	}
	delete(s.listeners, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, len(s.listeners) == 0
}

func (s *tailSession) has(id ListenerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.listeners[id]
	return ok && !s.closed
}

func (s *tailSession) ids() []ListenerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ListenerID, len(s.order))
	copy(out, s.order)
	return out
}

func (s *tailSession) snapshot() ([]ListenerID, []listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil
	}
	ids := make([]ListenerID, len(s.order))
	ls := make([]listener, len(s.order))
	for i, id := range s.order {
		ids[i] = id
		ls[i] = s.listeners[id]
	}
	return ids, ls
}

// close detaches every subscriber and returns them in registration order.
func (s *tailSession) close() []listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	out := make([]listener, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.listeners[id])
	}
	s.order = nil
	s.listeners = make(map[ListenerID]listener)
	return out
}

// dispatch fans one chunk out to the subscribers registered when it
// arrives. A subscriber removed mid-dispatch is skipped. Callbacks run
// without s.mu so they can unsubscribe.
func (s *tailSession) dispatch(chunk []byte) {
	ids, ls := s.snapshot()
	for i, l := range ls {
		if !s.has(ids[i]) {
			continue
		}
		l.onData(chunk)
	}
}

// TailFollow subscribes to a growing file. Malformed options are returned
// immediately; everything else happens in the background and is reported
// through OnRegistration.
//
// The first subscriber of a file starts its follow process. Later
// subscribers share that process's output; no second process is started.
func (m *Manager) TailFollow(opts FollowOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	go m.follow(opts)
	return nil
}

func (m *Manager) follow(opts FollowOptions) {
	if _, err := m.fs.Stat(opts.File); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = ErrMissingFile
		}
		m.logReadMissing(OpFollow, opts.File)
		if opts.OnRegistration != nil {
			opts.OnRegistration(&OpError{Op: OpFollow, Path: opts.File, Err: err}, opts.File, "")
		}
		return
	}

	id := ListenerID(uuid.NewString())
	l := listener{onData: opts.OnData, onClose: opts.OnClose}

	started, spawnErr := m.join(opts, id, l)

	if opts.OnRegistration != nil {
		opts.OnRegistration(nil, opts.File, id)
	}

	if spawnErr != nil {
		m.logSpawnFailed(OpFollow, opts.File, spawnErr)
		if opts.OnClose != nil {
			opts.OnClose(-1)
		}
		return
	}
	if started != nil {
		m.log.Debug("follow session started",
			slog.String("path", opts.File),
			slog.String(FieldEventType, eventFollowStarted),
		)
		go m.runSession(started)
	}
}

// join adds l to the session of opts.File, starting the follow process when
// there is none. The process is started outside tailMu; concurrent callers
// for the same file wait for that start and then join its session. It
// returns the session only when this call started it.
func (m *Manager) join(opts FollowOptions, id ListenerID, l listener) (*tailSession, error) {
	for {
		m.tailMu.Lock()
		if sess, ok := m.sessions[opts.File]; ok {
			sess.add(id, l)
			m.tailMu.Unlock()
			return nil, nil
		}
		if wait, ok := m.spawning[opts.File]; ok {
			m.tailMu.Unlock()
			<-wait
			continue
		}
		done := make(chan struct{})
		m.spawning[opts.File] = done
		m.tailMu.Unlock()

		stream, err := m.streamer.Tail(opts.File, opts.Lines, true)

		m.tailMu.Lock()
		delete(m.spawning, opts.File)
		var sess *tailSession
		if err == nil {
			sess = newTailSession(opts.File, stream)
			sess.add(id, l)
			m.sessions[opts.File] = sess
		}
		m.tailMu.Unlock()
		close(done)
		return sess, err
	}
}

func (m *Manager) runSession(sess *tailSession) {
	code := sess.stream.Run(sess.dispatch)

	m.tailMu.Lock()
	if m.sessions[sess.file] == sess {
		delete(m.sessions, sess.file)
	}
	m.tailMu.Unlock()

	listeners := sess.close()
	if len(listeners) == 0 {
		return
	}
	m.log.Info("follow process exited",
		slog.String("path", sess.file),
		slog.Int("exit_code", code),
		slog.Int("listeners", len(listeners)),
		slog.String(FieldEventType, eventFollowExited),
	)
	for _, l := range listeners {
		if l.onClose != nil {
			l.onClose(code)
		}
	}
}

// StopTailFollowing removes exactly one subscription. The follow process is
// killed when its last subscriber leaves. Unknown files and ids are ignored.
//
// Delivery is not serialized against removal: a chunk whose fan-out had
// already passed this subscriber's check may still reach it once, on the
// dispatching goroutine, after StopTailFollowing returns. No chunk read
// after the return is delivered. The same holds for Stop.
func (m *Manager) StopTailFollowing(file string, id ListenerID) {
	m.tailMu.Lock()
	sess, ok := m.sessions[file]
	if !ok {
		m.tailMu.Unlock()
		return
	}
	removed, empty := sess.remove(id)
	last := removed && empty
	if last {
		delete(m.sessions, file)
		sess.close()
	}
	m.tailMu.Unlock()

	if !last {
		return
	}
	if err := sess.stream.Kill(); err != nil {
		m.log.Warn("follow process kill failed",
			slog.String("path", file),
			slog.Any("error", err),
		)
	}
	m.log.Debug("follow session stopped",
		slog.String("path", file),
		slog.String(FieldEventType, eventFollowStopped),
	)
}

// TailSessionCount returns the number of running follow processes
func (m *Manager) TailSessionCount() int {
	m.tailMu.Lock()
	defer m.tailMu.Unlock()
	return len(m.sessions)
}

// Listeners returns the subscriptions of file in registration order
func (m *Manager) Listeners(file string) []ListenerID {
	m.tailMu.Lock()
	sess, ok := m.sessions[file]
	m.tailMu.Unlock()
	if !ok {
		return nil
	}
	return sess.ids()
}

// teardownSessions kills every follow process regardless of subscribers.
func (m *Manager) teardownSessions() {
	m.tailMu.Lock()
	sessions := make([]*tailSession, 0, len(m.sessions))
	for file, sess := range m.sessions {
		sess.close()
		sessions = append(sessions, sess)
		delete(m.sessions, file)
	}
	m.tailMu.Unlock()

	if len(sessions) == 0 {
		return
	}
	for _, sess := range sessions {
		if err := sess.stream.Kill(); err != nil {
			m.log.Warn("follow process kill failed",
				slog.String("path", sess.file),
				slog.Any("error", err),
			)
		}
	}
	m.log.Info("follow sessions torn down",
		slog.Int("sessions", len(sessions)),
		slog.String(FieldEventType, eventFollowTeardown),
	)
}
