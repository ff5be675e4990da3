// Package session keeps the authenticated identity and its credential in two
// layers: an in-memory copy read by the running process and durable records
// in the local database that survive restarts.
//
// Every writer goes through Store. Save and Clear touch both durable records
// in a single transaction, so no reader can observe a user without its token
// or the other way round.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/thyroscope/internal/client/models"
	"github.com/dmitrijs2005/thyroscope/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/thyroscope/internal/dbx"
	"github.com/dmitrijs2005/thyroscope/internal/logging"
)

const (
	KeyUser  = "user"
	KeyToken = "token"
)

var ErrIncompleteSession = errors.New("session requires both a user and a token")

type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// DB is the database handle the store needs. *sql.DB implements it.
type DB interface {
	dbx.DBTX
	dbx.Beginner
}

type Store struct {
	db  DB
	log logging.Logger

	// opMu serialises Save, Clear, Wipe and Reconcile from the durable read
	// or write through the memory update. Subscribers run after it is
	// released.
	opMu sync.Mutex

	mu  sync.RWMutex
	mem models.Session

	subsMu  sync.Mutex
	subs    map[uint64]func(State)
	nextSub uint64
}

func NewStore(db DB, log logging.Logger) *Store {
	if log == nil {
		log = logging.Discard()
	}
	return &Store{
		db:   db,
		log:  log,
		subs: map[uint64]func(State){},
	}
}

// Load reads the durable session. A user record that cannot be decoded is
// reported as absent; only storage failures are returned as errors.
func (s *Store) Load(ctx context.Context) (models.Session, error) {
	repo := metadata.NewSQLiteRepository(s.db)

	rawUser, err := repo.Get(ctx, KeyUser)
	if err != nil {
		return models.Session{}, fmt.Errorf("load session: %w", err)
	}
	rawToken, err := repo.Get(ctx, KeyToken)
	if err != nil {
		return models.Session{}, fmt.Errorf("load session: %w", err)
	}

	var sess models.Session
	if len(rawUser) > 0 {
		var u models.User
		if err := json.Unmarshal(rawUser, &u); err != nil {
			s.log.Warn(ctx, "stored user record is unreadable, ignoring it", "error", err)
		} else {
			sess.User = &u
		}
	}
	sess.Token = string(rawToken)
	return sess, nil
}

// Save writes user and token durably, then replaces the in-memory copy and
// notifies subscribers. On error neither layer changes.
func (s *Store) Save(ctx context.Context, user models.User, token string) error {
	if token == "" {
		return ErrIncompleteSession
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	s.opMu.Lock()
	err = dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, KeyUser, data); err != nil {
			return err
		}
		return repo.Set(ctx, KeyToken, []byte(token))
	})
	if err == nil {
		s.setMemory(models.Session{User: &user, Token: token})
	}
	s.opMu.Unlock()

	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.notify(Authenticated)
	return nil
}

// Clear removes the user and token records and empties memory. Missing
// records are not an error. Memory is emptied even when the durable delete
// fails.
func (s *Store) Clear(ctx context.Context) error {
	s.opMu.Lock()
	err := dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).Delete(ctx, KeyUser, KeyToken)
	})
	s.setMemory(models.Session{})
	s.opMu.Unlock()

	s.notify(Unauthenticated)

	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Wipe removes every durable record, preferences included, and empties
// memory.
func (s *Store) Wipe(ctx context.Context) error {
	s.opMu.Lock()
	err := s.wipeLocked(ctx)
	s.opMu.Unlock()

	s.notify(Unauthenticated)
	return err
}

func (s *Store) wipeLocked(ctx context.Context) error {
	err := metadata.NewSQLiteRepository(s.db).Clear(ctx)
	s.setMemory(models.Session{})
	if err != nil {
		return fmt.Errorf("wipe local state: %w", err)
	}
	return nil
}

// Reconcile aligns memory with the durable records. A complete durable
// session is adopted. A partial one is wiped. When nothing is stored, only
// memory is emptied. Subscribers hear about it only if the state changed.
func (s *Store) Reconcile(ctx context.Context) (State, error) {
	s.opMu.Lock()
	state, changed, err := s.reconcileLocked(ctx)
	s.opMu.Unlock()

	if changed {
		s.notify(state)
	}
	return state, err
}

func (s *Store) reconcileLocked(ctx context.Context) (state State, changed bool, err error) {
	before := s.State()

	durable, err := s.Load(ctx)
	if err != nil {
		return before, false, err
	}

	if durable.Complete() {
		s.setMemory(durable)
		return Authenticated, before != Authenticated, nil
	}

	if durable.User != nil || durable.Token != "" {
		s.log.Info(ctx, "partial session found, wiping local state",
			"has_user", durable.User != nil, "has_token", durable.Token != "")
		return Unauthenticated, true, s.wipeLocked(ctx)
	}

	s.setMemory(models.Session{})
	return Unauthenticated, before != Unauthenticated, nil
}

// Current returns a copy of the in-memory session.
func (s *Store) Current() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := models.Session{Token: s.mem.Token}
	if s.mem.User != nil {
		u := *s.mem.User
		out.User = &u
	}
	return out
}

// Token returns the in-memory credential, or "" when there is none.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mem.Token
}

func (s *Store) State() State {
	if s.Current().Complete() {
		return Authenticated
	}
	return Unauthenticated
}

// Subscribe registers fn to be called with the resulting state after every
// session mutation. The returned func removes it.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) setMemory(sess models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem = sess
}

func (s *Store) notify(state State) {
	s.subsMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
