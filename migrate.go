// Package migrate reads migrations from sources and applies them to a graph
// database, recording every applied migration as a node in a chain of
// MIGRATED_TO relationships. Sources are defined by the `source.Driver` and
// databases by the `database.Store` interface. The driver interfaces are kept
// "dumb", all migration logic is kept in this package.
package migrate

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/golang-migrate/graphmigrate/chain"
	"github.com/golang-migrate/graphmigrate/database"
	iurl "github.com/golang-migrate/graphmigrate/internal/url"
	"github.com/golang-migrate/graphmigrate/source"
)

// State is the position of the last Up call in its state machine.
type State int

const (
	StateInit State = iota
	StateBaselineEnsured
	StateIntegrityValidated
	StateUpToDate
	StateApplying
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateBaselineEnsured:
		return "BASELINE_ENSURED"
	case StateIntegrityValidated:
		return "INTEGRITY_VALIDATED"
	case StateUpToDate:
		return "UP_TO_DATE"
	case StateApplying:
		return "APPLYING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

type Migrate struct {
	config Config

	sourceName   string
	sourceDrv    source.Driver
	databaseName string
	store        database.Store
	chain        *chain.Repository

	openOnce sync.Once
	openErr  error

	// Log accepts a Logger interface
	Log Logger

	// GracefulStop accepts `true` and will stop executing migrations
	// as soon as possible at a safe break point, so that the database
	// is not corrupted.
	GracefulStop chan bool
	isLockedMu   *sync.Mutex

	isGracefulStop bool
	isLocked       bool

	state State
}

// New returns a new Migrate instance for config.SourceURL and
// config.DatabaseURL. The URL scheme is defined by each driver. Nothing is
// opened until the first operation needs it.
func New(config Config) (*Migrate, error) {
	m := newCommon(config)

	sourceName, err := iurl.SchemeFromURL(config.SourceURL)
	if err != nil {
		return nil, err
	}
	m.sourceName = sourceName

	databaseName, err := iurl.SchemeFromURL(config.DatabaseURL)
	if err != nil {
		return nil, err
	}
	m.databaseName = databaseName

	return m, nil
}

// NewWithInstance returns a new Migrate instance from an existing source and
// store instance. Use any string that can serve as an identifier during logging
// as sourceName and databaseName. The URLs in config are ignored.
func NewWithInstance(sourceName string, sourceInstance source.Driver, databaseName string, databaseInstance database.Store, config Config) (*Migrate, error) {
	m := newCommon(config)

	m.sourceName = sourceName
	m.databaseName = databaseName

	m.sourceDrv = sourceInstance
	m.store = databaseInstance

	return m, nil
}

func newCommon(config Config) *Migrate {
	return &Migrate{
		config:       config,
		GracefulStop: make(chan bool, 1),
		isLockedMu:   &sync.Mutex{},
	}
}

// open connects the source and the store on first use. The outcome, error
// included, is kept for the lifetime of m.
func (m *Migrate) open() error {
	m.openOnce.Do(func() {
		if m.sourceDrv == nil {
			m.logVerbosePrintf("Opening source %v\n", m.sourceName)
			m.sourceDrv, m.openErr = source.Open(m.config.SourceURL)
			if m.openErr != nil {
				return
			}
		}
		if m.store == nil {
			m.logVerbosePrintf("Opening database %v\n", m.databaseName)
			m.store, m.openErr = database.Open(m.config.DatabaseURL)
			if m.openErr != nil {
				return
			}
		}
		m.chain = chain.New(m.store, chain.Config{Label: m.config.label()})
	})
	return m.openErr
}

// Close closes the source and the store if they were opened.
func (m *Migrate) Close() error {
	m.logVerbosePrintf("Closing source and database\n")

	var result error
	if m.sourceDrv != nil {
		if err := m.sourceDrv.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// State returns where the last Up call ended, or where it currently is.
func (m *Migrate) State() State {
	m.isLockedMu.Lock()
	defer m.isLockedMu.Unlock()
	return m.state
}

func (m *Migrate) setState(s State) {
	m.isLockedMu.Lock()
	defer m.isLockedMu.Unlock()
	m.state = s
}

// Drop deletes everything in the database, the baseline included.
func (m *Migrate) Drop(ctx context.Context) error {
	if err := m.lock(); err != nil {
		return err
	}
	defer m.unlock()

	if err := m.open(); err != nil {
		return err
	}
	if err := m.store.Drop(ctx); err != nil {
		return err
	}
	m.setState(StateInit)
	return nil
}

// stop returns true if no more migrations should be run against the database
// because a stop signal was received on the GracefulStop channel.
// Calls are cheap and this function is not blocking.
func (m *Migrate) stop() bool {
	if m.isGracefulStop {
		return true
	}

	select {
	case <-m.GracefulStop:
		m.isGracefulStop = true
		return true

	default:
		return false
	}
}

// lock guards against concurrent calls on the same instance. It does not
// coordinate separate processes.
func (m *Migrate) lock() error {
	m.isLockedMu.Lock()
	defer m.isLockedMu.Unlock()

	if m.isLocked {
		return ErrLocked
	}
	m.isLocked = true
	return nil
}

func (m *Migrate) unlock() {
	m.isLockedMu.Lock()
	defer m.isLockedMu.Unlock()
	m.isLocked = false
}
