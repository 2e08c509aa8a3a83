// Package cassandra provides a relational-style backend over Cassandra.
// Writes stage into a logged batch applied atomically at commit; queries
// run directly at their configured consistency.
package cassandra

import (
	"fmt"
	"sync"
	"time"

	log "log/slog"

	"github.com/gocql/gocql"
)

// Config contains configuration for connecting to a Cassandra cluster.
type Config struct {
	// ClusterHosts lists contact points for the Cassandra cluster.
	ClusterHosts []string
	// Keyspace is the keyspace queries run against.
	Keyspace string
	// Consistency is the default consistency level for queries.
	Consistency gocql.Consistency
	// ConnectionTimeout is the session connection timeout.
	ConnectionTimeout time.Duration
	// Authenticator is used when the cluster requires authentication.
	Authenticator gocql.Authenticator
}

// Connection wraps a Cassandra session and its configuration.
type Connection struct {
	Session *gocql.Session
	Config
}

var session *gocql.Session
var config Config
var mux sync.Mutex

// IsConnectionInstantiated reports whether a global Connection has been created.
func IsConnectionInstantiated() bool {
	return session != nil
}

// OpenConnection returns the existing global Connection or opens a new one using the provided config.
func OpenConnection(cfg Config) (*Connection, error) {
	mux.Lock()
	defer mux.Unlock()

	if session == nil {
		log.Info("Opening Cassandra connection", "hosts", cfg.ClusterHosts, "keyspace", cfg.Keyspace)
		if cfg.Consistency == gocql.Any {
			// Defaults to LocalQuorum consistency. You should set it to an appropriate level.
			cfg.Consistency = gocql.LocalQuorum
		}
		cluster := gocql.NewCluster(cfg.ClusterHosts...)
		cluster.Consistency = cfg.Consistency
		cluster.Keyspace = cfg.Keyspace
		if cfg.ConnectionTimeout > 0 {
			cluster.ConnectTimeout = cfg.ConnectionTimeout
		}
		if cfg.Authenticator != nil {
			cluster.Authenticator = cfg.Authenticator
			// Clear the authenticator just to be safer, we don't need to keep it hanging around.
			cfg.Authenticator = nil
		}
		s, err := cluster.CreateSession()
		if err != nil {
			return nil, fmt.Errorf("failed to create cassandra session: %w", err)
		}
		session = s
		config = cfg
	}

	return &Connection{
		Session: session,
		Config:  config,
	}, nil
}

// CloseConnection closes and clears the global connection, if it exists.
func CloseConnection() {
	mux.Lock()
	defer mux.Unlock()
	if session != nil {
		log.Info("Closing Cassandra connection")
		session.Close()
		session = nil
	}
}
