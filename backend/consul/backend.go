package consul

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/data"
)

// DefaultMaxValueSize matches the default kv_max_value_size of a Consul server.
const DefaultMaxValueSize = 512 * 1024

// ConsulBackend stores both tables in the HashiCorp Consul KV store using
// the object name layout of the backend package.
//
// Limitations:
// - Consul rejects values above kv_max_value_size (512KB by default), which
//   is smaller than a full chunk record. Raise the server limit and set
//   MaxValueSize accordingly, or enable chunk compression for compressible data.
// - Every call is a single KV request; DeleteByPath uses a recursive delete.
type ConsulBackend struct {
	mu     sync.RWMutex
	client *api.Client
	kv     *api.KV

	// Configuration
	config *ConsulBackendConfig
}

// ConsulBackendConfig contains configuration options for the Consul backend
type ConsulBackendConfig struct {
	// Address of the Consul server (default: "127.0.0.1:8500")
	Address string

	// Token for Consul ACL authentication (optional)
	Token string

	// Datacenter to use (optional)
	Datacenter string

	// Namespace for Consul Enterprise (optional)
	Namespace string

	// Prefix for all keys in Consul KV (default: "lvfs")
	Prefix string

	// Largest value the server accepts (default: DefaultMaxValueSize)
	MaxValueSize int64
}

// NewConsulBackend creates a new Consul-backed storage backend
func NewConsulBackend(config *ConsulBackendConfig) (*ConsulBackend, error) {
	if config == nil {
		config = &ConsulBackendConfig{}
	}

	// Set defaults
	if config.Address == "" {
		config.Address = "127.0.0.1:8500"
	}

	config.Prefix = strings.Trim(config.Prefix, "/")
	if config.Prefix == "" {
		config.Prefix = "lvfs"
	}

	if config.MaxValueSize <= 0 {
		config.MaxValueSize = DefaultMaxValueSize
	}

	// Create Consul client
	clientConfig := api.DefaultConfig()
	clientConfig.Address = config.Address
	if config.Token != "" {
		clientConfig.Token = config.Token
	}
	if config.Datacenter != "" {
		clientConfig.Datacenter = config.Datacenter
	}
	if config.Namespace != "" {
		clientConfig.Namespace = config.Namespace
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	return &ConsulBackend{
		client: client,
		kv:     client.KV(),
		config: config,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*ConsulBackend) Name() string {
	return "consul"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend
func (cb *ConsulBackend) Open(ctx context.Context) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	key := cb.schemaKey()
	pair, _, err := cb.kv.Get(key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return err
	}

	stored := 0
	if pair != nil {
		stored, err = strconv.Atoi(string(pair.Value))
		if err != nil {
			return fmt.Errorf("%w: malformed version %q", data.ErrSchemaVersion, pair.Value)
		}
	}

	upgrade, err := backend.CheckSchema(stored)
	if err != nil || !upgrade {
		return err
	}

	// Tables are plain key prefixes; only the version marker needs writing
	_, err = cb.kv.Put(&api.KVPair{
		Key:   key,
		Value: []byte(strconv.Itoa(backend.SchemaVersion)),
	}, (&api.WriteOptions{}).WithContext(ctx))
	return err
}

// Close is part of the lifecycle behaviour and gets called when closing this backend
func (cb *ConsulBackend) Close(ctx context.Context) error {
	// Nothing to clean up - Consul client is stateless
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend
func (cb *ConsulBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityPersistent,
			backend.CapabilityTransactional,
			backend.CapabilityOrderedScan,
		},
		MaxRecordSize: cb.config.MaxValueSize,
	}
}

func (cb *ConsulBackend) schemaKey() string {
	return cb.config.Prefix + "/schema"
}
