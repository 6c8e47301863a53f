package credential

import (
	"errors"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultProfile is used when no profile is named.
const DefaultProfile = "default"

// ErrInvalidProfile is returned for profile names that cannot be used as storage keys.
var ErrInvalidProfile = errors.New("invalid profile name")

var profilePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// ValidProfile reports whether name can be used as a profile identifier.
func ValidProfile(name string) bool {
	return profilePattern.MatchString(name) && name != "." && name != ".."
}

// Provider hands out the Store of a named profile.
type Provider interface {
	Store(profile string) (*Store, error)
}

// MemoryProvider keeps one MemoryBackend per profile for the life of the process.
type MemoryProvider struct {
	mu       sync.Mutex
	backends map[string]*MemoryBackend
}

// NewMemoryProvider returns an empty MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{backends: make(map[string]*MemoryBackend)}
}

func (p *MemoryProvider) Store(profile string) (*Store, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	if !ValidProfile(profile) {
		return nil, ErrInvalidProfile
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.backends[profile]
	if !ok {
		b = NewMemoryBackend()
		p.backends[profile] = b
	}
	return NewStore(b), nil
}

// FileProvider stores each profile as "<dir>/<profile>.json".
type FileProvider struct {
	dir string
}

// NewFileProvider returns a provider rooted at dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

func (p *FileProvider) Store(profile string) (*Store, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	if !ValidProfile(profile) {
		return nil, ErrInvalidProfile
	}
	return NewStore(NewFileBackend(filepath.Join(p.dir, profile+".json"))), nil
}

// RedisProvider stores every profile in one Redis keyspace.
type RedisProvider struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisProvider returns a provider using client with keys under prefix.
func NewRedisProvider(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisProvider {
	return &RedisProvider{redis: client, prefix: prefix, ttl: ttl}
}

func (p *RedisProvider) Store(profile string) (*Store, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	if !ValidProfile(profile) {
		return nil, ErrInvalidProfile
	}
	return NewStore(NewRedisBackend(p.redis, p.prefix, profile, p.ttl)), nil
}
