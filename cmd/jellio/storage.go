package main

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/doingodswork/jellio/pkg/jellyfin"
)

// tokenItem is what's stored per token in all token cache implementations.
type tokenItem struct {
	User    jellyfin.User
	Created time.Time
}

// tokenKey hashes the token, so that no plain access tokens are written to the stores.
func tokenKey(prefix, token string) string {
	hash := blake2b.Sum256([]byte(token))
	return prefix + hex.EncodeToString(hash[:])
}

var _ jellyfin.TokenCache = (*goCacheStore)(nil)

// goCacheStore is an in-memory token cache.
type goCacheStore struct {
	cache *gocache.Cache
}

func newGoCacheStore(maxAge time.Duration) *goCacheStore {
	// Entries are checked for their age by the Jellyfin client, the expiration only frees the memory
	return &goCacheStore{
		cache: gocache.New(maxAge, 10*time.Minute),
	}
}

// Set implements the jellyfin.TokenCache interface.
func (s *goCacheStore) Set(token string, user jellyfin.User) error {
	s.cache.Set(tokenKey("", token), tokenItem{User: user, Created: time.Now()}, 0)
	return nil
}

// Get implements the jellyfin.TokenCache interface.
func (s *goCacheStore) Get(token string) (jellyfin.User, time.Time, bool, error) {
	itemIface, found := s.cache.Get(tokenKey("", token))
	if !found {
		return jellyfin.User{}, time.Time{}, false, nil
	}
	item, ok := itemIface.(tokenItem)
	if !ok {
		return jellyfin.User{}, time.Time{}, true, fmt.Errorf("Couldn't cast cached value to tokenItem: type was: %T", itemIface)
	}
	return item.User, item.Created, true, nil
}

var _ jellyfin.TokenCache = (*redisStore)(nil)

// redisStore is a token cache that's shared between multiple instances of the service.
type redisStore struct {
	client    *redis.Client
	keyPrefix string
	// Entries expire in Redis after this duration
	maxAge  time.Duration
	timeout time.Duration
}

func newRedisStore(addr, creds string, maxAge, timeout time.Duration) (*redisStore, error) {
	opts := &redis.Options{
		Addr: addr,
	}
	// "password" for Redis 5 and older, "username:password" for Redis 6 and newer
	if creds != "" {
		if username, password, ok := strings.Cut(creds, ":"); ok {
			opts.Username = username
			opts.Password = password
		} else {
			opts.Password = creds
		}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Couldn't ping Redis: %w", err)
	}

	return &redisStore{
		client:    client,
		keyPrefix: "jellio-token-",
		maxAge:    maxAge,
		timeout:   timeout,
	}, nil
}

// Set implements the jellyfin.TokenCache interface.
func (s *redisStore) Set(token string, user jellyfin.User) error {
	value, err := gobEncode(tokenItem{User: user, Created: time.Now()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err = s.client.Set(ctx, tokenKey(s.keyPrefix, token), value, s.maxAge).Err(); err != nil {
		return fmt.Errorf("Couldn't set value in Redis: %w", err)
	}
	return nil
}

// Get implements the jellyfin.TokenCache interface.
func (s *redisStore) Get(token string) (jellyfin.User, time.Time, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	value, err := s.client.Get(ctx, tokenKey(s.keyPrefix, token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return jellyfin.User{}, time.Time{}, false, nil
	} else if err != nil {
		return jellyfin.User{}, time.Time{}, false, fmt.Errorf("Couldn't get value from Redis: %w", err)
	}
	var item tokenItem
	if err = gobDecode(value, &item); err != nil {
		return jellyfin.User{}, time.Time{}, true, err
	}
	return item.User, item.Created, true, nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

var _ jellyfin.TokenCache = (*badgerStore)(nil)

// badgerStore is a token cache that survives restarts, backed by BadgerDB.
type badgerStore struct {
	db        *badger.DB
	keyPrefix string
}

// newBadgerStore opens the DB at the given path. An empty path leads to an in-memory DB.
func newBadgerStore(path string, logger *zap.Logger) (*badgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(newBadgerLogger(logger))
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("Couldn't open BadgerDB: %w", err)
	}
	return &badgerStore{
		db:        db,
		keyPrefix: "token-",
	}, nil
}

// Set implements the jellyfin.TokenCache interface.
func (s *badgerStore) Set(token string, user jellyfin.User) error {
	return gobSet(s.db, tokenKey(s.keyPrefix, token), tokenItem{User: user, Created: time.Now()})
}

// Get implements the jellyfin.TokenCache interface.
func (s *badgerStore) Get(token string) (jellyfin.User, time.Time, bool, error) {
	var item tokenItem
	found, err := gobGet(s.db, tokenKey(s.keyPrefix, token), &item)
	if err != nil || !found {
		return jellyfin.User{}, time.Time{}, found, err
	}
	return item.User, item.Created, true, nil
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}

func gobEncode(item interface{}) ([]byte, error) {
	writer := bytes.Buffer{}
	encoder := gob.NewEncoder(&writer)
	if err := encoder.Encode(item); err != nil {
		return nil, fmt.Errorf("Couldn't encode item: %w", err)
	}
	return writer.Bytes(), nil
}

func gobDecode(data []byte, target interface{}) error {
	decoder := gob.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("Couldn't decode item: %w", err)
	}
	return nil
}

func gobSet(db *badger.DB, key string, item interface{}) error {
	value, err := gobEncode(item)
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func gobGet(db *badger.DB, key string, target interface{}) (bool, error) {
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return gobDecode(val, target)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	} else if err != nil {
		return true, err
	}
	return true, nil
}

// badgerLogger adapts zap to BadgerDB's logger interface, which uses "Warningf" instead of "Warnf".
type badgerLogger struct {
	*zap.SugaredLogger
}

func newBadgerLogger(logger *zap.Logger) *badgerLogger {
	return &badgerLogger{
		SugaredLogger: logger.Named("badger").Sugar(),
	}
}

func (l *badgerLogger) Warningf(template string, args ...interface{}) {
	l.Warnf(template, args...)
}

// closeStores closes all stores and returns the combined errors.
func closeStores(stores ...io.Closer) error {
	var err error
	for _, store := range stores {
		err = multierr.Append(err, store.Close())
	}
	return err
}
