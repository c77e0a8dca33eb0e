// Package badger provides an embedded key-value adapter backed by
// BadgerDB. It gives single-node deployments durable flag storage with
// no external service.
//
// Key layout:
//
//	flipper/features/<name>              -> ""            (registration)
//	flipper/gates/<name>/<gate>          -> value         (scalar gates)
//	flipper/gates/<name>/<gate>/<elem>   -> "1"           (set gates)
package badger

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/larouxn/flipper"
)

var _ flipper.Adapter = (*Adapter)(nil)
var _ flipper.Pinger = (*Adapter)(nil)

const (
	featuresPrefix = "flipper/features/"
	gatesPrefix    = "flipper/gates/"
)

// Adapter implements the storage contract on a badger DB handle.
type Adapter struct {
	db *badgerdb.DB
}

// New wraps an open database. The adapter does not own the handle; the
// caller closes it.
func New(db *badgerdb.DB) *Adapter {
	if db == nil {
		panic("badger adapter: db cannot be nil")
	}
	return &Adapter{db: db}
}

// Open creates a database at path and wraps it. With path empty the
// database lives in memory, which is what tests want.
func Open(path string) (*Adapter, *badgerdb.DB, error) {
	opts := badgerdb.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("badger adapter: open: %w", err)
	}
	return New(db), db, nil
}

// Name implements flipper.Adapter.
func (a *Adapter) Name() string { return "badger" }

// Ping implements flipper.Pinger.
func (a *Adapter) Ping(_ context.Context) error {
	if a.db.IsClosed() {
		return fmt.Errorf("badger adapter: database closed")
	}
	return nil
}

// Features implements flipper.Adapter.
func (a *Adapter) Features(_ context.Context) ([]string, error) {
	var features []string
	err := a.db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(prefixOptions(featuresPrefix))
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			features = append(features, strings.TrimPrefix(key, featuresPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger adapter: features: %w", err)
	}
	return features, nil
}

// Add implements flipper.Adapter.
func (a *Adapter) Add(_ context.Context, feature string) error {
	err := a.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(featuresPrefix+feature), nil)
	})
	if err != nil {
		return fmt.Errorf("badger adapter: add %q: %w", feature, err)
	}
	return nil
}

// Remove implements flipper.Adapter.
func (a *Adapter) Remove(ctx context.Context, feature string) error {
	err := a.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Delete([]byte(featuresPrefix + feature)); err != nil {
			return err
		}
		return deletePrefix(txn, gatePrefix(feature))
	})
	if err != nil {
		return fmt.Errorf("badger adapter: remove %q: %w", feature, err)
	}
	return nil
}

// Clear implements flipper.Adapter.
func (a *Adapter) Clear(_ context.Context, feature string) error {
	err := a.db.Update(func(txn *badgerdb.Txn) error {
		return deletePrefix(txn, gatePrefix(feature))
	})
	if err != nil {
		return fmt.Errorf("badger adapter: clear %q: %w", feature, err)
	}
	return nil
}

// Get implements flipper.Adapter.
func (a *Adapter) Get(_ context.Context, feature string) (*flipper.GateValues, error) {
	prefix := gatePrefix(feature)

	var entries []flipper.StoredValue
	err := a.db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(prefixOptions(prefix))
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			rest := strings.TrimPrefix(string(item.Key()), prefix)

			if gateName, element, found := strings.Cut(rest, "/"); found {
				entries = append(entries, flipper.StoredValue{
					Gate:  flipper.GateName(gateName),
					Value: element,
				})
				continue
			}

			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			entries = append(entries, flipper.StoredValue{
				Gate:  flipper.GateName(rest),
				Value: string(value),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger adapter: get %q: %w", feature, err)
	}
	return flipper.GateValuesFromStored(entries), nil
}

// GetMulti implements flipper.Adapter.
func (a *Adapter) GetMulti(ctx context.Context, features []string) (map[string]*flipper.GateValues, error) {
	out := make(map[string]*flipper.GateValues, len(features))
	for _, feature := range features {
		values, err := a.Get(ctx, feature)
		if err != nil {
			return nil, err
		}
		out[feature] = values
	}
	return out, nil
}

// GetAll implements flipper.Adapter.
func (a *Adapter) GetAll(ctx context.Context) (map[string]*flipper.GateValues, error) {
	features, err := a.Features(ctx)
	if err != nil {
		return nil, err
	}
	return a.GetMulti(ctx, features)
}

// Enable implements flipper.Adapter.
func (a *Adapter) Enable(_ context.Context, feature string, gate flipper.Gate, value string) error {
	key, stored := gateKey(feature, gate, value)
	err := a.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(key, stored)
	})
	if err != nil {
		return fmt.Errorf("badger adapter: enable %q/%s: %w", feature, gate.Name(), err)
	}
	return nil
}

// Disable implements flipper.Adapter.
func (a *Adapter) Disable(ctx context.Context, feature string, gate flipper.Gate, value string) error {
	var err error
	switch gate.DataType() {
	case flipper.DataTypeBoolean:
		err = a.Clear(ctx, feature)
	case flipper.DataTypeSet:
		key, _ := gateKey(feature, gate, value)
		err = a.db.Update(func(txn *badgerdb.Txn) error {
			return txn.Delete(key)
		})
	case flipper.DataTypeInteger:
		return a.Enable(ctx, feature, gate, value)
	case flipper.DataTypeJSON:
		key, _ := gateKey(feature, gate, "")
		err = a.db.Update(func(txn *badgerdb.Txn) error {
			return txn.Delete(key)
		})
	}
	if err != nil {
		return fmt.Errorf("badger adapter: disable %q/%s: %w", feature, gate.Name(), err)
	}
	return nil
}

func gatePrefix(feature string) string {
	return gatesPrefix + feature + "/"
}

// gateKey returns the storage key and value for one gate write. Set
// gates encode the element in the key; scalar gates carry the value.
func gateKey(feature string, gate flipper.Gate, value string) ([]byte, []byte) {
	if gate.DataType() == flipper.DataTypeSet {
		return []byte(gatePrefix(feature) + string(gate.Name()) + "/" + value), []byte("1")
	}
	return []byte(gatePrefix(feature) + string(gate.Name())), []byte(value)
}

func prefixOptions(prefix string) badgerdb.IteratorOptions {
	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	return opts
}

// deletePrefix removes every key under prefix within the transaction.
func deletePrefix(txn *badgerdb.Txn, prefix string) error {
	it := txn.NewIterator(prefixOptions(prefix))
	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, bytes.Clone(it.Item().Key()))
	}
	it.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
