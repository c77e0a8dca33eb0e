// Package redis provides the key-value adapter backed by Redis. Each
// feature is one hash: scalar gates are plain fields, set gates use one
// field per element ("actors/<id>", "groups/<name>"). The registered
// feature names live in a separate set.
package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/larouxn/flipper"
)

var _ flipper.Adapter = (*Adapter)(nil)
var _ flipper.Pinger = (*Adapter)(nil)

const (
	// featuresKey is the set of registered feature names.
	featuresKey = "flipper:features"
	// featureKeyPrefix namespaces the per-feature hashes.
	featureKeyPrefix = "flipper:feature:"
)

// Adapter implements the storage contract on a go-redis client.
type Adapter struct {
	client redis.UniversalClient
}

// New wraps an existing client. The adapter does not own the connection;
// the caller manages its lifecycle.
func New(client redis.UniversalClient) *Adapter {
	if client == nil {
		panic("redis adapter: client cannot be nil")
	}
	return &Adapter{client: client}
}

// Name implements flipper.Adapter.
func (a *Adapter) Name() string { return "redis" }

// Ping implements flipper.Pinger.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}

// Features implements flipper.Adapter.
func (a *Adapter) Features(ctx context.Context) ([]string, error) {
	features, err := a.client.SMembers(ctx, featuresKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis adapter: features: %w", err)
	}
	return features, nil
}

// Add implements flipper.Adapter.
func (a *Adapter) Add(ctx context.Context, feature string) error {
	if err := a.client.SAdd(ctx, featuresKey, feature).Err(); err != nil {
		return fmt.Errorf("redis adapter: add %q: %w", feature, err)
	}
	return nil
}

// Remove implements flipper.Adapter.
func (a *Adapter) Remove(ctx context.Context, feature string) error {
	pipe := a.client.TxPipeline()
	pipe.SRem(ctx, featuresKey, feature)
	pipe.Del(ctx, featureKey(feature))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis adapter: remove %q: %w", feature, err)
	}
	return nil
}

// Clear implements flipper.Adapter.
func (a *Adapter) Clear(ctx context.Context, feature string) error {
	if err := a.client.Del(ctx, featureKey(feature)).Err(); err != nil {
		return fmt.Errorf("redis adapter: clear %q: %w", feature, err)
	}
	return nil
}

// Get implements flipper.Adapter.
func (a *Adapter) Get(ctx context.Context, feature string) (*flipper.GateValues, error) {
	fields, err := a.client.HGetAll(ctx, featureKey(feature)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis adapter: get %q: %w", feature, err)
	}
	return decodeFields(fields), nil
}

// GetMulti implements flipper.Adapter.
func (a *Adapter) GetMulti(ctx context.Context, features []string) (map[string]*flipper.GateValues, error) {
	pipe := a.client.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(features))
	for _, feature := range features {
		cmds[feature] = pipe.HGetAll(ctx, featureKey(feature))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis adapter: get multi: %w", err)
	}

	out := make(map[string]*flipper.GateValues, len(features))
	for feature, cmd := range cmds {
		out[feature] = decodeFields(cmd.Val())
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
func (a *Adapter) Enable(ctx context.Context, feature string, gate flipper.Gate, value string) error {
	field := fieldFor(gate, value)
	stored := value
	if gate.DataType() == flipper.DataTypeSet {
		stored = "1"
	}
	if err := a.client.HSet(ctx, featureKey(feature), field, stored).Err(); err != nil {
		return fmt.Errorf("redis adapter: enable %q/%s: %w", feature, gate.Name(), err)
	}
	return nil
}

// Disable implements flipper.Adapter.
func (a *Adapter) Disable(ctx context.Context, feature string, gate flipper.Gate, value string) error {
	var err error
	switch gate.DataType() {
	case flipper.DataTypeBoolean:
		err = a.client.Del(ctx, featureKey(feature)).Err()
	case flipper.DataTypeSet:
		err = a.client.HDel(ctx, featureKey(feature), fieldFor(gate, value)).Err()
	case flipper.DataTypeInteger:
		err = a.client.HSet(ctx, featureKey(feature), string(gate.Name()), value).Err()
	case flipper.DataTypeJSON:
		err = a.client.HDel(ctx, featureKey(feature), string(gate.Name())).Err()
	}
	if err != nil {
		return fmt.Errorf("redis adapter: disable %q/%s: %w", feature, gate.Name(), err)
	}
	return nil
}

func featureKey(feature string) string {
	return featureKeyPrefix + feature
}

// fieldFor maps a gate write onto its hash field. Set gates get one field
// per element so membership updates stay O(1) and idempotent.
func fieldFor(gate flipper.Gate, value string) string {
	if gate.DataType() == flipper.DataTypeSet {
		return string(gate.Name()) + "/" + value
	}
	return string(gate.Name())
}

// decodeFields folds the hash back into normalized gate values.
func decodeFields(fields map[string]string) *flipper.GateValues {
	entries := make([]flipper.StoredValue, 0, len(fields))
	for field, value := range fields {
		if gateName, element, found := strings.Cut(field, "/"); found {
			entries = append(entries, flipper.StoredValue{
				Gate:  flipper.GateName(gateName),
				Value: element,
			})
			continue
		}
		entries = append(entries, flipper.StoredValue{
			Gate:  flipper.GateName(field),
			Value: value,
		})
	}
	return flipper.GateValuesFromStored(entries)
}
