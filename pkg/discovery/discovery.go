// Package discovery reads the objects already present on a switch so the
// metadata layer can be warm started from them.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/newtron-network/saimeta/pkg/asicdb"
	"github.com/newtron-network/saimeta/pkg/meta"
	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/schema"
	"github.com/newtron-network/saimeta/pkg/util"
)

// Source produces a warm-start dump.
type Source interface {
	Records(ctx context.Context) ([]meta.Record, error)
}

// RedisSource reads every ASIC_STATE object from a switch's ASIC_DB.
type RedisSource struct {
	Client *asicdb.Client
	Schema *schema.Schema
}

// Records scans ASIC_DB and decodes each object.
func (r *RedisSource) Records(ctx context.Context) ([]meta.Record, error) {
	keys, err := r.Client.ObjectKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanning asic_db: %w", err)
	}
	sort.Strings(keys)

	records := make([]meta.Record, 0, len(keys))
	for _, k := range keys {
		fields, err := r.Client.ReadObject(ctx, k)
		if err != nil {
			return nil, err
		}
		rec, err := decodeRecord(r.Schema, k, fields)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	util.WithField("redis", r.Client.Addr()).Infof("discovered %d objects", len(records))
	return records, nil
}

// FileSource reads a JSON dump in ASIC_DB layout:
// { "ASIC_STATE:<type>:<key>": { "<attr name>": "<value>", ... }, ... }
type FileSource struct {
	Path   string
	Schema *schema.Schema
}

// Records reads and decodes the file.
func (f *FileSource) Records(ctx context.Context) ([]meta.Record, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading dump: %w", err)
	}
	records, err := ParseRecords(f.Schema, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return records, nil
}

// ParseRecords decodes a JSON dump. Records are returned in key order.
func ParseRecords(s *schema.Schema, data []byte) ([]meta.Record, error) {
	var objects map[string]map[string]string
	if err := json.Unmarshal(data, &objects); err != nil {
		return nil, fmt.Errorf("parsing dump: %w", err)
	}
	keys := make([]string, 0, len(objects))
	for k := range objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]meta.Record, 0, len(keys))
	for _, k := range keys {
		rec, err := decodeRecord(s, k, objects[k])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// MarshalRecords encodes records in the FileSource layout.
func MarshalRecords(s *schema.Schema, records []meta.Record) ([]byte, error) {
	objects := make(map[string]map[string]string, len(records))
	for _, r := range records {
		fields, err := asicdb.EncodeAttrs(s, r.Key.ObjectType(), r.Attrs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.Key, err)
		}
		objects[asicdb.ObjectKey(r.Key)] = fields
	}
	return json.MarshalIndent(objects, "", "  ")
}

// FromDump converts an object map, such as the virtual channel's Dump, into
// records in key order. Pointer attributes do not survive a restart and are
// dropped.
func FromDump(s *schema.Schema, dump map[sai.Key][]sai.Attribute) []meta.Record {
	records := make([]meta.Record, 0, len(dump))
	for key, attrs := range dump {
		kept := make([]sai.Attribute, 0, len(attrs))
		for _, a := range attrs {
			if md, ok := s.Attr(key.ObjectType(), a.ID); ok && md.Kind == sai.KindPointer {
				continue
			}
			kept = append(kept, a)
		}
		records = append(records, meta.Record{Key: key, Attrs: kept})
	}
	sort.Slice(records, func(i, j int) bool {
		return asicdb.ObjectKey(records[i].Key) < asicdb.ObjectKey(records[j].Key)
	})
	return records
}

func decodeRecord(s *schema.Schema, redisKey string, fields map[string]string) (meta.Record, error) {
	key, err := asicdb.ParseObjectKey(redisKey)
	if err != nil {
		return meta.Record{}, sai.Errorf(sai.StatusInvalidParameter, "%v", err)
	}
	attrs, err := asicdb.DecodeAttrs(s, key.ObjectType(), fields)
	if err != nil {
		return meta.Record{}, fmt.Errorf("%s: %w", redisKey, err)
	}
	return meta.Record{Key: key, Attrs: attrs}, nil
}
