// Package topdb implements the "TOP db": a small, bounded, on-disk
// cache of winning autopick plans keyed by (bucket_type, content
// profile), read at pack start and written atomically (temp+rename) at
// pack end. The on-disk schema is an implementation choice; only the
// deterministic-caching behavior it provides is load-bearing.
package topdb

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Plan is a cached winning compression plan.
type Plan struct {
	Layer        string            `json:"layer"`
	Codec        string            `json:"codec,omitempty"`
	StreamCodecs map[string]string `json:"stream_codecs,omitempty"`
	Note         string            `json:"note,omitempty"`
}

type record struct {
	BucketType string `json:"bucket_type"`
	Profile    string `json:"profile"`
	Plan       Plan   `json:"plan"`
}

type onDisk struct {
	Schema  string   `json:"schema"`
	Records []record `json:"records"`
}

const schema = "gcc-ocf.top_db.v1"

// DefaultMax is the default bound on cached plans, top_db_max.
const DefaultMax = 12

// DB is a bounded, insertion-ordered cache. Records are evicted oldest
// first once len(records) exceeds Max, keeping the cache small and its
// eviction order deterministic given identical inputs.
type DB struct {
	Max     int
	records []record
}

// New returns an empty DB bounded at max (DefaultMax if max <= 0).
func New(max int) *DB {
	if max <= 0 {
		max = DefaultMax
	}
	return &DB{Max: max}
}

// Load reads a TOP db JSON file, tolerating a missing file (returns a
// fresh empty DB, not an error: the first pack run always misses).
func Load(path string, max int) (*DB, error) {
	db := New(max)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return db, nil
		}
		return nil, errors.Wrap(err, "topdb: read failed")
	}
	var od onDisk
	if err := json.Unmarshal(raw, &od); err != nil {
		return nil, errors.Wrap(err, "topdb: invalid JSON")
	}
	db.records = od.Records
	db.evictToMax()
	return db, nil
}

func key(bucketType, profile string) string { return bucketType + "\x00" + profile }

// Lookup returns the cached plan for (bucketType, profile), if any.
func (db *DB) Lookup(bucketType, profile string) (Plan, bool) {
	k := key(bucketType, profile)
	for _, r := range db.records {
		if key(r.BucketType, r.Profile) == k {
			return r.Plan, true
		}
	}
	return Plan{}, false
}

// Put records (or replaces) the winning plan for (bucketType, profile),
// moving it to the most-recently-used end and evicting the oldest
// record if the cache is over Max.
func (db *DB) Put(bucketType, profile string, plan Plan) {
	k := key(bucketType, profile)
	out := db.records[:0:0]
	for _, r := range db.records {
		if key(r.BucketType, r.Profile) != k {
			out = append(out, r)
		}
	}
	out = append(out, record{BucketType: bucketType, Profile: profile, Plan: plan})
	db.records = out
	db.evictToMax()
}

func (db *DB) evictToMax() {
	if db.Max <= 0 || len(db.records) <= db.Max {
		return
	}
	db.records = db.records[len(db.records)-db.Max:]
}

// Save writes the DB to path atomically (write to a temp file in the
// same directory, then rename over the destination).
func (db *DB) Save(path string) error {
	raw, err := json.MarshalIndent(onDisk{Schema: schema, Records: db.records}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "topdb: marshal failed")
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".topdb-*.tmp")
	if err != nil {
		return errors.Wrap(err, "topdb: create temp failed")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "topdb: write temp failed")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "topdb: close temp failed")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "topdb: rename failed")
	}
	return nil
}
