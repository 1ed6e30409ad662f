// Package filestore persists the fetch ledger as JSON files on disk.
//
// Three blob layouts coexist:
//
//	version 1 (flat):            <org>.json
//	version 2 (bucketed map):    <org>-weeks.json / <org>-months.json
//	version 3 (file-per-bucket): <org>-<kind>-<bucketKey>.json (legacy, read-only)
//
// Writes always use the map layout. A corrupted blob reads as empty: it is
// logged and the caller gets a usable zero result.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/macromill/activity-insights/internal/apperrors"
	"github.com/macromill/activity-insights/internal/domain"
	"github.com/macromill/activity-insights/pkg/logger/sl"
)

// Store implements repository.ActivityStore over a directory of JSON files.
type Store struct {
	dir string
	log *slog.Logger
	now func() time.Time
}

func New(dir string, log *slog.Logger) *Store {
	return &Store{
		dir: dir,
		log: log,
		now: time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// bucketBlob is the persisted form of one bucket. The key is stored under
// "week" or "month" depending on the kind, so both fields exist and exactly
// one is set on write.
type bucketBlob struct {
	Week        string                  `json:"week,omitempty"`
	Month       string                  `json:"month,omitempty"`
	RangeStart  string                  `json:"rangeStart"`
	RangeEnd    string                  `json:"rangeEnd"`
	LastUpdated time.Time               `json:"lastUpdated"`
	Activities  []domain.ActivityRecord `json:"activities"`
}

func (b bucketBlob) key() string {
	if b.Week != "" {
		return b.Week
	}

	return b.Month
}

// bucketedBlob is the map layout holding every bucket of one kind for one
// organization.
type bucketedBlob struct {
	Organization string                `json:"organization"`
	Weeks        map[string]bucketBlob `json:"weeks,omitempty"`
	Months       map[string]bucketBlob `json:"months,omitempty"`
	LastUpdated  time.Time             `json:"lastUpdated"`
}

func (b *bucketedBlob) buckets(kind domain.BucketKind) map[string]bucketBlob {
	if kind == domain.BucketWeek {
		if b.Weeks == nil {
			b.Weeks = make(map[string]bucketBlob)
		}

		return b.Weeks
	}

	if b.Months == nil {
		b.Months = make(map[string]bucketBlob)
	}

	return b.Months
}

// flatBlob is the whole-organization snapshot layout.
type flatBlob struct {
	Organization string                  `json:"organization"`
	LastUpdated  time.Time               `json:"lastUpdated"`
	Activities   []domain.ActivityRecord `json:"activities"`
}

func (s *Store) flatPath(org string) string {
	return filepath.Join(s.dir, org+".json")
}

func (s *Store) mapPath(org string, kind domain.BucketKind) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%ss.json", org, kind))
}

func (s *Store) legacyBucketPath(org string, kind domain.BucketKind, key string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s-%s.json", org, kind, key))
}

// readJSON unmarshals one blob file. Missing files return fs.ErrNotExist;
// unreadable or malformed files are logged and reported as corrupted.
func (s *Store) readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}

		s.log.Warn("failed to read ledger blob", slog.String("path", path), sl.Err(err))

		return fmt.Errorf("%w: %s", apperrors.ErrCorruptedData, path)
	}

	if err := json.Unmarshal(data, v); err != nil {
		s.log.Warn("malformed ledger blob, treating as empty", slog.String("path", path), sl.Err(err))

		return fmt.Errorf("%w: %s", apperrors.ErrCorruptedData, path)
	}

	return nil
}

// writeJSON writes a blob through a temp file and rename, so a failure
// mid-write leaves the previous state untouched.
func (s *Store) writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create storage dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal blob: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("failed to replace blob: %w", err)
	}

	return nil
}

// loadBuckets returns every stored bucket of one kind, merging the map
// layout with any legacy file-per-bucket blobs. Map entries win on key
// collisions since they are the layout writes go to.
func (s *Store) loadBuckets(org string, kind domain.BucketKind) map[string]bucketBlob {
	buckets := make(map[string]bucketBlob)

	pattern := s.legacyBucketPath(org, kind, "*")
	matches, err := filepath.Glob(pattern)
	if err == nil {
		for _, path := range matches {
			if strings.Contains(filepath.Base(path), ".tmp-") {
				continue
			}

			var blob bucketBlob
			if err := s.readJSON(path, &blob); err != nil {
				continue
			}

			if key := blob.key(); key != "" {
				buckets[key] = blob
			}
		}
	}

	var blob bucketedBlob
	if err := s.readJSON(s.mapPath(org, kind), &blob); err == nil {
		for key, bucket := range blob.buckets(kind) {
			buckets[key] = bucket
		}
	}

	return buckets
}

func (s *Store) IsBucketFetched(_ context.Context, org string, kind domain.BucketKind, bucketKey string) bool {
	_, ok := s.loadBuckets(org, kind)[bucketKey]
	return ok
}

func (s *Store) SaveBucket(_ context.Context, org string, kind domain.BucketKind, rangeStart, rangeEnd string, records []domain.ActivityRecord, force bool) (*domain.FetchBucket, error) {
	const op = "internal.repository.filestore.SaveBucket"

	bucketKey, err := kind.KeyForDate(rangeStart)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	existing := s.loadBuckets(org, kind)
	if _, ok := existing[bucketKey]; ok && !force {
		return nil, &apperrors.BucketAlreadyExistsError{
			Organization: org,
			BucketKey:    bucketKey,
			RangeStart:   rangeStart,
			RangeEnd:     rangeEnd,
		}
	}

	now := s.now()

	blob := bucketBlob{
		RangeStart:  rangeStart,
		RangeEnd:    rangeEnd,
		LastUpdated: now,
		Activities:  records,
	}
	if kind == domain.BucketWeek {
		blob.Week = bucketKey
	} else {
		blob.Month = bucketKey
	}

	var mapBlob bucketedBlob
	if err := s.readJSON(s.mapPath(org, kind), &mapBlob); err != nil && !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, apperrors.ErrCorruptedData) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	mapBlob.Organization = org
	mapBlob.buckets(kind)[bucketKey] = blob
	mapBlob.LastUpdated = now

	if err := s.writeJSON(s.mapPath(org, kind), &mapBlob); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &domain.FetchBucket{
		BucketKey:     bucketKey,
		Kind:          kind,
		RangeStart:    rangeStart,
		RangeEnd:      rangeEnd,
		LastFetchedAt: now,
		Records:       records,
	}, nil
}

func (s *Store) LoadBucket(_ context.Context, org string, kind domain.BucketKind, bucketKey string) ([]domain.ActivityRecord, error) {
	const op = "internal.repository.filestore.LoadBucket"

	blob, ok := s.loadBuckets(org, kind)[bucketKey]
	if !ok {
		return nil, fmt.Errorf("%s: %w: bucket '%s' for organization '%s'", op, apperrors.ErrNotFound, bucketKey, org)
	}

	return blob.Activities, nil
}

func (s *Store) ListFetchedBuckets(_ context.Context, org string, kind domain.BucketKind) ([]domain.BucketInfo, error) {
	buckets := s.loadBuckets(org, kind)

	infos := make([]domain.BucketInfo, 0, len(buckets))
	for key, blob := range buckets {
		infos = append(infos, domain.BucketInfo{
			BucketKey:     key,
			RangeStart:    blob.RangeStart,
			RangeEnd:      blob.RangeEnd,
			LastFetchedAt: blob.LastUpdated,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].RangeStart != infos[j].RangeStart {
			return infos[i].RangeStart < infos[j].RangeStart
		}

		return infos[i].BucketKey < infos[j].BucketKey
	})

	return infos, nil
}

func (s *Store) DeleteBucket(_ context.Context, org string, kind domain.BucketKind, bucketKey string) (bool, error) {
	const op = "internal.repository.filestore.DeleteBucket"

	deleted := false

	legacy := s.legacyBucketPath(org, kind, bucketKey)
	if err := os.Remove(legacy); err == nil {
		deleted = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("%s: failed to remove bucket file: %w", op, err)
	}

	var mapBlob bucketedBlob
	if err := s.readJSON(s.mapPath(org, kind), &mapBlob); err == nil {
		buckets := mapBlob.buckets(kind)
		if _, ok := buckets[bucketKey]; ok {
			delete(buckets, bucketKey)
			mapBlob.LastUpdated = s.now()

			if err := s.writeJSON(s.mapPath(org, kind), &mapBlob); err != nil {
				return false, fmt.Errorf("%s: %w", op, err)
			}

			deleted = true
		}
	}

	return deleted, nil
}

func (s *Store) SaveSnapshot(_ context.Context, org string, records []domain.ActivityRecord) error {
	const op = "internal.repository.filestore.SaveSnapshot"

	blob := flatBlob{
		Organization: org,
		LastUpdated:  s.now(),
		Activities:   records,
	}

	if err := s.writeJSON(s.flatPath(org), &blob); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) LoadSnapshot(_ context.Context, org string) ([]domain.ActivityRecord, error) {
	const op = "internal.repository.filestore.LoadSnapshot"

	var blob flatBlob
	if err := s.readJSON(s.flatPath(org), &blob); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w: snapshot for organization '%s'", op, apperrors.ErrNotFound, org)
		}

		// Corrupted snapshot reads as empty.
		return nil, nil
	}

	return blob.Activities, nil
}

func (s *Store) LoadAllMerged(_ context.Context, orgs []string, kind *domain.BucketKind, within *domain.DateRange) (*domain.MergedData, error) {
	merged := &domain.MergedData{
		PerOrg: make(map[string]domain.OrgStats, len(orgs)),
	}

	kinds := []domain.BucketKind{domain.BucketWeek, domain.BucketMonth}
	if kind != nil {
		kinds = []domain.BucketKind{*kind}
	}

	for _, org := range orgs {
		stats := domain.OrgStats{}
		hasBuckets := false

		for _, k := range kinds {
			buckets := s.loadBuckets(org, k)
			if len(buckets) > 0 {
				hasBuckets = true
			}

			keys := make([]string, 0, len(buckets))
			for key := range buckets {
				keys = append(keys, key)
			}
			sort.Slice(keys, func(i, j int) bool {
				if buckets[keys[i]].RangeStart != buckets[keys[j]].RangeStart {
					return buckets[keys[i]].RangeStart < buckets[keys[j]].RangeStart
				}

				return keys[i] < keys[j]
			})

			for _, key := range keys {
				blob := buckets[key]
				if !overlaps(blob, within) {
					continue
				}

				stats.FetchedBucketKeys = append(stats.FetchedBucketKeys, key)
				stats.Count += len(blob.Activities)
				if blob.LastUpdated.After(stats.LastUpdated) {
					stats.LastUpdated = blob.LastUpdated
				}

				merged.Records = append(merged.Records, blob.Activities...)
			}
		}

		// The flat snapshot only backs organizations with no buckets at all,
		// so data present in both layouts is not counted twice.
		if !hasBuckets {
			var blob flatBlob
			if err := s.readJSON(s.flatPath(org), &blob); err == nil {
				stats.Count = len(blob.Activities)
				stats.LastUpdated = blob.LastUpdated
				merged.Records = append(merged.Records, blob.Activities...)
			}
		}

		merged.PerOrg[org] = stats
	}

	return merged, nil
}

// overlaps reports whether a bucket's range intersects the global range.
// Lexicographic comparison is correct for zero-padded "YYYY-MM-DD" strings.
func overlaps(blob bucketBlob, within *domain.DateRange) bool {
	if within == nil {
		return true
	}

	if within.End != "" && blob.RangeStart > within.End {
		return false
	}

	if within.Start != "" && blob.RangeEnd < within.Start {
		return false
	}

	return true
}
