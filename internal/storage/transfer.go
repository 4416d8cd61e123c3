// ABOUTME: Snapshot export and import, with merge (skip existing) and replace modes
// ABOUTME: Imports validate before writing, commit in one transaction, and index new posts afterwards

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harper/xvault/internal/models"
	"github.com/harper/xvault/internal/timeutil"
)

// Stats summarizes the vault's contents.
type Stats struct {
	SchemaVersion int `json:"schemaVersion"`
	Posts         int `json:"posts"`
	Authors       int `json:"authors"`
	Starred       int `json:"starred"`
	Blocked       int `json:"blocked"`
	BlogPosts     int `json:"blogPosts"`
	Tokens        int `json:"tokens"`
}

// Stats counts every collection.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	db, err := s.reader(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{}
	if st.SchemaVersion, err = schemaVersion(ctx, db); err != nil {
		return nil, err
	}
	counts := []struct {
		dst *int
		c   Collection
		q   Query
	}{
		{&st.Posts, Tweets, Query{}},
		{&st.Authors, Users, Query{}},
		{&st.Starred, Users, Query{Index: "byStarredCount", Range: Only(true)}},
		{&st.Blocked, Blocked, Query{}},
		{&st.BlogPosts, BlogPosts, Query{}},
		{&st.Tokens, SearchIndex, Query{}},
	}
	for _, c := range counts {
		if *c.dst, err = Count(ctx, db, c.c, c.q); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Export reads every collection into a snapshot inside one transaction so
// the result is consistent.
func (s *Store) Export(ctx context.Context) (*models.Snapshot, error) {
	ctx, span := s.startSpan(ctx, "Export")
	var err error
	defer func() { endSpan(span, err) }()

	snap := &models.Snapshot{
		ExportedAt:   timeutil.Now(),
		Tweets:       []models.Post{},
		Users:        []models.Author{},
		BlockedUsers: []models.BlockedAuthor{},
		Settings:     []models.Setting{},
		BlogPosts:    []models.BlogPost{},
	}
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if snap.Version, err = schemaVersion(ctx, tx); err != nil {
			return err
		}
		if err := collectInto(Scan[models.Post](ctx, tx, Tweets, Query{}), &snap.Tweets); err != nil {
			return err
		}
		if err := collectInto(Scan[models.Author](ctx, tx, Users, Query{}), &snap.Users); err != nil {
			return err
		}
		if err := collectInto(Scan[models.BlockedAuthor](ctx, tx, Blocked, Query{}), &snap.BlockedUsers); err != nil {
			return err
		}
		if err := collectInto(Scan[models.BlogPost](ctx, tx, BlogPosts, Query{}), &snap.BlogPosts); err != nil {
			return err
		}
		for row, err := range Scan[settingRow](ctx, tx, Settings, Query{}) {
			if err != nil {
				return err
			}
			snap.Settings = append(snap.Settings, row.setting())
		}
		return nil
	})
	if err != nil {
		err = fmt.Errorf("export: %w", err)
		return nil, err
	}
	return snap, nil
}

func collectInto[T any](seq iter.Seq2[*T, error], dst *[]T) error {
	for rec, err := range seq {
		if err != nil {
			return err
		}
		*dst = append(*dst, *rec)
	}
	return nil
}

// ParseSnapshot decodes and validates a backup file. A snapshot must carry
// both a tweets and a users list; nothing is written for a rejected file.
func ParseSnapshot(data []byte) (*models.Snapshot, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportValidation, err)
	}
	for _, key := range []string{"tweets", "users"} {
		if _, ok := top[key]; !ok {
			return nil, fmt.Errorf("%w: missing %q", ErrImportValidation, key)
		}
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportValidation, err)
	}
	var legacy struct {
		Tweets []legacyTweet `json:"tweets"`
	}
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportValidation, err)
	}
	for i := range snap.Tweets {
		legacy.Tweets[i].fill(&snap.Tweets[i])
	}
	if err := validateSnapshot(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// legacyTweet holds the field names the browser extension's backups use
// for posts.
type legacyTweet struct {
	TweetID     string  `json:"tweetId"`
	Handle      string  `json:"handle"`
	DisplayName string  `json:"displayName"`
	IsRetweet   bool    `json:"isRetweet"`
	RetweetedBy *string `json:"retweetedBy"`
}

// fill copies legacy fields into p where the current names were absent.
func (l legacyTweet) fill(p *models.Post) {
	if p.PostID == "" {
		p.PostID = l.TweetID
	}
	if p.AuthorHandle == "" {
		p.AuthorHandle = l.Handle
	}
	if p.AuthorDisplayName == "" {
		p.AuthorDisplayName = l.DisplayName
	}
	if !p.IsRepost && l.IsRetweet {
		p.IsRepost = true
	}
	if p.RepostedBy == nil && l.RetweetedBy != nil && *l.RetweetedBy != "" {
		by := *l.RetweetedBy
		p.RepostedBy = &by
	}
}

func validateSnapshot(snap *models.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: empty snapshot", ErrImportValidation)
	}
	for i, p := range snap.Tweets {
		if p.PostID == "" || p.AuthorHandle == "" {
			return fmt.Errorf("%w: tweet %d needs postId and authorHandle", ErrImportValidation, i)
		}
	}
	for i, a := range snap.Users {
		if a.Handle == "" {
			return fmt.Errorf("%w: user %d has no handle", ErrImportValidation, i)
		}
	}
	for i, b := range snap.BlockedUsers {
		if b.Handle == "" {
			return fmt.Errorf("%w: blocked user %d has no handle", ErrImportValidation, i)
		}
	}
	for i, st := range snap.Settings {
		if st.Key == "" || len(st.Value) == 0 {
			return fmt.Errorf("%w: setting %d needs key and value", ErrImportValidation, i)
		}
	}
	for i, b := range snap.BlogPosts {
		if b.PostID == "" {
			return fmt.Errorf("%w: blog post %d has no postId", ErrImportValidation, i)
		}
	}
	return nil
}

// Import writes a snapshot. With merge set, records whose key already exists
// are skipped, except authors, which are merged field by field; author
// counters touched by the import are then recounted. Without merge, every
// collection is cleared and the snapshot written verbatim. Either way the
// writes commit together, and newly written posts are indexed afterwards.
func (s *Store) Import(ctx context.Context, snap *models.Snapshot, merge bool) (models.ImportCounts, error) {
	if err := validateSnapshot(snap); err != nil {
		return models.ImportCounts{}, err
	}

	ctx, span := s.startSpan(ctx, "Import", attribute.Bool("import.merge", merge))
	var err error
	defer func() { endSpan(span, err) }()

	var (
		counts   models.ImportCounts
		inserted []*models.Post
	)
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if merge {
			counts, inserted, err = mergeSnapshot(ctx, tx, snap)
		} else {
			counts, inserted, err = replaceWithSnapshot(ctx, tx, snap)
		}
		return err
	})
	if err != nil {
		err = fmt.Errorf("import: %w", err)
		return models.ImportCounts{}, err
	}

	if !merge {
		if _, indexErr := s.Reindex(ctx); indexErr != nil {
			s.logger.Warn("import committed but search index not rebuilt", "err", indexErr)
		}
	} else {
		changes := make([]indexChange, 0, len(inserted))
		for _, p := range inserted {
			changes = append(changes, changeFor(p.PostID, "", p.SearchText()))
		}
		if indexErr := s.applyIndexChanges(ctx, changes); indexErr != nil {
			s.logger.Warn("import committed but posts not indexed", "err", indexErr)
		}
	}

	s.logger.Info("imported snapshot", "merge", merge, "tweets", counts.Tweets, "users", counts.Users)
	return counts, nil
}

func replaceWithSnapshot(ctx context.Context, tx *sqlx.Tx, snap *models.Snapshot) (models.ImportCounts, []*models.Post, error) {
	var counts models.ImportCounts
	for _, c := range []Collection{Tweets, Users, Blocked, Settings, BlogPosts, SearchIndex} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+c.Name); err != nil {
			return counts, nil, fmt.Errorf("clear %s: %w", c.Name, err)
		}
	}

	posts := make([]*models.Post, 0, len(snap.Tweets))
	for i := range snap.Tweets {
		if err := Put(ctx, tx, Tweets, &snap.Tweets[i]); err != nil {
			return counts, nil, err
		}
		posts = append(posts, &snap.Tweets[i])
	}
	counts.Tweets = len(snap.Tweets)

	for i := range snap.Users {
		if err := Put(ctx, tx, Users, &snap.Users[i]); err != nil {
			return counts, nil, err
		}
	}
	counts.Users = len(snap.Users)

	for i := range snap.BlockedUsers {
		if err := Put(ctx, tx, Blocked, &snap.BlockedUsers[i]); err != nil {
			return counts, nil, err
		}
	}
	counts.BlockedUsers = len(snap.BlockedUsers)

	for _, st := range snap.Settings {
		if err := Put(ctx, tx, Settings, &settingRow{Key: st.Key, Value: string(st.Value)}); err != nil {
			return counts, nil, err
		}
	}
	counts.Settings = len(snap.Settings)

	for i := range snap.BlogPosts {
		if err := Put(ctx, tx, BlogPosts, &snap.BlogPosts[i]); err != nil {
			return counts, nil, err
		}
	}
	counts.BlogPosts = len(snap.BlogPosts)

	return counts, posts, nil
}

// normalizeSnapshotHandles canonicalizes every handle in snap so merged
// rows are reachable by the normalized lookups every read path uses.
func normalizeSnapshotHandles(snap *models.Snapshot) {
	for i := range snap.Tweets {
		p := &snap.Tweets[i]
		p.AuthorHandle = models.NormalizeHandle(p.AuthorHandle)
		if p.RepostedBy != nil {
			by := models.NormalizeHandle(*p.RepostedBy)
			p.RepostedBy = &by
		}
	}
	for i := range snap.Users {
		snap.Users[i].Handle = models.NormalizeHandle(snap.Users[i].Handle)
	}
	for i := range snap.BlockedUsers {
		snap.BlockedUsers[i].Handle = models.NormalizeHandle(snap.BlockedUsers[i].Handle)
	}
	for i := range snap.BlogPosts {
		snap.BlogPosts[i].Handle = models.NormalizeHandle(snap.BlogPosts[i].Handle)
	}
}

func mergeSnapshot(ctx context.Context, tx *sqlx.Tx, snap *models.Snapshot) (models.ImportCounts, []*models.Post, error) {
	var (
		counts   models.ImportCounts
		inserted []*models.Post
		touched  = make(map[string]bool)
	)

	normalizeSnapshotHandles(snap)

	for i := range snap.Tweets {
		p := &snap.Tweets[i]
		wrote, err := putIfAbsent(ctx, tx, Tweets, p.PostID, p)
		if err != nil {
			return counts, nil, err
		}
		if wrote {
			counts.Tweets++
			inserted = append(inserted, p)
			touched[p.AuthorHandle] = true
		}
	}

	for i := range snap.Users {
		incoming := &snap.Users[i]
		existing, err := Get[models.Author](ctx, tx, Users, incoming.Handle)
		if err != nil {
			return counts, nil, err
		}
		record := incoming
		if existing != nil {
			record = models.MergeAuthor(existing, incoming)
			// Counters are recounted below, so a count-only difference is not a change.
			candidate := *record
			candidate.TweetCount = existing.TweetCount
			if candidate == *existing {
				continue
			}
		}
		if err := Put(ctx, tx, Users, record); err != nil {
			return counts, nil, err
		}
		counts.Users++
		touched[incoming.Handle] = true
	}

	for i := range snap.BlockedUsers {
		b := &snap.BlockedUsers[i]
		wrote, err := putIfAbsent(ctx, tx, Blocked, b.Handle, b)
		if err != nil {
			return counts, nil, err
		}
		if wrote {
			counts.BlockedUsers++
		}
	}

	for _, st := range snap.Settings {
		wrote, err := putIfAbsent(ctx, tx, Settings, st.Key, &settingRow{Key: st.Key, Value: string(st.Value)})
		if err != nil {
			return counts, nil, err
		}
		if wrote {
			counts.Settings++
		}
	}

	for i := range snap.BlogPosts {
		b := &snap.BlogPosts[i]
		wrote, err := putIfAbsent(ctx, tx, BlogPosts, b.PostID, b)
		if err != nil {
			return counts, nil, err
		}
		if wrote {
			counts.BlogPosts++
		}
	}

	// Merged counters are only a lower bound; recount so they match the posts now stored.
	if err := recountHandles(ctx, tx, touched); err != nil {
		return counts, nil, err
	}
	return counts, inserted, nil
}

// putIfAbsent writes rec unless key already exists and reports whether it wrote.
func putIfAbsent[T any](ctx context.Context, tx *sqlx.Tx, c Collection, key string, rec *T) (bool, error) {
	n, err := Count(ctx, tx, c, Query{Range: Only(key)})
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	return true, Put(ctx, tx, c, rec)
}
