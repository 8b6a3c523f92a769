package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AnshRaj112/wellsync/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	profilesCollection    = "profiles"
	collectionsCollection = "collections"
)

type profileDoc struct {
	Username    string         `bson:"username"`
	DisplayName string         `bson:"display_name"`
	Avatar      string         `bson:"avatar,omitempty"`
	Role        models.Role    `bson:"role"`
	Profile     models.Profile `bson:"profile"`
	UpdatedAt   time.Time      `bson:"updated_at"`
}

type collectionDoc struct {
	Username  string                `bson:"username"`
	Type      models.CollectionType `bson:"type"`
	Entries   []bson.D              `bson:"entries"`
	UpdatedAt time.Time             `bson:"updated_at"`
}

// MongoStore keeps one profile document per username and one document per
// username and collection type.
type MongoStore struct {
	profiles    *mongo.Collection
	collections *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		profiles:    db.Collection(profilesCollection),
		collections: db.Collection(collectionsCollection),
	}
}

// EnsureIndexes creates the unique lookup indexes. Called once from main after
// Mongo has connected.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.profiles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetName("idx_profile_username").SetUnique(true),
	}); err != nil {
		return fmt.Errorf("profiles index: %w", err)
	}
	if _, err := s.collections.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "username", Value: 1},
			{Key: "type", Value: 1},
		},
		Options: options.Index().SetName("idx_username_type").SetUnique(true),
	}); err != nil {
		return fmt.Errorf("collections index: %w", err)
	}
	return nil
}

func (s *MongoStore) SaveProfile(ctx context.Context, user models.Identity, profile models.Profile) error {
	if profile.Badges == nil {
		profile.Badges = []string{}
	}
	doc := profileDoc{
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Avatar:      user.Avatar,
		Role:        user.Role,
		Profile:     profile,
		UpdatedAt:   time.Now().UTC(),
	}
	_, err := s.profiles.ReplaceOne(ctx,
		bson.M{"username": user.Username},
		doc,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) SaveCollection(ctx context.Context, username string, t models.CollectionType, entries []json.RawMessage) error {
	docs := make([]bson.D, 0, len(entries))
	for i, e := range entries {
		var d bson.D
		if err := bson.UnmarshalExtJSON(e, false, &d); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		docs = append(docs, d)
	}
	_, err := s.collections.UpdateOne(ctx,
		bson.M{"username": username, "type": t},
		bson.M{"$set": bson.M{"entries": docs, "updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) ClearCollection(ctx context.Context, username string, t models.CollectionType) error {
	return s.SaveCollection(ctx, username, t, nil)
}

func (s *MongoStore) LoadUser(ctx context.Context, username string) (*UserData, error) {
	data := &UserData{Collections: make(map[models.CollectionType][]json.RawMessage)}

	var p profileDoc
	err := s.profiles.FindOne(ctx, bson.M{"username": username}).Decode(&p)
	switch {
	case err == nil:
		data.Profile = &p.Profile
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, err
	}

	cur, err := s.collections.Find(ctx, bson.M{"username": username})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var c collectionDoc
		if err := cur.Decode(&c); err != nil {
			continue
		}
		data.Collections[c.Type] = entriesJSON(c.Entries)
	}
	return data, cur.Err()
}

func (s *MongoStore) LoadAll(ctx context.Context) (*Dataset, error) {
	ds := &Dataset{Collections: make(map[models.CollectionType][]json.RawMessage)}

	pcur, err := s.profiles.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer pcur.Close(ctx)
	for pcur.Next(ctx) {
		var p profileDoc
		if err := pcur.Decode(&p); err != nil {
			continue
		}
		ds.Profiles = append(ds.Profiles, ProfileRecord{
			User: models.Identity{
				Username:    p.Username,
				DisplayName: p.DisplayName,
				Avatar:      p.Avatar,
				Role:        p.Role,
			},
			Profile:   p.Profile,
			UpdatedAt: p.UpdatedAt,
		})
	}
	if err := pcur.Err(); err != nil {
		return nil, err
	}

	ccur, err := s.collections.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer ccur.Close(ctx)
	for ccur.Next(ctx) {
		var c collectionDoc
		if err := ccur.Decode(&c); err != nil {
			continue
		}
		for _, e := range entriesJSON(c.Entries) {
			if tagged, ok := tagEntry(e, c.Username); ok {
				ds.Collections[c.Type] = append(ds.Collections[c.Type], tagged)
			}
		}
	}
	return ds, ccur.Err()
}

// entriesJSON renders stored entries back to relaxed extended JSON, which is
// plain JSON for the strings and numbers clients send.
func entriesJSON(docs []bson.D) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		raw, err := bson.MarshalExtJSON(d, false, false)
		if err != nil {
			continue
		}
		out = append(out, raw)
	}
	return out
}
