package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/soaringjerry/SurveyForge/internal/models"
	"github.com/soaringjerry/SurveyForge/internal/services"
)

const (
	collUsers     = "users"
	collSurveys   = "surveys"
	collResponses = "responses"
	collChat      = "chat_history"
)

// MongoStore keeps one collection per entity in a single database.
type MongoStore struct {
	client    *mongo.Client
	users     *mongo.Collection
	surveys   *mongo.Collection
	responses *mongo.Collection
	chat      *mongo.Collection
	log       logrus.FieldLogger
}

type surveyDoc struct {
	ID            primitive.ObjectID `bson:"_id"`
	models.Survey `bson:",inline"`
}

type responseDoc struct {
	ID              primitive.ObjectID `bson:"_id"`
	models.Response `bson:",inline"`
}

type chatDoc struct {
	Username string            `bson:"username"`
	Messages []models.ChatTurn `bson:"messages"`
}

// OpenMongoStore connects to uri, verifies the connection and ensures the
// indexes the store relies on.
func OpenMongoStore(ctx context.Context, uri, dbName string, logger logrus.FieldLogger) (*MongoStore, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second).
		// nested answer documents decode to maps, which encode to JSON objects
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	database := client.Database(dbName)
	s := &MongoStore{
		client:    client,
		users:     database.Collection(collUsers),
		surveys:   database.Collection(collSurveys),
		responses: database.Collection(collResponses),
		chat:      database.Collection(collChat),
		log:       logger.WithFields(logrus.Fields{"store": "mongo", "database": dbName}),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.users, mongo.IndexModel{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{s.surveys, mongo.IndexModel{Keys: bson.D{{Key: "createdBy", Value: 1}}}},
		{s.responses, mongo.IndexModel{Keys: bson.D{{Key: "survey_id", Value: 1}}}},
		{s.chat, mongo.IndexModel{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("create index on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) FindUser(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *MongoStore) AddUser(ctx context.Context, u *models.User) error {
	_, err := s.users.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return services.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	return nil
}

func (s *MongoStore) InsertSurvey(ctx context.Context, sv *models.Survey) (string, error) {
	doc := surveyDoc{ID: primitive.NewObjectID(), Survey: *sv}
	if doc.Questions == nil {
		doc.Questions = []models.Question{}
	}
	if _, err := s.surveys.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert survey: %w", err)
	}
	return doc.ID.Hex(), nil
}

func (d *surveyDoc) model() *models.Survey {
	sv := d.Survey
	sv.ID = d.ID.Hex()
	if sv.Questions == nil {
		sv.Questions = []models.Question{}
	}
	return &sv
}

func (s *MongoStore) GetSurvey(ctx context.Context, id string) (*models.Survey, error) {
	oid, ok := models.ParseID(id)
	if !ok {
		return nil, nil
	}
	var doc surveyDoc
	err := s.surveys.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get survey: %w", err)
	}
	return doc.model(), nil
}

func (s *MongoStore) findSurveys(ctx context.Context, filter bson.M, limit int) ([]*models.Survey, error) {
	opts := options.Find().SetLimit(int64(limit)).SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.surveys.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	defer cur.Close(ctx)
	out := []*models.Survey{}
	for cur.Next(ctx) {
		var doc surveyDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode survey: %w", err)
		}
		out = append(out, doc.model())
	}
	return out, cur.Err()
}

func (s *MongoStore) ListSurveysByOwner(ctx context.Context, owner string, limit int) ([]*models.Survey, error) {
	return s.findSurveys(ctx, bson.M{"createdBy": owner}, limit)
}

func (s *MongoStore) ListSurveysNotOwnedBy(ctx context.Context, owner string, limit int) ([]*models.Survey, error) {
	return s.findSurveys(ctx, bson.M{"createdBy": bson.M{"$ne": owner}}, limit)
}

func (s *MongoStore) DeleteSurvey(ctx context.Context, id string) (bool, error) {
	oid, ok := models.ParseID(id)
	if !ok {
		return false, nil
	}
	res, err := s.surveys.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("delete survey: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) InsertResponse(ctx context.Context, r *models.Response) (string, error) {
	doc := responseDoc{ID: primitive.NewObjectID(), Response: *r}
	if doc.Answers == nil {
		doc.Answers = map[string]any{}
	}
	if _, err := s.responses.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert response: %w", err)
	}
	return doc.ID.Hex(), nil
}

func (s *MongoStore) ListResponsesBySurvey(ctx context.Context, surveyID string, limit int) ([]*models.Response, error) {
	opts := options.Find().SetLimit(int64(limit)).SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.responses.Find(ctx, bson.M{"survey_id": surveyID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer cur.Close(ctx)
	out := []*models.Response{}
	for cur.Next(ctx) {
		var doc responseDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		r := doc.Response
		r.ID = doc.ID.Hex()
		if r.Answers == nil {
			r.Answers = map[string]any{}
		}
		out = append(out, &r)
	}
	return out, cur.Err()
}

func (s *MongoStore) RecentChatTurns(ctx context.Context, username string, limit int) ([]models.ChatTurn, error) {
	opts := options.FindOne().SetProjection(bson.M{"messages": bson.M{"$slice": -limit}})
	var doc chatDoc
	err := s.chat.FindOne(ctx, bson.M{"username": username}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []models.ChatTurn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("recent chat turns: %w", err)
	}
	if doc.Messages == nil {
		doc.Messages = []models.ChatTurn{}
	}
	return doc.Messages, nil
}

func (s *MongoStore) AppendChatTurns(ctx context.Context, username string, turns ...models.ChatTurn) (int, error) {
	update := bson.M{"$push": bson.M{"messages": bson.M{"$each": turns}}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc chatDoc
	if err := s.chat.FindOneAndUpdate(ctx, bson.M{"username": username}, update, opts).Decode(&doc); err != nil {
		return 0, fmt.Errorf("append chat turns: %w", err)
	}
	s.log.WithFields(logrus.Fields{"username": username, "memory": len(doc.Messages)}).Debug("chat history appended")
	return len(doc.Messages), nil
}
