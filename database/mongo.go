package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"quiz-gatekeeper/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database

	// Collections
	Groups      *mongo.Collection
	Questions   *mongo.Collection
	GroupAdmins *mongo.Collection
	AnswersLog  *mongo.Collection
	UserStates  *mongo.Collection
	Counters    *mongo.Collection

	defaultAttempts int
}

func Connect(uri, dbName string, defaultAttempts int) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Checking the connection
	ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(dbName)

	mongoDB := &MongoDB{
		Client:          client,
		Database:        db,
		Groups:          db.Collection("groups"),
		Questions:       db.Collection("questions"),
		GroupAdmins:     db.Collection("group_admins"),
		AnswersLog:      db.Collection("answers_log"),
		UserStates:      db.Collection("user_group_state"),
		Counters:        db.Collection("counters"),
		defaultAttempts: defaultAttempts,
	}

	createIndexes(mongoDB)

	logger.Log.Info("Connected to MongoDB", zap.String("database", dbName))
	return mongoDB, nil
}

func createIndexes(db *MongoDB) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	groupIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "chat_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := db.Groups.Indexes().CreateMany(ctx, groupIndexes); err != nil {
		logger.Log.Error("Error creating groups indexes", zap.Error(err))
	}

	questionIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "id", Value: 1}},
		},
	}
	if _, err := db.Questions.Indexes().CreateMany(ctx, questionIndexes); err != nil {
		logger.Log.Error("Error creating questions indexes", zap.Error(err))
	}

	adminIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "chat_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := db.GroupAdmins.Indexes().CreateMany(ctx, adminIndexes); err != nil {
		logger.Log.Error("Error creating group_admins indexes", zap.Error(err))
	}

	logIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "id", Value: -1}},
		},
	}
	if _, err := db.AnswersLog.Indexes().CreateMany(ctx, logIndexes); err != nil {
		logger.Log.Error("Error creating answers_log indexes", zap.Error(err))
	}

	stateIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "chat_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := db.UserStates.Indexes().CreateMany(ctx, stateIndexes); err != nil {
		logger.Log.Error("Error creating user_group_state indexes", zap.Error(err))
	}
}

func (db *MongoDB) Disconnect() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.Client.Disconnect(ctx); err != nil {
		logger.Log.Error("Error disconnecting from MongoDB", zap.Error(err))
	}
	logger.Log.Info("Disconnected from MongoDB")
}

// nextID returns the next value of a named monotonic sequence.
func (db *MongoDB) nextID(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	err := db.Counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}

	return counter.Seq, nil
}

// Groups

// EnsureGroup creates the group row if it does not exist and refreshes
// the title if it does. max_attempts is only set on insert.
func (db *MongoDB) EnsureGroup(ctx context.Context, chatID int64, title string) error {
	if title == "" {
		title = strconv.FormatInt(chatID, 10)
	}

	_, err := db.Groups.UpdateOne(
		ctx,
		bson.M{"chat_id": chatID},
		bson.M{
			"$set":         bson.M{"title": title},
			"$setOnInsert": bson.M{"max_attempts": db.defaultAttempts},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (db *MongoDB) GroupsInfo(ctx context.Context) ([]Group, error) {
	cur, err := db.Groups.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	var groups []Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// MaxAttempts returns the group's configured limit, or the process
// default if the group row does not exist yet.
func (db *MongoDB) MaxAttempts(ctx context.Context, chatID int64) (int, error) {
	var group Group
	err := db.Groups.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&group)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return db.defaultAttempts, nil
	}
	if err != nil {
		return 0, err
	}
	return group.MaxAttempts, nil
}

func (db *MongoDB) SetMaxAttempts(ctx context.Context, chatID int64, n int) error {
	_, err := db.Groups.UpdateOne(
		ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{"max_attempts": n}},
	)
	return err
}

// Questions

// QuestionsFor returns the group's questions in ascending id order,
// which is the quiz sequence.
func (db *MongoDB) QuestionsFor(ctx context.Context, chatID int64) ([]Question, error) {
	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}})
	cur, err := db.Questions.Find(ctx, bson.M{"chat_id": chatID}, opts)
	if err != nil {
		return nil, err
	}

	var questions []Question
	if err := cur.All(ctx, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (db *MongoDB) AddQuestion(ctx context.Context, chatID int64, question, answer string) (*Question, error) {
	id, err := db.nextID(ctx, "questions")
	if err != nil {
		return nil, err
	}

	q := &Question{
		ID:       id,
		ChatID:   chatID,
		Question: question,
		Answer:   answer,
	}

	if _, err := db.Questions.InsertOne(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (db *MongoDB) DeleteQuestion(ctx context.Context, qid int64) error {
	_, err := db.Questions.DeleteOne(ctx, bson.M{"id": qid})
	return err
}

// Admins

// AddAdmin inserts the (chat, user) pair; inserting an existing pair is
// a no-op.
func (db *MongoDB) AddAdmin(ctx context.Context, chatID, userID int64) error {
	_, err := db.GroupAdmins.UpdateOne(
		ctx,
		bson.M{"chat_id": chatID, "user_id": userID},
		bson.M{"$setOnInsert": bson.M{"chat_id": chatID, "user_id": userID}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (db *MongoDB) IsGroupAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	err := db.GroupAdmins.FindOne(ctx, bson.M{"chat_id": chatID, "user_id": userID}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (db *MongoDB) AdminsFor(ctx context.Context, chatID int64) ([]int64, error) {
	cur, err := db.GroupAdmins.Find(ctx, bson.M{"chat_id": chatID})
	if err != nil {
		return nil, err
	}

	var rows []GroupAdmin
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	return ids, nil
}

// Answer log

func (db *MongoDB) LogAnswer(ctx context.Context, chatID, userID int64, username, question, given string, correct bool) error {
	id, err := db.nextID(ctx, "answers_log")
	if err != nil {
		return err
	}

	entry := AnswerLogEntry{
		ID:          id,
		ChatID:      chatID,
		UserID:      userID,
		Username:    username,
		Question:    question,
		GivenAnswer: given,
		IsCorrect:   correct,
		Timestamp:   time.Now(),
	}

	_, err = db.AnswersLog.InsertOne(ctx, entry)
	return err
}

func (db *MongoDB) Stats(ctx context.Context, chatID int64) (*GroupStats, error) {
	total, err := db.AnswersLog.CountDocuments(ctx, bson.M{"chat_id": chatID})
	if err != nil {
		return nil, err
	}
	correct, err := db.AnswersLog.CountDocuments(ctx, bson.M{"chat_id": chatID, "is_correct": true})
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "id", Value: -1}}).
		SetLimit(10)
	cur, err := db.AnswersLog.Find(ctx, bson.M{"chat_id": chatID}, opts)
	if err != nil {
		return nil, err
	}

	var last []AnswerLogEntry
	if err := cur.All(ctx, &last); err != nil {
		return nil, err
	}

	return &GroupStats{
		Total:   total,
		Correct: correct,
		Wrong:   total - correct,
		Last:    last,
	}, nil
}

// User state

// UpsertUserState creates the (user, chat) state row with the
// not-verified defaults if and only if it does not exist. An existing
// row, whatever its status, is left untouched.
func (db *MongoDB) UpsertUserState(ctx context.Context, userID, chatID int64) error {
	_, err := db.UserStates.UpdateOne(
		ctx,
		bson.M{"user_id": userID, "chat_id": chatID},
		bson.M{"$setOnInsert": bson.M{
			"user_id":         userID,
			"chat_id":         chatID,
			"status":          StatusNotVerified,
			"attempts":        0,
			"current_q_index": 0,
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

// UserState returns the state row for (user, chat), or nil if none
// exists.
func (db *MongoDB) UserState(ctx context.Context, userID, chatID int64) (*UserGroupState, error) {
	var state UserGroupState
	err := db.UserStates.FindOne(ctx, bson.M{"user_id": userID, "chat_id": chatID}).Decode(&state)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// UpdateUserState applies the set fields of upd to the (user, chat)
// row; unset fields keep their stored values.
func (db *MongoDB) UpdateUserState(ctx context.Context, userID, chatID int64, upd StateUpdate) error {
	set := bson.M{}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.Attempts != nil {
		set["attempts"] = *upd.Attempts
	}
	if upd.CurrentQIndex != nil {
		set["current_q_index"] = *upd.CurrentQIndex
	}
	if len(set) == 0 {
		return nil
	}

	_, err := db.UserStates.UpdateOne(
		ctx,
		bson.M{"user_id": userID, "chat_id": chatID},
		bson.M{"$set": set},
	)
	return err
}
