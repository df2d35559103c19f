package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore is the MongoDB backend. Submissions and LLM events live in
// two collections of the configured database.
type MongoStore struct {
	client      *mongo.Client
	submissions *mongo.Collection
	events      *mongo.Collection
}

var _ Backend = (*MongoStore)(nil)

// OpenMongo connects to MongoDB and ensures the collection indexes exist.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:      client,
		submissions: db.Collection(submissionsTable),
		events:      db.Collection(llmEventsTable),
	}

	_, err = s.submissions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("create submissions index: %w", err)
	}

	return s, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

// SubmissionRepo returns a SubmissionRepo backed by this store.
func (s *MongoStore) SubmissionRepo() SubmissionRepo {
	return &mongoSubmissionRepo{collection: s.submissions}
}

// EventRepo returns an EventRepo backed by this store.
func (s *MongoStore) EventRepo() EventRepo {
	return &mongoEventRepo{collection: s.events}
}

// submissionDoc is the BSON layout of a submission. Field names match the
// SQL columns so both backends export the same shape.
type submissionDoc struct {
	ID               string    `bson:"_id"`
	FirstName        string    `bson:"user_first_name"`
	LastName         string    `bson:"user_last_name"`
	Email            string    `bson:"user_email"`
	Answer1          *string   `bson:"answer_1"`
	Answer2          *string   `bson:"answer_2"`
	Answer3          *string   `bson:"answer_3"`
	Analysis         *string   `bson:"analysis"`
	CompletedModules int       `bson:"completed_modules"`
	TotalModules     int       `bson:"total_modules"`
	CreatedAt        time.Time `bson:"created_at"`
}

func toSubmissionDoc(sub *Submission) submissionDoc {
	return submissionDoc{
		ID:               sub.ID,
		FirstName:        sub.FirstName,
		LastName:         sub.LastName,
		Email:            sub.Email,
		Answer1:          sub.answerColumn(1),
		Answer2:          sub.answerColumn(2),
		Answer3:          sub.answerColumn(3),
		Analysis:         sub.Analysis,
		CompletedModules: sub.CompletedModules,
		TotalModules:     sub.TotalModules,
		CreatedAt:        sub.CreatedAt,
	}
}

func (d submissionDoc) toSubmission() *Submission {
	sub := &Submission{
		ID:               d.ID,
		FirstName:        d.FirstName,
		LastName:         d.LastName,
		Email:            d.Email,
		Answers:          make(Answers),
		Analysis:         d.Analysis,
		CompletedModules: d.CompletedModules,
		TotalModules:     d.TotalModules,
		CreatedAt:        d.CreatedAt.UTC(),
	}
	for i, a := range []*string{d.Answer1, d.Answer2, d.Answer3} {
		if a != nil {
			sub.Answers[i+1] = *a
		}
	}
	return sub
}

type mongoSubmissionRepo struct {
	collection *mongo.Collection
}

func (r *mongoSubmissionRepo) Insert(ctx context.Context, sub *Submission) (*Submission, error) {
	rec := *sub
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	// BSON dates carry millisecond precision.
	rec.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	rec.Answers = compactAnswers(sub.Answers)
	rec.Analysis = blankToNil(rec.Analysis)

	if _, err := r.collection.InsertOne(ctx, toSubmissionDoc(&rec)); err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	return &rec, nil
}

func (r *mongoSubmissionRepo) Get(ctx context.Context, id string) (*Submission, error) {
	var doc submissionDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return doc.toSubmission(), nil
}

func (r *mongoSubmissionRepo) List(ctx context.Context, opts ListOpts) ([]*Submission, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []submissionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode submissions: %w", err)
	}

	out := make([]*Submission, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toSubmission())
	}
	return out, nil
}

func (r *mongoSubmissionRepo) SetAnalysis(ctx context.Context, id, analysis string) (bool, error) {
	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"analysis": nil},
			bson.M{"analysis": bson.M{"$regex": `^\s*$`}},
		},
	}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"analysis": analysis}})
	if err != nil {
		return false, fmt.Errorf("update analysis: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

type llmEventDoc struct {
	ID           string    `bson:"_id"`
	Seq          int64     `bson:"seq"`
	Timestamp    time.Time `bson:"timestamp"`
	Provider     string    `bson:"provider"`
	Model        string    `bson:"model"`
	Purpose      string    `bson:"purpose"`
	InputTokens  int       `bson:"input_tokens"`
	OutputTokens int       `bson:"output_tokens"`
	LatencyMs    int64     `bson:"latency_ms"`
	Success      bool      `bson:"success"`
	ErrorMessage string    `bson:"error_message"`
	RequestBody  string    `bson:"request_body"`
	ResponseBody string    `bson:"response_body"`
}

type mongoEventRepo struct {
	collection *mongo.Collection
}

func (r *mongoEventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	now := time.Now().UTC()
	doc := llmEventDoc{
		ID:           uuid.NewString(),
		Seq:          now.UnixNano(),
		Timestamp:    now,
		Provider:     data.Provider,
		Model:        data.Model,
		Purpose:      data.Purpose,
		InputTokens:  data.InputTokens,
		OutputTokens: data.OutputTokens,
		LatencyMs:    data.LatencyMs,
		Success:      data.Success,
		ErrorMessage: data.ErrorMessage,
		RequestBody:  data.RequestBody,
		ResponseBody: data.ResponseBody,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *mongoEventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEventRecord, error) {
	filter := bson.M{}
	ts := bson.M{}
	if !opts.From.IsZero() {
		ts["$gte"] = opts.From
	}
	if !opts.To.IsZero() {
		ts["$lte"] = opts.To
	}
	if len(ts) > 0 {
		filter["timestamp"] = ts
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "seq", Value: -1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cursor, err := r.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []llmEventDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode LLM events: %w", err)
	}

	out := make([]LLMEventRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toRecord())
	}
	return out, nil
}

// GetLLMEvent looks events up by their sequence number, which is the ID
// shown by the CLI.
func (r *mongoEventRepo) GetLLMEvent(ctx context.Context, id int64) (*LLMEventRecord, error) {
	var doc llmEventDoc
	err := r.collection.FindOne(ctx, bson.M{"seq": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get LLM event: %w", err)
	}
	rec := doc.toRecord()
	return &rec, nil
}

func (r *mongoEventRepo) LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$purpose"},
			{Key: "calls", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "input", Value: bson.D{{Key: "$sum", Value: "$input_tokens"}}},
			{Key: "output", Value: bson.D{{Key: "$sum", Value: "$output_tokens"}}},
			{Key: "latency", Value: bson.D{{Key: "$avg", Value: "$latency_ms"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	var rows []struct {
		Purpose string  `bson:"_id"`
		Calls   int     `bson:"calls"`
		Input   int     `bson:"input"`
		Output  int     `bson:"output"`
		Latency float64 `bson:"latency"`
	}
	if err := r.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("usage by purpose: %w", err)
	}

	out := make([]PurposeUsage, 0, len(rows))
	for _, row := range rows {
		out = append(out, PurposeUsage{
			Purpose:      row.Purpose,
			Calls:        row.Calls,
			InputTokens:  row.Input,
			OutputTokens: row.Output,
			AvgLatencyMs: int64(row.Latency),
		})
	}
	return out, nil
}

func (r *mongoEventRepo) LLMUsageByModel(ctx context.Context) ([]ModelUsage, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "success", Value: true}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$model"},
			{Key: "calls", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "input", Value: bson.D{{Key: "$sum", Value: "$input_tokens"}}},
			{Key: "output", Value: bson.D{{Key: "$sum", Value: "$output_tokens"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	var rows []struct {
		Model  string `bson:"_id"`
		Calls  int    `bson:"calls"`
		Input  int    `bson:"input"`
		Output int    `bson:"output"`
	}
	if err := r.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("usage by model: %w", err)
	}

	out := make([]ModelUsage, 0, len(rows))
	for _, row := range rows {
		out = append(out, ModelUsage{
			Model:        row.Model,
			Calls:        row.Calls,
			InputTokens:  row.Input,
			OutputTokens: row.Output,
		})
	}
	return out, nil
}

func (r *mongoEventRepo) aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

func (d llmEventDoc) toRecord() LLMEventRecord {
	return LLMEventRecord{
		ID:        d.Seq,
		Timestamp: d.Timestamp.UTC(),
		LLMRequestEventData: LLMRequestEventData{
			Provider:     d.Provider,
			Model:        d.Model,
			Purpose:      d.Purpose,
			InputTokens:  d.InputTokens,
			OutputTokens: d.OutputTokens,
			LatencyMs:    d.LatencyMs,
			Success:      d.Success,
			ErrorMessage: d.ErrorMessage,
			RequestBody:  d.RequestBody,
			ResponseBody: d.ResponseBody,
		},
	}
}
