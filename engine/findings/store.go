// Package findings is the sole owner of all Qdrant operations: it indexes
// flagged inspection findings by note embedding and answers similarity
// queries over them.
package findings

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/OpenBayHQ/openbay-mvp/engine/vhc"
)

// pointsAPI is the subset of pb.PointsClient the store uses.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

// collectionsAPI is the subset of pb.CollectionsClient the store uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Store indexes findings in a Qdrant collection.
type Store struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
}

// New creates a Store connected to Qdrant at the given gRPC address.
func New(addr, collection string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("findings: dial qdrant %s: %w", addr, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// NewWithClients creates a Store over pre-built clients.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string) *Store {
	return &Store{points: points, collections: collections, collection: collection}
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist.
func (s *Store) EnsureCollection(ctx context.Context, dims int) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("findings: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("findings: create collection %s: %w", s.collection, err)
	}
	return nil
}

// Index stores finding records. Re-indexing the same finding id overwrites
// the previous point.
func (s *Store) Index(ctx context.Context, records []FindingRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: r.Finding.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: findingPayload(r.Finding),
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("findings: upsert %d points: %w", len(records), err)
	}
	return nil
}

// DeleteByResponse removes all findings indexed for a response. Used when a
// response is voided or re-submitted.
func (s *Store) DeleteByResponse(ctx context.Context, responseID string) error {
	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{
						fieldMatch("response_id", responseID),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("findings: delete by response %s: %w", responseID, err)
	}
	return nil
}

// SearchSimilar performs k-NN similarity search over indexed findings with
// optional payload filters (e.g. item_id, band).
func (s *Store) SearchSimilar(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]SimilarFinding, error) {
	req := &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}

	if len(filters) > 0 {
		must := make([]*pb.Condition, 0, len(filters))
		for k, v := range filters {
			must = append(must, fieldMatch(k, v))
		}
		req.Filter = &pb.Filter{Must: must}
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("findings: search: %w", err)
	}

	results := make([]SimilarFinding, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		results[i] = SimilarFinding{
			Finding:    findingFromPayload(r.GetId().GetUuid(), r.GetPayload()),
			Similarity: r.GetScore(),
		}
	}
	return results, nil
}

func findingPayload(f Finding) map[string]*pb.Value {
	return map[string]*pb.Value{
		"response_id": {Kind: &pb.Value_StringValue{StringValue: f.ResponseID}},
		"vehicle_id":  {Kind: &pb.Value_StringValue{StringValue: f.VehicleID}},
		"item_id":     {Kind: &pb.Value_StringValue{StringValue: f.ItemID}},
		"section_id":  {Kind: &pb.Value_StringValue{StringValue: f.SectionID}},
		"band":        {Kind: &pb.Value_StringValue{StringValue: string(f.Band)}},
		"score":       {Kind: &pb.Value_DoubleValue{DoubleValue: f.Score}},
		"notes":       {Kind: &pb.Value_StringValue{StringValue: f.Notes}},
	}
}

func findingFromPayload(id string, payload map[string]*pb.Value) Finding {
	f := Finding{ID: id}
	for k, v := range payload {
		switch k {
		case "response_id":
			f.ResponseID = v.GetStringValue()
		case "vehicle_id":
			f.VehicleID = v.GetStringValue()
		case "item_id":
			f.ItemID = v.GetStringValue()
		case "section_id":
			f.SectionID = v.GetStringValue()
		case "band":
			f.Band = vhc.Band(v.GetStringValue())
		case "score":
			f.Score = v.GetDoubleValue()
		case "notes":
			f.Notes = v.GetStringValue()
		}
	}
	return f
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
