package findings

import (
	"context"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"

	"github.com/OpenBayHQ/openbay-mvp/engine/vhc"
)

type stubEmbedder struct {
	calls int
}

func (e *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	e.calls++
	return []float32{0.1, 0.2}, nil
}

func (e *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.calls += len(texts)
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func flaggedResponse() vhc.Response {
	return vhc.Response{
		ID: "resp-1", VehicleID: "veh-1", Powertrain: vhc.PowertrainICE,
		Answers: []vhc.Answer{
			{ItemID: "pads", Value: num(1), Notes: "metal on metal"},
			{ItemID: "discs", Value: num(5)},
			{ItemID: "fluid", Value: num(5)},
		},
	}
}

func TestIndexResponse(t *testing.T) {
	pts := &mockPoints{}
	emb := &stubEmbedder{}
	f := NewFinder(NewWithClients(pts, &mockCollections{}, "findings"), emb)

	n, err := f.IndexResponse(context.Background(), extractTemplate(), flaggedResponse())
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if n != 1 {
		t.Fatalf("indexed = %d, want 1 (only pads is flagged)", n)
	}
	if emb.calls != 1 {
		t.Errorf("embed calls = %d", emb.calls)
	}
	if len(pts.upsertReq.GetPoints()) != 1 {
		t.Errorf("points = %d", len(pts.upsertReq.GetPoints()))
	}
}

func TestIndexResponse_NothingFlagged(t *testing.T) {
	pts := &mockPoints{}
	f := NewFinder(NewWithClients(pts, &mockCollections{}, "findings"), &stubEmbedder{})

	clean := flaggedResponse()
	clean.Answers[0].Value = num(5)
	n, err := f.IndexResponse(context.Background(), extractTemplate(), clean)
	if err != nil || n != 0 {
		t.Fatalf("index = %d, %v", n, err)
	}
	if pts.upsertReq != nil {
		t.Error("clean response must not hit qdrant")
	}
}

func TestSimilarForResponse_DropsOwnPoint(t *testing.T) {
	hit := func(respID string, score float32) *pb.ScoredPoint {
		return &pb.ScoredPoint{
			Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: FindingID(respID, "pads")}},
			Score: score,
			Payload: map[string]*pb.Value{
				"response_id": {Kind: &pb.Value_StringValue{StringValue: respID}},
				"item_id":     {Kind: &pb.Value_StringValue{StringValue: "pads"}},
			},
		}
	}
	pts := &mockPoints{searchResp: &pb.SearchResponse{
		Result: []*pb.ScoredPoint{hit("resp-1", 1.0), hit("resp-7", 0.8)},
	}}
	f := NewFinder(NewWithClients(pts, &mockCollections{}, "findings"), &stubEmbedder{})

	out, err := f.SimilarForResponse(context.Background(), extractTemplate(), flaggedResponse(), "", 5)
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	if len(out) != 1 || out[0].ItemID != "pads" {
		t.Fatalf("out = %+v", out)
	}
	if len(out[0].Hits) != 1 || out[0].Hits[0].Finding.ResponseID != "resp-7" {
		t.Errorf("hits = %+v (own response must be dropped)", out[0].Hits)
	}
}

func TestSimilarForResponse_ItemFilter(t *testing.T) {
	pts := &mockPoints{searchResp: &pb.SearchResponse{}}
	f := NewFinder(NewWithClients(pts, &mockCollections{}, "findings"), &stubEmbedder{})

	r := flaggedResponse()
	r.Answers[1].Value = num(2) // flag discs as well
	out, err := f.SimilarForResponse(context.Background(), extractTemplate(), r, "discs", 5)
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	if len(out) != 1 || out[0].ItemID != "discs" {
		t.Errorf("out = %+v, want only discs", out)
	}
}
