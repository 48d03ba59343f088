package repository

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/mbruun/artsearch/internal/domain"
)

// QdrantConnectionConfig holds configuration for Qdrant connection
type QdrantConnectionConfig struct {
	Host       string
	Port       int
	Collection string
	APIKey     string // Qdrant Cloud API Key (enables TLS automatically)
	UseTLS     bool   // Explicitly enable TLS without API Key
}

// apiKeyInterceptor creates a unary interceptor that adds API key to metadata
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// PointID derives the deterministic point UUID for an artwork. The same
// (museum, object number) pair always maps to the same point, which is what
// makes repeated loads overwrite instead of duplicate.
// Parameters:
//   - museumSlug: museum identifier.
//   - objectNumber: artwork's public identifier within the museum.
// Returns:
//   - string: name-based UUID in canonical form.
func PointID(museumSlug, objectNumber string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(museumSlug+"-"+objectNumber)).String()
}

// QdrantRepository handles vector operations with Qdrant. Every point carries
// one named vector per vector type; types not yet computed hold zero vectors.
type QdrantRepository struct {
	conn           *grpc.ClientConn
	pointsClient   pb.PointsClient
	collectClient  pb.CollectionsClient
	collectionName string
}

// NewQdrantRepository creates a new QdrantRepository
// Supports both local Qdrant (insecure) and Qdrant Cloud (TLS + API Key)
func NewQdrantRepository(cfg *QdrantConnectionConfig) (*QdrantRepository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	// Build gRPC dial options
	var opts []grpc.DialOption

	// TLS is enabled if: APIKey is set OR UseTLS is explicitly true
	useTLS := cfg.UseTLS || cfg.APIKey != ""

	if useTLS {
		// Use TLS with system root certificates (TLS 1.3 minimum for Qdrant Cloud)
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
		creds := credentials.NewTLS(tlsConfig)
		opts = append(opts, grpc.WithTransportCredentials(creds))

		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		// Local mode: no TLS, no authentication
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantRepository{
		conn:           conn,
		pointsClient:   pb.NewPointsClient(conn),
		collectClient:  pb.NewCollectionsClient(conn),
		collectionName: cfg.Collection,
	}, nil
}

// Close closes the gRPC connection
func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

// EnsureCollection creates the collection with one named vector space per
// vector type if it doesn't exist, and verifies dimensions if it does.
func (r *QdrantRepository) EnsureCollection(ctx context.Context) error {
	info, err := r.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collectionName,
	})
	if err == nil {
		return verifyNamedVectors(r.collectionName, info.GetResult())
	}

	params := make(map[string]*pb.VectorParams, len(domain.AllVectorTypes))
	for _, vt := range domain.AllVectorTypes {
		params[vt.String()] = &pb.VectorParams{
			Size:     uint64(vt.Dimensions()),
			Distance: pb.Distance_Cosine,
		}
	}

	_, err = r.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_ParamsMap{
				ParamsMap: &pb.VectorParamsMap{Map: params},
			},
		},
		HnswConfig: &pb.HnswConfigDiff{
			M:                 optionalUint64(16),
			EfConstruct:       optionalUint64(128),
			FullScanThreshold: optionalUint64(10000),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

func optionalUint64(v uint64) *uint64 {
	return &v
}

func verifyNamedVectors(name string, info *pb.CollectionInfo) error {
	if info == nil {
		return nil
	}
	config := info.GetConfig()
	if config == nil {
		return nil
	}
	params := config.GetParams()
	if params == nil {
		return nil
	}
	vectors := params.GetVectorsConfig()
	if vectors == nil {
		return nil
	}
	paramsMap := vectors.GetParamsMap()
	if paramsMap == nil {
		return fmt.Errorf("collection %s does not use named vectors", name)
	}

	for _, vt := range domain.AllVectorTypes {
		vp, ok := paramsMap.GetMap()[vt.String()]
		if !ok {
			return fmt.Errorf("collection %s is missing vector %q", name, vt)
		}
		if vp.GetSize() != uint64(vt.Dimensions()) {
			return fmt.Errorf("collection %s vector %q has size %d, expected %d",
				name, vt, vp.GetSize(), vt.Dimensions())
		}
	}
	return nil
}

// ArtworkPayload represents the payload stored with each point. WorkTypes
// carries the museum's own labels; SearchableWorkTypes is the standardized
// projection search filters match on.
type ArtworkPayload struct {
	Museum              string   `json:"museum"`
	ObjectNumber        string   `json:"object_number"`
	Title               string   `json:"title"`
	Artists             []string `json:"artists"`
	WorkTypes           []string `json:"work_types"`
	SearchableWorkTypes []string `json:"searchable_work_types"`
	ProductionDateStart *int     `json:"production_date_start,omitempty"`
	ProductionDateEnd   *int     `json:"production_date_end,omitempty"`
	Period              string   `json:"period,omitempty"`
	ThumbnailURL        string   `json:"thumbnail_url"`
	FrontendURL         string   `json:"frontend_url,omitempty"`
}

// NewArtworkPayload builds the point payload for an artwork.
func NewArtworkPayload(a *domain.Artwork) *ArtworkPayload {
	return &ArtworkPayload{
		Museum:              a.MuseumSlug,
		ObjectNumber:        a.ObjectNumber,
		Title:               a.Title,
		Artists:             a.Artists,
		WorkTypes:           a.WorkTypes,
		SearchableWorkTypes: a.SearchableWorkTypes,
		ProductionDateStart: a.ProductionDateStart,
		ProductionDateEnd:   a.ProductionDateEnd,
		Period:              a.Period,
		ThumbnailURL:        a.ThumbnailURL,
		FrontendURL:         a.FrontendURL,
	}
}

func payloadToValues(p *ArtworkPayload) map[string]*pb.Value {
	values := map[string]*pb.Value{
		"museum":                {Kind: &pb.Value_StringValue{StringValue: p.Museum}},
		"object_number":         {Kind: &pb.Value_StringValue{StringValue: p.ObjectNumber}},
		"title":                 {Kind: &pb.Value_StringValue{StringValue: p.Title}},
		"artists":               stringsToValue(p.Artists),
		"work_types":            stringsToValue(p.WorkTypes),
		"searchable_work_types": stringsToValue(p.SearchableWorkTypes),
		"thumbnail_url":         {Kind: &pb.Value_StringValue{StringValue: p.ThumbnailURL}},
		"frontend_url":          {Kind: &pb.Value_StringValue{StringValue: p.FrontendURL}},
		"period":                {Kind: &pb.Value_StringValue{StringValue: p.Period}},
	}
	if p.ProductionDateStart != nil {
		values["production_date_start"] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(*p.ProductionDateStart)}}
	}
	if p.ProductionDateEnd != nil {
		values["production_date_end"] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(*p.ProductionDateEnd)}}
	}
	return values
}

func stringsToValue(items []string) *pb.Value {
	values := make([]*pb.Value, len(items))
	for i, item := range items {
		values[i] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: item}}
	}
	return &pb.Value{
		Kind: &pb.Value_ListValue{
			ListValue: &pb.ListValue{Values: values},
		},
	}
}

func namedVectors(vectors map[domain.VectorType][]float32) *pb.Vectors {
	named := make(map[string]*pb.Vector, len(vectors))
	for vt, data := range vectors {
		named[vt.String()] = &pb.Vector{Data: data}
	}
	return &pb.Vectors{
		VectorsOptions: &pb.Vectors_Vectors{
			Vectors: &pb.NamedVectors{Vectors: named},
		},
	}
}

func pointIDRef(pointID string) (*pb.PointId, error) {
	uid, err := uuid.Parse(pointID)
	if err != nil {
		return nil, fmt.Errorf("invalid point ID: %w", err)
	}
	return &pb.PointId{
		PointIdOptions: &pb.PointId_Uuid{Uuid: uid.String()},
	}, nil
}

// HasPoint reports whether a point already exists in the collection.
func (r *QdrantRepository) HasPoint(ctx context.Context, pointID string) (bool, error) {
	id, err := pointIDRef(pointID)
	if err != nil {
		return false, err
	}
	resp, err := r.pointsClient.Get(ctx, &pb.GetPoints{
		CollectionName: r.collectionName,
		Ids:            []*pb.PointId{id},
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: false},
		},
		WithVectors: &pb.WithVectorsSelector{
			SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: false},
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to get point: %w", err)
	}
	return len(resp.GetResult()) > 0, nil
}

// UpsertPoint writes a full point: all vector spaces plus payload. Vector
// types absent from vectors are stored as zero vectors, so a new point always
// carries every named vector the collection declares.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - pointID: deterministic point UUID.
//   - vectors: computed vectors keyed by type.
//   - payload: artwork payload to attach.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *QdrantRepository) UpsertPoint(ctx context.Context, pointID string, vectors map[domain.VectorType][]float32, payload *ArtworkPayload) error {
	id, err := pointIDRef(pointID)
	if err != nil {
		return err
	}

	full := make(map[domain.VectorType][]float32, len(domain.AllVectorTypes))
	for _, vt := range domain.AllVectorTypes {
		if data, ok := vectors[vt]; ok {
			full[vt] = data
		} else {
			full[vt] = make([]float32, vt.Dimensions())
		}
	}

	_, err = r.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collectionName,
		Points: []*pb.PointStruct{
			{
				Id:      id,
				Vectors: namedVectors(full),
				Payload: payloadToValues(payload),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}

// UpdateVectors overwrites only the given named vectors on an existing point,
// leaving the point's other vector spaces untouched.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - pointID: deterministic point UUID.
//   - vectors: vectors to overwrite, keyed by type.
// Returns:
//   - error: non-nil if the update fails.
func (r *QdrantRepository) UpdateVectors(ctx context.Context, pointID string, vectors map[domain.VectorType][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	id, err := pointIDRef(pointID)
	if err != nil {
		return err
	}

	_, err = r.pointsClient.UpdateVectors(ctx, &pb.UpdatePointVectors{
		CollectionName: r.collectionName,
		Points: []*pb.PointVectors{
			{
				Id:      id,
				Vectors: namedVectors(vectors),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update vectors: %w", err)
	}
	return nil
}

// SetPayload replaces payload fields on an existing point.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - pointID: deterministic point UUID.
//   - payload: artwork payload to write.
// Returns:
//   - error: non-nil if the operation fails.
func (r *QdrantRepository) SetPayload(ctx context.Context, pointID string, payload *ArtworkPayload) error {
	id, err := pointIDRef(pointID)
	if err != nil {
		return err
	}

	_, err = r.pointsClient.SetPayload(ctx, &pb.SetPayloadPoints{
		CollectionName: r.collectionName,
		Payload:        payloadToValues(payload),
		PointsSelector: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: []*pb.PointId{id}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to set payload: %w", err)
	}
	return nil
}

// Count returns the number of points in the collection.
func (r *QdrantRepository) Count(ctx context.Context) (uint64, error) {
	resp, err := r.pointsClient.Count(ctx, &pb.CountPoints{
		CollectionName: r.collectionName,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return resp.GetResult().GetCount(), nil
}

// SearchResult represents a search result from Qdrant
type SearchResult struct {
	ID      string
	Score   float32
	Payload *ArtworkPayload
}

// SearchFilters defines optional filters for search
type SearchFilters struct {
	Museums   []string
	WorkTypes []string
}

// Search performs similarity search against one named vector space.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - vectorType: named vector space to search.
//   - vector: query vector; its length must match the space's dimension.
//   - topK: maximum number of results.
//   - scoreThreshold: minimum cosine similarity; 0 disables the cutoff.
//   - filters: optional payload filters.
// Returns:
//   - []SearchResult: scored results with payloads.
//   - error: non-nil if the search fails.
func (r *QdrantRepository) Search(ctx context.Context, vectorType domain.VectorType, vector []float32, topK int, scoreThreshold float32, filters *SearchFilters) ([]SearchResult, error) {
	vectorName := vectorType.String()
	req := &pb.SearchPoints{
		CollectionName: r.collectionName,
		Vector:         vector,
		VectorName:     &vectorName,
		Limit:          uint64(topK),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	}
	if scoreThreshold > 0 {
		req.ScoreThreshold = &scoreThreshold
	}
	if filters != nil {
		req.Filter = buildFilter(filters)
	}

	resp, err := r.pointsClient.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, len(resp.Result))
	for i, scored := range resp.Result {
		results[i] = SearchResult{
			ID:      scored.Id.GetUuid(),
			Score:   scored.Score,
			Payload: parsePayload(scored.Payload),
		}
	}

	return results, nil
}

func buildFilter(filters *SearchFilters) *pb.Filter {
	var conditions []*pb.Condition

	if len(filters.Museums) > 0 {
		conditions = append(conditions, &pb.Condition{
			ConditionOneOf: &pb.Condition_Field{
				Field: &pb.FieldCondition{
					Key: "museum",
					Match: &pb.Match{
						MatchValue: &pb.Match_Keywords{
							Keywords: &pb.RepeatedStrings{Strings: filters.Museums},
						},
					},
				},
			},
		})
	}

	if len(filters.WorkTypes) > 0 {
		conditions = append(conditions, &pb.Condition{
			ConditionOneOf: &pb.Condition_Field{
				Field: &pb.FieldCondition{
					Key: "searchable_work_types",
					Match: &pb.Match{
						MatchValue: &pb.Match_Keywords{
							Keywords: &pb.RepeatedStrings{Strings: filters.WorkTypes},
						},
					},
				},
			},
		})
	}

	if len(conditions) == 0 {
		return nil
	}

	return &pb.Filter{
		Must: conditions,
	}
}

func parsePayload(payload map[string]*pb.Value) *ArtworkPayload {
	if payload == nil {
		return nil
	}

	p := &ArtworkPayload{}
	if v, ok := payload["museum"]; ok {
		p.Museum = v.GetStringValue()
	}
	if v, ok := payload["object_number"]; ok {
		p.ObjectNumber = v.GetStringValue()
	}
	if v, ok := payload["title"]; ok {
		p.Title = v.GetStringValue()
	}
	if v, ok := payload["artists"]; ok {
		p.Artists = valueToStrings(v)
	}
	if v, ok := payload["work_types"]; ok {
		p.WorkTypes = valueToStrings(v)
	}
	if v, ok := payload["searchable_work_types"]; ok {
		p.SearchableWorkTypes = valueToStrings(v)
	}
	if v, ok := payload["production_date_start"]; ok {
		if _, isInt := v.GetKind().(*pb.Value_IntegerValue); isInt {
			year := int(v.GetIntegerValue())
			p.ProductionDateStart = &year
		}
	}
	if v, ok := payload["production_date_end"]; ok {
		if _, isInt := v.GetKind().(*pb.Value_IntegerValue); isInt {
			year := int(v.GetIntegerValue())
			p.ProductionDateEnd = &year
		}
	}
	if v, ok := payload["period"]; ok {
		p.Period = v.GetStringValue()
	}
	if v, ok := payload["thumbnail_url"]; ok {
		p.ThumbnailURL = v.GetStringValue()
	}
	if v, ok := payload["frontend_url"]; ok {
		p.FrontendURL = v.GetStringValue()
	}

	return p
}

func valueToStrings(v *pb.Value) []string {
	list := v.GetListValue()
	if list == nil {
		return nil
	}
	out := make([]string, 0, len(list.Values))
	for _, item := range list.Values {
		out = append(out, item.GetStringValue())
	}
	return out
}

// Delete deletes a point by ID
func (r *QdrantRepository) Delete(ctx context.Context, pointID string) error {
	id, err := pointIDRef(pointID)
	if err != nil {
		return err
	}

	_, err = r.pointsClient.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collectionName,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{
					Ids: []*pb.PointId{id},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete point: %w", err)
	}

	return nil
}
